package entity

// BotStatus is the health snapshot exposed over HTTP for uptime monitoring.
type BotStatus struct {
	Ready         bool   `json:"ready"`
	Username      string `json:"username"`
	Guilds        int    `json:"guilds"`
	UptimeSeconds int64  `json:"uptime"`
}
