package clock

import "time"

func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// Uptime returns whole seconds elapsed since start.
func Uptime(start time.Time) int64 {
	return int64(time.Since(start).Seconds())
}
