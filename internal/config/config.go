package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"

	"rolegate/lib/validate"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"PORT" env-default:"8080"`
}

type DiscordConfig struct {
	Token string `yaml:"token" env:"DISCORD_TOKEN" env-default:"" json:"token" validate:"required"`
	// SettleDelayMs is how long a join event waits before fetching invites,
	// giving the platform time to propagate the new use count.
	SettleDelayMs int `yaml:"settle_delay_ms" env-default:"1000" json:"settle_delay_ms" validate:"min=0"`
	// LogChannelId, when set, receives warning-and-above log lines.
	LogChannelId string `yaml:"log_channel_id" env-default:"" json:"log_channel_id"`
}

type StorageConfig struct {
	// DataDir holds the JSON store files when Mongo is disabled.
	DataDir string `yaml:"data_dir" env-default:"./data" json:"data_dir"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"rolegate"`
}

type ApiConfig struct {
	// Token authorizes the read-only HTTP API. Empty disables the /v1 routes.
	Token string `yaml:"token" env-default:"" json:"token"`
}

type Config struct {
	Discord DiscordConfig `yaml:"discord" json:"discord"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Api     ApiConfig     `yaml:"api" json:"api"`
	Listen  Listen        `yaml:"listen"`
	Env     string        `yaml:"env" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
		if err = validate.Struct(instance.Discord); err != nil {
			log.Fatal(fmt.Errorf("config discord: %s", err))
		}
	})
	return instance
}
