package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	WSPort       int           `mapstructure:"ws_port"` // 0 disables the websocket bridge
	DBPath       string        `mapstructure:"db_path"`
	SendQueue    int           `mapstructure:"send_queue"`
	ReadLimit    int           `mapstructure:"read_limit"`
	HistoryLimit int           `mapstructure:"history_limit"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("host", "")
	v.SetDefault("port", 12345)
	v.SetDefault("ws_port", 0)
	v.SetDefault("db_path", "chat.db")
	v.SetDefault("send_queue", 32)
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("history_limit", 50)
	v.SetDefault("write_timeout", "5s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
