package config

import (
	"log"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

var cfg Config

type Config struct {
	TelegramAPI string `env:"TELEGRAM_API,required"`
	LoggerLevel string `env:"LOGGER_LEVEL" envDefault:"warn"`
	DBPath      string `env:"DB_PATH" envDefault:"meetings.db"`
	Timezone    string `env:"TIMEZONE" envDefault:"Asia/Singapore"`

	WeeklyDay    string `env:"WEEKLY_DAY" envDefault:"mon"`
	WeeklyHour   int    `env:"WEEKLY_HOUR" envDefault:"8"`
	WeeklyMinute int    `env:"WEEKLY_MINUTE" envDefault:"0"`

	SelfURL      string        `env:"SELF_URL"`
	PingInterval time.Duration `env:"PING_INTERVAL" envDefault:"5m"`

	Port int `env:"PORT" envDefault:"8080"`
}

func NewConfig(files ...string) (*Config, error) {
	err := godotenv.Load(files...)
	if err != nil {
		log.Println(".env file not found, reading config from environment")
	}

	err = env.Parse(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func Get() *Config {
	return &cfg
}
