package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	UDP      UDP    `yaml:"udp"`
	Redis    Redis  `yaml:"redis"`
}

type UDP struct {
	Port        string `yaml:"port" env:"UDP_PORT" env-default:"8080"`
	Workers     int    `yaml:"workers" env:"UDP_WORKERS" env-default:"4"`
	QueueSize   int    `yaml:"queue-size" env:"UDP_QUEUE_SIZE" env-default:"64"`
	MaxDatagram int    `yaml:"max-datagram" env:"UDP_MAX_DATAGRAM" env-default:"5000"`
}

type Redis struct {
	Enabled     bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host        string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port        string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	ResultTTL   time.Duration `yaml:"result-ttl" env:"REDIS_RESULT_TTL" env-default:"168h"`
	RecentLimit int64         `yaml:"recent-limit" env:"REDIS_RECENT_LIMIT" env-default:"100"`
}

// MustLoad - load all configurations in config.yml file.
// Without the file only the environment and defaults are used.
func MustLoad(path string) *Config {
	config := &Config{}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err = cleanenv.ReadEnv(config); err != nil {
			panic(fmt.Errorf("unable to read config from environment: %w", err))
		}

		return config
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
