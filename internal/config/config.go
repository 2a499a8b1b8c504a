package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultUpdateInterval = 24 * time.Hour
	defaultFetchTimeout   = 10 * time.Second
)

type Config struct {
	Port           string
	DatabaseURI    string
	APIKey         string
	APIURL         string
	UpdateInterval time.Duration
	FetchTimeout   time.Duration
	FetchRetries   uint64
	RetryDelay     time.Duration
	Workers        int
	CORSOrigins    []string
	LogLevel       string
	LogFormat      string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "5000")
	v.SetDefault("DATABASE_URI", "sqlite://currency_exchange.db")
	v.SetDefault("EXCHANGE_RATE_API_KEY", "")
	v.SetDefault("EXCHANGE_RATE_API_URL", "https://api.exchangerate-api.com/v4/latest/")
	v.SetDefault("UPDATE_INTERVAL_HOURS", 24)
	v.SetDefault("FETCH_TIMEOUT", "10s")
	v.SetDefault("FETCH_RETRIES", 2)
	v.SetDefault("FETCH_RETRY_DELAY", "1s")
	v.SetDefault("REFRESH_WORKERS", 4)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	cfg := Config{
		Port:         v.GetString("PORT"),
		DatabaseURI:  v.GetString("DATABASE_URI"),
		APIKey:       v.GetString("EXCHANGE_RATE_API_KEY"),
		APIURL:       v.GetString("EXCHANGE_RATE_API_URL"),
		FetchTimeout: v.GetDuration("FETCH_TIMEOUT"),
		RetryDelay:   v.GetDuration("FETCH_RETRY_DELAY"),
		Workers:      v.GetInt("REFRESH_WORKERS"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		LogFormat:    v.GetString("LOG_FORMAT"),
	}

	hours := v.GetInt("UPDATE_INTERVAL_HOURS")
	if hours <= 0 {
		slog.Warn("invalid UPDATE_INTERVAL_HOURS, using default", "value", v.GetString("UPDATE_INTERVAL_HOURS"))
		cfg.UpdateInterval = defaultUpdateInterval
	} else {
		cfg.UpdateInterval = time.Duration(hours) * time.Hour
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if retries := v.GetInt("FETCH_RETRIES"); retries > 0 {
		cfg.FetchRetries = uint64(retries)
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	for _, o := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	return cfg
}
