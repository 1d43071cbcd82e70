package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort       string        `mapstructure:"SERVER_PORT"`
	RestaurantAPIURL string        `mapstructure:"RESTAURANT_API_URL"`
	HTTPTimeout      time.Duration `mapstructure:"HTTP_TIMEOUT"`
	FeedPageSize     int           `mapstructure:"FEED_PAGE_SIZE"`
	PageCacheTTL     time.Duration `mapstructure:"PAGE_CACHE_TTL"`
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
}

func Load() Config {
	viper.AutomaticEnv()
	viper.SetDefault("SERVER_PORT", ":8080")
	viper.SetDefault("RESTAURANT_API_URL", "http://localhost:5000/api/")
	viper.SetDefault("HTTP_TIMEOUT", "10s")
	viper.SetDefault("FEED_PAGE_SIZE", 10)
	viper.SetDefault("PAGE_CACHE_TTL", "30s")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	// unmarshal only sees keys viper already knows about
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("JWT_SECRET", "dev-secret-change-me")

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	if cfg.FeedPageSize <= 0 {
		cfg.FeedPageSize = 10
	}
	return cfg
}
