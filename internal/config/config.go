/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the community-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                string `mapstructure:"SERVER_PORT"`
	DatabaseURL               string `mapstructure:"DATABASE_URL"`
	RedisURL                  string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix      string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL               string `mapstructure:"RABBITMQ_URL"`
	NoticeExchange            string `mapstructure:"NOTICE_EXCHANGE"`
	JWTSecret                 string `mapstructure:"JWT_SECRET"`
	FineSweepSchedule         string `mapstructure:"FINE_SWEEP_SCHEDULE"`
	ScanRateLimitPerMinute    int    `mapstructure:"SCAN_RATE_LIMIT_PER_MINUTE"`
	ReservationRetryAttempts  int    `mapstructure:"RESERVATION_RETRY_ATTEMPTS"`
	ScanHistoryDefaultLimit   int    `mapstructure:"SCAN_HISTORY_DEFAULT_LIMIT"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("NOTICE_EXCHANGE", "community.notices")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "arcos:rate_limit")
	viper.SetDefault("FINE_SWEEP_SCHEDULE", "0 6 * * *")
	viper.SetDefault("SCAN_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("RESERVATION_RETRY_ATTEMPTS", 2)
	viper.SetDefault("SCAN_HISTORY_DEFAULT_LIMIT", 50)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "COMMUNITY_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("NOTICE_EXCHANGE")
	_ = viper.BindEnv("JWT_SECRET", "JWT_SECRET", "COMMUNITY_JWT_SECRET")
	_ = viper.BindEnv("FINE_SWEEP_SCHEDULE")
	_ = viper.BindEnv("SCAN_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RESERVATION_RETRY_ATTEMPTS")
	_ = viper.BindEnv("SCAN_HISTORY_DEFAULT_LIMIT")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "arcos:rate_limit"
	}
	config.JWTSecret = strings.TrimSpace(config.JWTSecret)

	if config.ScanRateLimitPerMinute <= 0 {
		config.ScanRateLimitPerMinute = 30
	}
	if config.ReservationRetryAttempts <= 0 {
		config.ReservationRetryAttempts = 2
	}
	if config.ScanHistoryDefaultLimit <= 0 {
		config.ScanHistoryDefaultLimit = 50
	}

	return
}
