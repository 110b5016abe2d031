package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort     string `mapstructure:"APP_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Env         string `mapstructure:"ENV"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	AdminToken  string `mapstructure:"ADMIN_TOKEN"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisAuthDB    int    `mapstructure:"REDIS_AUTH_DB"`
	RedisWorkerDB  int    `mapstructure:"REDIS_WORKER_DB"`

	// Reservation engine knobs.
	HoldTTLSeconds       int `mapstructure:"HOLD_TTL_SECONDS"`
	HoldSweepSeconds     int `mapstructure:"HOLD_SWEEP_SECONDS"`
	SessionSendBuffer    int `mapstructure:"SESSION_SEND_BUFFER"`
	MaintenanceIntervalM int `mapstructure:"MAINTENANCE_INTERVAL_MINUTES"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_AUTH_DB", 1)
	viper.SetDefault("REDIS_WORKER_DB", 3)
	viper.SetDefault("HOLD_TTL_SECONDS", 90)
	viper.SetDefault("HOLD_SWEEP_SECONDS", 30)
	viper.SetDefault("SESSION_SEND_BUFFER", 64)
	viper.SetDefault("MAINTENANCE_INTERVAL_MINUTES", 10)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// HoldTTL returns the configured hold TTL as a duration.
func HoldTTL() time.Duration {
	return time.Duration(AppConfig.HoldTTLSeconds) * time.Second
}

// HoldSweepInterval returns the backstop sweep interval for expired holds.
func HoldSweepInterval() time.Duration {
	return time.Duration(AppConfig.HoldSweepSeconds) * time.Second
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
