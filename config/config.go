package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB     int    `mapstructure:"REDIS_CACHE_DB"`
	RedisDedupDB     int    `mapstructure:"REDIS_DEDUP_DB"`
	RedisTaskQueueDB int    `mapstructure:"REDIS_TASK_QUEUE_DB"`

	// Escalation engine tuning.
	TierTimeoutSeconds   int `mapstructure:"TIER_TIMEOUT_SECONDS"`
	SweepIntervalSeconds int `mapstructure:"SWEEP_INTERVAL_SECONDS"`
	DedupWindowSeconds   int `mapstructure:"DEDUP_WINDOW_SECONDS"`

	// Delivery dispatcher tuning.
	DispatchMaxAttempts        int `mapstructure:"DISPATCH_MAX_ATTEMPTS"`
	DispatchBackoffBaseSeconds int `mapstructure:"DISPATCH_BACKOFF_BASE_SECONDS"`
	DispatchTimeoutSeconds     int `mapstructure:"DISPATCH_TIMEOUT_SECONDS"`

	// Reminder scheduler tuning.
	SchedulerTickSeconds int `mapstructure:"SCHEDULER_TICK_SECONDS"`

	// Outbound provider endpoints.
	SMSProviderURL      string `mapstructure:"SMS_PROVIDER_URL"`
	SMSProviderKey      string `mapstructure:"SMS_PROVIDER_KEY"`
	VoiceProviderURL    string `mapstructure:"VOICE_PROVIDER_URL"`
	VoiceProviderKey    string `mapstructure:"VOICE_PROVIDER_KEY"`
	EmergencyAPIURL     string `mapstructure:"EMERGENCY_API_URL"`
	EmergencyAPIKey     string `mapstructure:"EMERGENCY_API_KEY"`
	FallbackHospitalURL string `mapstructure:"FALLBACK_HOSPITAL_URL"`
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
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_DEDUP_DB", 1)
	viper.SetDefault("REDIS_TASK_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("TIER_TIMEOUT_SECONDS", 120)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 30)
	viper.SetDefault("DEDUP_WINDOW_SECONDS", 300)
	viper.SetDefault("DISPATCH_MAX_ATTEMPTS", 3)
	viper.SetDefault("DISPATCH_BACKOFF_BASE_SECONDS", 5)
	viper.SetDefault("DISPATCH_TIMEOUT_SECONDS", 10)
	viper.SetDefault("SCHEDULER_TICK_SECONDS", 30)
	viper.SetDefault("SMS_PROVIDER_URL", "")
	viper.SetDefault("VOICE_PROVIDER_URL", "")
	viper.SetDefault("EMERGENCY_API_URL", "")
	viper.SetDefault("FALLBACK_HOSPITAL_URL", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
