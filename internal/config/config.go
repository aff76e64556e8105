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

// Config holds all the configuration variables for the mission-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort             string  `mapstructure:"SERVER_PORT"`
	DatabaseURL            string  `mapstructure:"DATABASE_URL"`
	RedisURL               string  `mapstructure:"REDIS_URL"`
	MissionCachePrefix     string  `mapstructure:"REDIS_MISSION_CACHE_PREFIX"`
	MissionCacheTTLSeconds int     `mapstructure:"MISSION_CACHE_TTL_SECONDS"`
	RabbitMQURL            string  `mapstructure:"RABBITMQ_URL"`
	MissionEventQueue      string  `mapstructure:"MISSION_EVENT_QUEUE"`
	JWKSURL                string  `mapstructure:"JWKS_URL"`
	LedgerServiceURL       string  `mapstructure:"LEDGER_SERVICE_URL"`
	BusinessServiceURL     string  `mapstructure:"BUSINESS_SERVICE_URL"`
	InternalAPIKey         string  `mapstructure:"INTERNAL_API_KEY"`
	MissionExpirySchedule  string  `mapstructure:"MISSION_EXPIRY_SCHEDULE"`
	ValuePerCompletionEUR  float64 `mapstructure:"VALUE_PER_COMPLETION_EUR"`
	PointsPerEuro          float64 `mapstructure:"POINTS_PER_EURO"`
	ViewsPerParticipant    int     `mapstructure:"VIEWS_PER_PARTICIPANT"`
	MinEstimatedViews      int     `mapstructure:"MIN_ESTIMATED_VIEWS"`
	DefaultTimeToComplete  float64 `mapstructure:"DEFAULT_TIME_TO_COMPLETE_MIN"`
	RatingExcellent        float64 `mapstructure:"RATING_EXCELLENT"`
	RatingGood             float64 `mapstructure:"RATING_GOOD"`
	RatingFair             float64 `mapstructure:"RATING_FAIR"`
	MinMissionPoints       int     `mapstructure:"MIN_MISSION_POINTS"`
	MaxMissionPoints       int     `mapstructure:"MAX_MISSION_POINTS"`
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
	viper.SetDefault("REDIS_MISSION_CACHE_PREFIX", "fluzio:mission_cache")
	viper.SetDefault("MISSION_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("MISSION_EVENT_QUEUE", "mission_service.lifecycle_updates")
	viper.SetDefault("MISSION_EXPIRY_SCHEDULE", "*/5 * * * *")
	viper.SetDefault("VALUE_PER_COMPLETION_EUR", 7.5)
	viper.SetDefault("POINTS_PER_EURO", 100.0)
	viper.SetDefault("VIEWS_PER_PARTICIPANT", 3)
	viper.SetDefault("MIN_ESTIMATED_VIEWS", 100)
	viper.SetDefault("DEFAULT_TIME_TO_COMPLETE_MIN", 30.0)
	viper.SetDefault("RATING_EXCELLENT", 40.0)
	viper.SetDefault("RATING_GOOD", 25.0)
	viper.SetDefault("RATING_FAIR", 15.0)
	viper.SetDefault("MIN_MISSION_POINTS", 25)
	viper.SetDefault("MAX_MISSION_POINTS", 500)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_MISSION_CACHE_PREFIX")
	_ = viper.BindEnv("MISSION_CACHE_TTL_SECONDS")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("MISSION_EVENT_QUEUE")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("LEDGER_SERVICE_URL")
	_ = viper.BindEnv("BUSINESS_SERVICE_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "MISSION_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("MISSION_EXPIRY_SCHEDULE")
	_ = viper.BindEnv("VALUE_PER_COMPLETION_EUR")
	_ = viper.BindEnv("POINTS_PER_EURO")
	_ = viper.BindEnv("VIEWS_PER_PARTICIPANT")
	_ = viper.BindEnv("MIN_ESTIMATED_VIEWS")
	_ = viper.BindEnv("DEFAULT_TIME_TO_COMPLETE_MIN")
	_ = viper.BindEnv("RATING_EXCELLENT")
	_ = viper.BindEnv("RATING_GOOD")
	_ = viper.BindEnv("RATING_FAIR")
	_ = viper.BindEnv("MIN_MISSION_POINTS")
	_ = viper.BindEnv("MAX_MISSION_POINTS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
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
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("MISSION_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.MissionCachePrefix = strings.TrimSpace(config.MissionCachePrefix)
	if config.MissionCachePrefix == "" {
		config.MissionCachePrefix = "fluzio:mission_cache"
	}

	if config.MissionCacheTTLSeconds <= 0 {
		config.MissionCacheTTLSeconds = 300
	}
	if config.ValuePerCompletionEUR <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive completion value configured; using default\" value=%f", config.ValuePerCompletionEUR)
		config.ValuePerCompletionEUR = 7.5
	}
	if config.PointsPerEuro <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive points-per-euro configured; using default\" value=%f", config.PointsPerEuro)
		config.PointsPerEuro = 100
	}
	if config.ViewsPerParticipant <= 0 {
		config.ViewsPerParticipant = 3
	}
	if config.MinEstimatedViews <= 0 {
		config.MinEstimatedViews = 100
	}
	if config.DefaultTimeToComplete <= 0 {
		config.DefaultTimeToComplete = 30
	}
	if config.RatingExcellent <= 0 || config.RatingGood <= 0 || config.RatingFair <= 0 ||
		config.RatingExcellent <= config.RatingGood || config.RatingGood <= config.RatingFair {
		log.Printf("level=warn component=config msg=\"rating thresholds not strictly ordered; using defaults\" excellent=%f good=%f fair=%f", config.RatingExcellent, config.RatingGood, config.RatingFair)
		config.RatingExcellent = 40
		config.RatingGood = 25
		config.RatingFair = 15
	}
	if config.MinMissionPoints <= 0 {
		config.MinMissionPoints = 25
	}
	if config.MaxMissionPoints <= config.MinMissionPoints {
		log.Printf("level=warn component=config msg=\"max mission points not above min; using default\" min=%d max=%d", config.MinMissionPoints, config.MaxMissionPoints)
		config.MaxMissionPoints = 500
	}

	return
}
