package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port        string `mapstructure:"port"`
		MetricsPort string `mapstructure:"metrics_port"`
		CORSOrigin  string `mapstructure:"cors_origin"`
	} `mapstructure:"server"`
	Radio struct {
		TickIntervalSeconds     int    `mapstructure:"tick_interval_seconds"`
		CrossfadeMillis         int    `mapstructure:"crossfade_millis"`
		SuggestionWindowSeconds int    `mapstructure:"suggestion_window_seconds"`
		SuggestionCount         int    `mapstructure:"suggestion_count"`
		DefaultDurationMillis   int    `mapstructure:"default_duration_millis"`
		SeedFile                string `mapstructure:"seed_file"`
		LogLevel                string `mapstructure:"log_level"`
	} `mapstructure:"radio"`
	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`
	Services struct {
		YoutubeAPIKey string `mapstructure:"youtube_api_key"`
		SuggestAPIURL string `mapstructure:"suggest_api_url"`
		SuggestAPIKey string `mapstructure:"suggest_api_key"`
		SuggestModel  string `mapstructure:"suggest_model"`
	} `mapstructure:"services"`
	Auth struct {
		JWTSecret     string `mapstructure:"jwt_secret"`
		AdminUser     string `mapstructure:"admin_user"`
		AdminPassword string `mapstructure:"admin_password"`
	} `mapstructure:"auth"`
}

func Load() *Config {
	viper.SetEnvPrefix("RADIO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Register keys
	viper.BindEnv("server.port")
	viper.BindEnv("server.metrics_port")
	viper.BindEnv("server.cors_origin")

	viper.BindEnv("radio.tick_interval_seconds")
	viper.BindEnv("radio.crossfade_millis")
	viper.BindEnv("radio.suggestion_window_seconds")
	viper.BindEnv("radio.suggestion_count")
	viper.BindEnv("radio.default_duration_millis")
	viper.BindEnv("radio.seed_file")
	viper.BindEnv("radio.log_level")

	viper.BindEnv("database.url")

	viper.BindEnv("services.youtube_api_key")
	viper.BindEnv("services.suggest_api_url")
	viper.BindEnv("services.suggest_api_key")
	viper.BindEnv("services.suggest_model")

	viper.BindEnv("auth.jwt_secret")
	viper.BindEnv("auth.admin_user")
	viper.BindEnv("auth.admin_password")

	// Defaults
	viper.SetDefault("server.port", ":3001")
	viper.SetDefault("server.metrics_port", ":9091")
	viper.SetDefault("server.cors_origin", "*")

	// Broadcast defaults match the reference player: a 300ms cross-fade and
	// a 10 second window for the suggestion negotiation.
	viper.SetDefault("radio.tick_interval_seconds", 1)
	viper.SetDefault("radio.crossfade_millis", 300)
	viper.SetDefault("radio.suggestion_window_seconds", 10)
	viper.SetDefault("radio.suggestion_count", 4)
	viper.SetDefault("radio.default_duration_millis", 180000)
	viper.SetDefault("radio.log_level", "info")

	viper.SetDefault("services.suggest_api_url", "https://api.blackbox.ai/chat/completions")
	viper.SetDefault("services.suggest_model", "blackboxai/anthropic/claude-sonnet-4.5")

	viper.SetDefault("auth.jwt_secret", "super-secret-radio-key-change-me")
	viper.SetDefault("auth.admin_user", "admin")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Config error: %s", err)
		} else {
			log.Println("Info: config.yaml not found, using Environment Variables only.")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	return &cfg
}
