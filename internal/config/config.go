package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full engine configuration, loaded from config.yaml with
// environment overrides for secrets.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Spotify  SpotifyConfig  `mapstructure:"spotify"`
	Apple    AppleConfig    `mapstructure:"apple"`
	YouTube  YouTubeConfig  `mapstructure:"youtube"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Rate     RateConfig     `mapstructure:"rate"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug/release/test
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SpotifyConfig holds the OAuth2 client-credentials pair. Both fields empty
// means the adapter runs disabled.
type SpotifyConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type AppleConfig struct {
	DeveloperToken string `mapstructure:"developer_token"`
	Storefront     string `mapstructure:"storefront"`
}

func (c AppleConfig) Enabled() bool { return c.DeveloperToken != "" }

type YouTubeConfig struct {
	APIKey string `mapstructure:"api_key"`
	// MatchThreshold is the minimum Jaro-Winkler similarity between the
	// "<title> <artist>" query and the returned video title. Zero disables
	// verification and the first search hit wins.
	MatchThreshold float64 `mapstructure:"match_threshold"`
}

func (c YouTubeConfig) Enabled() bool { return c.APIKey != "" }

type ScheduleConfig struct {
	IntervalHours   int  `mapstructure:"interval_hours"`
	RunAtBoot       bool `mapstructure:"run_at_boot"`
	PerTrackDelayMs int  `mapstructure:"per_track_delay_ms"`
	MaxConcurrent   int  `mapstructure:"max_concurrent_tracks"`
}

func (c ScheduleConfig) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

func (c ScheduleConfig) PerTrackDelay() time.Duration {
	return time.Duration(c.PerTrackDelayMs) * time.Millisecond
}

// RateConfig sets the per-provider soft call ceilings in requests/second.
type RateConfig struct {
	SpotifyQPS float64 `mapstructure:"spotify_qps"`
	AppleQPS   float64 `mapstructure:"apple_qps"`
	YouTubeQPS float64 `mapstructure:"youtube_qps"`
}

// Load reads config/config.yaml (optional) and applies environment
// overrides. A missing config file is not an error; the defaults plus
// environment are a complete configuration.
func Load() (*Config, error) {
	// .env values feed the os.Getenv overrides below; the file may not exist.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "./data/tracking.db")
	v.SetDefault("apple.storefront", "us")
	v.SetDefault("youtube.match_threshold", 0.0)
	v.SetDefault("schedule.interval_hours", 12)
	v.SetDefault("schedule.run_at_boot", false)
	v.SetDefault("schedule.per_track_delay_ms", 100)
	v.SetDefault("schedule.max_concurrent_tracks", 1)
	v.SetDefault("rate.spotify_qps", 5.0)
	v.SetDefault("rate.apple_qps", 5.0)
	v.SetDefault("rate.youtube_qps", 2.0)
}

// overrideFromEnv applies the secret environment variables. Env always wins
// over yaml so credentials stay out of the config file.
func overrideFromEnv(cfg *Config) {
	if s := os.Getenv("SPOTIFY_CLIENT_ID"); s != "" {
		cfg.Spotify.ClientID = s
	}
	if s := os.Getenv("SPOTIFY_CLIENT_SECRET"); s != "" {
		cfg.Spotify.ClientSecret = s
	}
	if s := os.Getenv("APPLE_MUSIC_DEVELOPER_TOKEN"); s != "" {
		cfg.Apple.DeveloperToken = s
	}
	if s := os.Getenv("YOUTUBE_API_KEY"); s != "" {
		cfg.YouTube.APIKey = s
	}
	if s := os.Getenv("TRACKING_DB_PATH"); s != "" {
		cfg.Database.Path = s
	}
}
