package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir     string        `mapstructure:"data_dir"`
	LogLevel    string        `mapstructure:"log_level"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	GitHub      GitHubConfig  `mapstructure:"github"`
}

type GitHubConfig struct {
	Token          string `mapstructure:"token"`
	APIURL         string `mapstructure:"api_url"` // override for tests / GitHub Enterprise
	PageSize       int    `mapstructure:"page_size"`
	Sort           string `mapstructure:"sort"`
	StarredLimit   int    `mapstructure:"starred_limit"`
	FollowersLimit int    `mapstructure:"followers_limit"`
	FollowingLimit int    `mapstructure:"following_limit"`
}

func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	defaultDataDir := filepath.Join(homeDir, ".devscope")

	viper.SetDefault("data_dir", defaultDataDir)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("http_timeout", "30s")
	viper.SetDefault("github.page_size", 10)
	viper.SetDefault("github.sort", "updated")
	viper.SetDefault("github.starred_limit", 5)
	viper.SetDefault("github.followers_limit", 10)
	viper.SetDefault("github.following_limit", 10)

	// Environment variable overrides
	viper.SetEnvPrefix("DEVSCOPE")
	viper.AutomaticEnv()
	viper.BindEnv("data_dir", "DEVSCOPE_DATA_DIR")
	viper.BindEnv("github.token", "DEVSCOPE_GITHUB_TOKEN", "GITHUB_TOKEN")
	viper.BindEnv("github.api_url", "DEVSCOPE_GITHUB_API_URL")
	viper.BindEnv("log_level", "DEVSCOPE_LOG_LEVEL")

	// Config file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultDataDir)

	// Read config file if exists (ignore error if not found)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "devscope.db")
}

func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "devscope.log")
}
