// Package config loads application settings from an optional YAML file and the environment
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application settings
type Config struct {
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Model    ModelConfig    `mapstructure:"model"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
}

// DatasetConfig selects where evaluated records are stored
type DatasetConfig struct {
	Backend string `mapstructure:"backend"` // csv or sqlite
	Path    string `mapstructure:"path"`
	DBPath  string `mapstructure:"db_path"`
}

// ModelConfig configures the classifier artifact and retraining
type ModelConfig struct {
	Path          string `mapstructure:"path"`
	TrainingCSV   string `mapstructure:"training_csv"`
	LabelColumn   string `mapstructure:"label_column"`
	LabelKind     string `mapstructure:"label_kind"`
	Trees         int    `mapstructure:"trees"`
	Seed          int64  `mapstructure:"seed"`
	SyntheticRows int    `mapstructure:"synthetic_rows"`
	Schedule      string `mapstructure:"schedule"`
}

// RulesConfig picks the threshold table
type RulesConfig struct {
	Preset string `mapstructure:"preset"`
	File   string `mapstructure:"file"`
}

// TelegramConfig configures the chat surface
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

// OpenAIConfig configures free-text reading extraction
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataset.backend", "csv")
	v.SetDefault("dataset.path", "water_data.csv")
	v.SetDefault("dataset.db_path", "data/waterquality.db")
	v.SetDefault("model.path", "models/element_model.json")
	v.SetDefault("model.training_csv", "")
	v.SetDefault("model.label_column", "Element")
	v.SetDefault("model.label_kind", "band")
	v.SetDefault("model.trees", 200)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.synthetic_rows", 1000)
	v.SetDefault("model.schedule", "0 * * * *")
	v.SetDefault("rules.preset", "canonical")
	v.SetDefault("rules.file", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("openai.api_key", "")
}

// Load reads configuration. path may be empty, in which case only defaults and
// WQ_* environment variables apply (for example WQ_DATASET_PATH).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// plain variable names are accepted as well
	_ = v.BindEnv("telegram.bot_token", "WQ_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("openai.api_key", "WQ_OPENAI_API_KEY", "OPENAI_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Dataset.Backend {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("dataset.backend must be csv or sqlite, got %q", c.Dataset.Backend)
	}
	switch c.Model.LabelKind {
	case "band", "element":
	default:
		return fmt.Errorf("model.label_kind must be band or element, got %q", c.Model.LabelKind)
	}
	if c.Model.Trees <= 0 {
		return errors.New("model.trees must be positive")
	}
	return nil
}
