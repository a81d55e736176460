package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend kinds accepted in service.backend.
const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
)

// Config holds the application configuration
type Config struct {
	Service      ServiceConfig
	LLM          LLMConfig
	Storage      StorageConfig
	Models       []ModelConfig
	DefaultModel string `mapstructure:"default_model"`
	Log          LogConfig
}

// ServiceConfig describes the remote assistant service and how often it is checked.
type ServiceConfig struct {
	Backend        string        `mapstructure:"backend"`
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
	HealthTimeout  time.Duration `mapstructure:"health_timeout"`
}

// LLMConfig holds the settings of the direct OpenAI-compatible backend
type LLMConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// StorageConfig locates the persisted session snapshot
type StorageConfig struct {
	Path string `mapstructure:"path"`
	Key  string `mapstructure:"key"`
}

// ModelConfig is one entry of the offered model catalog
type ModelConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.backend", BackendHTTP)
	v.SetDefault("service.base_url", "http://localhost:8000")
	v.SetDefault("service.timeout", 30*time.Second)
	v.SetDefault("service.health_interval", 30*time.Second)
	v.SetDefault("service.health_timeout", 5*time.Second)

	v.SetDefault("llm.base_url", "https://api.longcat.chat/openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "LongCat-Flash-Lite")
	v.SetDefault("llm.system_prompt", "")

	v.SetDefault("storage.path", "chat.db")
	v.SetDefault("storage.key", "chat-storage")

	v.SetDefault("default_model", "longcat")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load loads the configuration from config.yaml (or the file named by CONFIG_PATH).
// A missing file is not an error; defaults and CHAT_* environment variables still apply.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("chat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	switch config.Service.Backend {
	case BackendHTTP, BackendOpenAI:
	default:
		return nil, errors.New("unsupported service.backend: " + config.Service.Backend)
	}

	return &config, nil
}
