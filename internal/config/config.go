// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned by Validate when no Gemini credential is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// Config holds every setting of the service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Form      FormConfig      `mapstructure:"form"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LLMConfig struct {
	Provider       string        `mapstructure:"provider"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	ThinkingBudget int           `mapstructure:"thinking_budget"`
	Temperature    float32       `mapstructure:"temperature"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxConcurrent  int64         `mapstructure:"max_concurrent"`
}

// FormConfig carries upload limits and the values a new draft starts with.
type FormConfig struct {
	MaxUploadBytes int64             `mapstructure:"max_upload_bytes"`
	Defaults       map[string]string `mapstructure:"defaults"`
}

type StorageConfig struct {
	DataDir     string `mapstructure:"data_dir"`
	SaveExports bool   `mapstructure:"save_exports"`
}

type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type RateLimitConfig struct {
	RequestsPerMinute   int `mapstructure:"requests_per_minute"`
	GenerationsPerHour  int `mapstructure:"generations_per_hour"`
	GenerationBurstSize int `mapstructure:"generation_burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("llm.provider", "google")
	v.SetDefault("llm.model", "gemini-3-pro-preview")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.thinking_budget", 15000)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", 5*time.Minute)
	v.SetDefault("llm.max_concurrent", 4)

	v.SetDefault("form.max_upload_bytes", 10<<20)
	v.SetDefault("form.defaults", map[string]string{
		"school":              "Villa Kananga Integrated School",
		"grade_level":         "Grade 7",
		"teacher":             "Henry Joshua E. Sagmon",
		"learning_area":       "Science",
		"teaching_dates":      "June 23-27, 2025",
		"teaching_time":       "1:00-1:45 PM / 2:30-3:15 PM",
		"quarter":             "First",
		"week":                "Week 1",
		"checker_designation": "Master Teacher I / Department Head",
		"competency":          "The learners should be able to describe the components of a scientific investigation (S7MT-Ia-1)",
		"sources":             "Chemistry III Textbook, Science Links Worktext",
	})

	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.save_exports", true)

	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "dll-architect")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("rate_limit.requests_per_minute", 120)
	v.SetDefault("rate_limit.generations_per_hour", 30)
	v.SetDefault("rate_limit.generation_burst", 3)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:8080", "http://127.0.0.1:8080"})
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("DLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("server.port", "PORT", "DLL_SERVER_PORT")
	v.BindEnv("server.mode", "GIN_MODE", "DLL_SERVER_MODE")
	v.BindEnv("llm.api_key", "GEMINI_API_KEY", "API_KEY", "DLL_LLM_API_KEY")
	v.BindEnv("llm.model", "GEMINI_MODEL", "DLL_LLM_MODEL")
	v.BindEnv("llm.base_url", "GEMINI_BASE_URL", "DLL_LLM_BASE_URL")
	v.BindEnv("storage.data_dir", "DATA_DIR", "DLL_STORAGE_DATA_DIR")
	v.BindEnv("log.dir", "LOG_DIR", "DLL_LOG_DIR")
	v.BindEnv("tracing.enabled", "TRACING_ENABLED", "DLL_TRACING_ENABLED")
}

// Load reads .env (optional), then config.yaml from dir (optional), then the
// environment. Later sources win.
func Load(dir string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)

	return &cfg, nil
}

// Validate checks settings that cannot be fixed at runtime. A missing API key
// is reported as ErrMissingAPIKey so the caller can still start and serve
// setup instructions.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is empty")
	}
	if c.LLM.MaxConcurrent < 1 {
		return fmt.Errorf("llm.max_concurrent must be positive, got %d", c.LLM.MaxConcurrent)
	}
	if c.Form.MaxUploadBytes <= 0 {
		return fmt.Errorf("form.max_upload_bytes must be positive, got %d", c.Form.MaxUploadBytes)
	}
	if c.LLM.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// EnsureDirs creates the data and log directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Storage.DataDir, c.Log.Dir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
