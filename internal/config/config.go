package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Robertiks/erase-watermark/internal/dewatermark"
)

type Config struct {
	APIKey    string
	Endpoint  string        `validate:"required,url"`
	Proxy     string        `validate:"omitempty,url"`
	Timeout   time.Duration `validate:"min=0"`
	MaxWidth  int           `validate:"min=1"`
	InputDir  string
	OutputDir string
	Workers   int    `validate:"min=1"`
	Limit     int    `validate:"min=0"`
	LogLevel  string `validate:"oneof=debug info warn error"`
}

// Load reads the given env files (.env when none are named) and the process
// environment. Missing env files are ignored; set variables always win.
func Load(filenames ...string) (*Config, error) {
	if err := godotenv.Load(filenames...); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	return &Config{
		APIKey:    os.Getenv("DEWATERMARK_API_KEY"),
		Endpoint:  getEnv("DEWATERMARK_ENDPOINT", dewatermark.DefaultEndpoint),
		Proxy:     os.Getenv("DEWATERMARK_PROXY"),
		Timeout:   getDuration("DEWATERMARK_TIMEOUT", 0),
		MaxWidth:  getEnvAsInt("MAX_WIDTH", dewatermark.DefaultMaxWidth),
		InputDir:  getEnv("INPUT_DIR", "wfoto"),
		OutputDir: getEnv("OUTPUT_DIR", "processed"),
		Workers:   getEnvAsInt("CONCURRENT", 3),
		Limit:     getEnvAsInt("API_LIMIT", 210),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SetupClient builds the dewatermark client described by the configuration.
func (c *Config) SetupClient(logger *zap.Logger) (*dewatermark.Client, error) {
	opts := []dewatermark.Option{
		dewatermark.WithEndpoint(c.Endpoint),
		dewatermark.WithMaxWidth(c.MaxWidth),
		dewatermark.WithTimeout(c.Timeout),
		dewatermark.WithLogger(logger),
	}
	if c.Proxy != "" {
		proxy, err := url.Parse(c.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy: %w", err)
		}
		opts = append(opts, dewatermark.WithProxy(proxy))
	}
	return dewatermark.NewClient(c.APIKey, opts...), nil
}

// MaskedAPIKey keeps the first and last four characters of the key.
func (c *Config) MaskedAPIKey() string {
	if c.APIKey == "" {
		return "(none, pass-through)"
	}
	if len(c.APIKey) <= 8 {
		return "****"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
