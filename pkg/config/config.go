package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Completion providers.
const (
	ProviderTogether = "together"
	ProviderGemini   = "gemini"
)

type Config struct {
	Port string

	SearchURL     string
	SerperAPIKey  string
	SearchTimeout time.Duration

	Provider       string
	TogetherURL    string
	TogetherAPIKey string
	Model          string
	GeminiAPIKey   string
	GeminiModel    string
	LLMTimeout     time.Duration

	Temperature       float64
	TopP              float64
	TopK              int
	RepetitionPenalty float64

	VariantsFile   string
	DefaultVariant string
	LogLevel       slog.Level
}

// Load reads the environment after applying the given .env files (".env"
// when none are given). Missing files are ignored; variables already set in
// the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	return &Config{
		Port:              getEnv("PORT", "8081"),
		SearchURL:         getEnv("SEARCH_URL", "https://google.serper.dev/search"),
		SerperAPIKey:      getEnv("SERPER_API_KEY", ""),
		SearchTimeout:     getEnvAsDuration("SEARCH_TIMEOUT", 15*time.Second),
		Provider:          strings.ToLower(getEnv("LLM_PROVIDER", ProviderTogether)),
		TogetherURL:       getEnv("TOGETHER_URL", "https://api.together.xyz/v1/chat/completions"),
		TogetherAPIKey:    getEnv("TOGETHER_API_KEY", ""),
		Model:             getEnv("LLM_MODEL", "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 2*time.Minute),
		Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		TopP:              getEnvAsFloat("LLM_TOP_P", 0.7),
		TopK:              getEnvAsInt("LLM_TOP_K", 50),
		RepetitionPenalty: getEnvAsFloat("LLM_REPETITION_PENALTY", 1),
		VariantsFile:      getEnv("VARIANTS_FILE", ""),
		DefaultVariant:    getEnv("DEFAULT_VARIANT", "used_cars"),
		LogLevel:          getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
	}, nil
}

// Validate reports every missing setting for the selected provider.
func (c *Config) Validate() error {
	var errs []error
	if c.SerperAPIKey == "" {
		errs = append(errs, errors.New("SERPER_API_KEY is not set"))
	}
	switch c.Provider {
	case ProviderTogether:
		if c.TogetherAPIKey == "" {
			errs = append(errs, errors.New("TOGETHER_API_KEY is not set"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER %q is not supported", c.Provider))
	}
	if c.TopK < 0 {
		errs = append(errs, errors.New("LLM_TOP_K must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(valueStr)); err != nil {
		return defaultValue
	}
	return level
}
