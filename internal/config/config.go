package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	STTBackendOpenAI = "openai"
	STTBackendLocal  = "local"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

type Config struct {
	Server      ServerConfig
	Upload      UploadConfig
	STT         STTConfig
	Translation TranslationConfig
	RateLimit   RateLimitConfig
	Redis       RedisConfig
	Log         LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type UploadConfig struct {
	Dir      string // default: os.TempDir()
	MaxBytes int64
}

type STTConfig struct {
	Backend        string // "openai" or "local"
	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string
	ResponseFormat string // "verbose_json" or "json"
	LocalBaseURL   string
	Timeout        time.Duration
}

type TranslationConfig struct {
	Provider     string // "openai", "anthropic" or "ollama"
	Model        string
	OpenAIKey    string
	AnthropicKey string
	OllamaURL    string
	Timeout      time.Duration

	// PromptTemplate overrides the translation prompt; empty keeps the default.
	PromptTemplate string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RedisConfig is optional; an empty Addr keeps rate limiting in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string // "json", "text" or "auto"
}

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-haiku-20240307",
	ProviderOllama:    "llama3",
}

// Load reads configuration from the environment. Any envFiles that exist are
// loaded first without overriding variables already set; with none given,
// ./.env is tried. Missing credentials are not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	port, err := getEnvInt("SERVER_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxBytes, err := getEnvInt64("UPLOAD_MAX_BYTES", 100<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_BYTES: %w", err)
	}

	sttTimeout, err := getEnvDuration("STT_TIMEOUT", 300*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid STT_TIMEOUT: %w", err)
	}

	translationTimeout, err := getEnvDuration("TRANSLATION_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSLATION_TIMEOUT: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	provider := strings.ToLower(getEnv("TRANSLATION_PROVIDER", ProviderOpenAI))

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Upload: UploadConfig{
			Dir:      getEnv("UPLOAD_DIR", os.TempDir()),
			MaxBytes: maxBytes,
		},
		STT: STTConfig{
			Backend:        strings.ToLower(getEnv("STT_BACKEND", STTBackendOpenAI)),
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:  getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:    getEnv("STT_OPENAI_MODEL", "whisper-1"),
			ResponseFormat: getEnv("STT_RESPONSE_FORMAT", "verbose_json"),
			LocalBaseURL:   getEnv("STT_LOCAL_BASE_URL", "http://localhost:8178/v1"),
			Timeout:        sttTimeout,
		},
		Translation: TranslationConfig{
			Provider:       provider,
			Model:          getEnv("TRANSLATION_MODEL", defaultModels[provider]),
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434"),
			Timeout:        translationTimeout,
			PromptTemplate: strings.ReplaceAll(getEnv("TRANSLATION_PROMPT", ""), `\n`, "\n"),
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "auto"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate rejects values the server cannot start with. Credentials are
// deliberately not checked: calls that need them fail individually.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("SERVER_PORT %d out of range", c.Server.Port))
	}
	switch c.STT.Backend {
	case STTBackendOpenAI, STTBackendLocal:
	default:
		problems = append(problems, fmt.Sprintf("unknown STT_BACKEND %q", c.STT.Backend))
	}
	switch c.STT.ResponseFormat {
	case "json", "verbose_json":
	default:
		problems = append(problems, fmt.Sprintf("unsupported STT_RESPONSE_FORMAT %q", c.STT.ResponseFormat))
	}
	if _, ok := defaultModels[c.Translation.Provider]; !ok {
		problems = append(problems, fmt.Sprintf("unknown TRANSLATION_PROVIDER %q", c.Translation.Provider))
	}
	if c.Upload.MaxBytes <= 0 {
		problems = append(problems, "UPLOAD_MAX_BYTES must be positive")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		problems = append(problems, "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func loadEnvFiles(paths []string) error {
	explicit := len(paths) > 0
	if !explicit {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
