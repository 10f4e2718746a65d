package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	STT    STTConfig
	Fetch  FetchConfig
	Media  MediaConfig

	LogLevel string
}

type ServerConfig struct {
	Host           string
	Port           int
	CORSOrigins    []string
	RateLimitRPS   int // 0 disables the limiter
	RateLimitBurst int
}

type STTConfig struct {
	Backend      string // "local" or "openai"
	Model        string // catalog name or path to a ggml file
	ModelDir     string
	AutoDownload bool
	Threads      int // 0 means one per CPU

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
}

type FetchConfig struct {
	Timeout  time.Duration
	MaxBytes int64
}

type MediaConfig struct {
	FFmpegPath string
}

func Load() (*Config, error) {
	// A .env file is optional; real env vars win either way.
	_ = godotenv.Load()

	port, err := getEnvInt("PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	threads, err := getEnvInt("WHISPER_THREADS", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid WHISPER_THREADS: %w", err)
	}

	fetchTimeout, err := getEnvInt("FETCH_TIMEOUT_SECONDS", 120)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT_SECONDS: %w", err)
	}

	fetchMaxMB, err := getEnvInt("FETCH_MAX_MB", 512)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_MAX_MB: %w", err)
	}

	rateRPS, err := getEnvInt("RATE_LIMIT_RPS", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	rateBurst, err := getEnvInt("RATE_LIMIT_BURST", 2*rateRPS)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("HOST", "0.0.0.0"),
			Port:           port,
			CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "*")),
			RateLimitRPS:   rateRPS,
			RateLimitBurst: rateBurst,
		},
		STT: STTConfig{
			Backend:       getEnv("STT_BACKEND", "local"),
			Model:         getEnv("WHISPER_MODEL", "base"),
			ModelDir:      getEnv("MODEL_DIR", "models"),
			AutoDownload:  getEnvBool("MODEL_AUTO_DOWNLOAD", true),
			Threads:       threads,
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("STT_OPENAI_MODEL", "whisper-1"),
		},
		Fetch: FetchConfig{
			Timeout:  time.Duration(fetchTimeout) * time.Second,
			MaxBytes: int64(fetchMaxMB) << 20,
		},
		Media: MediaConfig{
			FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	switch c.STT.Backend {
	case "local", "openai":
	default:
		return fmt.Errorf("invalid STT_BACKEND %q: must be \"local\" or \"openai\"", c.STT.Backend)
	}

	var missing []string
	if c.STT.Backend == "openai" && c.STT.OpenAIKey == "" && c.STT.OpenAIBaseURL == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("FETCH_MAX_MB must be positive")
	}
	return nil
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

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
