package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "HOST", "WHISPER_MODEL", "MODEL_DIR", "MODEL_AUTO_DOWNLOAD",
		"WHISPER_THREADS", "STT_BACKEND", "OPENAI_API_KEY", "STT_OPENAI_BASE_URL",
		"STT_OPENAI_MODEL", "FFMPEG_PATH", "FETCH_TIMEOUT_SECONDS", "FETCH_MAX_MB",
		"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Zero(t, cfg.Server.RateLimitRPS)

	assert.Equal(t, "local", cfg.STT.Backend)
	assert.Equal(t, "base", cfg.STT.Model)
	assert.Equal(t, "models", cfg.STT.ModelDir)
	assert.True(t, cfg.STT.AutoDownload)
	assert.Equal(t, "whisper-1", cfg.STT.OpenAIModel)

	assert.Equal(t, 120*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, int64(512<<20), cfg.Fetch.MaxBytes)
	assert.Equal(t, "ffmpeg", cfg.Media.FFmpegPath)
	assert.Equal(t, "info", cfg.LogLevel)

	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("WHISPER_MODEL", "small")
	t.Setenv("STT_BACKEND", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MODEL_AUTO_DOWNLOAD", "false")
	t.Setenv("FETCH_MAX_MB", "64")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "small", cfg.STT.Model)
	assert.Equal(t, "openai", cfg.STT.Backend)
	assert.False(t, cfg.STT.AutoDownload)
	assert.Equal(t, int64(64<<20), cfg.Fetch.MaxBytes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)

	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PORT")
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	cfg.STT.Backend = "sidecar"
	require.Error(t, cfg.Validate())

	cfg.STT.Backend = "openai"
	cfg.STT.OpenAIKey = ""
	cfg.STT.OpenAIBaseURL = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	// A self-hosted OpenAI-compatible server does not need a key.
	cfg.STT.OpenAIBaseURL = "http://localhost:8178/v1"
	require.NoError(t, cfg.Validate())
}
