package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does not
// leak into the test.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"HRSKIP_CONFIG", "DATABASE_URL", "REDIS_URL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"LLM_PROVIDER", "LLM_API_KEY", "GROQ_API_KEY", "GEMINI_API_KEY",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASSWORD", "SMTP_FROM", "PORT", "BROWSER_ENGINE",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Equal(t, 0.1, *cfg.LLM.Temperature)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "playwright", cfg.Browser.Engine)
	require.NotNil(t, cfg.Browser.Headless)
	assert.True(t, *cfg.Browser.Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "https://api.hh.ru", cfg.HH.BaseURL)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.StaleAfter)
	assert.Error(t, cfg.RequireLLMKey())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
app:
  port: 9000
llm:
  provider: gemini
  requests_per_minute: 20
  temperature: 0
  timeout: 45s
browser:
  engine: chromedp
  headless: false
smtp:
  host: smtp.example.com
  username: bot@example.com
sweep:
  stale_after: 1h
`)
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, "gem-key", cfg.LLM.APIKey)
	assert.Equal(t, 20, cfg.LLM.RequestsPerMinute)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Equal(t, 0.0, *cfg.LLM.Temperature, "explicit zero is kept")
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "chromedp", cfg.Browser.Engine)
	assert.False(t, *cfg.Browser.Headless)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, "bot@example.com", cfg.SMTP.From)
	assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)
	assert.Equal(t, time.Hour, cfg.Sweep.StaleAfter)
	assert.NoError(t, cfg.RequireLLMKey())
}

func TestLoad_GenericKeyWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("LLM_API_KEY", "generic")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "generic", cfg.LLM.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{"unknown provider", "llm:\n  provider: claude\n", nil},
		{"unknown engine", "browser:\n  engine: selenium\n", nil},
		{"bad port", "", map[string]string{"PORT": "eighty"}},
		{"bad chat id", "", map[string]string{"TELEGRAM_CHAT_ID": "abc"}},
		{"broken yaml", "app: [", nil},
		{"negative temperature", "llm:\n  temperature: -0.5\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}
