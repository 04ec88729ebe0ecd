// Load envs from .env
// Load YAML config
// Override with env vars
// Provide default values
// Validate config

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Telegram TelegramConfig `yaml:"telegram"`
	LLM      LLMConfig      `yaml:"llm"`
	Browser  BrowserConfig  `yaml:"browser"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	HH       HHConfig       `yaml:"hh"`
	Store    StoreConfig    `yaml:"store"`
	Sweep    SweepConfig    `yaml:"sweep"`
}

type AppConfig struct {
	Port int    `yaml:"port"`
	Env  string `yaml:"env"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"` // operator chat for alerts
}

type LLMConfig struct {
	Provider          string        `yaml:"provider"` // groq | openai | gemini
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	Temperature       *float64      `yaml:"temperature"` // nil means 0.1; 0 is honoured
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

type BrowserConfig struct {
	Engine        string        `yaml:"engine"` // playwright | chromedp
	Headless      *bool         `yaml:"headless"`
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	MaxSessions   int64         `yaml:"max_sessions"`
	CookiesPath   string        `yaml:"cookies_path"`
	ScreenshotDir string        `yaml:"screenshot_dir"`
	Humanize      bool          `yaml:"humanize"`
}

type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	Timeout  time.Duration `yaml:"timeout"`
}

type HHConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	// Path is the JSON store directory used when no database URL is set.
	Path string `yaml:"path"`
}

type SweepConfig struct {
	Schedule   string        `yaml:"schedule"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

var defaultModels = map[string]string{
	"groq":   "llama-3.3-70b-versatile",
	"openai": "gpt-4o-mini",
	"gemini": "gemini-2.0-flash",
}

// Load reads .env, then the YAML file at path (HRSKIP_CONFIG or DefaultPath
// when empty), then env overrides, then defaults, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("HRSKIP_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Printf("⚠️ Could not read %s, using env and defaults", path)
	default:
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.SMTP.Host, "SMTP_HOST")
	setString(&c.SMTP.Username, "SMTP_USER")
	setString(&c.SMTP.Password, "SMTP_PASSWORD")
	setString(&c.SMTP.From, "SMTP_FROM")
	setString(&c.Browser.Engine, "BROWSER_ENGINE")

	// provider-specific keys lose to the generic one
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini":
		setString(&c.LLM.APIKey, "GEMINI_API_KEY")
	case "", "groq":
		setString(&c.LLM.APIKey, "GROQ_API_KEY")
	}
	setString(&c.LLM.APIKey, "LLM_API_KEY")

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	for key, dst := range map[string]*int{"SMTP_PORT": &c.SMTP.Port, "PORT": &c.App.Port} {
		if raw := os.Getenv(key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}

	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.LLM.Provider == "" {
		c.LLM.Provider = "groq"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModels[c.LLM.Provider]
	}
	if c.LLM.Temperature == nil {
		temp := 0.1
		c.LLM.Temperature = &temp
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}

	c.Browser.Engine = strings.ToLower(c.Browser.Engine)
	if c.Browser.Engine == "" {
		c.Browser.Engine = "playwright"
	}
	if c.Browser.Headless == nil {
		headless := true
		c.Browser.Headless = &headless
	}
	if c.Browser.Timeout == 0 {
		c.Browser.Timeout = 30 * time.Second
	}
	if c.Browser.MaxSessions == 0 {
		c.Browser.MaxSessions = 2
	}

	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.SMTP.Timeout == 0 {
		c.SMTP.Timeout = 30 * time.Second
	}

	if c.HH.BaseURL == "" {
		c.HH.BaseURL = "https://api.hh.ru"
	}
	if c.HH.UserAgent == "" {
		c.HH.UserAgent = "hrSkipBot/1.0"
	}
	if c.HH.Timeout == 0 {
		c.HH.Timeout = 30 * time.Second
	}

	if c.Store.Path == "" {
		c.Store.Path = "../.cache"
	}
	if c.Sweep.Schedule == "" {
		c.Sweep.Schedule = "@every 10m"
	}
	if c.Sweep.StaleAfter == 0 {
		c.Sweep.StaleAfter = 30 * time.Minute
	}
}

// Validate checks values that cannot be defaulted. Credentials for optional
// integrations (telegram, smtp, redis, database) are checked where they are
// used.
func (c *Config) Validate() error {
	if _, ok := defaultModels[c.LLM.Provider]; !ok {
		return fmt.Errorf("unknown llm provider %q (want groq, openai or gemini)", c.LLM.Provider)
	}
	switch c.Browser.Engine {
	case "playwright", "chromedp":
	default:
		return fmt.Errorf("unknown browser engine %q (want playwright or chromedp)", c.Browser.Engine)
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.App.Port)
	}
	if t := *c.LLM.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("llm temperature %.2f out of range", t)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm requests_per_minute must not be negative")
	}
	if c.Sweep.StaleAfter < 0 {
		return fmt.Errorf("sweep stale_after must be positive")
	}
	return nil
}

// RequireLLMKey is checked by entrypoints that classify pages.
func (c *Config) RequireLLMKey() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required for provider %s", c.LLM.Provider)
	}
	return nil
}
