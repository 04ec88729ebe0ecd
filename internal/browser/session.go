package browser

import (
	"context"
	"time"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second
)

// RawPage is what a browser hands back after a navigation settles.
type RawPage struct {
	URL    string
	Title  string
	HTML   string
	Status int
}

// Session is one isolated browser session. It is owned by exactly one
// discovery run and must not be used for two navigations at once.
type Session interface {
	Visit(ctx context.Context, url string, timeout time.Duration) (*RawPage, error)
	Close() error
}

// Launcher hands out sessions. Engines implement it; tests fake it.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

type Options struct {
	Headless       bool
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	// MaxSessions caps concurrently open sessions across runs.
	MaxSessions   int64
	CookiesPath   string
	ScreenshotDir string
	Humanize      bool
	// IdleWait is the quiet period engines without a network-idle signal
	// sleep after the document is ready.
	IdleWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.ViewportWidth == 0 || o.ViewportHeight == 0 {
		o.ViewportWidth, o.ViewportHeight = 1366, 768
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = 2
	}
	if o.IdleWait <= 0 {
		o.IdleWait = 1500 * time.Millisecond
	}
	return o
}

var launchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-accelerated-2d-canvas",
	"--no-first-run",
	"--no-zygote",
	"--disable-gpu",
}
