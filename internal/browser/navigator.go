package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"go-hrskip-automation/internal/extractor"
	"go-hrskip-automation/internal/models"
)

// Navigator is the per-run browsing handle. The session is launched on the
// first Open and released by Close; Close is safe to call more than once
// and when nothing was launched.
type Navigator struct {
	launcher Launcher
	timeout  time.Duration

	mu      sync.Mutex
	session Session
}

func NewNavigator(l Launcher, timeout time.Duration) *Navigator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Navigator{launcher: l, timeout: timeout}
}

// Open navigates to rawURL, waits for the network to go idle and returns the
// extracted page. Errors are always *NavigationError.
func (n *Navigator) Open(ctx context.Context, rawURL string) (*models.PageContent, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, &NavigationError{URL: rawURL, Kind: KindInvalidURL, Err: err}
	}

	if n.session == nil {
		s, err := n.launcher.Launch(ctx)
		if err != nil {
			return nil, &NavigationError{URL: target, Kind: KindLaunch, Err: err}
		}
		n.session = s
	}

	navCtx, cancel := context.WithTimeout(ctx, n.timeout+5*time.Second)
	defer cancel()

	start := time.Now()
	raw, err := n.session.Visit(navCtx, target, n.timeout)
	if err != nil {
		var ne *NavigationError
		if errors.As(err, &ne) {
			return nil, ne
		}
		return nil, classify(target, err)
	}
	log.Printf("🌐 Opened %s in %v (status %d)", raw.URL, time.Since(start).Round(time.Millisecond), raw.Status)

	pageURL := raw.URL
	if pageURL == "" || pageURL == "about:blank" {
		pageURL = target
	}
	page, err := extractor.Parse(raw.HTML, pageURL)
	if err != nil {
		return nil, &NavigationError{URL: target, Kind: KindUnreachable, Err: err}
	}
	if page.Title == "" {
		page.Title = raw.Title
	}
	return page, nil
}

// Close releases the session, if one was launched.
func (n *Navigator) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.session == nil {
		return nil
	}
	err := n.session.Close()
	n.session = nil
	return err
}

// NormalizeURL adds a missing scheme and rejects anything that is not http(s).
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}
	lower := strings.ToLower(raw)
	for _, p := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(lower, p) {
			return "", fmt.Errorf("unsupported scheme %q", strings.TrimSuffix(p, ":"))
		}
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("missing host")
	}
	return u.String(), nil
}
