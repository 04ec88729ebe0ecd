package browser

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// BlockCapture screenshots pages that blocked discovery. Playwright sessions
// call it when a navigation lands on a captcha, a 403/429 or a similar wall,
// so the operator can see what the site showed. Files go to
// Options.ScreenshotDir as <host>_<time>.png. Chromedp sessions have no
// capture and report only the NavigationError.
type BlockCapture struct {
	dir string
	now func() time.Time
}

func NewBlockCapture(dir string) *BlockCapture {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("⚠️ Failed to create screenshot directory: %v", err)
	}
	return &BlockCapture{dir: dir, now: time.Now}
}

// Capture saves a full-page screenshot of page, blocked while loading rawURL,
// and returns the file path.
func (b *BlockCapture) Capture(page playwright.Page, rawURL string, status int, title string) (string, error) {
	path := b.path(rawURL)
	log.Printf("🚨 Blocked on %s (status %d, title %q)", rawURL, status, title)

	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		log.Printf("⚠️ Failed to capture screenshot: %v", err)
		return "", err
	}

	log.Printf("   📸 Screenshot saved: %s", path)
	return path, nil
}

func (b *BlockCapture) path(rawURL string) string {
	host := "page"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = strings.NewReplacer(".", "_", ":", "_").Replace(u.Hostname())
	}
	name := fmt.Sprintf("%s_%s.png", host, b.now().Format("2006-01-02_15-04-05"))
	return filepath.Join(b.dir, name)
}
