package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/semaphore"
)

// PlaywrightManager owns the Playwright driver and one Chromium process.
// Every Launch gets its own BrowserContext, so runs never share cookies,
// storage or pages.
type PlaywrightManager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
	cookies []playwright.OptionalCookie
	sem     *semaphore.Weighted
	shots   *BlockCapture
}

func NewPlaywright(opts Options) (*PlaywrightManager, error) {
	opts = opts.withDefaults()

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     launchArgs,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}

	pm := &PlaywrightManager{
		pw:      pw,
		browser: browser,
		opts:    opts,
		sem:     semaphore.NewWeighted(opts.MaxSessions),
	}

	if opts.CookiesPath != "" {
		cookies, err := LoadCookies(opts.CookiesPath)
		if err != nil {
			log.Printf("⚠️ Could not load cookies from %s: %v. Continuing.", opts.CookiesPath, err)
		} else {
			log.Printf("🍪 Loaded %d cookies", len(cookies))
			pm.cookies = cookies
		}
	}
	if opts.ScreenshotDir != "" {
		pm.shots = NewBlockCapture(opts.ScreenshotDir)
	}

	return pm, nil
}

// Launch blocks until a session slot is free or ctx is done.
func (pm *PlaywrightManager) Launch(ctx context.Context) (Session, error) {
	if err := pm.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a browser slot: %w", err)
	}

	bctx, err := pm.NewContext()
	if err != nil {
		pm.sem.Release(1)
		return nil, err
	}

	return &playwrightSession{
		bctx:    bctx,
		opts:    pm.opts,
		shots:   pm.shots,
		release: func() { pm.sem.Release(1) },
	}, nil
}

func (pm *PlaywrightManager) NewContext() (playwright.BrowserContext, error) {
	bctx, err := pm.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(pm.opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  pm.opts.ViewportWidth,
			Height: pm.opts.ViewportHeight,
		},
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}

	if len(pm.cookies) > 0 {
		if err := bctx.AddCookies(pm.cookies); err != nil {
			log.Printf("⚠️ Could not add cookies: %v", err)
		}
	}
	return bctx, nil
}

func (pm *PlaywrightManager) Close() error {
	var errs []error
	if pm.browser != nil {
		if err := pm.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if pm.pw != nil {
		if err := pm.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

type playwrightSession struct {
	bctx    playwright.BrowserContext
	opts    Options
	shots   *BlockCapture
	release func()
	once    sync.Once
}

func (s *playwrightSession) Visit(ctx context.Context, url string, timeout time.Duration) (*RawPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, &NavigationError{URL: url, Kind: KindTimeout, Err: err}
	}

	page, err := s.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	defer page.Close()

	// playwright calls take no context; closing the page unblocks them
	stop := context.AfterFunc(ctx, func() { page.Close() })
	defer stop()

	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &NavigationError{URL: url, Kind: KindTimeout, Err: ctxErr}
		}
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, &NavigationError{URL: url, Kind: KindTimeout, Err: err}
		}
		return nil, classify(url, err)
	}

	status := 0
	if resp != nil {
		status = resp.Status()
	}
	title, _ := page.Title()

	if blockedPage(title, status) {
		if s.shots != nil {
			s.shots.Capture(page, url, status, title)
		}
		return nil, &NavigationError{URL: url, Kind: KindBlocked, Err: fmt.Errorf("status %d, title %q", status, title)}
	}

	if s.opts.Humanize {
		if err := HumanScroll(page); err != nil {
			log.Printf("⚠️ Scroll failed on %s: %v", url, err)
		}
	}

	html, err := page.Content()
	if err != nil {
		return nil, classify(url, err)
	}

	return &RawPage{URL: page.URL(), Title: title, HTML: html, Status: status}, nil
}

func (s *playwrightSession) Close() error {
	var err error
	s.once.Do(func() {
		err = s.bctx.Close()
		s.release()
	})
	return err
}
