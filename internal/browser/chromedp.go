package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"
)

// ChromedpEngine drives Chrome over the DevTools protocol. Each Launch starts
// a separate browser process, closed with the session.
type ChromedpEngine struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	opts     Options
	sem      *semaphore.Weighted
}

func NewChromedp(opts Options) *ChromedpEngine {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &ChromedpEngine{
		allocCtx: allocCtx,
		cancel:   cancel,
		opts:     opts,
		sem:      semaphore.NewWeighted(opts.MaxSessions),
	}
}

func (e *ChromedpEngine) Launch(ctx context.Context) (Session, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a browser slot: %w", err)
	}

	browserCtx, cancel := chromedp.NewContext(e.allocCtx)
	// an empty Run starts the browser
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		e.sem.Release(1)
		return nil, fmt.Errorf("could not start chrome: %w", err)
	}

	return &chromedpSession{
		ctx:     browserCtx,
		cancel:  cancel,
		idle:    e.opts.IdleWait,
		release: func() { e.sem.Release(1) },
	}, nil
}

func (e *ChromedpEngine) Close() error {
	e.cancel()
	return nil
}

type chromedpSession struct {
	ctx     context.Context
	cancel  context.CancelFunc
	idle    time.Duration
	release func()
	once    sync.Once
}

func (s *chromedpSession) Visit(ctx context.Context, url string, timeout time.Duration) (*RawPage, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.ctx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	reqCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	var page RawPage
	err := chromedp.Run(reqCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.idle),
		chromedp.Title(&page.Title),
		chromedp.Location(&page.URL),
		chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil || reqCtx.Err() != nil {
			return nil, &NavigationError{URL: url, Kind: KindTimeout, Err: err}
		}
		return nil, classify(url, err)
	}

	if blockedPage(page.Title, 0) {
		return nil, &NavigationError{URL: url, Kind: KindBlocked, Err: fmt.Errorf("title %q", page.Title)}
	}
	return &page, nil
}

func (s *chromedpSession) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.release()
	})
	return nil
}
