// Package scheduler wires up the cron job that fails applications whose
// pipeline was interrupted (crash, restart) so the pair is never pinned in an
// in-flight status.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// StaleFailer moves interrupted applications to error (apply.Service).
type StaleFailer interface {
	FailStale(ctx context.Context, before time.Time) (int, error)
}

// Sweeper wraps robfig/cron and runs the stale sweep.
type Sweeper struct {
	cron       *cron.Cron
	failer     StaleFailer
	spec       string
	staleAfter time.Duration
	now        func() time.Time
}

// New creates a Sweeper firing on spec (e.g. "@every 10m").
func New(failer StaleFailer, spec string, staleAfter time.Duration) *Sweeper {
	return &Sweeper{
		cron:       cron.New(cron.WithLogger(cron.DefaultLogger)),
		failer:     failer,
		spec:       spec,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Start registers the job and starts the scheduler. One sweep also runs
// immediately so records left by a previous process are cleaned at boot.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[sweeper] Cron started, spec: %s, stale after %s", s.spec, s.staleAfter)

	go s.Sweep(ctx)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[sweeper] Cron stopped")
}

// Sweep runs one pass and returns how many applications were failed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	n, err := s.failer.FailStale(ctx, s.now().Add(-s.staleAfter))
	if err != nil {
		log.Printf("[sweeper] FailStale error: %v", err)
	}
	if n > 0 {
		log.Printf("[sweeper] marked %d interrupted application(s) as error", n)
	}
	return n
}
