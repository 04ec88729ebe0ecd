// Package cache holds the cross-process coordination pieces: per-pair apply
// locks and status event publishing.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLocked means another flow holds the key.
var ErrLocked = errors.New("lock is held by another flow")

// Unlock releases a lock. It is safe to call more than once.
type Unlock func()

// Locker hands out short-lived exclusive locks by key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
}

// LocalLocker is the in-process Locker used when redis is not configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localLock
	now  func() time.Time
	seq  uint64
}

type localLock struct {
	id      uint64
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localLock), now: time.Now}
}

func (l *LocalLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, ErrLocked
	}
	l.seq++
	id := l.seq
	l.held[key] = localLock{id: id, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// an expired lock may have been taken over; only drop our own
			if cur, ok := l.held[key]; ok && cur.id == id {
				delete(l.held, key)
			}
		})
	}, nil
}
