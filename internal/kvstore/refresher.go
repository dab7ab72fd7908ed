package kvstore

import (
	"context"
	"sync"
	"time"

	"onboarding-service/internal/poller"
)

// Refresher keeps a local snapshot of the notification cache, re-fetched
// on a fixed interval. Readers get the whole last-fetched list; there is
// no partial merging, each poll replaces the snapshot.
type Refresher struct {
	cache *NotificationCache
	p     *poller.Poller

	mu       sync.RWMutex
	entries  []Notification
	lastRead time.Time
}

type snapshot struct {
	entries  []Notification
	lastRead time.Time
}

func NewRefresher(cache *NotificationCache, interval time.Duration) *Refresher {
	r := &Refresher{cache: cache}
	r.p = poller.New(interval, r.fetch, r.apply)
	return r
}

func (r *Refresher) Start() { r.p.Start() }
func (r *Refresher) Stop()  { r.p.Stop() }

func (r *Refresher) fetch(ctx context.Context) (interface{}, error) {
	entries, lastRead, err := r.cache.List(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot{entries: entries, lastRead: lastRead}, nil
}

func (r *Refresher) apply(result interface{}) {
	snap, ok := result.(snapshot)
	if !ok {
		return
	}
	r.mu.Lock()
	r.entries = snap.entries
	r.lastRead = snap.lastRead
	r.mu.Unlock()
}

// Snapshot returns the last fetched notification list and read marker.
func (r *Refresher) Snapshot() ([]Notification, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries, r.lastRead
}

// UnreadCount counts entries newer than the last-read marker.
func (r *Refresher) UnreadCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, n := range r.entries {
		if n.CreatedAt.After(r.lastRead) {
			count++
		}
	}
	return count
}
