// Package cache holds small in-process caches for slow-changing lookups.
package cache

import (
	"sync"
	"time"
)

// Cache is a keyed store of values with expiry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Len() int
}

// Sweeper is implemented by caches that can drop expired entries eagerly.
type Sweeper interface {
	Sweep() int
}

// Janitor periodically sweeps registered caches until stopped.
type Janitor struct {
	mu       sync.Mutex
	caches   []Sweeper
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewJanitor() *Janitor {
	return &Janitor{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (j *Janitor) Register(s Sweeper) {
	j.mu.Lock()
	j.caches = append(j.caches, s)
	j.mu.Unlock()
}

// Start launches the sweep loop. Call Stop to end it.
func (j *Janitor) Start(interval time.Duration) {
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.mu.Lock()
				for _, c := range j.caches {
					c.Sweep()
				}
				j.mu.Unlock()
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit. It must only be
// called after Start.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stop)
		<-j.done
	})
}
