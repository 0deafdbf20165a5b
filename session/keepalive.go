package session

import (
	"sync"
	"time"
)

// keepAlive fires fn after interval of silence. Every frame read or
// written pushes the deadline back.
type keepAlive struct {
	mu       sync.Mutex
	timer    *time.Timer
	interval time.Duration
	stopped  bool
}

func (k *keepAlive) start(interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stopped || k.timer != nil {
		return
	}
	k.interval = interval
	k.timer = time.AfterFunc(interval, fn)
}

// reset postpones the next enquire_link.
func (k *keepAlive) reset() {
	k.mu.Lock()
	if k.timer != nil && !k.stopped {
		k.timer.Reset(k.interval)
	}
	k.mu.Unlock()
}

func (k *keepAlive) stop() {
	k.mu.Lock()
	k.stopped = true
	if k.timer != nil {
		k.timer.Stop()
	}
	k.mu.Unlock()
}
