// Package speedmeter tracks a rolling bytes/sec rate fed by many
// concurrent chunk workers, the way tdm's download.go accumulates into a
// SpeedCalculator from every active chunk. No library in the retrieved
// pack exposes a windowed rate counter, so this stays on the standard
// library; it is a handful of atomics, not a concern any of the corpus's
// dependencies own.
package speedmeter

import (
	"sync"
	"sync/atomic"
	"time"
)

// Meter accumulates bytes from concurrent Add calls and turns periodic
// Tick snapshots into an instantaneous rate. Safe for concurrent use.
type Meter struct {
	total int64 // accessed atomically; cumulative bytes since start

	mu        sync.Mutex
	lastTotal int64
	lastAt    time.Time
	rate      int64
	paused    bool
}

func New() *Meter {
	return &Meter{lastAt: time.Now()}
}

// Add records n newly downloaded bytes from any worker goroutine.
func (m *Meter) Add(n int64) {
	atomic.AddInt64(&m.total, n)
}

// Tick recomputes the rate from the elapsed time since the previous
// Tick. The moderator calls this on a periodic timer.
func (m *Meter) Tick(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := atomic.LoadInt64(&m.total)

	if m.paused {
		m.lastTotal = total
		m.lastAt = now
		return
	}

	elapsed := now.Sub(m.lastAt)
	if elapsed <= 0 {
		return
	}

	delta := total - m.lastTotal
	if delta < 0 {
		delta = 0
	}

	m.rate = int64(float64(delta) / elapsed.Seconds())
	m.lastTotal = total
	m.lastAt = now
}

// Pause freezes the rate at 0 until the next Tick after Resume.
func (m *Meter) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paused = true
	m.rate = 0
}

func (m *Meter) Resume(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paused = false
	m.lastAt = now
}

func (m *Meter) Rate() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rate
}
