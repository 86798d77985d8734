package worker

import (
	"sync"
	"time"
)

// Lifecycle tracks worker activity and triggers shutdown once the worker has
// been idle for the configured delay. The idle timer is paused while
// compilations are in flight.
type Lifecycle struct {
	mu           sync.Mutex
	timer        *time.Timer
	startTime    time.Time
	lastActivity time.Time
	delay        time.Duration
	busy         int
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewLifecycle creates a lifecycle that shuts down after delay of inactivity.
func NewLifecycle(delay time.Duration) *Lifecycle {
	now := time.Now()
	l := &Lifecycle{
		startTime:    now,
		lastActivity: now,
		delay:        delay,
		shutdownChan: make(chan struct{}),
	}
	l.timer = time.AfterFunc(delay, l.triggerShutdown)
	return l
}

// ResetTimer records activity and restarts the idle countdown.
func (l *Lifecycle) ResetTimer() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastActivity = time.Now()
	if l.busy == 0 {
		l.timer.Reset(l.delay)
	}
}

// Begin marks the start of a compilation. The worker does not idle out until
// the matching End.
func (l *Lifecycle) Begin() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastActivity = time.Now()
	l.busy++
	l.timer.Stop()
}

// End marks the end of a compilation.
func (l *Lifecycle) End() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastActivity = time.Now()
	if l.busy > 0 {
		l.busy--
	}
	if l.busy == 0 {
		l.timer.Reset(l.delay)
	}
}

// Busy returns the number of compilations in flight.
func (l *Lifecycle) Busy() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy
}

// IdleRemaining returns the time left until auto-shutdown.
func (l *Lifecycle) IdleRemaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy > 0 {
		return l.delay
	}
	remaining := l.delay - time.Since(l.lastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Uptime returns how long the worker has been running.
func (l *Lifecycle) Uptime() time.Duration {
	return time.Since(l.startTime)
}

// LastActivity returns the time of the last recorded activity.
func (l *Lifecycle) LastActivity() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastActivity
}

// ShutdownChan is closed when shutdown is triggered.
func (l *Lifecycle) ShutdownChan() <-chan struct{} {
	return l.shutdownChan
}

func (l *Lifecycle) triggerShutdown() {
	l.shutdownOnce.Do(func() {
		close(l.shutdownChan)
	})
}

// Shutdown stops the idle timer and triggers shutdown.
func (l *Lifecycle) Shutdown() {
	l.timer.Stop()
	l.triggerShutdown()
}
