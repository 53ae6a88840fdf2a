// Package ratelimit provides a per-process sliding-window rate limiter.
// State is in memory only and resets on restart.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter tracks event instants per key. A key's queue is pruned lazily on
// access and dropped entirely once empty, so idle keys cost nothing.
type Limiter struct {
	mu     sync.Mutex
	events map[string][]time.Time
	now    func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{events: make(map[string][]time.Time), now: time.Now}
}

// NewLimiterWithClock injects the clock, for tests.
func NewLimiterWithClock(now func() time.Time) *Limiter {
	return &Limiter{events: make(map[string][]time.Time), now: now}
}

// Allow reports whether one more event fits inside the trailing window.
// The count is evaluated before insertion: a rejected event is not recorded
// and does not extend the window.
func (l *Limiter) Allow(key string, limit int, window time.Duration) bool {
	now := l.now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	events := l.events[key]
	kept := 0
	for _, at := range events {
		if at.After(cutoff) {
			events[kept] = at
			kept++
		}
	}
	events = events[:kept]

	if kept == 0 {
		delete(l.events, key)
	}
	if kept >= limit {
		if kept > 0 {
			l.events[key] = events
		}
		return false
	}

	l.events[key] = append(events, now)
	return true
}

// Default budgets per key family.
const (
	LoginLimit  = 5
	LoginWindow = 60 * time.Second

	EventLimit  = 60
	EventWindow = 30 * time.Second

	SendLimit  = 20
	SendWindow = 10 * time.Second
)

// Key families. A key must never cross families, so each helper owns its prefix.

// LoginKey throttles credential attempts per client address.
func LoginKey(addr string) string { return "login:" + addr }

// EventKey throttles all websocket events for one user.
func EventKey(userID string) string { return "ws:" + userID }

// SendKey throttles chat sends per (conversation, user).
func SendKey(conversationID, userID string) string {
	return fmt.Sprintf("msg:%s:%s", conversationID, userID)
}
