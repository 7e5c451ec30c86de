package loka

import (
	"sync"
	"time"
)

// timingGate rate-limits handler body runs. submit hands over a qualifying
// firing; the gate decides if and when run is invoked. stop cancels any
// pending invocation.
type timingGate interface {
	submit(ev *Event, run func(*Event))
	stop()
}

// debounceGate cancels and reschedules the pending invocation on every new
// qualifying firing; the body runs once, delay after the last firing.
type debounceGate struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func newDebounceGate(delay time.Duration) *debounceGate {
	return &debounceGate{delay: delay}
}

func (g *debounceGate) submit(ev *Event, run func(*Event)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(g.delay, func() {
		run(ev)
	})
}

func (g *debounceGate) stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// throttleGate runs the first firing immediately and drops firings that
// arrive before the cooldown elapses. With trailing enabled (queue all), at
// most one trailing invocation is kept and runs when the cooldown expires.
type throttleGate struct {
	delay    time.Duration
	trailing bool

	mu      sync.Mutex
	last    time.Time
	pending *Event
	timer   *time.Timer
}

func newThrottleGate(delay time.Duration, trailing bool) *throttleGate {
	return &throttleGate{delay: delay, trailing: trailing}
}

func (g *throttleGate) submit(ev *Event, run func(*Event)) {
	g.mu.Lock()
	now := time.Now()
	if g.last.IsZero() || now.Sub(g.last) >= g.delay {
		g.last = now
		g.mu.Unlock()
		run(ev)
		return
	}
	if !g.trailing {
		g.mu.Unlock()
		return
	}
	g.pending = ev
	if g.timer == nil {
		remaining := g.delay - now.Sub(g.last)
		g.timer = time.AfterFunc(remaining, func() {
			g.mu.Lock()
			pending := g.pending
			g.pending = nil
			g.timer = nil
			g.last = time.Now()
			g.mu.Unlock()
			if pending != nil {
				run(pending)
			}
		})
	}
	g.mu.Unlock()
}

func (g *throttleGate) stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.pending = nil
}
