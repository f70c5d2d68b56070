package game

import (
	"log"
	"sync"
	"time"
)

// Loop drives one engine at a fixed tick rate. Ticks run on their own
// goroutine; a panic inside a tick is logged and the loop keeps going, so a
// single bad tick never stops the authoritative simulation of a live match.
type Loop struct {
	engine   *Engine
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	running bool

	results chan *Result
}

// NewLoop creates a driver for the given engine at tickRateHz.
func NewLoop(engine *Engine, tickRateHz int) *Loop {
	if tickRateHz <= 0 {
		tickRateHz = TickRateHz
	}
	return &Loop{
		engine:   engine,
		interval: time.Second / time.Duration(tickRateHz),
		results:  make(chan *Result, 1),
	}
}

// Engine exposes the live simulation for the room coordinator.
func (l *Loop) Engine() *Engine {
	return l.engine
}

// Results delivers the terminal result produced by the tick that ended the
// match. The channel is buffered so the tick goroutine never blocks on it.
func (l *Loop) Results() <-chan *Result {
	return l.results
}

// Start begins the physics timer. It refuses to start unless both players are
// ready, and is a no-op when already running.
func (l *Loop) Start() bool {
	if !l.engine.BothReady() {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return true
	}
	l.running = true
	l.stop = make(chan struct{})

	go l.run(l.stop)
	return true
}

// Stop cancels the physics timer. Safe to call when not running, and safe to
// call more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	close(l.stop)
}

// Running reports whether the timer is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Loop) run(stop chan struct{}) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.safeTick()
		}
	}
}

func (l *Loop) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[LOOP] Tick panic recovered: %v", r)
		}
	}()

	if res := l.engine.Tick(); res != nil {
		select {
		case l.results <- res:
		default:
		}
	}
}
