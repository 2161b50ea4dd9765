// Package schedule implements ports.Scheduler with real timers. Handles stop
// idempotently and a stopped handle never delivers another callback, so
// session teardown cannot race a stray tick.
package schedule

import (
	"sync"
	"time"

	"github.com/oskarena/landgrab/internal/core/ports"
)

// Scheduler runs callbacks on background goroutines.
type Scheduler struct{}

// New creates a Scheduler.
func New() *Scheduler { return &Scheduler{} }

type tickerHandle struct {
	once sync.Once
	done chan struct{}
}

func (h *tickerHandle) Stop() {
	h.once.Do(func() { close(h.done) })
}

// Every invokes fn every interval until the handle is stopped.
func (s *Scheduler) Every(interval time.Duration, fn func()) ports.TimerHandle {
	h := &tickerHandle{done: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case <-h.done:
					return
				default:
				}
				fn()
			case <-h.done:
				return
			}
		}
	}()

	return h
}

type timerHandle struct {
	once  sync.Once
	timer *time.Timer
	done  chan struct{}
}

func (h *timerHandle) Stop() {
	h.once.Do(func() {
		h.timer.Stop()
		close(h.done)
	})
}

// After invokes fn once after the delay unless the handle is stopped first.
func (s *Scheduler) After(delay time.Duration, fn func()) ports.TimerHandle {
	h := &timerHandle{done: make(chan struct{})}
	h.timer = time.NewTimer(delay)

	go func() {
		select {
		case <-h.timer.C:
			select {
			case <-h.done:
				return
			default:
			}
			fn()
		case <-h.done:
		}
	}()

	return h
}
