// Package scheduler provides the per-room turn countdown as an injected
// scheduling capability, so the state machine never touches timers
// directly and the implementation can later be backed by a distributed
// delayed queue without changing game logic.
package scheduler

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Scheduler arms and cancels keyed one-shot callbacks. At most one
// callback is pending per key; arming replaces any existing one.
type Scheduler interface {
	Arm(key string, d time.Duration, fn func())
	Cancel(key string)
}

// TimerScheduler is a process-local Scheduler on top of a clockwork
// clock. One timer slot per key; callbacks run on their own goroutine.
type TimerScheduler struct {
	clock clockwork.Clock

	mu     sync.Mutex
	timers map[string]*slot
}

type slot struct {
	timer clockwork.Timer
	stop  chan struct{}
}

// NewTimerScheduler creates a scheduler driven by the given clock. Pass
// clockwork.NewRealClock() in production and a fake clock in tests.
func NewTimerScheduler(clock clockwork.Clock) *TimerScheduler {
	return &TimerScheduler{
		clock:  clock,
		timers: make(map[string]*slot),
	}
}

// Arm schedules fn to run after d, cancelling and replacing any pending
// callback for the same key.
func (s *TimerScheduler) Arm(key string, d time.Duration, fn func()) {
	timer := s.clock.NewTimer(d)
	sl := &slot{timer: timer, stop: make(chan struct{})}

	s.mu.Lock()
	if existing, ok := s.timers[key]; ok {
		stopAndDrainTimer(existing.timer)
		close(existing.stop)
		log.Debug().Str("key", key).Msg("replaced pending timer")
	}
	s.timers[key] = sl
	s.mu.Unlock()

	go func() {
		select {
		case <-timer.Chan():
			s.remove(key, sl)
			fn()
		case <-sl.stop:
		}
	}()
}

// Cancel stops and forgets the pending callback for key, if any.
func (s *TimerScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sl, ok := s.timers[key]; ok {
		stopAndDrainTimer(sl.timer)
		close(sl.stop)
		delete(s.timers, key)
		log.Debug().Str("key", key).Msg("cancelled pending timer")
	}
}

// remove clears the slot when a timer fires, unless Arm already replaced
// it with a newer one.
func (s *TimerScheduler) remove(key string, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.timers[key]; ok && current == sl {
		delete(s.timers, key)
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel, per the
// pattern recommended in the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
