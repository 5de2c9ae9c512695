package session

import (
	"time"

	"github.com/park285/cheese-arena/internal/domain"
)

// ClockScheduler drives per-room chess clocks. Every armed tick carries a
// token; Stop clears it so a callback already in flight is discarded when it
// reaches the engine loop.
type ClockScheduler struct {
	sched Scheduler
	tick  time.Duration
	next  func() uint64
	post  func(Event)
}

func NewClockScheduler(sched Scheduler, tick time.Duration, next func() uint64, post func(Event)) *ClockScheduler {
	if tick <= 0 {
		tick = time.Second
	}
	return &ClockScheduler{sched: sched, tick: tick, next: next, post: post}
}

// Start (re)arms the clock for the side to move.
func (c *ClockScheduler) Start(r *Room) {
	c.Stop(r)
	r.Clock.lastDebit = c.sched.Now()
	c.arm(r)
}

// Stop cancels any pending tick.
func (c *ClockScheduler) Stop(r *Room) {
	if r.Clock.timer != nil {
		r.Clock.timer.Stop()
		r.Clock.timer = nil
	}
	r.Clock.token = 0
}

func (c *ClockScheduler) arm(r *Room) {
	side := r.Game.Turn()
	d := c.tick
	if rem := r.Clock.Remaining[side.Index()]; rem < d {
		d = rem
	}
	if d < 0 {
		d = 0
	}
	token := c.next()
	roomID := r.ID
	r.Clock.token = token
	r.Clock.timer = c.sched.AfterFunc(d, func() {
		c.post(clockTick{roomID: roomID, token: token})
	})
}

// Tick applies a fired tick. ok is false for stale tokens. When flagged is
// true the side to move has no time left and the clock is stopped.
func (c *ClockScheduler) Tick(r *Room, token uint64) (side domain.Color, flagged, ok bool) {
	if token == 0 || token != r.Clock.token {
		return "", false, false
	}
	r.Clock.timer = nil
	side = r.Game.Turn()
	if c.debit(r, side) <= 0 {
		c.Stop(r)
		return side, true, true
	}
	c.arm(r)
	return side, false, true
}

// Flagged debits elapsed time from side and reports whether it ran out.
func (c *ClockScheduler) Flagged(r *Room, side domain.Color) bool {
	return c.debit(r, side) <= 0
}

// Moved debits the mover and credits the increment. The caller re-arms.
func (c *ClockScheduler) Moved(r *Room, mover domain.Color) {
	c.debit(r, mover)
	r.Clock.Remaining[mover.Index()] += r.Clock.Increment
}

func (c *ClockScheduler) debit(r *Room, side domain.Color) time.Duration {
	now := c.sched.Now()
	i := side.Index()
	if elapsed := now.Sub(r.Clock.lastDebit); elapsed > 0 && !r.Clock.lastDebit.IsZero() {
		r.Clock.Remaining[i] -= elapsed
	}
	r.Clock.lastDebit = now
	if r.Clock.Remaining[i] < 0 {
		r.Clock.Remaining[i] = 0
	}
	return r.Clock.Remaining[i]
}
