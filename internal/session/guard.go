package session

import (
	"time"

	"github.com/park285/cheese-arena/internal/domain"
)

// graceKey identifies one absent seat. A connection can hold seats in more
// than one room, so the room is part of the key.
type graceKey struct {
	connID string
	roomID string
}

type graceTimer struct {
	graceKey
	color domain.Color
	token uint64
	timer Timer
}

// DisconnectGuard holds one grace timer per absent seat.
type DisconnectGuard struct {
	sched  Scheduler
	grace  time.Duration
	next   func() uint64
	post   func(Event)
	timers map[graceKey]*graceTimer
}

func NewDisconnectGuard(sched Scheduler, grace time.Duration, next func() uint64, post func(Event)) *DisconnectGuard {
	return &DisconnectGuard{sched: sched, grace: grace, next: next, post: post, timers: make(map[graceKey]*graceTimer)}
}

func (g *DisconnectGuard) Grace() time.Duration { return g.grace }

// Arm starts the grace window for connID's seat in a playing room.
func (g *DisconnectGuard) Arm(connID string, r *Room, color domain.Color) bool {
	if connID == "" || r.Status != domain.StatusPlaying {
		return false
	}
	key := graceKey{connID: connID, roomID: r.ID}
	g.Cancel(connID, r.ID)
	gt := &graceTimer{graceKey: key, color: color, token: g.next()}
	token := gt.token
	gt.timer = g.sched.AfterFunc(g.grace, func() {
		g.post(graceExpired{connID: key.connID, roomID: key.roomID, token: token})
	})
	g.timers[key] = gt
	return true
}

// Cancel stops the timer for connID's seat in roomID, if any.
func (g *DisconnectGuard) Cancel(connID, roomID string) bool {
	key := graceKey{connID: connID, roomID: roomID}
	gt, ok := g.timers[key]
	if !ok {
		return false
	}
	gt.timer.Stop()
	delete(g.timers, key)
	return true
}

// CancelRoom stops every timer pointing at roomID.
func (g *DisconnectGuard) CancelRoom(roomID string) {
	for key, gt := range g.timers {
		if key.roomID == roomID {
			gt.timer.Stop()
			delete(g.timers, key)
		}
	}
}

// expire claims the timer when the token is current.
func (g *DisconnectGuard) expire(connID, roomID string, token uint64) (*graceTimer, bool) {
	key := graceKey{connID: connID, roomID: roomID}
	gt, ok := g.timers[key]
	if !ok || gt.token != token {
		return nil, false
	}
	delete(g.timers, key)
	return gt, true
}

func (g *DisconnectGuard) Pending() int { return len(g.timers) }

func (g *DisconnectGuard) stopAll() {
	for key, gt := range g.timers {
		gt.timer.Stop()
		delete(g.timers, key)
	}
}
