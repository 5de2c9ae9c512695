package session

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/pkg/arenadto"
)

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeScheduler only moves when Advance is called.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *fakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now.Add(d), fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	var due []*fakeTimer
	kept := s.timers[:0]
	for _, t := range s.timers {
		if t.stopped {
			continue
		}
		if !t.at.After(s.now) {
			t.fired = true
			due = append(due, t)
			continue
		}
		kept = append(kept, t)
	}
	s.timers = kept
	s.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

type sentNote struct {
	connID string
	n      arenadto.Notification
}

type recorder struct {
	mu   sync.Mutex
	sent []sentNote
}

func (r *recorder) Notify(connID string, n arenadto.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNote{connID: connID, n: n})
}

// of returns the notifications of typ sent to connID; "" matches any connection.
func (r *recorder) of(connID, typ string) []arenadto.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []arenadto.Notification
	for _, s := range r.sent {
		if s.n.Type == typ && (connID == "" || s.connID == connID) {
			out = append(out, s.n)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
	records  []domain.MatchRecord
	err      error
	// delay is slept outside the lock before every profile read.
	delay time.Duration
}

func newFakeStore() *fakeStore { return &fakeStore{profiles: make(map[string]domain.Profile)} }

func (s *fakeStore) LoadProfile(_ context.Context, identity string) (*domain.Profile, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[identity]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *fakeStore) RecordResult(_ context.Context, rec *domain.MatchRecord, white, black *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, *rec)
	s.profiles[white.Identity] = *white
	s.profiles[black.Identity] = *black
	return nil
}

func (s *fakeStore) snapshot() ([]domain.MatchRecord, map[string]domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles := make(map[string]domain.Profile, len(s.profiles))
	for k, v := range s.profiles {
		profiles[k] = v
	}
	return append([]domain.MatchRecord(nil), s.records...), profiles
}

// slowSink stalls every snapshot write.
type slowSink struct{ delay time.Duration }

func (s slowSink) SaveRoom(context.Context, *domain.RoomSnapshot, time.Duration) error {
	time.Sleep(s.delay)
	return nil
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	e     *Engine
	sched *fakeScheduler
	notes *recorder
	store *fakeStore
}

func newHarness(t *testing.T, cfg Config, opts ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{t: t, sched: newFakeScheduler(), notes: &recorder{}, store: newFakeStore()}
	deps := Deps{Notifier: h.notes, Store: h.store, Scheduler: h.sched}
	for _, opt := range opts {
		opt(&deps)
	}
	h.e = NewEngine(cfg, deps)
	ctx, cancel := context.WithCancel(context.Background())
	h.ctx = ctx
	done := make(chan error, 1)
	go func() { done <- h.e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

// do submits events in order and waits until the loop has handled them.
func (h *harness) do(evs ...Event) {
	h.t.Helper()
	for _, ev := range evs {
		if err := h.e.Submit(h.ctx, ev); err != nil {
			h.t.Fatalf("submit %T: %v", ev, err)
		}
	}
	h.sync()
}

func (h *harness) sync() {
	h.t.Helper()
	if err := h.e.Sync(h.ctx); err != nil {
		h.t.Fatalf("sync: %v", err)
	}
}

func (h *harness) flush() {
	h.t.Helper()
	if err := h.e.Flush(h.ctx); err != nil {
		h.t.Fatalf("flush: %v", err)
	}
}

// advance moves time forward one step at a time so every tick is handled.
func (h *harness) advance(d, step time.Duration) {
	h.t.Helper()
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		h.sched.Advance(step)
		h.sync()
	}
}

func (h *harness) room(id string) *domain.RoomSnapshot {
	h.t.Helper()
	snap, err := h.e.Room(h.ctx, id)
	if err != nil {
		h.t.Fatalf("room %s: %v", id, err)
	}
	return snap
}

// createRoom opens a room for alice on c-white and returns its id.
func (h *harness) createRoom(tc *domain.TimeConfig) string {
	h.t.Helper()
	h.do(CreateRoom{ConnID: "c-white", Identity: "alice", TimeConfig: tc})
	created := h.notes.of("c-white", arenadto.TypeRoomCreated)
	if len(created) == 0 {
		h.t.Fatalf("no room_created")
	}
	return created[len(created)-1].Payload.(arenadto.RoomCreated).RoomID
}

// startGame seats alice (white) and bob (black).
func (h *harness) startGame(tc *domain.TimeConfig) string {
	h.t.Helper()
	id := h.createRoom(tc)
	h.do(JoinRoom{ConnID: "c-black", RoomID: id, Identity: "bob"})
	if got := h.room(id).Status; got != domain.StatusPlaying {
		h.t.Fatalf("status after join = %s", got)
	}
	return id
}

func gameOvers(h *harness, connID string) []arenadto.GameOver {
	var out []arenadto.GameOver
	for _, n := range h.notes.of(connID, arenadto.TypeGameOver) {
		out = append(out, n.Payload.(arenadto.GameOver))
	}
	return out
}

func lastTimers(t *testing.T, notes []arenadto.Notification) arenadto.Timers {
	t.Helper()
	if len(notes) == 0 {
		t.Fatalf("no time_update")
	}
	return notes[len(notes)-1].Payload.(arenadto.Timers)
}
