package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/internal/obslog"
)

// ResultStore persists finished matches and the ratings they produce.
// LoadProfile returns (nil, nil) for unknown identities.
type ResultStore interface {
	LoadProfile(ctx context.Context, identity string) (*domain.Profile, error)
	RecordResult(ctx context.Context, rec *domain.MatchRecord, white, black *domain.Profile) error
}

// ResultPublisher fans a persisted result out to other consumers.
type ResultPublisher interface {
	PublishResult(ctx context.Context, rec *domain.MatchRecord, white, black *domain.Profile) error
}

// ResultFinalizer ends games exactly once and hands the record to the
// result queue, which persists one match at a time.
type ResultFinalizer struct {
	clocks    *ClockScheduler
	guard     *DisconnectGuard
	store     ResultStore
	publisher ResultPublisher
	results   *fifo
	post      func(Event)
	now       func() time.Time

	k             int
	defaultRating int
	timeout       time.Duration

	finalized atomic.Int64
	failures  atomic.Int64
}

// Finalize stops the room's timers, records the result and marks the room
// finished. It returns nil when the room is not playing.
func (f *ResultFinalizer) Finalize(r *Room, winner *domain.Color, reason string) *domain.MatchRecord {
	if r.Status != domain.StatusPlaying {
		return nil
	}
	f.clocks.Stop(r)
	f.guard.CancelRoom(r.ID)

	now := f.now()
	code, title := r.Game.Opening()
	rec := &domain.MatchRecord{
		ID:          uuid.NewString(),
		RoomID:      r.ID,
		White:       r.Seat(domain.White).Identity,
		Black:       r.Seat(domain.Black).Identity,
		Reason:      reason,
		MovesSAN:    r.Game.MovesSAN(),
		PGN:         r.Game.PGN(),
		ECOCode:     code,
		ECOTitle:    title,
		TimeControl: r.TimeConfig,
		StartedAt:   r.StartedAt,
		EndedAt:     now,
	}
	if winner != nil {
		w := *winner
		rec.Winner = &w
	}
	r.finish(rec, now)
	f.finalized.Add(1)

	obslog.Room(r.ID).Info("match_finalized",
		zap.String("match_id", rec.ID),
		zap.String("winner", rec.WinnerString()),
		zap.String("reason", reason),
		zap.Int("plies", len(rec.MovesSAN)))

	if f.store != nil {
		persisted := *rec
		if !f.results.submit(func(ctx context.Context) { f.persist(ctx, &persisted) }) {
			f.fail(rec, "enqueue", ErrEngineStopped)
		}
	}
	return rec
}

func (f *ResultFinalizer) persist(ctx context.Context, rec *domain.MatchRecord) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	white, err := f.loadOrSeed(ctx, rec.White)
	if err != nil {
		f.fail(rec, "load_white", err)
		return
	}
	black, err := f.loadOrSeed(ctx, rec.Black)
	if err != nil {
		f.fail(rec, "load_black", err)
		return
	}
	applyResult(rec, white, black, f.k, f.now())

	if err := f.store.RecordResult(ctx, rec, white, black); err != nil {
		f.fail(rec, "record", err)
		return
	}
	obslog.L().Info("match_result_persist",
		zap.String("match_id", rec.ID),
		zap.String("room_id", rec.RoomID),
		zap.Int("white_after", rec.WhiteRatingAfter),
		zap.Int("black_after", rec.BlackRatingAfter))

	if f.publisher != nil {
		if err := f.publisher.PublishResult(ctx, rec, white, black); err != nil {
			obslog.L().Warn("match_result_publish_error", zap.String("match_id", rec.ID), zap.Error(err))
		}
	}
	f.post(resultPersisted{rec: rec})
}

func (f *ResultFinalizer) loadOrSeed(ctx context.Context, identity string) (*domain.Profile, error) {
	p, err := f.store.LoadProfile(ctx, identity)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = domain.NewProfile(identity, f.defaultRating, f.now())
	}
	return p, nil
}

func (f *ResultFinalizer) fail(rec *domain.MatchRecord, stage string, err error) {
	f.failures.Add(1)
	obslog.L().Error("match_result_persist_error",
		zap.String("match_id", rec.ID),
		zap.String("room_id", rec.RoomID),
		zap.String("stage", stage),
		zap.Any("record", rec),
		zap.Error(err))
}
