package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-arena/internal/domain"
)

const (
	defaultResultStream = "arena:results"
	streamMaxLen        = 10000
)

// Redis mirrors room snapshots, keeps a rating leaderboard and appends
// finished matches to a stream.
type Redis struct {
	rdb    *redis.Client
	stream string
}

func NewRedis(rdb *redis.Client, stream string) *Redis {
	if strings.TrimSpace(stream) == "" {
		stream = defaultResultStream
	}
	return &Redis{rdb: rdb, stream: stream}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (s *Redis) keyRoom(id string) string { return "arena:room:" + strings.TrimSpace(id) }
func (s *Redis) keyLeaderboard() string   { return "arena:leaderboard" }
func (s *Redis) keyProfile(identity string) string {
	return "arena:profile:" + strings.TrimSpace(identity)
}

// SaveRoom writes the snapshot unless a newer one is already stored.
func (s *Redis) SaveRoom(ctx context.Context, snap *domain.RoomSnapshot, ttl time.Duration) error {
	if snap == nil {
		return nil
	}
	key := s.keyRoom(snap.ID)
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			var prev domain.RoomSnapshot
			if jerr := json.Unmarshal(cur, &prev); jerr == nil && prev.UpdatedAt.After(snap.UpdatedAt) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("save room %s: %w", snap.ID, err)
	}
	return nil
}

// LoadRoom returns (nil, nil) when the snapshot has expired.
func (s *Redis) LoadRoom(ctx context.Context, id string) (*domain.RoomSnapshot, error) {
	raw, err := s.rdb.Get(ctx, s.keyRoom(strings.ToUpper(id))).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	var snap domain.RoomSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	return &snap, nil
}

// PublishResult appends the match to the result stream and refreshes the
// leaderboard entries of both players.
func (s *Redis) PublishResult(ctx context.Context, rec *domain.MatchRecord, white, black *domain.Profile) error {
	if err := validate(rec, white, black); err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"match_id": rec.ID,
			"room_id":  rec.RoomID,
			"white":    rec.White,
			"black":    rec.Black,
			"winner":   rec.WinnerString(),
			"reason":   rec.Reason,
			"payload":  string(payload),
		},
	})
	for _, p := range []*domain.Profile{white, black} {
		pipe.ZAdd(ctx, s.keyLeaderboard(), redis.Z{Score: float64(p.Rating), Member: p.Identity})
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		pipe.Set(ctx, s.keyProfile(p.Identity), raw, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

// Leaderboard reads the rating ZSET and the cached profiles.
func (s *Redis) Leaderboard(ctx context.Context, limit int) ([]domain.Profile, error) {
	if limit <= 0 {
		limit = 10
	}
	zs, err := s.rdb.ZRevRangeWithScores(ctx, s.keyLeaderboard(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	out := make([]domain.Profile, 0, len(zs))
	for _, z := range zs {
		identity, _ := z.Member.(string)
		prof, err := s.Profile(ctx, identity)
		if err != nil {
			return nil, err
		}
		if prof == nil {
			prof = &domain.Profile{Identity: identity}
		}
		prof.Rating = int(z.Score)
		out = append(out, *prof)
	}
	return out, nil
}

func (s *Redis) Profile(ctx context.Context, identity string) (*domain.Profile, error) {
	raw, err := s.rdb.Get(ctx, s.keyProfile(identity)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	var prof domain.Profile
	if err := json.Unmarshal(raw, &prof); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &prof, nil
}

// Results reads up to count stream entries after id ("0" for the start).
func (s *Redis) Results(ctx context.Context, after string, count int64) ([]domain.MatchRecord, string, error) {
	if after == "" {
		after = "0"
	}
	msgs, err := s.rdb.XRangeN(ctx, s.stream, after, "+", count+1).Result()
	if err != nil {
		return nil, after, fmt.Errorf("read results: %w", err)
	}
	out := make([]domain.MatchRecord, 0, len(msgs))
	last := after
	for _, m := range msgs {
		if m.ID == after || int64(len(out)) == count {
			continue
		}
		last = m.ID
		raw, _ := m.Values["payload"].(string)
		var rec domain.MatchRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, last, fmt.Errorf("decode result %s: %w", m.ID, err)
		}
		out = append(out, rec)
	}
	return out, last, nil
}
