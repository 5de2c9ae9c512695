package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	DisconnectGrace  time.Duration
	ClockTick        time.Duration
	FinishedRoomTTL  time.Duration
	AbandonedTTL     time.Duration
	DefaultMinutes   int
	DefaultIncrement int

	EloK          int
	DefaultRating int

	AllowedOrigins []string
	MessagesDir    string

	ResultStream     string
	LeaderboardLimit int
	HistoryLimit     int
}

// Load reads the environment, optionally seeded from the given .env files
// (missing files are ignored).
func Load(envFiles ...string) (*AppConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &AppConfig{
		ListenAddr:       ":3001",
		DisconnectGrace:  60 * time.Second,
		ClockTick:        time.Second,
		FinishedRoomTTL:  5 * time.Minute,
		AbandonedTTL:     5 * time.Minute,
		DefaultMinutes:   10,
		DefaultIncrement: 0,
		EloK:             32,
		DefaultRating:    1200,
		ResultStream:     "arena:results",
		LeaderboardLimit: 10,
		HistoryLimit:     20,
	}

	if v := strings.TrimSpace(os.Getenv("ARENA_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv("RESULT_STREAM")); v != "" {
		cfg.ResultStream = v
	}

	var err error
	if cfg.DisconnectGrace, err = seconds("DISCONNECT_GRACE_SEC", cfg.DisconnectGrace); err != nil {
		return nil, err
	}
	if cfg.FinishedRoomTTL, err = seconds("FINISHED_ROOM_TTL_SEC", cfg.FinishedRoomTTL); err != nil {
		return nil, err
	}
	if cfg.AbandonedTTL, err = seconds("ABANDONED_ROOM_TTL_SEC", cfg.AbandonedTTL); err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(os.Getenv("CLOCK_TICK_MS")); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil || n <= 0 {
			return nil, fmt.Errorf("CLOCK_TICK_MS must be a positive integer, got %q", v)
		}
		cfg.ClockTick = time.Duration(n) * time.Millisecond
	}
	if cfg.DefaultMinutes, err = positiveInt("DEFAULT_MINUTES", cfg.DefaultMinutes); err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_INCREMENT_SEC")); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil || n < 0 {
			return nil, fmt.Errorf("DEFAULT_INCREMENT_SEC must be >= 0, got %q", v)
		}
		cfg.DefaultIncrement = n
	}
	if cfg.EloK, err = positiveInt("ELO_K", cfg.EloK); err != nil {
		return nil, err
	}
	if cfg.DefaultRating, err = positiveInt("DEFAULT_RATING", cfg.DefaultRating); err != nil {
		return nil, err
	}
	if cfg.LeaderboardLimit, err = positiveInt("LEADERBOARD_LIMIT", cfg.LeaderboardLimit); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = positiveInt("HISTORY_LIMIT", cfg.HistoryLimit); err != nil {
		return nil, err
	}

	if cfg.ListenAddr == "" {
		return nil, errors.New("ARENA_ADDR must not be empty")
	}
	return cfg, nil
}

func seconds(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of seconds, got %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}

func positiveInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
