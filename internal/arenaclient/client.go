// Package arenaclient is a Go client for the arena server's REST API and
// websocket protocol.
package arenaclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-arena/internal/domain"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// Client calls the REST API.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health is the /healthz body.
type Health struct {
	Status  string          `json:"status"`
	Stats   json.RawMessage `json:"stats,omitempty"`
	Sockets *SocketStats    `json:"sockets,omitempty"`
}

type SocketStats struct {
	Open    int    `json:"open"`
	Dropped uint64 `json:"dropped"`
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.getJSON(ctx, "/healthz", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]domain.Profile, error) {
	var out []domain.Profile
	if err := c.getJSON(ctx, "/api/leaderboard?limit="+strconv.Itoa(limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) History(ctx context.Context, identity string, limit int) ([]domain.MatchRecord, error) {
	var out []domain.MatchRecord
	path := "/api/history/" + url.PathEscape(identity) + "?limit=" + strconv.Itoa(limit)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Profile(ctx context.Context, identity string) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.getJSON(ctx, "/api/profiles/"+url.PathEscape(identity), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Room(ctx context.Context, roomID string) (*domain.RoomSnapshot, error) {
	var snap domain.RoomSnapshot
	if err := c.getJSON(ctx, "/api/rooms/"+url.PathEscape(roomID), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Results reads one page of the published result feed. Pass the returned
// cursor as after to continue; "" starts from the beginning.
func (c *Client) Results(ctx context.Context, after string, limit int) ([]domain.MatchRecord, string, error) {
	var page struct {
		Results []domain.MatchRecord `json:"results"`
		Next    string               `json:"next"`
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if after != "" {
		q.Set("after", after)
	}
	if err := c.getJSON(ctx, "/api/results?"+q.Encode(), &page); err != nil {
		return nil, after, err
	}
	return page.Results, page.Next, nil
}

// getJSON retries transport errors and 5xx responses with backoff.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("Accept", "application/json")

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err == nil {
			status := resp.StatusCode()
			switch {
			case status == fasthttp.StatusNotFound:
				return ErrNotFound
			case status >= 200 && status < 300:
				if out == nil {
					return nil
				}
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
				return nil
			}
			err = fmt.Errorf("arena api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return err
			}
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	return fmt.Errorf("request failed: %w", lastErr)
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
