package arenaclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-arena/pkg/arenadto"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type MessageCallback func(env arenadto.Envelope)

type StateCallback func(state State)

var ErrNotConnected = errors.New("websocket not connected")

// Session is a websocket connection to /ws. Callbacks run on the read
// goroutine. After a reconnect the server sees a new connection, so callers
// re-send join_room from an OnStateChange callback.
type Session struct {
	wsURL string

	connM sync.Mutex
	conn  *websocket.Conn

	state  State
	stateM sync.RWMutex

	msgCbs   []MessageCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSession(wsURL string, maxReconnectAttempts int) *Session {
	return &Session{
		wsURL:                wsURL,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
	}
}

func (s *Session) Connect(ctx context.Context) error {
	if st := s.State(); st == StateConnected || st == StateConnecting {
		return nil
	}
	s.setState(StateConnecting)
	if err := s.dial(ctx); err != nil {
		s.setState(StateFailed)
		return err
	}
	s.setState(StateConnected)
	return nil
}

func (s *Session) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, s.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.wsURL, err)
	}
	s.connM.Lock()
	s.conn = conn
	s.connM.Unlock()

	s.wg.Add(2)
	go s.listen(conn)
	go s.pingLoop(conn)
	return nil
}

// Send writes one envelope. Writes are serialized.
func (s *Session) Send(ctx context.Context, typ string, payload any) error {
	env := struct {
		Type    string `json:"type"`
		Payload any    `json:"payload,omitempty"`
	}{Type: typ, Payload: payload}

	s.connM.Lock()
	defer s.connM.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	wctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	return wsjson.Write(wctx, s.conn, env)
}

func (s *Session) listen(conn *websocket.Conn) {
	defer s.wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if s.isStopping() {
				return
			}
			s.dropConn(conn, websocket.StatusGoingAway, "reconnect")
			s.scheduleReconnect()
			return
		}
		var env arenadto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		s.cbM.RLock()
		callbacks := append([]MessageCallback(nil), s.msgCbs...)
		s.cbM.RUnlock()
		for _, cb := range callbacks {
			cb(env)
		}
	}
}

func (s *Session) pingLoop(conn *websocket.Conn) {
	defer s.wg.Done()
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			s.connM.Lock()
			current := s.conn == conn
			s.connM.Unlock()
			if !current {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				_ = conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (s *Session) scheduleReconnect() {
	if s.maxReconnectAttempts <= 0 {
		s.setState(StateDisconnected)
		return
	}
	s.setState(StateReconnecting)
	go func() {
		for attempt := 1; attempt <= s.maxReconnectAttempts; attempt++ {
			select {
			case <-s.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			if err := s.dial(context.Background()); err != nil {
				continue
			}
			s.setState(StateConnected)
			return
		}
		s.setState(StateFailed)
	}()
}

func (s *Session) OnMessage(cb MessageCallback) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.msgCbs = append(s.msgCbs, cb)
}

func (s *Session) OnStateChange(cb StateCallback) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.stateCbs = append(s.stateCbs, cb)
}

func (s *Session) State() State {
	s.stateM.RLock()
	defer s.stateM.RUnlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.stateM.Lock()
	s.state = state
	s.stateM.Unlock()

	s.cbM.RLock()
	callbacks := append([]StateCallback(nil), s.stateCbs...)
	s.cbM.RUnlock()
	for _, cb := range callbacks {
		cb(state)
	}
}

func (s *Session) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.connM.Lock()
	conn := s.conn
	s.conn = nil
	s.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		s.setState(StateDisconnected)
		return nil
	}
}

func (s *Session) dropConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	s.connM.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.connM.Unlock()
	s.setState(StateDisconnected)
	_ = conn.Close(code, reason)
}

func (s *Session) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}
