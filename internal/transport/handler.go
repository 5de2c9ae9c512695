// Package transport adapts websocket connections to the session engine.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/session"
	"github.com/park285/cheese-arena/pkg/arenadto"
)

// Submitter accepts decoded events. *session.Engine satisfies it.
type Submitter interface {
	Submit(ctx context.Context, ev session.Event) error
}

type Options struct {
	OriginPatterns []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadLimit      int64
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 16 << 10
	}
	return o
}

// Handler upgrades the request and pumps frames between the socket and the engine.
func Handler(engine Submitter, hub *Hub, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns:  opts.OriginPatterns,
			CompressionMode: websocket.CompressionNoContextTakeover,
		})
		if err != nil {
			obslog.L().Warn("ws_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		conn.SetReadLimit(opts.ReadLimit)

		connID := uuid.NewString()
		log := obslog.L().With(zap.String("conn_id", connID))
		c := hub.register(connID)
		log.Info("ws_connected", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		done := make(chan struct{}, 2)
		go func() {
			writePump(ctx, conn, c, opts.WriteTimeout)
			cancel()
			done <- struct{}{}
		}()
		go func() {
			pingLoop(ctx, conn, opts.PingInterval)
			done <- struct{}{}
		}()

		status := readPump(ctx, conn, connID, engine, hub)
		cancel()
		hub.unregister(connID)
		<-done
		<-done

		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := engine.Submit(dctx, session.Disconnect{ConnID: connID}); err != nil {
			log.Warn("ws_disconnect_submit_error", zap.Error(err))
		}
		dcancel()
		_ = conn.Close(status, "bye")
		log.Info("ws_disconnected")
	}
}

func readPump(ctx context.Context, conn *websocket.Conn, connID string, engine Submitter, hub *Hub) websocket.StatusCode {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if !errors.Is(err, context.Canceled) {
					obslog.L().Debug("ws_read_error", zap.String("conn_id", connID), zap.Error(err))
				}
			}
			return websocket.StatusNormalClosure
		}
		if typ != websocket.MessageText {
			rejectFrame(hub, connID, "binary frames are not supported")
			continue
		}
		var env arenadto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			rejectFrame(hub, connID, "invalid json")
			continue
		}
		ev, err := Decode(connID, env)
		if err != nil {
			rejectFrame(hub, connID, err.Error())
			continue
		}
		if err := engine.Submit(ctx, ev); err != nil {
			if errors.Is(err, session.ErrEngineStopped) {
				return websocket.StatusGoingAway
			}
			return websocket.StatusNormalClosure
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, c *client, timeout time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-c.send:
			if !ok {
				_ = conn.Close(websocket.StatusPolicyViolation, "slow consumer")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func pingLoop(ctx context.Context, conn *websocket.Conn, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
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

func rejectFrame(hub *Hub, connID, detail string) {
	hub.Notify(connID, arenadto.Notification{
		Type:    arenadto.TypeErrorMessage,
		Payload: arenadto.ErrorMessage{Code: "bad_request", Message: detail},
	})
}
