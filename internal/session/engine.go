package session

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/internal/msgcat"
	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/rules"
	"github.com/park285/cheese-arena/pkg/arenadto"
)

const (
	defaultInbox      = 1024
	maxChatRunes      = 500
	activeSnapshotTTL = 24 * time.Hour
)

// Notifier delivers a notification to one connection. Implementations must
// not block the caller.
type Notifier interface {
	Notify(connID string, n arenadto.Notification)
}

// RoomSink mirrors room snapshots to external storage.
type RoomSink interface {
	SaveRoom(ctx context.Context, snap *domain.RoomSnapshot, ttl time.Duration) error
}

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	DisconnectGrace time.Duration
	ClockTick       time.Duration
	FinishedRoomTTL time.Duration
	// AbandonedRoomTTL bounds how long a waiting room with no connected
	// host is kept for the host to come back.
	AbandonedRoomTTL time.Duration
	DefaultTime      domain.TimeConfig
	EloK             int
	DefaultRating    int
	PersistTimeout   time.Duration
	InboxSize        int
}

func (c Config) withDefaults() Config {
	if c.DisconnectGrace <= 0 {
		c.DisconnectGrace = 60 * time.Second
	}
	if c.ClockTick <= 0 {
		c.ClockTick = time.Second
	}
	if c.FinishedRoomTTL <= 0 {
		c.FinishedRoomTTL = 5 * time.Minute
	}
	if c.AbandonedRoomTTL <= 0 {
		c.AbandonedRoomTTL = 5 * time.Minute
	}
	if !c.DefaultTime.Valid() {
		c.DefaultTime = domain.TimeConfig{Minutes: 10}
	}
	if c.EloK <= 0 {
		c.EloK = 32
	}
	if c.DefaultRating <= 0 {
		c.DefaultRating = 1200
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = 5 * time.Second
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInbox
	}
	return c
}

// Deps are the collaborators of the engine. Notifier is required.
type Deps struct {
	Notifier  Notifier
	Store     ResultStore
	Publisher ResultPublisher
	Rooms     RoomSink
	Messages  *msgcat.Catalog
	Scheduler Scheduler
	NewGame   rules.Factory
}

// Stats is a point-in-time summary of the engine.
type Stats struct {
	Rooms           int   `json:"rooms"`
	Playing         int   `json:"playing"`
	Queued          int   `json:"queued"`
	GraceTimers     int   `json:"grace_timers"`
	Finalized       int64 `json:"finalized"`
	PersistFailures int64 `json:"persist_failures"`
	ResultBacklog   int   `json:"result_backlog"`
	SnapshotDrops   int64 `json:"snapshot_drops"`
}

// Engine serializes every session event on one goroutine. Rooms, the queue
// and all timers are only touched from Run.
type Engine struct {
	cfg      Config
	notifier Notifier
	sink     RoomSink
	msgs     *msgcat.Catalog
	sched    Scheduler

	inbox chan Event
	done  chan struct{}
	seq   uint64

	queue     *MatchQueue
	registry  *RoomRegistry
	clocks    *ClockScheduler
	guard     *DisconnectGuard
	finalizer *ResultFinalizer
	results   *fifo
	mirror    *lossyQueue
}

func NewEngine(cfg Config, deps Deps) *Engine {
	cfg = cfg.withDefaults()
	sched := deps.Scheduler
	if sched == nil {
		sched = WallClock()
	}
	e := &Engine{
		cfg:      cfg,
		notifier: deps.Notifier,
		sink:     deps.Rooms,
		msgs:     deps.Messages,
		sched:    sched,
		inbox:    make(chan Event, cfg.InboxSize),
		done:     make(chan struct{}),
		queue:    NewMatchQueue(),
		results:  newFIFO(),
		mirror:   newLossyQueue(cfg.InboxSize),
	}
	e.registry = NewRoomRegistry(deps.NewGame, sched.Now)
	e.clocks = NewClockScheduler(sched, cfg.ClockTick, e.nextToken, e.post)
	e.guard = NewDisconnectGuard(sched, cfg.DisconnectGrace, e.nextToken, e.post)
	e.finalizer = &ResultFinalizer{
		clocks:        e.clocks,
		guard:         e.guard,
		store:         deps.Store,
		publisher:     deps.Publisher,
		results:       e.results,
		post:          e.post,
		now:           sched.Now,
		k:             cfg.EloK,
		defaultRating: cfg.DefaultRating,
		timeout:       cfg.PersistTimeout,
	}
	return e
}

// Run processes events until ctx is cancelled, then stops every timer and
// drains pending persistence work.
func (e *Engine) Run(ctx context.Context) error {
	e.results.start()
	e.mirror.start()
	defer func() {
		close(e.done)
		e.shutdown()
		e.results.close()
		e.mirror.close()
	}()
	obslog.L().Info("session_engine_start",
		zap.Duration("grace", e.cfg.DisconnectGrace),
		zap.Duration("tick", e.cfg.ClockTick))
	for {
		select {
		case <-ctx.Done():
			obslog.L().Info("session_engine_stop")
			return nil
		case ev := <-e.inbox:
			e.handle(ev)
		}
	}
}

// Submit enqueues ev. It blocks only while the inbox is full.
func (e *Engine) Submit(ctx context.Context, ev Event) error {
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}
	select {
	case e.inbox <- ev:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sync returns once every event submitted before it has been handled.
func (e *Engine) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if err := e.Submit(ctx, syncBarrier{done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush waits for queued persistence work, then for the loop to handle
// whatever that work posted back.
func (e *Engine) Flush(ctx context.Context) error {
	if err := e.Sync(ctx); err != nil {
		return err
	}
	persisted := make(chan struct{})
	if !e.results.submit(func(context.Context) { close(persisted) }) {
		return ErrEngineStopped
	}
	mirrored := make(chan struct{})
	if err := e.mirror.enqueue(ctx, func(context.Context) { close(mirrored) }); err != nil {
		return err
	}
	for _, ch := range []chan struct{}{persisted, mirrored} {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return e.Sync(ctx)
}

// Room returns a snapshot of a live or retained room.
func (e *Engine) Room(ctx context.Context, roomID string) (*domain.RoomSnapshot, error) {
	reply := make(chan *domain.RoomSnapshot, 1)
	if err := e.Submit(ctx, inspectRoom{roomID: roomID, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case snap := <-reply:
		if snap == nil {
			return nil, ErrRoomNotFound
		}
		return snap, nil
	case <-e.done:
		return nil, ErrEngineStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := e.Submit(ctx, statsRequest{reply: reply}); err != nil {
		return Stats{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-e.done:
		return Stats{}, ErrEngineStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// post is used by timer callbacks and the worker; it never blocks past shutdown.
func (e *Engine) post(ev Event) {
	select {
	case e.inbox <- ev:
	case <-e.done:
	}
}

func (e *Engine) nextToken() uint64 {
	e.seq++
	return e.seq
}

func (e *Engine) handle(ev Event) {
	switch ev := ev.(type) {
	case CreateRoom:
		e.onCreateRoom(ev)
	case JoinRoom:
		e.onJoinRoom(ev)
	case MakeMove:
		e.onMakeMove(ev)
	case Resign:
		e.onResign(ev)
	case OfferDraw:
		e.onOfferDraw(ev)
	case RespondDraw:
		e.onRespondDraw(ev)
	case FindMatch:
		e.onFindMatch(ev)
	case CancelFindMatch:
		e.onCancelFindMatch(ev)
	case SendChat:
		e.onSendChat(ev)
	case Disconnect:
		e.onDisconnect(ev)
	case clockTick:
		e.onClockTick(ev)
	case graceExpired:
		e.onGraceExpired(ev)
	case roomExpired:
		e.onRoomExpired(ev)
	case resultPersisted:
		e.onResultPersisted(ev)
	case syncBarrier:
		close(ev.done)
	case inspectRoom:
		if r, err := e.registry.Get(ev.roomID); err == nil {
			ev.reply <- r.Snapshot(e.sched.Now())
		} else {
			ev.reply <- nil
		}
	case statsRequest:
		ev.reply <- Stats{
			Rooms:           e.registry.Len(),
			Playing:         e.registry.Playing(),
			Queued:          e.queue.Len(),
			GraceTimers:     e.guard.Pending(),
			Finalized:       e.finalizer.finalized.Load(),
			PersistFailures: e.finalizer.failures.Load(),
			ResultBacklog:   e.results.backlog(),
			SnapshotDrops:   e.mirror.dropped.Load(),
		}
	}
}

func (e *Engine) onCreateRoom(ev CreateRoom) {
	tc := e.cfg.DefaultTime
	if ev.TimeConfig != nil {
		if !ev.TimeConfig.Valid() {
			e.sendError(ev.ConnID, ErrInvalidArgs, map[string]any{"Detail": "timeConfig"})
			return
		}
		tc = *ev.TimeConfig
	}
	identity := identityOr(ev.Identity, "Player 1")
	r, err := e.registry.Create(ev.ConnID, identity, tc)
	if err != nil {
		obslog.L().Error("room_create_error", zap.String("conn_id", ev.ConnID), zap.Error(err))
		e.sendError(ev.ConnID, err, map[string]any{"Detail": err.Error()})
		return
	}
	obslog.Room(r.ID).Info("room_created",
		zap.String("host", identity),
		zap.Int("minutes", tc.Minutes),
		zap.Int("increment", tc.Increment))
	e.send(ev.ConnID, arenadto.TypeRoomCreated, arenadto.RoomCreated{RoomID: r.ID})
	e.send(ev.ConnID, arenadto.TypePlayerColor, arenadto.PlayerColor{Color: string(domain.White)})
	e.snapshot(r)
}

func (e *Engine) onJoinRoom(ev JoinRoom) {
	identity := identityOr(ev.Identity, "Player 2")
	res, r := e.registry.Join(ev.ConnID, ev.RoomID, identity)
	switch res.Outcome {
	case Rejected:
		obslog.L().Info("room_join_rejected",
			zap.String("room_id", ev.RoomID),
			zap.String("identity", identity),
			zap.Error(res.Err))
		e.sendError(ev.ConnID, res.Err, map[string]any{
			"RoomID":   strings.ToUpper(strings.TrimSpace(ev.RoomID)),
			"Identity": identity,
			"Detail":   "roomId",
		})
	case Joined:
		e.startGame(r)
	case Reconnected:
		e.guard.Cancel(res.PrevConnID, r.ID)
		obslog.Room(r.ID).Info("seat_reconnected",
			zap.String("identity", identity),
			zap.String("color", string(res.Color)))
		if r.Status == domain.StatusWaiting {
			e.cancelPurge(r)
			e.send(ev.ConnID, arenadto.TypeRoomCreated, arenadto.RoomCreated{RoomID: r.ID})
		} else {
			e.send(ev.ConnID, arenadto.TypeGameStart, r.gameStart())
		}
		e.send(ev.ConnID, arenadto.TypePlayerColor, arenadto.PlayerColor{Color: string(res.Color)})
		e.sendSeat(r, res.Color.Opponent(), arenadto.TypeOpponentReconnected, arenadto.OpponentReconnected{Identity: identity})
		e.snapshot(r)
	}
}

// startGame announces a freshly paired room and starts white's clock.
func (e *Engine) startGame(r *Room) {
	e.cancelPurge(r)
	obslog.Room(r.ID).Info("game_start",
		zap.String("white", r.Seat(domain.White).Identity),
		zap.String("black", r.Seat(domain.Black).Identity))
	e.broadcast(r, arenadto.TypeGameStart, r.gameStart())
	for _, c := range []domain.Color{domain.White, domain.Black} {
		e.sendSeat(r, c, arenadto.TypePlayerColor, arenadto.PlayerColor{Color: string(c)})
	}
	e.clocks.Start(r)
	// A host that left before the opponent arrived gets a grace window now.
	for _, c := range []domain.Color{domain.White, domain.Black} {
		if s := r.Seat(c); !s.Connected {
			e.guard.Arm(s.ConnID, r, c)
			e.announceAbsence(r, c)
		}
	}
	e.snapshot(r)
}

func (e *Engine) onMakeMove(ev MakeMove) {
	r, color, ok := e.playingSeat(ev.ConnID, ev.RoomID)
	if !ok {
		return
	}
	log := obslog.Room(r.ID)
	if r.Game.Turn() != color {
		log.Debug("move_out_of_turn", zap.String("color", string(color)))
		return
	}
	if e.clocks.Flagged(r, color) {
		e.finish(r, ptr(color.Opponent()), domain.ReasonTimeout)
		return
	}
	san, err := r.Game.Apply(ev.Move)
	if err != nil {
		log.Debug("move_rejected", zap.String("move", ev.Move), zap.Error(err))
		return
	}
	r.DrawOffer = ""
	e.clocks.Moved(r, color)
	e.broadcast(r, arenadto.TypeMoveMade, arenadto.MoveMade{FEN: r.Game.FEN(), PGN: r.Game.PGN(), SAN: san})

	if out := r.Game.Outcome(); out.Over {
		e.finish(r, out.Winner, out.Reason)
		return
	}
	e.clocks.Start(r)
	e.broadcast(r, arenadto.TypeTimeUpdate, r.Clock.Timers())
	e.snapshot(r)
}

func (e *Engine) onResign(ev Resign) {
	r, color, ok := e.playingSeat(ev.ConnID, ev.RoomID)
	if !ok {
		return
	}
	e.finish(r, ptr(color.Opponent()), domain.ReasonResignation)
}

func (e *Engine) onOfferDraw(ev OfferDraw) {
	r, color, ok := e.playingSeat(ev.ConnID, ev.RoomID)
	if !ok || r.DrawOffer == color {
		return
	}
	r.DrawOffer = color
	e.sendSeat(r, color.Opponent(), arenadto.TypeDrawOffered, arenadto.DrawOffered{From: string(color)})
}

func (e *Engine) onRespondDraw(ev RespondDraw) {
	r, color, ok := e.playingSeat(ev.ConnID, ev.RoomID)
	if !ok || r.DrawOffer != color.Opponent() {
		return
	}
	if ev.Accepted {
		e.finish(r, nil, domain.ReasonDrawAgreement)
		return
	}
	r.DrawOffer = ""
	e.sendSeat(r, color.Opponent(), arenadto.TypeDrawDeclined, nil)
}

func (e *Engine) onFindMatch(ev FindMatch) {
	identity := strings.TrimSpace(ev.Identity)
	if identity == "" {
		e.sendError(ev.ConnID, ErrInvalidArgs, map[string]any{"Detail": "identity"})
		return
	}
	if e.queue.Enqueue(QueueEntry{ConnID: ev.ConnID, Identity: identity, QueuedAt: e.sched.Now()}) {
		e.send(ev.ConnID, arenadto.TypeQueueJoined, arenadto.QueueJoined{Position: e.queue.Position(identity)})
	}
	for {
		a, b, ok := e.queue.DequeuePair()
		if !ok {
			return
		}
		e.pair(a, b)
	}
}

// pair seats the older entry as white.
func (e *Engine) pair(a, b QueueEntry) {
	r, err := e.registry.Create(a.ConnID, a.Identity, e.cfg.DefaultTime)
	if err != nil {
		obslog.L().Error("matchmaking_create_error", zap.Error(err))
		return
	}
	if res, _ := e.registry.Join(b.ConnID, r.ID, b.Identity); res.Outcome != Joined {
		obslog.Room(r.ID).Error("matchmaking_join_error", zap.Error(res.Err))
		e.registry.Drop(r.ID)
		return
	}
	obslog.Room(r.ID).Info("matchmaking_paired",
		zap.String("white", a.Identity),
		zap.String("black", b.Identity),
		zap.Duration("white_waited", e.sched.Now().Sub(a.QueuedAt)))
	e.startGame(r)
}

// onCancelFindMatch only removes entries queued by the sending connection.
func (e *Engine) onCancelFindMatch(ev CancelFindMatch) {
	if identity := strings.TrimSpace(ev.Identity); identity != "" {
		e.queue.Remove(ev.ConnID, identity)
		return
	}
	e.queue.RemoveConn(ev.ConnID)
}

func (e *Engine) onSendChat(ev SendChat) {
	r, err := e.registry.Get(ev.RoomID)
	if err != nil {
		return
	}
	color, ok := r.ColorOf(ev.ConnID)
	if !ok {
		return
	}
	msg := strings.TrimSpace(ev.Message)
	if msg == "" {
		return
	}
	if utf8.RuneCountInString(msg) > maxChatRunes {
		msg = string([]rune(msg)[:maxChatRunes])
	}
	e.broadcast(r, arenadto.TypeReceiveChat, arenadto.ReceiveChat{Sender: r.Seat(color).Identity, Message: msg})
}

func (e *Engine) onDisconnect(ev Disconnect) {
	e.queue.RemoveConn(ev.ConnID)
	for _, a := range e.registry.Detach(ev.ConnID) {
		r := a.room
		obslog.Room(r.ID).Info("seat_disconnected",
			zap.String("identity", r.Seat(a.color).Identity),
			zap.String("status", string(r.Status)))
		if r.Status != domain.StatusPlaying {
			if r.Status == domain.StatusWaiting && r.abandoned() {
				e.schedulePurge(r, e.cfg.AbandonedRoomTTL)
			}
			e.snapshot(r)
			continue
		}
		e.guard.Arm(ev.ConnID, r, a.color)
		e.announceAbsence(r, a.color)
		e.snapshot(r)
	}
}

func (e *Engine) announceAbsence(r *Room, absent domain.Color) {
	identity := r.Seat(absent).Identity
	secs := int(e.guard.Grace() / time.Second)
	msg := e.msgs.Text("disconnect.grace", map[string]any{"Identity": identity, "Seconds": secs},
		"Opponent disconnected. Waiting for reconnection...")
	e.sendSeat(r, absent.Opponent(), arenadto.TypeOpponentDisconnected, arenadto.OpponentDisconnected{
		Identity:     identity,
		GraceSeconds: secs,
		Message:      msg,
	})
}

func (e *Engine) onClockTick(ev clockTick) {
	r, err := e.registry.Get(ev.roomID)
	if err != nil || r.Status != domain.StatusPlaying {
		return
	}
	side, flagged, ok := e.clocks.Tick(r, ev.token)
	if !ok {
		return
	}
	e.broadcast(r, arenadto.TypeTimeUpdate, r.Clock.Timers())
	if flagged {
		e.finish(r, ptr(side.Opponent()), domain.ReasonTimeout)
	}
}

func (e *Engine) onGraceExpired(ev graceExpired) {
	gt, ok := e.guard.expire(ev.connID, ev.roomID, ev.token)
	if !ok {
		return
	}
	r, err := e.registry.Get(gt.roomID)
	if err != nil || r.Status != domain.StatusPlaying {
		return
	}
	if s := r.Seat(gt.color); s.Connected {
		return
	}
	obslog.Room(r.ID).Info("grace_expired", zap.String("color", string(gt.color)))
	e.finish(r, ptr(gt.color.Opponent()), domain.ReasonDisconnect)
}

func (e *Engine) onRoomExpired(ev roomExpired) {
	r, err := e.registry.Get(ev.roomID)
	if err != nil || ev.token == 0 || r.purgeToken != ev.token || r.Status == domain.StatusPlaying {
		return
	}
	e.registry.Drop(r.ID)
	obslog.Room(r.ID).Debug("room_purged")
}

func (e *Engine) onResultPersisted(ev resultPersisted) {
	rec := ev.rec
	r, err := e.registry.Get(rec.RoomID)
	if err != nil {
		return
	}
	e.broadcast(r, arenadto.TypeRatingUpdate, arenadto.RatingUpdate{
		White: arenadto.RatingChange{Identity: rec.White, Before: rec.WhiteRatingBefore, After: rec.WhiteRatingAfter},
		Black: arenadto.RatingChange{Identity: rec.Black, Before: rec.BlackRatingBefore, After: rec.BlackRatingAfter},
	})
}

// finish finalizes the room and schedules its purge. Rooms that are not
// playing are left untouched.
func (e *Engine) finish(r *Room, winner *domain.Color, reason string) {
	rec := e.finalizer.Finalize(r, winner, reason)
	if rec == nil {
		return
	}
	over := arenadto.GameOver{Reason: reason, Message: e.gameOverText(r, rec)}
	if rec.Winner != nil {
		w := string(*rec.Winner)
		over.Winner = &w
	}
	e.broadcast(r, arenadto.TypeGameOver, over)

	e.schedulePurge(r, e.cfg.FinishedRoomTTL)
	e.snapshot(r)
}

// schedulePurge replaces any pending purge of r.
func (e *Engine) schedulePurge(r *Room, ttl time.Duration) {
	e.cancelPurge(r)
	token := e.nextToken()
	roomID := r.ID
	r.purgeToken = token
	r.purge = e.sched.AfterFunc(ttl, func() {
		e.post(roomExpired{roomID: roomID, token: token})
	})
}

func (e *Engine) cancelPurge(r *Room) {
	if r.purge != nil {
		r.purge.Stop()
		r.purge = nil
	}
	r.purgeToken = 0
}

func (e *Engine) gameOverText(r *Room, rec *domain.MatchRecord) string {
	data := map[string]any{"Reason": rec.Reason, "Winner": "", "Loser": ""}
	if rec.Winner != nil {
		data["Winner"] = r.Seat(*rec.Winner).Identity
		data["Loser"] = r.Seat(rec.Winner.Opponent()).Identity
	}
	key := "game_over.default"
	switch {
	case rec.Reason == domain.ReasonDrawAgreement:
		key = "game_over.draw_by_agreement"
	case rec.Winner == nil:
		key = "game_over.draw"
	case rec.Reason == domain.ReasonTimeout:
		key = "game_over.timeout"
	case rec.Reason == domain.ReasonDisconnect:
		key = "game_over.opponent_disconnected"
	case rec.Reason == domain.ReasonResignation:
		key = "game_over.resignation"
	case rec.Reason == domain.ReasonCheckmate:
		key = "game_over.checkmate"
	}
	return e.msgs.Text(key, data, "")
}

// playingSeat resolves the sender's seat in a playing room.
func (e *Engine) playingSeat(connID, roomID string) (*Room, domain.Color, bool) {
	r, err := e.registry.Get(roomID)
	if err != nil || r.Status != domain.StatusPlaying {
		return nil, "", false
	}
	color, ok := r.ColorOf(connID)
	if !ok {
		return nil, "", false
	}
	return r, color, true
}

func (e *Engine) send(connID, typ string, payload any) {
	if e.notifier == nil || connID == "" {
		return
	}
	e.notifier.Notify(connID, arenadto.Notification{Type: typ, Payload: payload})
}

func (e *Engine) sendSeat(r *Room, c domain.Color, typ string, payload any) {
	if s := r.Seat(c); s.Connected {
		e.send(s.ConnID, typ, payload)
	}
}

func (e *Engine) broadcast(r *Room, typ string, payload any) {
	e.sendSeat(r, domain.White, typ, payload)
	e.sendSeat(r, domain.Black, typ, payload)
}

func (e *Engine) sendError(connID string, err error, data map[string]any) {
	code := errorCode(err)
	for _, k := range []string{"RoomID", "Identity", "Detail"} {
		if _, ok := data[k]; !ok {
			data[k] = ""
		}
	}
	msg := e.msgs.Text("error."+code, data, err.Error())
	e.send(connID, arenadto.TypeErrorMessage, arenadto.ErrorMessage{Code: code, Message: msg})
}

func (e *Engine) snapshot(r *Room) {
	if e.sink == nil {
		return
	}
	ttl := activeSnapshotTTL
	if r.Status == domain.StatusFinished {
		ttl = e.cfg.FinishedRoomTTL
	}
	snap := r.Snapshot(e.sched.Now())
	e.mirror.submit(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, e.cfg.PersistTimeout)
		defer cancel()
		if err := e.sink.SaveRoom(ctx, snap, ttl); err != nil {
			obslog.Room(snap.ID).Warn("room_snapshot_error", zap.Error(err))
		}
	})
}

func (e *Engine) shutdown() {
	for _, r := range e.registry.rooms {
		e.clocks.Stop(r)
		if r.purge != nil {
			r.purge.Stop()
		}
	}
	e.guard.stopAll()
}

func identityOr(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func ptr[T any](v T) *T { return &v }
