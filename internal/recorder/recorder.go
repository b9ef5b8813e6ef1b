// Package recorder persists game effects off the UI loop.
//
// Effects are executed in submission order by a single worker goroutine.
// Persistence failures are reported, never fatal: the in-memory game stays
// authoritative and play continues.
package recorder

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/escaperoom/internal/game"
	"github.com/verte-zerg/escaperoom/internal/leaderboard"
	"github.com/verte-zerg/escaperoom/internal/model"
)

// Store is the persistence the recorder writes to.
type Store interface {
	EnsureUser(ctx context.Context, username string) (model.User, error)
	CreateSession(ctx context.Context, in model.NewSession) (model.GameSession, error)
	CreateAttempt(ctx context.Context, in model.NewAttempt) (model.StageAttempt, error)
	UpdateSession(ctx context.Context, id string, upd model.SessionUpdate) (model.GameSession, error)
}

// Kind identifies what a Result reports.
type Kind int

// Result kinds.
const (
	SessionOpened Kind = iota
	AttemptSaved
	Ranked
	TimeoutSaved
)

// Result reports the outcome of one effect.
type Result struct {
	Kind       Kind
	Generation int
	SessionID  string
	Entry      model.RankedEntry
	Top        []model.RankedEntry
	Err        error
}

// ErrOffline is reported when a session could not be opened and later writes
// for it are skipped.
var ErrOffline = errors.New("session is not being recorded")

// Option configures a Recorder.
type Option func(*Recorder)

// WithNotify sets the callback receiving results. It runs on the worker.
func WithNotify(fn func(Result)) Option {
	return func(r *Recorder) { r.notify = fn }
}

// WithTimeout bounds each persistence call.
func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) { r.timeout = d }
}

// WithTopSize sets how many leaderboard rows accompany a rank result.
func WithTopSize(n int) Option {
	return func(r *Recorder) { r.topSize = n }
}

// Recorder executes game effects against the store and the leaderboard.
type Recorder struct {
	store   Store
	board   leaderboard.Board
	log     *zap.Logger
	notify  func(Result)
	timeout time.Duration
	topSize int

	mu      sync.Mutex
	pending []game.Effect
	closed  bool
	wake    chan struct{}
	done    chan struct{}

	// Worker state.
	generation int
	userID     string
	sessionID  string
}

// New starts a recorder. board may be nil when no leaderboard is kept.
func New(store Store, board leaderboard.Board, log *zap.Logger, opts ...Option) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Recorder{
		store:   store,
		board:   board,
		log:     log,
		timeout: 5 * time.Second,
		topSize: 10,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Submit queues effects without blocking. Effects the recorder does not
// persist are dropped.
func (r *Recorder) Submit(effects ...game.Effect) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	for _, e := range effects {
		switch e.(type) {
		case game.SessionStarted, game.AttemptSubmitted, game.SessionEscaped, game.SessionTimedOut:
			r.pending = append(r.pending, e)
		}
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
	r.mu.Unlock()
}

// Close stops accepting effects and waits until queued ones are written or
// ctx ends.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.wake)
	}
	r.mu.Unlock()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for range r.wake {
		r.drain()
	}
	r.drain()
}

func (r *Recorder) drain() {
	for {
		r.mu.Lock()
		if len(r.pending) == 0 {
			r.mu.Unlock()
			return
		}
		e := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		r.apply(e)
	}
}

func (r *Recorder) apply(e game.Effect) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var res Result
	switch ev := e.(type) {
	case game.SessionStarted:
		res = r.openSession(ctx, ev)
	case game.AttemptSubmitted:
		res = r.saveAttempt(ctx, ev)
	case game.SessionEscaped:
		res = r.complete(ctx, ev)
	case game.SessionTimedOut:
		res = r.timeOut(ctx, ev)
	default:
		return
	}
	if res.Err != nil {
		r.log.Warn("game persistence failed",
			zap.Int("kind", int(res.Kind)),
			zap.Int("generation", res.Generation),
			zap.String("session_id", res.SessionID),
			zap.Error(res.Err))
	}
	if r.notify != nil {
		r.notify(res)
	}
}

func (r *Recorder) openSession(ctx context.Context, ev game.SessionStarted) Result {
	r.generation = ev.Generation
	r.userID = ""
	r.sessionID = ""
	res := Result{Kind: SessionOpened, Generation: ev.Generation}

	user, err := r.store.EnsureUser(ctx, ev.Username)
	if err != nil {
		res.Err = err
		return res
	}
	r.userID = user.ID
	session, err := r.store.CreateSession(ctx, model.NewSession{
		UserID:        user.ID,
		TimerDuration: ev.TimerDuration,
		StartTime:     ev.StartedAt,
	})
	if err != nil {
		res.Err = err
		return res
	}
	r.sessionID = session.ID
	res.SessionID = session.ID
	r.log.Info("session opened",
		zap.String("session_id", session.ID),
		zap.String("username", user.Username),
		zap.Int("timer_duration", ev.TimerDuration))
	return res
}

// current reports whether gen belongs to the open, recorded session.
func (r *Recorder) current(gen int) bool {
	return gen == r.generation && r.sessionID != ""
}

func (r *Recorder) saveAttempt(ctx context.Context, ev game.AttemptSubmitted) Result {
	res := Result{Kind: AttemptSaved, Generation: ev.Generation, SessionID: r.sessionID}
	if !r.current(ev.Generation) {
		res.Err = ErrOffline
		return res
	}
	_, err := r.store.CreateAttempt(ctx, model.NewAttempt{
		SessionID:   r.sessionID,
		StageID:     ev.StageID,
		UserCode:    ev.UserCode,
		Successful:  ev.Successful,
		HintsUsed:   ev.HintsUsed,
		AttemptedAt: ev.AttemptedAt,
	})
	res.Err = err
	return res
}

func (r *Recorder) complete(ctx context.Context, ev game.SessionEscaped) Result {
	res := Result{Kind: Ranked, Generation: ev.Generation, SessionID: r.sessionID}
	if !r.current(ev.Generation) {
		res.Err = ErrOffline
		return res
	}
	completed := true
	total := ev.TotalTime
	end := ev.EndedAt
	if _, err := r.store.UpdateSession(ctx, r.sessionID, model.SessionUpdate{
		EndTime:   &end,
		Completed: &completed,
		TotalTime: &total,
	}); err != nil {
		res.Err = err
		return res
	}
	if r.board == nil {
		return res
	}
	if _, err := r.board.RecordCompletion(ctx, r.userID, ev.TotalTime, ev.EndedAt); err != nil {
		res.Err = err
		return res
	}
	entry, err := r.board.RankOf(ctx, r.userID)
	if err != nil {
		res.Err = err
		return res
	}
	res.Entry = entry
	top, err := r.board.Top(ctx, r.topSize)
	if err != nil {
		res.Err = err
		return res
	}
	res.Top = top
	r.log.Info("session escaped",
		zap.String("session_id", r.sessionID),
		zap.Int("total_time", ev.TotalTime),
		zap.Int("rank", entry.Rank))
	return res
}

func (r *Recorder) timeOut(ctx context.Context, ev game.SessionTimedOut) Result {
	res := Result{Kind: TimeoutSaved, Generation: ev.Generation, SessionID: r.sessionID}
	if !r.current(ev.Generation) {
		res.Err = ErrOffline
		return res
	}
	completed := false
	end := ev.EndedAt
	_, err := r.store.UpdateSession(ctx, r.sessionID, model.SessionUpdate{
		EndTime:   &end,
		Completed: &completed,
	})
	res.Err = err
	return res
}
