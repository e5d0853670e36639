package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rcliao/somi-flow/internal/model"
	"github.com/rcliao/somi-flow/internal/store"
)

// Writer is the slice of the store the recorders need.
type Writer interface {
	CreateChain(ctx context.Context, p store.CreateChainParams) (*model.Chain, error)
	AppendCheckIn(ctx context.Context, chainID string, p store.CheckInParams) (*model.CheckIn, error)
	AppendBlock(ctx context.Context, chainID string, p store.BlockEntryParams) (*model.CompletedBlock, error)
	CommitChain(ctx context.Context, p store.CommitChainParams) (*model.Chain, error)
	GetChain(ctx context.Context, id string) (*model.Chain, error)
}

// Recorder receives the persistent facts of a session.
type Recorder interface {
	Start(ctx context.Context, sessionID, userID string) error
	CheckIn(ctx context.Context, sessionID string, p store.CheckInParams) error
	Block(ctx context.Context, sessionID string, p store.BlockEntryParams) error
	// Complete finalizes the session and returns the stored chain.
	Complete(ctx context.Context, sessionID string) (*model.Chain, error)
	Abandon(ctx context.Context, sessionID string) error
}

// Option configures a recorder.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the recorder for a flow type: buffered for daily flows,
// streaming for quick routines.
func New(ft model.FlowType, w Writer, cache *Cache, opts ...Option) (Recorder, error) {
	switch ft {
	case model.FlowDaily:
		return NewBufferedRecorder(w, cache, opts...), nil
	case model.FlowQuick:
		return NewStreamingRecorder(w, opts...), nil
	default:
		return nil, fmt.Errorf("invalid flow type %q (valid: daily_flow, quick_routine)", ft)
	}
}

// BufferedRecorder keeps a daily flow in the cache and commits it as one
// chain on completion.
type BufferedRecorder struct {
	w      Writer
	cache  *Cache
	logger *slog.Logger
}

// NewBufferedRecorder returns a recorder backed by cache. A nil cache gets a
// private one.
func NewBufferedRecorder(w Writer, cache *Cache, opts ...Option) *BufferedRecorder {
	if cache == nil {
		cache = NewCache()
	}
	o := buildOptions(opts)
	return &BufferedRecorder{w: w, cache: cache, logger: o.logger}
}

func (r *BufferedRecorder) Start(_ context.Context, sessionID, userID string) error {
	return r.cache.Begin(sessionID, userID, model.FlowDaily)
}

func (r *BufferedRecorder) CheckIn(_ context.Context, sessionID string, p store.CheckInParams) error {
	return r.cache.AppendCheckIn(sessionID, p)
}

func (r *BufferedRecorder) Block(_ context.Context, sessionID string, p store.BlockEntryParams) error {
	return r.cache.AppendBlock(sessionID, p)
}

// Complete commits the buffer. On failure the buffer stays cached so the
// same commit can be retried.
func (r *BufferedRecorder) Complete(ctx context.Context, sessionID string) (*model.Chain, error) {
	buf, err := r.cache.Seal(sessionID)
	if err != nil {
		return nil, err
	}
	c, err := r.w.CommitChain(ctx, buf.Params())
	if err != nil {
		r.cache.Unseal(sessionID)
		r.logger.Error("chain commit failed", slog.String("session", sessionID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("commit chain: %w", err)
	}
	r.cache.Release(sessionID)
	r.logger.Debug("chain committed", slog.String("session", sessionID), slog.String("chain", c.ID),
		slog.Int("check_ins", len(buf.CheckIns)), slog.Int("blocks", len(buf.Blocks)))
	return c, nil
}

// Abandon discards everything buffered for the session.
func (r *BufferedRecorder) Abandon(_ context.Context, sessionID string) error {
	return r.cache.Clear(sessionID)
}

// StreamingRecorder writes each event of a quick routine as it happens.
// Append failures are logged and the event is lost; they never reach the
// caller.
type StreamingRecorder struct {
	w      Writer
	logger *slog.Logger

	mu     sync.Mutex
	chains map[string]string // session id -> chain id
}

// NewStreamingRecorder returns a streaming recorder.
func NewStreamingRecorder(w Writer, opts ...Option) *StreamingRecorder {
	o := buildOptions(opts)
	return &StreamingRecorder{w: w, logger: o.logger, chains: make(map[string]string)}
}

// Start creates the chain every later event is appended to.
func (r *StreamingRecorder) Start(ctx context.Context, sessionID, userID string) error {
	c, err := r.w.CreateChain(ctx, store.CreateChainParams{UserID: userID, FlowType: model.FlowQuick})
	if err != nil {
		return fmt.Errorf("create chain: %w", err)
	}
	r.mu.Lock()
	r.chains[sessionID] = c.ID
	r.mu.Unlock()
	return nil
}

func (r *StreamingRecorder) chainFor(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.chains[sessionID]
	return id, ok
}

func (r *StreamingRecorder) CheckIn(ctx context.Context, sessionID string, p store.CheckInParams) error {
	chainID, ok := r.chainFor(sessionID)
	if !ok {
		r.logger.Error("check-in dropped", slog.String("session", sessionID), slog.String("error", ErrUnknownSession.Error()))
		return nil
	}
	if _, err := r.w.AppendCheckIn(ctx, chainID, p); err != nil {
		r.logger.Error("check-in dropped", slog.String("session", sessionID), slog.String("chain", chainID),
			slog.String("error", err.Error()))
	}
	return nil
}

func (r *StreamingRecorder) Block(ctx context.Context, sessionID string, p store.BlockEntryParams) error {
	chainID, ok := r.chainFor(sessionID)
	if !ok {
		r.logger.Error("block dropped", slog.String("session", sessionID), slog.String("error", ErrUnknownSession.Error()))
		return nil
	}
	if _, err := r.w.AppendBlock(ctx, chainID, p); err != nil {
		r.logger.Error("block dropped", slog.String("session", sessionID), slog.String("chain", chainID),
			slog.String("block", p.BlockID), slog.String("error", err.Error()))
	}
	return nil
}

// Complete forgets the session and returns the chain as stored.
func (r *StreamingRecorder) Complete(ctx context.Context, sessionID string) (*model.Chain, error) {
	chainID, ok := r.chainFor(sessionID)
	if !ok {
		return nil, ErrUnknownSession
	}
	r.forget(sessionID)
	return r.w.GetChain(ctx, chainID)
}

// Abandon forgets the session. Rows already written stay.
func (r *StreamingRecorder) Abandon(_ context.Context, sessionID string) error {
	r.forget(sessionID)
	return nil
}

func (r *StreamingRecorder) forget(sessionID string) {
	r.mu.Lock()
	delete(r.chains, sessionID)
	r.mu.Unlock()
}
