package chain

import (
	"context"
	"log/slog"

	"github.com/rcliao/somi-flow/internal/model"
	"github.com/rcliao/somi-flow/internal/session"
	"github.com/rcliao/somi-flow/internal/store"
)

// SessionSink feeds session events into a Recorder. The chain is started on
// the first event and completed by the exit check-in. Close settles a session
// the host stopped driving before that.
//
// Recorder errors are logged and kept in Err; playback never sees them.
type SessionSink struct {
	ctx    context.Context
	rec    Recorder
	userID string
	logger *slog.Logger

	sessionID    string
	started      bool
	awaitingExit bool
	settled      bool
	chain        *model.Chain
	err          error
}

// NewSessionSink returns a sink recording for userID.
func NewSessionSink(ctx context.Context, rec Recorder, userID string, opts ...Option) *SessionSink {
	o := buildOptions(opts)
	return &SessionSink{ctx: ctx, rec: rec, userID: userID, logger: o.logger}
}

// Handle implements session.Sink.
func (s *SessionSink) Handle(ev session.Event) {
	if !s.started {
		s.started = true
		s.sessionID = ev.SessionID
		if err := s.rec.Start(s.ctx, ev.SessionID, s.userID); err != nil {
			s.fail("start", ev.SessionID, err)
		}
	}

	switch {
	case ev.Type == session.EventCheckIn && ev.Embodiment != nil:
		p := store.CheckInParams{Kind: ev.CheckInKind, Embodiment: *ev.Embodiment}
		if err := s.rec.CheckIn(s.ctx, ev.SessionID, p); err != nil {
			s.fail("check-in", ev.SessionID, err)
		}
		if ev.CheckInKind == model.CheckInExit {
			s.complete(ev.SessionID)
		}
	case ev.IsBlockCompletion():
		p := store.BlockEntryParams{
			BlockID:        ev.Segment.BlockID,
			ElapsedSeconds: ev.ElapsedSeconds(),
			OrderIndex:     ev.OrderIndex,
			Section:        ev.Segment.Section,
		}
		if err := s.rec.Block(s.ctx, ev.SessionID, p); err != nil {
			s.fail("block", ev.SessionID, err)
		}
	case ev.Type == session.EventSessionCompleted:
		s.awaitingExit = true
		s.logger.Debug("session completed, awaiting exit check-in", slog.String("session", ev.SessionID))
	case ev.Type == session.EventSessionAbandoned:
		s.settled = true
		if err := s.rec.Abandon(s.ctx, ev.SessionID); err != nil {
			s.fail("abandon", ev.SessionID, err)
		}
	}
}

// Close settles a session that never reached its exit check-in, releasing
// whatever the recorder holds for it. A completed session is committed
// without the exit snapshot; one still in progress is abandoned. Close on a
// settled session returns its chain.
func (s *SessionSink) Close() (*model.Chain, error) {
	if !s.started || s.settled {
		return s.chain, nil
	}
	if s.awaitingExit {
		s.logger.Warn("committing chain without exit check-in", slog.String("session", s.sessionID))
		if !s.complete(s.sessionID) {
			return nil, s.err
		}
		return s.chain, nil
	}
	s.settled = true
	if err := s.rec.Abandon(s.ctx, s.sessionID); err != nil {
		s.fail("abandon", s.sessionID, err)
		return nil, err
	}
	return nil, nil
}

// Retry re-attempts a completion that failed.
func (s *SessionSink) Retry(sessionID string) (*model.Chain, error) {
	c, err := s.rec.Complete(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.chain, s.err, s.settled = c, nil, true
	return c, nil
}

func (s *SessionSink) complete(sessionID string) bool {
	c, err := s.rec.Complete(s.ctx, sessionID)
	if err != nil {
		s.fail("complete", sessionID, err)
		return false
	}
	s.chain, s.settled = c, true
	return true
}

func (s *SessionSink) fail(op, sessionID string, err error) {
	s.err = err
	s.logger.Error("session recording failed",
		slog.String("op", op), slog.String("session", sessionID), slog.String("error", err.Error()))
}

// Chain returns the stored chain once the session has been completed.
func (s *SessionSink) Chain() *model.Chain { return s.chain }

// Err returns the last recorder error.
func (s *SessionSink) Err() error { return s.err }
