// Package chain records practice sessions as durable chains.
//
// Daily flows buffer every event in a Cache and commit one chain when the
// session finishes. Quick routines stream each event to a chain created up
// front.
package chain

import (
	"errors"
	"sync"

	"github.com/rcliao/somi-flow/internal/model"
	"github.com/rcliao/somi-flow/internal/store"
)

var (
	// ErrSealed is returned when a buffer is touched while its commit is in flight.
	ErrSealed = errors.New("session buffer is sealed for commit")
	// ErrUnknownSession is returned for a session that was never started.
	ErrUnknownSession = errors.New("unknown session")
)

// Buffer is the uncommitted content of one session.
type Buffer struct {
	UserID   string
	FlowType model.FlowType
	CheckIns []store.CheckInParams
	Blocks   []store.BlockEntryParams
}

// Params converts the buffer to a commit request.
func (b Buffer) Params() store.CommitChainParams {
	return store.CommitChainParams{
		UserID:   b.UserID,
		FlowType: b.FlowType,
		CheckIns: b.CheckIns,
		Blocks:   b.Blocks,
	}
}

type entry struct {
	buf    Buffer
	sealed bool
}

// Cache holds per-session buffers. A sealed buffer rejects appends and
// clears until it is released or unsealed, so a commit can never interleave
// with either.
type Cache struct {
	mu       sync.Mutex
	sessions map[string]*entry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{sessions: make(map[string]*entry)}
}

// Begin opens an empty buffer for sessionID, replacing any unsealed one.
func (c *Cache) Begin(sessionID, userID string, ft model.FlowType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.sessions[sessionID]; ok && e.sealed {
		return ErrSealed
	}
	c.sessions[sessionID] = &entry{buf: Buffer{UserID: userID, FlowType: ft}}
	return nil
}

// AppendCheckIn buffers a check-in.
func (c *Cache) AppendCheckIn(sessionID string, p store.CheckInParams) error {
	return c.with(sessionID, func(e *entry) {
		e.buf.CheckIns = append(e.buf.CheckIns, p)
	})
}

// AppendBlock buffers a completed block.
func (c *Cache) AppendBlock(sessionID string, p store.BlockEntryParams) error {
	return c.with(sessionID, func(e *entry) {
		e.buf.Blocks = append(e.buf.Blocks, p)
	})
}

func (c *Cache) with(sessionID string, fn func(*entry)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	if e.sealed {
		return ErrSealed
	}
	fn(e)
	return nil
}

// Seal marks the buffer sealed and returns a snapshot of it.
func (c *Cache) Seal(sessionID string) (Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sessions[sessionID]
	if !ok {
		return Buffer{}, ErrUnknownSession
	}
	if e.sealed {
		return Buffer{}, ErrSealed
	}
	e.sealed = true
	snap := e.buf
	snap.CheckIns = append([]store.CheckInParams(nil), e.buf.CheckIns...)
	snap.Blocks = append([]store.BlockEntryParams(nil), e.buf.Blocks...)
	return snap, nil
}

// Release drops a sealed buffer after a successful commit.
func (c *Cache) Release(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.sessions[sessionID]; ok && e.sealed {
		delete(c.sessions, sessionID)
	}
}

// Unseal reopens a sealed buffer after a failed commit.
func (c *Cache) Unseal(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.sessions[sessionID]; ok {
		e.sealed = false
	}
}

// Clear discards an unsealed buffer. Clearing an unknown session is a no-op.
func (c *Cache) Clear(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sessions[sessionID]
	if !ok {
		return nil
	}
	if e.sealed {
		return ErrSealed
	}
	delete(c.sessions, sessionID)
	return nil
}

// Pending returns the buffered counts for sessionID.
func (c *Cache) Pending(sessionID string) (checkIns, blocks int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sessions[sessionID]
	if !ok {
		return 0, 0, false
	}
	return len(e.buf.CheckIns), len(e.buf.Blocks), true
}
