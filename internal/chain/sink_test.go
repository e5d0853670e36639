package chain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/somi-flow/internal/model"
	"github.com/rcliao/somi-flow/internal/session"
	"github.com/rcliao/somi-flow/internal/store"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func twoBlockTimeline() model.Timeline {
	return model.Timeline{Segments: []model.Segment{
		{Type: model.SegmentMicroIntegration, Section: model.SectionWarmUp, DurationSeconds: 20},
		{Type: model.SegmentSomiBlock, Section: model.SectionWarmUp, BlockID: "b1", DurationSeconds: 60},
		{Type: model.SegmentMicroIntegration, Section: model.SectionMain, DurationSeconds: 20},
		{Type: model.SegmentSomiBlock, Section: model.SectionMain, BlockID: "b2", DurationSeconds: 60},
	}}
}

func TestSessionSinkDailyFlowCommitsAfterExitCheckIn(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cache := NewCache()
	sink := NewSessionSink(ctx, NewBufferedRecorder(s, cache), "u1")
	clock := &stepClock{now: time.Unix(0, 0)}

	d := session.NewDriver(twoBlockTimeline(), session.Options{ID: "s1", FlowType: model.FlowDaily,
		Entry: model.Embodiment{Energy: 1, Safety: 1}}, clock, sink)
	clock.now = clock.now.Add(time.Hour)
	d.Tick()
	require.True(t, d.State().Terminal())
	assert.Nil(t, sink.Chain())

	d.CheckIn(model.Embodiment{Energy: 3, Safety: 4})
	require.NoError(t, sink.Err())
	c := sink.Chain()
	require.NotNil(t, c)

	got, err := s.GetChain(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.CheckIns, 2)
	assert.Equal(t, model.CheckInEntry, got.CheckIns[0].Kind)
	assert.Equal(t, model.CheckInExit, got.CheckIns[1].Kind)
	require.Len(t, got.Blocks, 2)
	assert.Equal(t, "b1", got.Blocks[0].BlockID)
	assert.Equal(t, 0, got.Blocks[0].OrderIndex)
	assert.Equal(t, 60, got.Blocks[0].ElapsedSeconds)
	assert.Equal(t, model.SectionMain, got.Blocks[1].Section)
	assert.Equal(t, 1, got.Blocks[1].OrderIndex)

	_, _, ok := cache.Pending("s1")
	assert.False(t, ok)
}

func TestSessionSinkDailyAbandonDiscards(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cache := NewCache()
	sink := NewSessionSink(ctx, NewBufferedRecorder(s, cache), "u1")
	clock := &stepClock{now: time.Unix(0, 0)}

	d := session.NewDriver(twoBlockTimeline(), session.Options{ID: "s1"}, clock, sink)
	clock.now = clock.now.Add(90 * time.Second)
	d.Tick()
	d.Abandon()

	_, _, ok := cache.Pending("s1")
	assert.False(t, ok)
	chains, err := s.ListChains(ctx, store.ListChainsParams{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, chains)
}

func TestSessionSinkQuickAbandonKeepsStreamedBlocks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sink := NewSessionSink(ctx, NewStreamingRecorder(s), "u1")
	clock := &stepClock{now: time.Unix(0, 0)}

	d := session.NewDriver(twoBlockTimeline(), session.Options{ID: "q1", FlowType: model.FlowQuick}, clock, sink)
	clock.now = clock.now.Add(90 * time.Second)
	d.Tick()
	d.Abandon()
	require.NoError(t, sink.Err())

	chains, err := s.ListChains(ctx, store.ListChainsParams{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, chains, 1)
	got, err := s.GetChain(ctx, chains[0].ID)
	require.NoError(t, err)
	assert.Len(t, got.CheckIns, 1)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, "b1", got.Blocks[0].BlockID)
}

func TestSessionSinkRetryAfterFailedCommit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := &flakyWriter{Writer: s, failCommit: true}
	sink := NewSessionSink(ctx, NewBufferedRecorder(w, nil), "u1")
	clock := &stepClock{now: time.Unix(0, 0)}

	d := session.NewDriver(twoBlockTimeline(), session.Options{ID: "s1"}, clock, sink)
	clock.now = clock.now.Add(time.Hour)
	d.Tick()
	d.CheckIn(model.Embodiment{Energy: 1})
	require.ErrorIs(t, sink.Err(), errWrite)
	assert.Nil(t, sink.Chain())

	w.failCommit = false
	c, err := sink.Retry("s1")
	require.NoError(t, err)
	assert.Len(t, c.Blocks, 2)
	assert.NoError(t, sink.Err())
}

func TestSessionSinkCloseCommitsWithoutExitCheckIn(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cache := NewCache()
	sink := NewSessionSink(ctx, NewBufferedRecorder(s, cache), "u1")
	clock := &stepClock{now: time.Unix(0, 0)}

	d := session.NewDriver(twoBlockTimeline(), session.Options{ID: "s1", FlowType: model.FlowDaily}, clock, sink)
	clock.now = clock.now.Add(time.Hour)
	d.Tick()
	require.True(t, d.State().Terminal())
	_, blocks, ok := cache.Pending("s1")
	require.True(t, ok)
	assert.Equal(t, 2, blocks)

	c, err := sink.Close()
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Same(t, c, sink.Chain())

	got, err := s.GetChain(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.CheckIns, 1)
	assert.Equal(t, model.CheckInEntry, got.CheckIns[0].Kind)
	assert.Len(t, got.Blocks, 2)

	_, _, ok = cache.Pending("s1")
	assert.False(t, ok)

	again, err := sink.Close()
	require.NoError(t, err)
	assert.Same(t, c, again)
}

func TestSessionSinkCloseAbandonsUnfinishedQuickRoutine(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rec := NewStreamingRecorder(s)
	sink := NewSessionSink(ctx, rec, "u1")
	clock := &stepClock{now: time.Unix(0, 0)}

	d := session.NewDriver(twoBlockTimeline(), session.Options{ID: "q1", FlowType: model.FlowQuick}, clock, sink)
	clock.now = clock.now.Add(90 * time.Second)
	d.Tick()
	_, ok := rec.chainFor("q1")
	require.True(t, ok)

	c, err := sink.Close()
	require.NoError(t, err)
	assert.Nil(t, c)
	_, ok = rec.chainFor("q1")
	assert.False(t, ok)

	chains, err := s.ListChains(ctx, store.ListChainsParams{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, chains, 1)
}

func TestSessionSinkCloseAfterExitCheckIn(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sink := NewSessionSink(ctx, NewBufferedRecorder(s, nil), "u1")
	clock := &stepClock{now: time.Unix(0, 0)}

	d := session.NewDriver(twoBlockTimeline(), session.Options{ID: "s1"}, clock, sink)
	clock.now = clock.now.Add(time.Hour)
	d.Tick()
	d.CheckIn(model.Embodiment{Energy: 2})
	require.NotNil(t, sink.Chain())

	c, err := sink.Close()
	require.NoError(t, err)
	assert.Same(t, sink.Chain(), c)

	chains, err := s.ListChains(ctx, store.ListChainsParams{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, chains, 1)
}
