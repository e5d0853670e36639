package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/somi-flow/internal/model"
)

// testTimeline is scan(60) pause(20) block(60) pause(20) block(60).
func testTimeline() model.Timeline {
	return model.Timeline{
		Segments: []model.Segment{
			{Type: model.SegmentBodyScan, DurationSeconds: 60},
			{Type: model.SegmentMicroIntegration, Section: model.SectionWarmUp, DurationSeconds: 20},
			{Type: model.SegmentSomiBlock, Section: model.SectionWarmUp, BlockID: "a", DurationSeconds: 60},
			{Type: model.SegmentMicroIntegration, Section: model.SectionMain, DurationSeconds: 20},
			{Type: model.SegmentSomiBlock, Section: model.SectionMain, BlockID: "b", DurationSeconds: 60},
		},
		ActualDurationSeconds: 220,
	}
}

func eventsOf(events []Event, typ EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestStartEmitsEntryMusicAndFirstSegment(t *testing.T) {
	s, events := Start(testTimeline(), Options{ID: "s1", Entry: model.Embodiment{Energy: 3, Safety: 4}})

	require.Len(t, events, 3)
	assert.Equal(t, EventCheckIn, events[0].Type)
	assert.Equal(t, model.CheckInEntry, events[0].CheckInKind)
	assert.Equal(t, 3.0, events[0].Embodiment.Energy)
	assert.Equal(t, EventMusicLevel, events[1].Type)
	assert.Equal(t, DefaultMusicLevel, events[1].MusicLevel)
	assert.Equal(t, EventSegmentStarted, events[2].Type)
	assert.Equal(t, 0, events[2].Cycle)

	assert.Equal(t, PhaseInterstitial, s.Phase)
	assert.Equal(t, 220*time.Second, s.Remaining)
	assert.Equal(t, model.FlowDaily, s.FlowType)
	assert.False(t, s.Terminal())
}

func TestStartEmptyTimelineCompletes(t *testing.T) {
	s, events := Start(model.Timeline{}, Options{})
	assert.Equal(t, StatusCompleted, s.Status)
	assert.NotEmpty(t, s.ID)
	assert.Len(t, eventsOf(events, EventSessionCompleted), 1)
}

func TestTickWithinSegment(t *testing.T) {
	s, _ := Start(testTimeline(), Options{})
	s, events := s.Tick(10 * time.Second)
	assert.Empty(t, events)
	assert.Equal(t, 10*time.Second, s.Elapsed)
	assert.Equal(t, 210*time.Second, s.Remaining)
	assert.Equal(t, 0, s.Cycle)
}

func TestTickCarriesOverIntoNextSegments(t *testing.T) {
	s, _ := Start(testTimeline(), Options{})
	// 60s scan + 20s pause + 5s into the first block.
	s, events := s.Tick(85 * time.Second)

	completed := eventsOf(events, EventSegmentCompleted)
	require.Len(t, completed, 2)
	assert.Equal(t, ReasonTimeout, completed[0].Reason)
	assert.Equal(t, 2, s.Cycle)
	assert.Equal(t, PhaseVideo, s.Phase)
	assert.Equal(t, 5*time.Second, s.Elapsed)
	assert.Equal(t, 135*time.Second, s.Remaining)
}

func TestTickPastEndCompletes(t *testing.T) {
	s, _ := Start(testTimeline(), Options{})
	s, events := s.Tick(time.Hour)

	assert.Equal(t, StatusCompleted, s.Status)
	assert.Len(t, eventsOf(events, EventSegmentCompleted), 5)
	assert.Len(t, eventsOf(events, EventSessionCompleted), 1)
	music := eventsOf(events, EventMusicLevel)
	require.Len(t, music, 1)
	assert.Equal(t, 0.0, music[0].MusicLevel)

	s2, events := s.Tick(time.Minute)
	assert.Empty(t, events)
	assert.Equal(t, s.Cycle, s2.Cycle)
}

func TestBlockCompletionsCarryOrderIndex(t *testing.T) {
	s, _ := Start(testTimeline(), Options{})
	_, events := s.Tick(time.Hour)

	var blocks []Event
	for _, ev := range events {
		if ev.IsBlockCompletion() {
			blocks = append(blocks, ev)
		}
	}
	require.Len(t, blocks, 2)
	assert.Equal(t, "a", blocks[0].Segment.BlockID)
	assert.Equal(t, 0, blocks[0].OrderIndex)
	assert.Equal(t, "b", blocks[1].Segment.BlockID)
	assert.Equal(t, 1, blocks[1].OrderIndex)
	assert.Equal(t, 60, blocks[1].ElapsedSeconds())
}

func TestPauseResumePreservesRemaining(t *testing.T) {
	s, _ := Start(testTimeline(), Options{MusicLevel: 0.8})
	s, _ = s.Tick(30 * time.Second)
	before := s.Remaining

	s, events := s.Pause()
	require.Len(t, events, 1)
	assert.Equal(t, 0.0, events[0].MusicLevel)
	assert.True(t, s.Paused)

	s, events = s.Tick(10 * time.Minute)
	assert.Empty(t, events)
	assert.Equal(t, before, s.Remaining)

	s, events = s.Resume()
	require.Len(t, events, 1)
	assert.Equal(t, 0.8, events[0].MusicLevel)
	assert.False(t, s.Paused)
	assert.Equal(t, before, s.Remaining)
	assert.Equal(t, 30*time.Second, s.Elapsed)
}

func TestPauseTwiceIsNoop(t *testing.T) {
	s, _ := Start(testTimeline(), Options{})
	s, _ = s.Pause()
	_, events := s.Pause()
	assert.Empty(t, events)
}

func TestSkipAdvances(t *testing.T) {
	s, _ := Start(testTimeline(), Options{})
	s, _ = s.Tick(12 * time.Second)
	s, events := s.Skip()

	completed := eventsOf(events, EventSegmentCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, ReasonSkipped, completed[0].Reason)
	assert.Equal(t, 12*time.Second, completed[0].Elapsed)
	assert.Equal(t, 1, s.Cycle)
	assert.Equal(t, time.Duration(0), s.Elapsed)
	assert.Len(t, eventsOf(events, EventSegmentStarted), 1)
}

func TestMediaEndedIgnoredDuringInterstitial(t *testing.T) {
	s, _ := Start(testTimeline(), Options{})
	s2, events := s.MediaEnded()
	assert.Empty(t, events)
	assert.Equal(t, s.Cycle, s2.Cycle)
}

func TestMediaEndedFinishesVideo(t *testing.T) {
	s, _ := Start(testTimeline(), Options{})
	s, _ = s.Tick(80 * time.Second)
	require.Equal(t, PhaseVideo, s.Phase)

	s, events := s.MediaEnded()
	completed := eventsOf(events, EventSegmentCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, ReasonMediaEnded, completed[0].Reason)
	assert.Equal(t, 3, s.Cycle)
}

func TestEachSegmentCompletesExactlyOnce(t *testing.T) {
	s, _ := Start(testTimeline(), Options{})
	var all []Event
	step := func(next State, events []Event) {
		s = next
		all = append(all, events...)
	}
	step(s.Tick(59 * time.Second))
	step(s.Skip())
	step(s.Tick(25 * time.Second))
	step(s.MediaEnded())
	step(s.Pause())
	step(s.Skip())
	step(s.Resume())
	step(s.Tick(time.Hour))
	step(s.Skip())
	step(s.MediaEnded())

	seen := map[int]int{}
	for _, ev := range eventsOf(all, EventSegmentCompleted) {
		seen[ev.Cycle]++
	}
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1, 3: 1, 4: 1}, seen)
	assert.Equal(t, StatusCompleted, s.Status)
}

func TestAbandon(t *testing.T) {
	s, _ := Start(testTimeline(), Options{FlowType: model.FlowQuick})
	s, _ = s.Tick(70 * time.Second)
	s, events := s.Abandon()

	assert.Equal(t, StatusAborted, s.Status)
	assert.True(t, s.Terminal())
	abandoned := eventsOf(events, EventSessionAbandoned)
	require.Len(t, abandoned, 1)
	assert.Equal(t, model.FlowQuick, abandoned[0].FlowType)

	_, events = s.Skip()
	assert.Empty(t, events)
	_, events = s.Abandon()
	assert.Empty(t, events)
}

func TestExitCheckIn(t *testing.T) {
	s, _ := Start(testTimeline(), Options{})

	_, events := s.CheckIn(model.Embodiment{Energy: 1})
	assert.Empty(t, events, "exit check-in before completion")

	s, _ = s.Tick(time.Hour)
	s, events = s.CheckIn(model.Embodiment{Energy: 1, Safety: 2, Journal: "calmer"})
	require.Len(t, events, 1)
	assert.Equal(t, model.CheckInExit, events[0].CheckInKind)
	require.NotNil(t, s.Exit)
	assert.Equal(t, "calmer", s.Exit.Journal)

	_, events = s.CheckIn(model.Embodiment{Energy: 5})
	assert.Empty(t, events, "second exit check-in")
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	s, _ := Start(testTimeline(), Options{})
	_, _ = s.Skip()
	next, events := s.Skip()
	assert.Len(t, eventsOf(events, EventSegmentCompleted), 1, "completion latch leaked from a discarded state")
	assert.Equal(t, 1, next.Cycle)
}
