// Package session drives playback of a segment timeline.
//
// State is a value and every transition is a pure function returning the
// next State plus the events it produced. Time only moves through Tick, so
// tests can step a session without a wall clock. Driver adapts the reducer
// to a real clock and an event sink.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/somi-flow/internal/model"
)

// Phase is what the player shows for the current segment.
type Phase string

const (
	// PhaseInterstitial covers body scans and micro-integration pauses.
	PhaseInterstitial Phase = "interstitial"
	// PhaseVideo is active block playback.
	PhaseVideo Phase = "video"
)

// Status is the lifecycle of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// DefaultMusicLevel is the background music volume when none is configured.
const DefaultMusicLevel = 0.6

// Options configure a new session.
type Options struct {
	ID         string
	FlowType   model.FlowType
	Entry      model.Embodiment
	MusicLevel float64
}

// State is the runtime state of one session over a timeline.
type State struct {
	ID       string
	Timeline model.Timeline
	FlowType model.FlowType
	// Cycle is the index of the current segment.
	Cycle int
	Phase Phase
	// Elapsed is time spent in the current segment.
	Elapsed time.Duration
	// Remaining is time left in the whole session.
	Remaining  time.Duration
	Paused     bool
	Status     Status
	Entry      model.Embodiment
	Exit       *model.Embodiment
	MusicLevel float64

	// emitted latches segment completion so each segment reports once.
	emitted []bool
}

// Start creates a session at the first segment. It emits the entry
// check-in, the configured music level and the first segment start. An
// empty timeline completes immediately.
func Start(tl model.Timeline, opts Options) (State, []Event) {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	ft := opts.FlowType
	if ft == "" {
		ft = model.FlowDaily
	}
	level := opts.MusicLevel
	if level <= 0 {
		level = DefaultMusicLevel
	}

	s := State{
		ID:         id,
		Timeline:   tl,
		FlowType:   ft,
		Status:     StatusActive,
		Entry:      opts.Entry,
		MusicLevel: level,
		emitted:    make([]bool, len(tl.Segments)),
	}
	s.Remaining = s.remainingFrom(0)

	entry := opts.Entry
	events := []Event{
		{Type: EventCheckIn, SessionID: id, CheckInKind: model.CheckInEntry, Embodiment: &entry},
		{Type: EventMusicLevel, SessionID: id, MusicLevel: level},
	}
	if len(tl.Segments) == 0 {
		s.Status = StatusCompleted
		return s, append(events, Event{Type: EventSessionCompleted, SessionID: id})
	}
	s.Phase = phaseOf(tl.Segments[0])
	return s, append(events, s.startedEvent())
}

// Segment returns the current segment. ok is false once the session has
// moved past the last segment.
func (s State) Segment() (model.Segment, bool) {
	if s.Cycle < 0 || s.Cycle >= len(s.Timeline.Segments) {
		return model.Segment{}, false
	}
	return s.Timeline.Segments[s.Cycle], true
}

// Terminal reports whether the session has completed or been aborted.
func (s State) Terminal() bool {
	return s.Status != StatusActive
}

// Tick advances the session by elapsed time. Ticks on a paused or terminal
// session are ignored. Time beyond the current segment carries into the next.
func (s State) Tick(elapsed time.Duration) (State, []Event) {
	if s.Status != StatusActive || s.Paused || elapsed <= 0 {
		return s, nil
	}
	var events []Event
	for elapsed > 0 && s.Status == StatusActive {
		seg, _ := s.Segment()
		left := segmentDuration(seg) - s.Elapsed
		if elapsed < left {
			s.Elapsed += elapsed
			s.Remaining -= elapsed
			break
		}
		elapsed -= left
		s.Elapsed += left
		var evs []Event
		s, evs = s.finish(ReasonTimeout)
		events = append(events, evs...)
	}
	return s, events
}

// Skip ends the current segment early.
func (s State) Skip() (State, []Event) {
	if s.Status != StatusActive {
		return s, nil
	}
	return s.finish(ReasonSkipped)
}

// MediaEnded ends the current segment when its video has finished playing.
// It is ignored outside the video phase.
func (s State) MediaEnded() (State, []Event) {
	if s.Status != StatusActive || s.Phase != PhaseVideo {
		return s, nil
	}
	return s.finish(ReasonMediaEnded)
}

// Pause freezes the session and ducks the music to silence.
func (s State) Pause() (State, []Event) {
	if s.Status != StatusActive || s.Paused {
		return s, nil
	}
	s.Paused = true
	return s, []Event{{Type: EventMusicLevel, SessionID: s.ID, Cycle: s.Cycle, MusicLevel: 0}}
}

// Resume unfreezes the session and restores the configured music level.
func (s State) Resume() (State, []Event) {
	if s.Status != StatusActive || !s.Paused {
		return s, nil
	}
	s.Paused = false
	return s, []Event{{Type: EventMusicLevel, SessionID: s.ID, Cycle: s.Cycle, MusicLevel: s.MusicLevel}}
}

// Abandon ends the session early from any non-terminal point.
func (s State) Abandon() (State, []Event) {
	if s.Status != StatusActive {
		return s, nil
	}
	s.Status = StatusAborted
	s.Paused = false
	return s, []Event{
		{Type: EventMusicLevel, SessionID: s.ID, Cycle: s.Cycle, MusicLevel: 0},
		{Type: EventSessionAbandoned, SessionID: s.ID, Cycle: s.Cycle, FlowType: s.FlowType},
	}
}

// CheckIn records the exit self-report of a completed session. It is
// accepted once; later calls and calls before completion are ignored.
func (s State) CheckIn(exit model.Embodiment) (State, []Event) {
	if s.Status != StatusCompleted || s.Exit != nil {
		return s, nil
	}
	s.Exit = &exit
	return s, []Event{{Type: EventCheckIn, SessionID: s.ID, CheckInKind: model.CheckInExit, Embodiment: &exit}}
}

// finish completes the current segment and moves to the next one.
func (s State) finish(reason Reason) (State, []Event) {
	seg, ok := s.Segment()
	if !ok {
		return s, nil
	}

	var events []Event
	if !s.emitted[s.Cycle] {
		s.emitted = append([]bool(nil), s.emitted...)
		s.emitted[s.Cycle] = true
		ev := Event{
			Type:      EventSegmentCompleted,
			SessionID: s.ID,
			Cycle:     s.Cycle,
			Segment:   seg,
			Reason:    reason,
			Elapsed:   s.Elapsed,
		}
		if seg.Type == model.SegmentSomiBlock {
			ev.OrderIndex = s.blockOrder(s.Cycle)
		}
		events = append(events, ev)
	}

	s.Cycle++
	s.Elapsed = 0
	s.Remaining = s.remainingFrom(s.Cycle)

	next, ok := s.Segment()
	if !ok {
		s.Status = StatusCompleted
		s.Paused = false
		return s, append(events,
			Event{Type: EventMusicLevel, SessionID: s.ID, Cycle: s.Cycle, MusicLevel: 0},
			Event{Type: EventSessionCompleted, SessionID: s.ID, Cycle: s.Cycle, FlowType: s.FlowType},
		)
	}
	s.Phase = phaseOf(next)
	return s, append(events, s.startedEvent())
}

func (s State) startedEvent() Event {
	seg, _ := s.Segment()
	return Event{Type: EventSegmentStarted, SessionID: s.ID, Cycle: s.Cycle, Segment: seg}
}

// remainingFrom sums the durations of segments from index i onwards.
func (s State) remainingFrom(i int) time.Duration {
	var d time.Duration
	for _, seg := range s.Timeline.Segments[min(i, len(s.Timeline.Segments)):] {
		d += segmentDuration(seg)
	}
	return d
}

// blockOrder is the position of segment i among the timeline's blocks.
func (s State) blockOrder(i int) int {
	n := 0
	for _, seg := range s.Timeline.Segments[:i] {
		if seg.Type == model.SegmentSomiBlock {
			n++
		}
	}
	return n
}

func phaseOf(seg model.Segment) Phase {
	if seg.Type == model.SegmentSomiBlock {
		return PhaseVideo
	}
	return PhaseInterstitial
}

func segmentDuration(seg model.Segment) time.Duration {
	return time.Duration(seg.DurationSeconds) * time.Second
}
