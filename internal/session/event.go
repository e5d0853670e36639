package session

import (
	"time"

	"github.com/rcliao/somi-flow/internal/model"
)

// EventType identifies a session event.
type EventType string

const (
	EventSegmentStarted   EventType = "segment_started"
	EventSegmentCompleted EventType = "segment_completed"
	EventCheckIn          EventType = "check_in"
	EventMusicLevel       EventType = "music_level"
	EventSessionCompleted EventType = "session_completed"
	EventSessionAbandoned EventType = "session_abandoned"
)

// Reason says why a segment ended.
type Reason string

const (
	ReasonTimeout    Reason = "timeout"
	ReasonSkipped    Reason = "skipped"
	ReasonMediaEnded Reason = "media_ended"
)

// Event is emitted by state transitions. Only the fields relevant to Type
// are set.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Cycle     int       `json:"cycle"`

	// Segment events.
	Segment    model.Segment `json:"segment,omitempty"`
	Reason     Reason        `json:"reason,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
	OrderIndex int           `json:"order_index,omitempty"`

	// Check-in events.
	CheckInKind string            `json:"check_in_kind,omitempty"`
	Embodiment  *model.Embodiment `json:"embodiment,omitempty"`

	MusicLevel float64        `json:"music_level,omitempty"`
	FlowType   model.FlowType `json:"flow_type,omitempty"`
}

// IsBlockCompletion reports whether e finished a somi_block segment.
func (e Event) IsBlockCompletion() bool {
	return e.Type == EventSegmentCompleted && e.Segment.Type == model.SegmentSomiBlock
}

// ElapsedSeconds is Elapsed rounded to whole seconds.
func (e Event) ElapsedSeconds() int {
	return int(e.Elapsed.Round(time.Second) / time.Second)
}
