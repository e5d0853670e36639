package flow

import (
	"errors"
	"fmt"

	"github.com/rcliao/somi-flow/internal/model"
)

// ErrNotSwappable is returned when a swap targets a segment that is not a block.
var ErrNotSwappable = errors.New("segment is not a block")

// SwapBlock returns a copy of t with the block at segment index idx replaced
// by b. The segment keeps its position, section and duration.
func SwapBlock(t model.Timeline, idx int, b model.Block) (model.Timeline, error) {
	if idx < 0 || idx >= len(t.Segments) {
		return t, fmt.Errorf("segment %d out of range (0..%d)", idx, len(t.Segments)-1)
	}
	if t.Segments[idx].Type != model.SegmentSomiBlock {
		return t, fmt.Errorf("segment %d: %w", idx, ErrNotSwappable)
	}

	segs := make([]model.Segment, len(t.Segments))
	copy(segs, t.Segments)
	segs[idx] = blockSegment(b, segs[idx].Section)
	return model.Timeline{Segments: segs, ActualDurationSeconds: t.ActualDurationSeconds}, nil
}
