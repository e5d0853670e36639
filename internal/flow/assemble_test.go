package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/somi-flow/internal/model"
	"github.com/rcliao/somi-flow/internal/selection"
)

func TestComputeBlockCount(t *testing.T) {
	tests := []struct {
		minutes    int
		start, end bool
		want       int
	}{
		{10, true, true, 6},  // (600-120)/80
		{5, false, false, 3}, // 300/80
		{5, true, true, 3},   // scans disabled under 8 minutes
		{8, true, false, 5},  // (480-60)/80
		{8, true, true, 4},   // (480-120)/80
		{7, true, true, 5},   // 420/80
		{1, false, false, 1}, // floor of 1
		{60, true, true, 43}, // (3600-120)/80
	}
	for _, tt := range tests {
		got := ComputeBlockCount(tt.minutes, tt.start, tt.end)
		assert.Equal(t, tt.want, got, "ComputeBlockCount(%d, %v, %v)", tt.minutes, tt.start, tt.end)
	}
}

func TestEffectiveBodyScans(t *testing.T) {
	s, e := EffectiveBodyScans(7, true, true)
	assert.False(t, s)
	assert.False(t, e)
	s, e = EffectiveBodyScans(8, true, false)
	assert.True(t, s)
	assert.False(t, e)
}

func assertInterleave(t *testing.T, tl model.Timeline) {
	t.Helper()
	segs := tl.Segments
	for i, s := range segs {
		switch s.Type {
		case model.SegmentSomiBlock:
			require.Greater(t, i, 0, "block at position 0")
			prev := segs[i-1]
			assert.Equal(t, model.SegmentMicroIntegration, prev.Type, "segment %d not preceded by micro_integration", i)
			assert.Equal(t, s.Section, prev.Section, "micro_integration section mismatch at %d", i)
		case model.SegmentBodyScan:
			assert.True(t, i == 0 || i == len(segs)-1, "body_scan at interior position %d", i)
		case model.SegmentMicroIntegration:
			require.Less(t, i+1, len(segs))
			assert.Equal(t, model.SegmentSomiBlock, segs[i+1].Type)
		}
	}
}

func TestAssemble_Interleave(t *testing.T) {
	for n := 1; n <= 6; n++ {
		for _, scans := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
			blocks := selection.AssignSections(named("a", "b", "c", "d", "e", "f")[:n])
			tl := Assemble(blocks, scans[0], scans[1])
			assertInterleave(t, tl)

			want := 2 * n
			if scans[0] {
				want++
			}
			if scans[1] {
				want++
			}
			assert.Len(t, tl.Segments, want)
			assert.Equal(t, n, tl.BlockCount())
		}
	}
}

func TestAssemble_BodyScanSections(t *testing.T) {
	tl := Assemble(selection.AssignSections(named("a", "b", "c")), true, true)
	first, last := tl.Segments[0], tl.Segments[len(tl.Segments)-1]
	assert.Equal(t, model.SegmentBodyScan, first.Type)
	assert.Equal(t, model.SectionWarmUp, first.Section)
	assert.Equal(t, model.SegmentBodyScan, last.Type)
	assert.Equal(t, model.SectionIntegration, last.Section)
	assert.Equal(t, 120+3*80, tl.ActualDurationSeconds)
}

func TestAssemble_Denormalizes(t *testing.T) {
	b := model.Block{ID: "id1", CanonicalName: "humming", Name: "Humming", Description: "hum",
		EnergyDelta: -1, SafetyDelta: 2, MediaURL: "u"}
	tl := Assemble([]model.SectionedBlock{{Block: b, Section: model.SectionMain}}, false, false)
	seg := tl.Segments[1]
	assert.Equal(t, model.Segment{
		Type: model.SegmentSomiBlock, Section: model.SectionMain, DurationSeconds: 60,
		BlockID: "id1", CanonicalName: "humming", Name: "Humming", Description: "hum",
		EnergyDelta: -1, SafetyDelta: 2, MediaURL: "u",
	}, seg)
	assert.Equal(t, model.MicroIntegrationSeconds, tl.Segments[0].DurationSeconds)
}

func TestSwapBlock(t *testing.T) {
	tl := Assemble(selection.AssignSections(named("a", "b", "c")), true, false)
	// Segments: scan, mi, a, mi, b, mi, c
	swapped, err := SwapBlock(tl, 4, model.Block{ID: "z", CanonicalName: "z", Name: "Z"})
	require.NoError(t, err)

	assert.Equal(t, "z", swapped.Segments[4].BlockID)
	assert.Equal(t, model.SectionMain, swapped.Segments[4].Section)
	assert.Equal(t, tl.ActualDurationSeconds, swapped.ActualDurationSeconds)
	assert.Equal(t, "b", tl.Segments[4].BlockID, "original must be untouched")
	assertInterleave(t, swapped)

	_, err = SwapBlock(tl, 0, model.Block{ID: "z"})
	assert.ErrorIs(t, err, ErrNotSwappable)
	_, err = SwapBlock(tl, 3, model.Block{ID: "z"})
	assert.ErrorIs(t, err, ErrNotSwappable)
	_, err = SwapBlock(tl, 99, model.Block{ID: "z"})
	assert.Error(t, err)
}
