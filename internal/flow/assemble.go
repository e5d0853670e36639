// Package flow assembles playable segment timelines from catalog blocks,
// either through the selection engine or a generative planner.
package flow

import "github.com/rcliao/somi-flow/internal/model"

// MinBodyScanMinutes is the shortest flow that gets body scan bookends.
const MinBodyScanMinutes = 8

// CycleSeconds is one block plus the micro-integration before it.
const CycleSeconds = model.BlockSeconds + model.MicroIntegrationSeconds

// EffectiveBodyScans reports which requested body scans fit the duration.
func EffectiveBodyScans(durationMinutes int, scanStart, scanEnd bool) (bool, bool) {
	if durationMinutes < MinBodyScanMinutes {
		return false, false
	}
	return scanStart, scanEnd
}

// ComputeBlockCount returns how many block cycles fit in the duration after
// the enabled body scans. It is never less than 1.
func ComputeBlockCount(durationMinutes int, scanStart, scanEnd bool) int {
	start, end := EffectiveBodyScans(durationMinutes, scanStart, scanEnd)
	remaining := durationMinutes*60 - bodyScanSeconds(start, end)
	n := remaining / CycleSeconds
	if remaining < 0 || n < 1 {
		return 1
	}
	return n
}

func bodyScanSeconds(start, end bool) int {
	s := 0
	if start {
		s += model.BodyScanSeconds
	}
	if end {
		s += model.BodyScanSeconds
	}
	return s
}

// ActualDuration is the played length of a timeline with blockCount blocks.
func ActualDuration(blockCount int, scanStart, scanEnd bool) int {
	return bodyScanSeconds(scanStart, scanEnd) + blockCount*CycleSeconds
}

// Assemble interleaves blocks into a timeline: an optional warm_up body scan,
// then a micro-integration and the block for each entry, then an optional
// integration body scan. Callers gate the scans with EffectiveBodyScans.
func Assemble(blocks []model.SectionedBlock, scanStart, scanEnd bool) model.Timeline {
	segs := make([]model.Segment, 0, 2*len(blocks)+2)
	if scanStart {
		segs = append(segs, bodyScan(model.SectionWarmUp))
	}
	for _, sb := range blocks {
		segs = append(segs, model.Segment{
			Type:            model.SegmentMicroIntegration,
			Section:         sb.Section,
			DurationSeconds: model.MicroIntegrationSeconds,
		})
		segs = append(segs, blockSegment(sb.Block, sb.Section))
	}
	if scanEnd {
		segs = append(segs, bodyScan(model.SectionIntegration))
	}
	return model.Timeline{
		Segments:              segs,
		ActualDurationSeconds: ActualDuration(len(blocks), scanStart, scanEnd),
	}
}

func bodyScan(sec model.Section) model.Segment {
	return model.Segment{
		Type:            model.SegmentBodyScan,
		Section:         sec,
		DurationSeconds: model.BodyScanSeconds,
	}
}

func blockSegment(b model.Block, sec model.Section) model.Segment {
	return model.Segment{
		Type:            model.SegmentSomiBlock,
		Section:         sec,
		DurationSeconds: model.BlockSeconds,
		BlockID:         b.ID,
		CanonicalName:   b.CanonicalName,
		Name:            b.Name,
		Description:     b.Description,
		EnergyDelta:     b.EnergyDelta,
		SafetyDelta:     b.SafetyDelta,
		MediaURL:        b.MediaURL,
	}
}
