package model

// SegmentType identifies a playable unit variant.
type SegmentType string

const (
	SegmentBodyScan         SegmentType = "body_scan"
	SegmentMicroIntegration SegmentType = "micro_integration"
	SegmentSomiBlock        SegmentType = "somi_block"
)

// Section is a segment's role within the arc of a timeline.
type Section string

const (
	SectionWarmUp      Section = "warm_up"
	SectionMain        Section = "main"
	SectionIntegration Section = "integration"
)

// ValidSections are the allowed section labels.
var ValidSections = map[Section]bool{
	SectionWarmUp:      true,
	SectionMain:        true,
	SectionIntegration: true,
}

// Fixed segment durations in seconds.
const (
	BodyScanSeconds         = 60
	MicroIntegrationSeconds = 20
	BlockSeconds            = 60
)

// Segment is one playable unit of a timeline. Block fields are a
// denormalized copy so the client can display a segment offline.
type Segment struct {
	Type            SegmentType `json:"type"`
	Section         Section     `json:"section"`
	DurationSeconds int         `json:"duration_seconds"`
	BlockID         string      `json:"block_id,omitempty"`
	CanonicalName   string      `json:"canonical_name,omitempty"`
	Name            string      `json:"name,omitempty"`
	Description     string      `json:"description,omitempty"`
	EnergyDelta     int         `json:"energy_delta,omitempty"`
	SafetyDelta     int         `json:"safety_delta,omitempty"`
	MediaURL        string      `json:"media_url,omitempty"`
}

// Timeline is the ordered, fully assembled sequence a session plays back.
type Timeline struct {
	Segments              []Segment `json:"segments"`
	ActualDurationSeconds int       `json:"actual_duration_seconds"`
}

// BlockCount returns the number of somi_block segments.
func (t Timeline) BlockCount() int {
	n := 0
	for _, s := range t.Segments {
		if s.Type == SegmentSomiBlock {
			n++
		}
	}
	return n
}

// SectionedBlock pairs a block with its assigned section.
type SectionedBlock struct {
	Block   Block
	Section Section
}
