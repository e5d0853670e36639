package flow

import (
	"fmt"
	"strings"

	"github.com/rcliao/somi-flow/internal/model"
)

var stateOpeners = map[model.TargetState]string{
	model.StateShutdown: "You checked in low on energy and safety, so this flow starts with the gentlest blocks and lifts you slowly.",
	model.StateRestful:  "You checked in calm and low on energy, so this flow keeps things soft with small lifts along the way.",
	model.StateWired:    "You checked in activated but not quite safe, so this flow leans on blocks that build felt safety.",
	model.StateGlowing:  "You checked in energised and safe, so this flow uses that momentum before settling.",
	model.StateSteady:   "You checked in close to centre, so this flow draws from the whole library for a balanced arc.",
}

var sectionPhrases = map[model.Section]string{
	model.SectionWarmUp:      "the warm-up eases in with %s",
	model.SectionMain:        "the main section works through %s",
	model.SectionIntegration: "integration settles with %s",
}

// ExplainInput carries what the explanation is built from.
type ExplainInput struct {
	State            model.TargetState
	RequestedMinutes int
	Timeline         model.Timeline
}

// Explain renders a deterministic, human-readable rationale for an
// algorithmically assembled flow.
func Explain(in ExplainInput) string {
	segs := in.Timeline.Segments
	var parts []string

	if opener, ok := stateOpeners[in.State]; ok {
		parts = append(parts, opener)
	}
	if len(segs) > 0 && segs[0].Type == model.SegmentBodyScan {
		parts = append(parts, "It opens with a one-minute body scan so you can notice where you are.")
	}

	order, names := groupBlockNames(segs)
	var clauses []string
	for _, sec := range order {
		clauses = append(clauses, fmt.Sprintf(sectionPhrases[sec], joinNames(names[sec])))
	}
	if len(clauses) > 0 {
		parts = append(parts, capitalize(strings.Join(clauses, "; "))+".")
	}

	if blocks := in.Timeline.BlockCount(); blocks == 1 {
		parts = append(parts, fmt.Sprintf("The block is preceded by a %d-second pause to help you arrive.",
			model.MicroIntegrationSeconds))
	} else if blocks > 1 {
		parts = append(parts, fmt.Sprintf("Each of the %d blocks is preceded by a %d-second pause to let the last one land.",
			blocks, model.MicroIntegrationSeconds))
	}

	if len(segs) > 1 && segs[len(segs)-1].Type == model.SegmentBodyScan {
		parts = append(parts, "It closes with a body scan so you can feel what shifted.")
	}

	actual := in.Timeline.ActualDurationSeconds
	if actual == in.RequestedMinutes*60 {
		parts = append(parts, fmt.Sprintf("Total time is %s.", formatSeconds(actual)))
	} else {
		parts = append(parts, fmt.Sprintf("Total time is %s against the %s you asked for, fitted to whole block cycles.",
			formatSeconds(actual), plural(in.RequestedMinutes, "minute")))
	}
	return strings.Join(parts, " ")
}

// groupBlockNames collects block display names per section in first-seen
// section order.
func groupBlockNames(segs []model.Segment) ([]model.Section, map[model.Section][]string) {
	var order []model.Section
	names := map[model.Section][]string{}
	for _, s := range segs {
		if s.Type != model.SegmentSomiBlock {
			continue
		}
		if _, ok := names[s.Section]; !ok {
			order = append(order, s.Section)
		}
		name := s.Name
		if name == "" {
			name = s.CanonicalName
		}
		names[s.Section] = append(names[s.Section], name)
	}
	return order, names
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func formatSeconds(secs int) string {
	if secs%60 == 0 {
		return plural(secs/60, "minute")
	}
	if secs < 60 {
		return fmt.Sprintf("%d s", secs)
	}
	return fmt.Sprintf("%d min %d s", secs/60, secs%60)
}
