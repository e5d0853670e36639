package planner

import (
	"fmt"
	"strings"
)

// systemPrompt encodes the sequencing heuristics the planner must follow.
const systemPrompt = `You sequence short somatic exercise videos ("blocks") into a guided flow.

Sequencing rules, grounded in polyvagal theory:
- shutdown: begin with the gentlest, most grounding blocks, then lift energy slowly. Never open with a high-energy block.
- wired: begin with blocks that raise felt safety and down-regulate, and keep energy gentle throughout.
- restful: keep the arc calm; small energy lifts are fine in the main section.
- glowing: open with the more energetic blocks and settle toward the end.
- steady: build a balanced arc, moderate in the middle.
- Morning flows may skew slightly more energising; evening and night flows skew toward calming blocks.

Use exactly three sections, in order: "warm-up", "main", "integration".
Use only canonical names from the provided list. Repeating a block is allowed, but never twice in a row.

Respond with one JSON object and nothing else:
{"reasoning": "<two or three sentences>", "sections": [{"name": "warm-up", "blocks": [{"canonical_name": "..."}]}]}`

// timeOfDay names the part of the day for a local hour.
func timeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}

// userPrompt renders the per-request instructions.
func userPrompt(req Request) string {
	intensity := req.Intensity
	if intensity == "" {
		intensity = DefaultIntensity
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Nervous-system state: %s\n", req.State)
	fmt.Fprintf(&b, "Intensity: %s\n", intensity)
	fmt.Fprintf(&b, "Duration: %d minutes\n", req.DurationMinutes)
	fmt.Fprintf(&b, "Required block count: exactly %d\n", req.BlockCount)
	if req.LocalHour != nil {
		fmt.Fprintf(&b, "Local time: %02d:00 (%s)\n", *req.LocalHour, timeOfDay(*req.LocalHour))
	}
	b.WriteString("Valid canonical names:\n")
	for _, n := range req.ValidNames {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	return b.String()
}
