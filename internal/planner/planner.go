// Package planner asks a text-generation service for a section-grouped block
// plan and validates the answer against the real catalog.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/rcliao/somi-flow/internal/model"
)

// DefaultIntensity is sent when the caller has no intensity preference.
const DefaultIntensity = "moderate"

// Request describes the flow the planner should lay out.
type Request struct {
	State           model.TargetState
	Intensity       string
	DurationMinutes int
	BlockCount      int
	ValidNames      []string
	LocalHour       *int
}

// Section is one labeled group of a plan, in play order.
type Section struct {
	Name   model.Section `json:"name"`
	Blocks []string      `json:"blocks"`
}

// Plan is a parsed planner answer.
type Plan struct {
	RequestID string    `json:"request_id,omitempty"`
	Reasoning string    `json:"reasoning"`
	Sections  []Section `json:"sections"`
	// Dropped counts entries removed by Validate.
	Dropped int `json:"dropped,omitempty"`
}

// BlockCount returns the number of block entries across all sections.
func (p *Plan) BlockCount() int {
	n := 0
	for _, s := range p.Sections {
		n += len(s.Blocks)
	}
	return n
}

// Planner produces block plans.
type Planner interface {
	Plan(ctx context.Context, req Request) (*Plan, error)
}

type wirePlan struct {
	Reasoning string        `json:"reasoning"`
	Sections  []wireSection `json:"sections"`
}

type wireSection struct {
	Name   string `json:"name"`
	Blocks []struct {
		CanonicalName string `json:"canonical_name"`
	} `json:"blocks"`
}

// ParsePlan decodes a planner answer. It tolerates markdown fences, line
// comments and trailing commas around the JSON object. Names are returned as
// given; call Validate before trusting them.
func ParsePlan(content string) (*Plan, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return nil, NewFatalError(fmt.Errorf("no JSON object in planner response"))
	}
	var w wirePlan
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, NewFatalError(fmt.Errorf("decode plan: %w", err))
	}

	p := &Plan{Reasoning: strings.TrimSpace(w.Reasoning)}
	for _, ws := range w.Sections {
		s := Section{Name: model.Section(ws.Name)}
		for _, b := range ws.Blocks {
			s.Blocks = append(s.Blocks, b.CanonicalName)
		}
		p.Sections = append(p.Sections, s)
	}
	return p, nil
}

// normalizeName folds a canonical name for comparison.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// normalizeSection maps planner section spellings onto the engine vocabulary.
func normalizeSection(s model.Section) (model.Section, bool) {
	name := strings.ToLower(strings.TrimSpace(string(s)))
	name = strings.ReplaceAll(name, "-", "_")
	sec := model.Section(name)
	return sec, model.ValidSections[sec]
}

// Validate returns a copy of p containing only blocks whose canonical name
// is in validNames, spelled as in validNames. Unknown names and sections are
// dropped silently and counted in Dropped; empty sections are removed. A
// nil plan validates to an empty one.
func Validate(p *Plan, validNames []string) *Plan {
	if p == nil {
		return &Plan{}
	}
	known := make(map[string]string, len(validNames))
	for _, n := range validNames {
		known[normalizeName(n)] = n
	}

	out := &Plan{RequestID: p.RequestID, Reasoning: p.Reasoning, Dropped: p.Dropped}
	for _, s := range p.Sections {
		sec, ok := normalizeSection(s.Name)
		if !ok {
			out.Dropped += len(s.Blocks)
			continue
		}
		kept := Section{Name: sec}
		for _, name := range s.Blocks {
			canonical, ok := known[normalizeName(name)]
			if !ok {
				out.Dropped++
				continue
			}
			kept.Blocks = append(kept.Blocks, canonical)
		}
		if len(kept.Blocks) > 0 {
			out.Sections = append(out.Sections, kept)
		}
	}
	return out
}
