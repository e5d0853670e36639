package flow

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/rcliao/somi-flow/internal/model"
	"github.com/rcliao/somi-flow/internal/selection"
)

func named(names ...string) []model.Block {
	out := make([]model.Block, len(names))
	for i, n := range names {
		out[i] = model.Block{ID: n, CanonicalName: n, Name: n}
	}
	return out
}

func TestExplain_Golden(t *testing.T) {
	tests := []struct {
		name      string
		state     model.TargetState
		minutes   int
		blocks    []string
		scanStart bool
		scanEnd   bool
	}{
		{"explain_steady_short", model.StateSteady, 5, []string{"Humming", "Shaking", "Havening"}, false, false},
		{"explain_wired_with_scans", model.StateWired, 10,
			[]string{"Humming", "Voo Breath", "Havening", "Shaking", "Butterfly Hug", "Sway"}, true, true},
		{"explain_single_block", model.StateShutdown, 1, []string{"Humming"}, false, false},
	}

	g := goldie.New(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := Assemble(selection.AssignSections(named(tt.blocks...)), tt.scanStart, tt.scanEnd)
			got := Explain(ExplainInput{State: tt.state, RequestedMinutes: tt.minutes, Timeline: tl})
			g.Assert(t, tt.name, []byte(got))
		})
	}
}

func TestExplain_Deterministic(t *testing.T) {
	tl := Assemble(selection.AssignSections(named("a", "b", "c", "d")), true, false)
	in := ExplainInput{State: model.StateGlowing, RequestedMinutes: 8, Timeline: tl}
	assert.Equal(t, Explain(in), Explain(in))
}

func TestExplain_FallsBackToCanonicalName(t *testing.T) {
	tl := Assemble([]model.SectionedBlock{
		{Block: model.Block{ID: "1", CanonicalName: "voo_breath"}, Section: model.SectionMain},
	}, false, false)
	assert.Contains(t, Explain(ExplainInput{State: model.StateSteady, RequestedMinutes: 1, Timeline: tl}), "voo_breath")
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "1 minute", formatSeconds(60))
	assert.Equal(t, "4 minutes", formatSeconds(240))
	assert.Equal(t, "1 min 20 s", formatSeconds(80))
	assert.Equal(t, "40 s", formatSeconds(40))
}

func TestJoinNames(t *testing.T) {
	assert.Equal(t, "", joinNames(nil))
	assert.Equal(t, "a", joinNames([]string{"a"}))
	assert.Equal(t, "a and b", joinNames([]string{"a", "b"}))
	assert.Equal(t, "a, b and c", joinNames([]string{"a", "b", "c"}))
}
