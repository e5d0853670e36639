package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/somi-flow/internal/model"
)

func TestParsePlan_FencedWithComments(t *testing.T) {
	content := "Here is your flow:\n```json\n{\n" +
		`  "reasoning": "Start gentle.", // why` + "\n" +
		`  "sections": [` + "\n" +
		`    {"name": "warm-up", "blocks": [{"canonical_name": "humming"},]},` + "\n" +
		`    {"name": "main", "blocks": [{"canonical_name": "shaking"}]}` + "\n" +
		"  ]\n}\n```"

	p, err := ParsePlan(content)
	require.NoError(t, err)
	assert.Equal(t, "Start gentle.", p.Reasoning)
	require.Len(t, p.Sections, 2)
	assert.Equal(t, model.Section("warm-up"), p.Sections[0].Name)
	assert.Equal(t, []string{"humming"}, p.Sections[0].Blocks)
	assert.Equal(t, 2, p.BlockCount())
}

func TestParsePlan_Malformed(t *testing.T) {
	_, err := ParsePlan("I cannot help with that.")
	require.Error(t, err)
	assert.True(t, IsFatal(err))

	_, err = ParsePlan(`{"reasoning": "x", "sections": [ {"name": }`)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestValidate_DropsUnknownNames(t *testing.T) {
	p := &Plan{
		Reasoning: "r",
		Sections: []Section{
			{Name: "warm-up", Blocks: []string{"humming", "moon_breathing"}},
			{Name: "main", Blocks: []string{"Shaking ", "invented_block"}},
			{Name: "integration", Blocks: []string{"nothing_real"}},
		},
	}
	got := Validate(p, []string{"humming", "shaking", "havening"})

	require.Len(t, got.Sections, 2)
	assert.Equal(t, model.SectionWarmUp, got.Sections[0].Name)
	assert.Equal(t, []string{"humming"}, got.Sections[0].Blocks)
	assert.Equal(t, model.SectionMain, got.Sections[1].Name)
	assert.Equal(t, []string{"shaking"}, got.Sections[1].Blocks)
	assert.Equal(t, 3, got.Dropped)
	assert.Equal(t, "r", got.Reasoning)

	// Input is untouched.
	assert.Len(t, p.Sections, 3)
}

func TestValidate_UnknownSection(t *testing.T) {
	p := &Plan{Sections: []Section{
		{Name: "cooldown", Blocks: []string{"humming"}},
		{Name: "Integration", Blocks: []string{"humming"}},
	}}
	got := Validate(p, []string{"humming"})
	require.Len(t, got.Sections, 1)
	assert.Equal(t, model.SectionIntegration, got.Sections[0].Name)
	assert.Equal(t, 1, got.Dropped)
}

func TestValidate_NilPlan(t *testing.T) {
	got := Validate(nil, []string{"humming"})
	require.NotNil(t, got)
	assert.Empty(t, got.Sections)
	assert.Zero(t, got.Dropped)
}

func TestValidate_NFCNormalisation(t *testing.T) {
	// "é" precomposed vs. e + combining acute.
	p := &Plan{Sections: []Section{{Name: "main", Blocks: []string{"rele\u0301ase"}}}}
	got := Validate(p, []string{"rel\u00e9ase"})
	require.Len(t, got.Sections, 1)
	assert.Equal(t, []string{"rel\u00e9ase"}, got.Sections[0].Blocks)
}

func TestExtractJSON_Bare(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, ExtractJSON(`sure! {"a": 1,} thanks`))
	assert.Equal(t, "", ExtractJSON("no json here"))
}

func TestExtractJSON_TrailingCommaInsideString(t *testing.T) {
	got := ExtractJSON("{\"reasoning\": \"a, ]\", \"note\": \"x,}\", \"sections\": [\n  \"main\",\n],}")
	assert.JSONEq(t, `{"reasoning": "a, ]", "note": "x,}", "sections": ["main"]}`, got)
	assert.Contains(t, got, `"a, ]"`)
	assert.Contains(t, got, `"x,}"`)
}

func TestStripLineComment_KeepsURLs(t *testing.T) {
	line := `"url": "http://example.com"`
	assert.Equal(t, line, stripLineComment(line))
	assert.Equal(t, `"a": 1,`, stripLineComment(`"a": 1,   // note`))
}

func TestUserPrompt(t *testing.T) {
	hour := 21
	got := userPrompt(Request{
		State:           model.StateWired,
		DurationMinutes: 10,
		BlockCount:      6,
		ValidNames:      []string{"humming", "shaking"},
		LocalHour:       &hour,
	})
	assert.Contains(t, got, "Nervous-system state: wired")
	assert.Contains(t, got, "Intensity: moderate")
	assert.Contains(t, got, "exactly 6")
	assert.Contains(t, got, "21:00 (evening)")
	assert.Contains(t, got, "- shaking\n")
}

func TestTimeOfDay(t *testing.T) {
	assert.Equal(t, "morning", timeOfDay(7))
	assert.Equal(t, "afternoon", timeOfDay(13))
	assert.Equal(t, "evening", timeOfDay(18))
	assert.Equal(t, "night", timeOfDay(2))
	assert.Equal(t, "night", timeOfDay(23))
}
