package model

import "testing"

func TestClassifyState(t *testing.T) {
	tests := []struct {
		energy, safety float64
		want           TargetState
	}{
		{50, 50, StateSteady},
		{60, 55, StateSteady},
		{20, 80, StateRestful},
		{80, 80, StateGlowing},
		{20, 20, StateShutdown},
		{80, 20, StateWired},
		{50, 10, StateWired},
		{49, 50 + SteadyRadius, StateRestful},
	}
	for _, tt := range tests {
		if got := ClassifyState(tt.energy, tt.safety); got != tt.want {
			t.Errorf("ClassifyState(%v, %v) = %s, want %s", tt.energy, tt.safety, got, tt.want)
		}
	}
}

func TestParseState(t *testing.T) {
	if _, err := ParseState("wired"); err != nil {
		t.Errorf("expected wired to parse: %v", err)
	}
	if _, err := ParseState("anxious"); err == nil {
		t.Error("expected error for unknown state")
	}
}
