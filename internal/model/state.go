package model

import (
	"fmt"
	"math"
)

// TargetState is a coarse self-reported nervous-system category.
type TargetState string

const (
	StateShutdown TargetState = "shutdown"
	StateRestful  TargetState = "restful"
	StateWired    TargetState = "wired"
	StateGlowing  TargetState = "glowing"
	StateSteady   TargetState = "steady"
)

// ValidStates are the allowed target states.
var ValidStates = map[TargetState]bool{
	StateShutdown: true,
	StateRestful:  true,
	StateWired:    true,
	StateGlowing:  true,
	StateSteady:   true,
}

// SteadyRadius is the distance from the neutral center (50,50) under which
// a self-report classifies as steady.
const SteadyRadius = 15.0

// ParseState validates a state name.
func ParseState(s string) (TargetState, error) {
	st := TargetState(s)
	if !ValidStates[st] {
		return "", fmt.Errorf("invalid state %q (valid: shutdown, restful, wired, glowing, steady)", s)
	}
	return st, nil
}

// ClassifyState maps a 0..100 energy/safety self-report to a target state.
func ClassifyState(energy, safety float64) TargetState {
	if math.Hypot(energy-50, safety-50) < SteadyRadius {
		return StateSteady
	}
	switch {
	case energy < 50 && safety >= 50:
		return StateRestful
	case energy >= 50 && safety >= 50:
		return StateGlowing
	case energy < 50 && safety < 50:
		return StateShutdown
	default:
		return StateWired
	}
}
