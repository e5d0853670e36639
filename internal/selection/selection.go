// Package selection filters, samples and sections catalog blocks for a flow.
package selection

import (
	"math/rand/v2"

	"github.com/rcliao/somi-flow/internal/model"
)

// statePredicates decide which blocks suit a target state.
var statePredicates = map[model.TargetState]func(model.Block) bool{
	model.StateShutdown: func(b model.Block) bool { return b.EnergyDelta > 0 && b.SafetyDelta >= 0 },
	model.StateRestful:  func(b model.Block) bool { return b.EnergyDelta >= 0 },
	model.StateWired:    func(b model.Block) bool { return b.SafetyDelta > 0 },
	model.StateGlowing:  func(b model.Block) bool { return b.SafetyDelta >= 0 },
	model.StateSteady:   func(model.Block) bool { return true },
}

// FilterByState returns the blocks of pool that suit state. If nothing
// matches, the full pool is returned so a non-empty catalog always yields
// candidates.
func FilterByState(pool []model.Block, state model.TargetState) []model.Block {
	pred, ok := statePredicates[state]
	if !ok {
		return pool
	}
	var out []model.Block
	for _, b := range pool {
		if pred(b) {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return pool
	}
	return out
}

// SelectBlocks draws count blocks from candidates using the default random
// source. See SelectBlocksRand.
func SelectBlocks(candidates []model.Block, count int) []model.Block {
	return SelectBlocksRand(nil, candidates, count)
}

// SelectBlocksRand draws count blocks by walking shuffled decks of the
// candidates. A fresh deck is shuffled whenever the current one runs out.
// Blocks repeat once count exceeds the pool, but two adjacent picks never
// share an id unless the pool holds a single distinct id. A nil r uses the
// package-level source.
func SelectBlocksRand(r *rand.Rand, candidates []model.Block, count int) []model.Block {
	if len(candidates) == 0 || count <= 0 {
		return []model.Block{}
	}
	shuffle := rand.Shuffle
	if r != nil {
		shuffle = r.Shuffle
	}

	out := make([]model.Block, 0, count)
	deck := make([]model.Block, len(candidates))
	pos := len(deck)

	for len(out) < count {
		if pos == len(deck) {
			copy(deck, candidates)
			shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
			pos = 0
		}
		if len(out) > 0 && deck[pos].ID == out[len(out)-1].ID {
			swapForward(deck, pos, out[len(out)-1].ID)
		}
		out = append(out, deck[pos])
		pos++
	}
	return out
}

// swapForward moves the first later block with a different id into deck[pos].
// When every remaining block shares prevID it looks backwards instead, so the
// walk only repeats when the pool has one distinct id.
func swapForward(deck []model.Block, pos int, prevID string) {
	for j := pos + 1; j < len(deck); j++ {
		if deck[j].ID != prevID {
			deck[pos], deck[j] = deck[j], deck[pos]
			return
		}
	}
	for j := pos - 1; j >= 0; j-- {
		if deck[j].ID != prevID {
			deck[pos], deck[j] = deck[j], deck[pos]
			return
		}
	}
}

// AssignSections labels blocks by position: a single block is main, two
// blocks are warm_up then main, and longer lists open with warm_up and close
// with integration.
func AssignSections(selected []model.Block) []model.SectionedBlock {
	out := make([]model.SectionedBlock, len(selected))
	n := len(selected)
	for i, b := range selected {
		out[i] = model.SectionedBlock{Block: b, Section: sectionAt(i, n)}
	}
	return out
}

func sectionAt(i, n int) model.Section {
	switch {
	case n == 1:
		return model.SectionMain
	case i == 0:
		return model.SectionWarmUp
	case n >= 3 && i == n-1:
		return model.SectionIntegration
	default:
		return model.SectionMain
	}
}
