package model

import "time"

// FlowType discriminates how a chain is committed.
type FlowType string

const (
	// FlowDaily chains are buffered and committed once on full completion.
	FlowDaily FlowType = "daily_flow"
	// FlowQuick chains are created up front and appended per event.
	FlowQuick FlowType = "quick_routine"
)

// ValidFlowTypes are the allowed flow types.
var ValidFlowTypes = map[FlowType]bool{
	FlowDaily: true,
	FlowQuick: true,
}

// Check-in kinds.
const (
	CheckInEntry = "entry"
	CheckInExit  = "exit"
)

// Embodiment is a self-reported energy/safety snapshot on a 0..100 scale.
type Embodiment struct {
	Energy  float64  `json:"energy"`
	Safety  float64  `json:"safety"`
	Journal string   `json:"journal,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// CheckIn is a persisted embodiment snapshot within a chain.
type CheckIn struct {
	ID        string    `json:"id"`
	ChainID   string    `json:"chain_id"`
	Kind      string    `json:"kind"`
	Energy    float64   `json:"energy"`
	Safety    float64   `json:"safety"`
	Journal   string    `json:"journal,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CompletedBlock records one finished block within a chain.
type CompletedBlock struct {
	ID             string    `json:"id"`
	ChainID        string    `json:"chain_id"`
	BlockID        string    `json:"block_id"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	OrderIndex     int       `json:"order_index"`
	Section        Section   `json:"section"`
	CreatedAt      time.Time `json:"created_at"`
}

// Chain is the durable record of one finished (or streamed) session.
type Chain struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	FlowType  FlowType         `json:"flow_type"`
	CreatedAt time.Time        `json:"created_at"`
	CheckIns  []CheckIn        `json:"check_ins,omitempty"`
	Blocks    []CompletedBlock `json:"blocks,omitempty"`
}
