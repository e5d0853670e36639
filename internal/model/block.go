// Package model defines the core practice data types.
package model

import "time"

// Block represents one atomic recorded exercise from the catalog.
type Block struct {
	ID            string    `json:"id" yaml:"id,omitempty"`
	CanonicalName string    `json:"canonical_name" yaml:"canonical_name"`
	Name          string    `json:"name" yaml:"name"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
	EnergyDelta   int       `json:"energy_delta" yaml:"energy_delta"`
	SafetyDelta   int       `json:"safety_delta" yaml:"safety_delta"`
	MediaURL      string    `json:"media_url,omitempty" yaml:"media_url,omitempty"`
	MediaType     string    `json:"media_type" yaml:"media_type"`
	BlockType     string    `json:"block_type" yaml:"block_type"`
	Active        bool      `json:"active" yaml:"active"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at,omitempty"`
}

const (
	// MediaTypeVideo is the only media type the flow generator plays.
	MediaTypeVideo = "video"
	// BlockTypeVagalToning is the block type used for flows.
	BlockTypeVagalToning = "vagal_toning"
)
