// Package store provides the block catalog and chain storage interface and
// its SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/somi-flow/internal/model"
)

// ErrNotFound is returned when a block or chain does not exist.
var ErrNotFound = errors.New("not found")

// UpsertBlockParams holds parameters for storing a catalog block.
type UpsertBlockParams struct {
	CanonicalName string
	Name          string
	Description   string
	EnergyDelta   int
	SafetyDelta   int
	MediaURL      string
	MediaType     string
	BlockType     string
	Active        bool
}

// ListBlocksParams holds catalog filters. Empty strings match anything.
type ListBlocksParams struct {
	ActiveOnly bool
	MediaType  string
	BlockType  string
}

// CatalogQuery is the filter used to build flows: active vagal-toning videos.
func CatalogQuery() ListBlocksParams {
	return ListBlocksParams{
		ActiveOnly: true,
		MediaType:  model.MediaTypeVideo,
		BlockType:  model.BlockTypeVagalToning,
	}
}

// CreateChainParams holds parameters for creating an empty chain.
type CreateChainParams struct {
	UserID   string
	FlowType model.FlowType
}

// CheckInParams holds one embodiment check-in.
type CheckInParams struct {
	Kind string
	model.Embodiment
}

// BlockEntryParams holds one completed block.
type BlockEntryParams struct {
	BlockID        string
	ElapsedSeconds int
	OrderIndex     int
	Section        model.Section
}

// CommitChainParams holds a whole buffered chain.
type CommitChainParams struct {
	UserID   string
	FlowType model.FlowType
	CheckIns []CheckInParams
	Blocks   []BlockEntryParams
}

// ListChainsParams holds parameters for listing chains.
type ListChainsParams struct {
	UserID   string
	FlowType model.FlowType
	Limit    int
}

// Store defines the catalog and chain storage interface.
type Store interface {
	// UpsertBlock creates or updates a block keyed by canonical name.
	UpsertBlock(ctx context.Context, p UpsertBlockParams) (*model.Block, error)

	// ListBlocks lists catalog blocks matching the filters.
	ListBlocks(ctx context.Context, p ListBlocksParams) ([]model.Block, error)

	// GetBlock fetches a block by id or canonical name.
	GetBlock(ctx context.Context, idOrName string) (*model.Block, error)

	// CreateChain creates an empty chain for streaming appends.
	CreateChain(ctx context.Context, p CreateChainParams) (*model.Chain, error)

	// AppendCheckIn adds a check-in to an existing chain.
	AppendCheckIn(ctx context.Context, chainID string, p CheckInParams) (*model.CheckIn, error)

	// AppendBlock adds a completed block to an existing chain.
	AppendBlock(ctx context.Context, chainID string, p BlockEntryParams) (*model.CompletedBlock, error)

	// CommitChain writes a chain with all its entries in one transaction.
	CommitChain(ctx context.Context, p CommitChainParams) (*model.Chain, error)

	// GetChain fetches a chain with its check-ins and blocks.
	GetChain(ctx context.Context, id string) (*model.Chain, error)

	// ListChains lists chains newest first, without entries.
	ListChains(ctx context.Context, p ListChainsParams) ([]model.Chain, error)

	// DeleteChain removes a chain and, by cascade, its entries.
	DeleteChain(ctx context.Context, id string) error

	// Close closes the store.
	Close() error
}
