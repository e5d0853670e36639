package store

import (
	"context"

	"github.com/rcliao/somi-flow/internal/model"
)

// ExportBlocks returns every block, active or not, ordered by canonical name.
func (s *SQLiteStore) ExportBlocks(ctx context.Context) ([]model.Block, error) {
	return s.ListBlocks(ctx, ListBlocksParams{})
}

// ImportBlocks upserts blocks from an export, keyed by canonical name.
// Ids in the input are ignored so imports are idempotent across databases.
func (s *SQLiteStore) ImportBlocks(ctx context.Context, blocks []model.Block) (int, error) {
	imported := 0
	for _, b := range blocks {
		_, err := s.UpsertBlock(ctx, UpsertBlockParams{
			CanonicalName: b.CanonicalName,
			Name:          b.Name,
			Description:   b.Description,
			EnergyDelta:   b.EnergyDelta,
			SafetyDelta:   b.SafetyDelta,
			MediaURL:      b.MediaURL,
			MediaType:     b.MediaType,
			BlockType:     b.BlockType,
			Active:        b.Active,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
