package store

import (
	"context"

	"github.com/rcliao/somi-flow/internal/model"
)

// SearchBlocks finds blocks whose canonical name, display name or
// description contains query.
func (s *SQLiteStore) SearchBlocks(ctx context.Context, query string, limit int) ([]model.Block, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+blockColumns+` FROM blocks
		 WHERE canonical_name LIKE ? OR name LIKE ? OR description LIKE ?
		 ORDER BY active DESC, canonical_name
		 LIMIT ?`, like, like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []model.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
