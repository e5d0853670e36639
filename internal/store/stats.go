package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath          string          `json:"db_path"`
	DBSizeBytes     int64           `json:"db_size_bytes"`
	TotalBlocks     int             `json:"total_blocks"`
	ActiveBlocks    int             `json:"active_blocks"`
	TotalChains     int             `json:"total_chains"`
	TotalCheckIns   int             `json:"total_check_ins"`
	CompletedBlocks int             `json:"completed_blocks"`
	PracticeSeconds int             `json:"practice_seconds"`
	FlowTypes       []FlowTypeStats `json:"flow_types"`
}

// FlowTypeStats holds per-flow-type counts.
type FlowTypeStats struct {
	FlowType string `json:"flow_type"`
	Chains   int    `json:"chains"`
	Users    int    `json:"users"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks`).Scan(&st.TotalBlocks)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks WHERE active = 1`).Scan(&st.ActiveBlocks)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chains`).Scan(&st.TotalChains)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM check_ins`).Scan(&st.TotalCheckIns)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(elapsed_seconds), 0) FROM completed_blocks`).
		Scan(&st.CompletedBlocks, &st.PracticeSeconds)

	rows, err := s.db.QueryContext(ctx, `
		SELECT flow_type, COUNT(*) AS cnt, COUNT(DISTINCT user_id) AS users
		FROM chains GROUP BY flow_type ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ft FlowTypeStats
		rows.Scan(&ft.FlowType, &ft.Chains, &ft.Users)
		st.FlowTypes = append(st.FlowTypes, ft)
	}

	return st, nil
}
