package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/somi-flow/internal/model"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLiteStore) CreateChain(ctx context.Context, p CreateChainParams) (*model.Chain, error) {
	return s.insertChain(ctx, s.db, p.UserID, p.FlowType, time.Now().UTC())
}

func (s *SQLiteStore) insertChain(ctx context.Context, db execer, userID string, ft model.FlowType, now time.Time) (*model.Chain, error) {
	if !model.ValidFlowTypes[ft] {
		return nil, fmt.Errorf("invalid flow type %q (valid: daily_flow, quick_routine)", ft)
	}
	id := s.newID()
	_, err := db.ExecContext(ctx,
		`INSERT INTO chains (id, user_id, flow_type, created_at) VALUES (?, ?, ?, ?)`,
		id, userID, string(ft), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert chain: %w", err)
	}
	return &model.Chain{ID: id, UserID: userID, FlowType: ft, CreatedAt: now}, nil
}

func (s *SQLiteStore) AppendCheckIn(ctx context.Context, chainID string, p CheckInParams) (*model.CheckIn, error) {
	if err := s.chainExists(ctx, chainID); err != nil {
		return nil, err
	}
	return s.insertCheckIn(ctx, s.db, chainID, p, time.Now().UTC())
}

func (s *SQLiteStore) insertCheckIn(ctx context.Context, db execer, chainID string, p CheckInParams, now time.Time) (*model.CheckIn, error) {
	kind := p.Kind
	if kind == "" {
		kind = model.CheckInExit
	}
	var tagsJSON *string
	if len(p.Tags) > 0 {
		b, _ := json.Marshal(p.Tags)
		t := string(b)
		tagsJSON = &t
	}

	id := s.newID()
	_, err := db.ExecContext(ctx,
		`INSERT INTO check_ins (id, chain_id, kind, energy, safety, journal, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, chainID, kind, p.Energy, p.Safety, nullString(p.Journal), tagsJSON, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert check-in: %w", err)
	}
	return &model.CheckIn{
		ID: id, ChainID: chainID, Kind: kind,
		Energy: p.Energy, Safety: p.Safety, Journal: p.Journal, Tags: p.Tags,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) AppendBlock(ctx context.Context, chainID string, p BlockEntryParams) (*model.CompletedBlock, error) {
	if err := s.chainExists(ctx, chainID); err != nil {
		return nil, err
	}
	return s.insertBlockEntry(ctx, s.db, chainID, p, time.Now().UTC())
}

func (s *SQLiteStore) insertBlockEntry(ctx context.Context, db execer, chainID string, p BlockEntryParams, now time.Time) (*model.CompletedBlock, error) {
	if p.BlockID == "" {
		return nil, fmt.Errorf("block id is required")
	}
	id := s.newID()
	_, err := db.ExecContext(ctx,
		`INSERT INTO completed_blocks (id, chain_id, block_id, elapsed_seconds, order_index, section, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, chainID, p.BlockID, p.ElapsedSeconds, p.OrderIndex, string(p.Section), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert completed block: %w", err)
	}
	return &model.CompletedBlock{
		ID: id, ChainID: chainID, BlockID: p.BlockID,
		ElapsedSeconds: p.ElapsedSeconds, OrderIndex: p.OrderIndex, Section: p.Section,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) CommitChain(ctx context.Context, p CommitChainParams) (*model.Chain, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ch, err := s.insertChain(ctx, tx, p.UserID, p.FlowType, now)
	if err != nil {
		return nil, err
	}
	for _, ci := range p.CheckIns {
		c, err := s.insertCheckIn(ctx, tx, ch.ID, ci, now)
		if err != nil {
			return nil, err
		}
		ch.CheckIns = append(ch.CheckIns, *c)
	}
	for _, be := range p.Blocks {
		b, err := s.insertBlockEntry(ctx, tx, ch.ID, be, now)
		if err != nil {
			return nil, err
		}
		ch.Blocks = append(ch.Blocks, *b)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *SQLiteStore) chainExists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM chains WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("chain %s: %w", id, ErrNotFound)
	}
	return err
}

func (s *SQLiteStore) GetChain(ctx context.Context, id string) (*model.Chain, error) {
	var ch model.Chain
	var flowType, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, flow_type, created_at FROM chains WHERE id = ?`, id).
		Scan(&ch.ID, &ch.UserID, &flowType, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chain %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	ch.FlowType = model.FlowType(flowType)
	ch.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	if ch.CheckIns, err = s.listCheckIns(ctx, id); err != nil {
		return nil, err
	}
	if ch.Blocks, err = s.listBlockEntries(ctx, id); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *SQLiteStore) listCheckIns(ctx context.Context, chainID string) ([]model.CheckIn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chain_id, kind, energy, safety, journal, tags, created_at
		 FROM check_ins WHERE chain_id = ? ORDER BY created_at, rowid`, chainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CheckIn
	for rows.Next() {
		var c model.CheckIn
		var journal, tags sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.ChainID, &c.Kind, &c.Energy, &c.Safety, &journal, &tags, &createdAt); err != nil {
			return nil, err
		}
		c.Journal = journal.String
		if tags.Valid {
			json.Unmarshal([]byte(tags.String), &c.Tags)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) listBlockEntries(ctx context.Context, chainID string) ([]model.CompletedBlock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chain_id, block_id, elapsed_seconds, order_index, section, created_at
		 FROM completed_blocks WHERE chain_id = ? ORDER BY order_index, rowid`, chainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CompletedBlock
	for rows.Next() {
		var b model.CompletedBlock
		var section, createdAt string
		if err := rows.Scan(&b.ID, &b.ChainID, &b.BlockID, &b.ElapsedSeconds, &b.OrderIndex, &section, &createdAt); err != nil {
			return nil, err
		}
		b.Section = model.Section(section)
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListChains(ctx context.Context, p ListChainsParams) ([]model.Chain, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"1 = 1"}
	var args []interface{}
	if p.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, p.UserID)
	}
	if p.FlowType != "" {
		where = append(where, "flow_type = ?")
		args = append(args, string(p.FlowType))
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, flow_type, created_at FROM chains
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC, id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chains []model.Chain
	for rows.Next() {
		var ch model.Chain
		var flowType, createdAt string
		if err := rows.Scan(&ch.ID, &ch.UserID, &flowType, &createdAt); err != nil {
			return nil, err
		}
		ch.FlowType = model.FlowType(flowType)
		ch.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		chains = append(chains, ch)
	}
	return chains, rows.Err()
}

func (s *SQLiteStore) DeleteChain(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chains WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("chain %s: %w", id, ErrNotFound)
	}
	return nil
}
