package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/somi-flow/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// newID returns a ULID. The entropy source is not goroutine-safe, and the
// server shares one store across requests.
func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blocks (
		id             TEXT PRIMARY KEY,
		canonical_name TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		description    TEXT,
		energy_delta   INTEGER NOT NULL DEFAULT 0,
		safety_delta   INTEGER NOT NULL DEFAULT 0,
		media_url      TEXT,
		media_type     TEXT NOT NULL DEFAULT 'video',
		block_type     TEXT NOT NULL DEFAULT 'vagal_toning',
		active         INTEGER NOT NULL DEFAULT 1,
		created_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_blocks_catalog ON blocks(active, media_type, block_type);

	CREATE TABLE IF NOT EXISTS chains (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		flow_type  TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chains_user ON chains(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS check_ins (
		id         TEXT PRIMARY KEY,
		chain_id   TEXT NOT NULL REFERENCES chains(id) ON DELETE CASCADE,
		kind       TEXT NOT NULL,
		energy     REAL NOT NULL,
		safety     REAL NOT NULL,
		journal    TEXT,
		tags       TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_check_ins_chain ON check_ins(chain_id);

	CREATE TABLE IF NOT EXISTS completed_blocks (
		id              TEXT PRIMARY KEY,
		chain_id        TEXT NOT NULL REFERENCES chains(id) ON DELETE CASCADE,
		block_id        TEXT NOT NULL,
		elapsed_seconds INTEGER NOT NULL,
		order_index     INTEGER NOT NULL,
		section         TEXT NOT NULL,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_completed_blocks_chain ON completed_blocks(chain_id, order_index);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) UpsertBlock(ctx context.Context, p UpsertBlockParams) (*model.Block, error) {
	if strings.TrimSpace(p.CanonicalName) == "" {
		return nil, fmt.Errorf("canonical name is required")
	}
	name := p.Name
	if name == "" {
		name = p.CanonicalName
	}
	mediaType := p.MediaType
	if mediaType == "" {
		mediaType = model.MediaTypeVideo
	}
	blockType := p.BlockType
	if blockType == "" {
		blockType = model.BlockTypeVagalToning
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blocks (id, canonical_name, name, description, energy_delta, safety_delta,
		                     media_url, media_type, block_type, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(canonical_name) DO UPDATE SET
		   name = excluded.name,
		   description = excluded.description,
		   energy_delta = excluded.energy_delta,
		   safety_delta = excluded.safety_delta,
		   media_url = excluded.media_url,
		   media_type = excluded.media_type,
		   block_type = excluded.block_type,
		   active = excluded.active`,
		s.newID(), p.CanonicalName, name, nullString(p.Description), p.EnergyDelta, p.SafetyDelta,
		nullString(p.MediaURL), mediaType, blockType, p.Active, now)
	if err != nil {
		return nil, fmt.Errorf("upsert block: %w", err)
	}
	return s.GetBlock(ctx, p.CanonicalName)
}

const blockColumns = `id, canonical_name, name, description, energy_delta, safety_delta,
	media_url, media_type, block_type, active, created_at`

func (s *SQLiteStore) ListBlocks(ctx context.Context, p ListBlocksParams) ([]model.Block, error) {
	where := []string{"1 = 1"}
	var args []interface{}

	if p.ActiveOnly {
		where = append(where, "active = 1")
	}
	if p.MediaType != "" {
		where = append(where, "media_type = ?")
		args = append(args, p.MediaType)
	}
	if p.BlockType != "" {
		where = append(where, "block_type = ?")
		args = append(args, p.BlockType)
	}

	query := `SELECT ` + blockColumns + ` FROM blocks WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY canonical_name`
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) GetBlock(ctx context.Context, idOrName string) (*model.Block, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE id = ? OR canonical_name = ? LIMIT 1`,
		idOrName, idOrName)
	b, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("block %s: %w", idOrName, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBlock(row scanner) (model.Block, error) {
	var b model.Block
	var description, mediaURL sql.NullString
	var createdAt string

	err := row.Scan(
		&b.ID, &b.CanonicalName, &b.Name, &description, &b.EnergyDelta, &b.SafetyDelta,
		&mediaURL, &b.MediaType, &b.BlockType, &b.Active, &createdAt,
	)
	if err != nil {
		return b, err
	}
	b.Description = description.String
	b.MediaURL = mediaURL.String
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return b, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
