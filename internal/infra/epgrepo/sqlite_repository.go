package epgrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/yanqian/epg-server/internal/domain/epg"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS epg_data (
		date     TEXT NOT NULL,
		channel  TEXT NOT NULL,
		epg_diyp TEXT,
		PRIMARY KEY (channel, date)
	);
	CREATE INDEX IF NOT EXISTS idx_epg_data_date ON epg_data(date);
`

// ?1 is the cleaned channel name, ?2 the date.
const sqliteFindBest = `
	SELECT channel, date, epg_diyp, tier, tie FROM (
		SELECT channel, date, epg_diyp,
			CASE
				WHEN channel = ?1 THEN 1
				WHEN substr(channel, 1, length(?1)) = ?1 THEN 2
				ELSE 3
			END AS tier,
			CASE
				WHEN channel = ?1 THEN 0
				WHEN substr(channel, 1, length(?1)) = ?1 THEN length(channel)
				ELSE -length(channel)
			END AS tie
		FROM epg_data
		WHERE date = ?2
			AND (channel = ?1
				OR substr(channel, 1, length(?1)) = ?1
				OR (channel <> '' AND instr(?1, channel) > 0))
	)
	ORDER BY tier, tie, channel
	LIMIT 1
`

// SQLiteRepository reads program records from the ingestion database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and makes sure the table exists.
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

// NewSQLiteRepository wraps an open database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert writes one record. The service itself never writes; this serves
// tests and local seeding.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec epg.ProgramRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO epg_data (date, channel, epg_diyp)
		VALUES (?, ?, ?)
		ON CONFLICT(channel, date) DO UPDATE SET epg_diyp = excluded.epg_diyp
	`, rec.Date, rec.Channel, string(rec.Payload))
	return err
}

// FindBest implements epg.Repository.
func (r *SQLiteRepository) FindBest(ctx context.Context, date, channel string) (epg.MatchCandidate, bool, error) {
	row := r.db.QueryRowContext(ctx, sqliteFindBest, channel, date)
	cand, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return epg.MatchCandidate{}, false, nil
	}
	if err != nil {
		return epg.MatchCandidate{}, false, err
	}
	return cand, true, nil
}

// Close releases the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (epg.MatchCandidate, error) {
	var (
		cand    epg.MatchCandidate
		payload sql.NullString
		tier    int
	)
	if err := row.Scan(&cand.Record.Channel, &cand.Record.Date, &payload, &tier, &cand.TieBreak); err != nil {
		return epg.MatchCandidate{}, err
	}
	cand.Record.Payload = []byte(payload.String)
	cand.Tier = epg.Tier(tier)
	return cand, nil
}

var _ epg.Repository = (*SQLiteRepository)(nil)
