package epgrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/epg-server/internal/domain/epg"
)

// epg_diyp must stay text or json; jsonb would reorder the document keys.
const postgresFindBest = `
	SELECT channel, date, epg_diyp, tier, tie FROM (
		SELECT channel, date::text AS date, epg_diyp::text AS epg_diyp,
			CASE
				WHEN channel = $1::text THEN 1
				WHEN left(channel, length($1::text)) = $1::text THEN 2
				ELSE 3
			END AS tier,
			CASE
				WHEN channel = $1::text THEN 0
				WHEN left(channel, length($1::text)) = $1::text THEN length(channel)
				ELSE -length(channel)
			END AS tie
		FROM epg_data
		WHERE date::text = $2::text
			AND (channel = $1::text
				OR left(channel, length($1::text)) = $1::text
				OR (channel <> '' AND strpos($1::text, channel) > 0))
	) ranked
	ORDER BY tier, tie, channel COLLATE "C"
	LIMIT 1
`

// PostgresRepository implements epg.Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindBest implements epg.Repository.
func (r *PostgresRepository) FindBest(ctx context.Context, date, channel string) (epg.MatchCandidate, bool, error) {
	row := r.pool.QueryRow(ctx, postgresFindBest, channel, date)
	cand, err := scanCandidate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return epg.MatchCandidate{}, false, nil
	}
	if err != nil {
		return epg.MatchCandidate{}, false, err
	}
	return cand, true, nil
}

// Close releases the pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

var _ epg.Repository = (*PostgresRepository)(nil)
