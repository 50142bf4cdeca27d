package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifan077/PowerQR/internal/app/model"
)

type pgxStatsReader struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPgxVisitStatsReader returns a VisitStatsReader that queries Postgres through pool,
// typically pointed at a read replica.
func NewPgxVisitStatsReader(pool *pgxpool.Pool, timeout time.Duration) VisitStatsReader {
	return &pgxStatsReader{pool: pool, timeout: timeout}
}

func (r *pgxStatsReader) CountBy(ctx context.Context, mappingID string, since time.Time, dim Dimension) ([]model.LabelCount, error) {
	col, err := columnFor(dim)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*)
		FROM visits
		WHERE mapping_id = $1 AND created_at >= $2
		GROUP BY %[1]s`, col)
	return r.collect(ctx, query, mappingID, since)
}

func (r *pgxStatsReader) CountByDay(ctx context.Context, mappingID string, since time.Time) ([]model.LabelCount, error) {
	const query = `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM visits
		WHERE mapping_id = $1 AND created_at >= $2
		GROUP BY day
		ORDER BY day`
	return r.collect(ctx, query, mappingID, since)
}

func (r *pgxStatsReader) collect(ctx context.Context, query, mappingID string, since time.Time) ([]model.LabelCount, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, mappingID, since.UTC())
	if err != nil {
		return nil, translate(err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LabelCount, error) {
		var lc model.LabelCount
		err := row.Scan(&lc.Label, &lc.Count)
		return lc, err
	})
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}
