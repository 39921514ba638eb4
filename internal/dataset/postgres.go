package dataset

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scoopstand/api/internal/service"
)

// Schema creates the table PostgresSource reads from. One row per
// (country, category); position keeps the CSV column order.
const Schema = `
CREATE TABLE IF NOT EXISTS mbti_ratios (
	country  TEXT NOT NULL,
	category TEXT NOT NULL,
	position INT  NOT NULL,
	ratio    DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (country, category)
)`

const (
	listCountriesSQL = `SELECT DISTINCT country FROM mbti_ratios ORDER BY country`
	lookupSQL        = `SELECT category, ratio FROM mbti_ratios WHERE country = $1 ORDER BY position`
)

// Querier is the subset of pgxpool.Pool used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ Querier = (*pgxpool.Pool)(nil)

// PostgresSource serves the dataset from the mbti_ratios table.
type PostgresSource struct {
	db Querier
}

// NewPostgresSource creates a PostgresSource over a pool (or any Querier).
func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

// Countries returns every country in the table, sorted ascending. An empty
// table is reported as unavailable, the same as a missing CSV file.
func (s *PostgresSource) Countries(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, listCountriesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: list countries: %w", ErrDataUnavailable, err)
	}

	countries, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: scan countries: %w", ErrDataUnavailable, err)
	}
	if len(countries) == 0 {
		return nil, fmt.Errorf("%w: mbti_ratios has no rows", ErrDataUnavailable)
	}
	return countries, nil
}

// Lookup returns the country's ratios in column order.
func (s *PostgresSource) Lookup(ctx context.Context, country string) ([]service.CategoryRow, error) {
	rows, err := s.db.Query(ctx, lookupSQL, country)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %q: %w", ErrDataUnavailable, country, err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (service.CategoryRow, error) {
		var r service.CategoryRow
		err := row.Scan(&r.Category, &r.Ratio)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan %q: %w", ErrDataUnavailable, country, err)
	}
	if len(result) == 0 {
		return nil, ErrCountryNotFound
	}
	for _, r := range result {
		if math.IsNaN(r.Ratio) || math.IsInf(r.Ratio, 0) {
			return nil, fmt.Errorf("%w: %q: %s: invalid ratio %v", ErrDataUnavailable, country, r.Category, r.Ratio)
		}
	}
	return result, nil
}

// Import replaces the table contents with the given source's data, inside tx.
func Import(ctx context.Context, tx pgx.Tx, src *CSVSource) (int, error) {
	if _, err := tx.Exec(ctx, Schema); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}
	if _, err := tx.Exec(ctx, `TRUNCATE mbti_ratios`); err != nil {
		return 0, fmt.Errorf("truncate: %w", err)
	}

	countries, err := src.Countries(ctx)
	if err != nil {
		return 0, err
	}

	var rows [][]any
	for _, country := range countries {
		ratios, err := src.Lookup(ctx, country)
		if err != nil {
			return 0, err
		}
		for pos, r := range ratios {
			rows = append(rows, []any{country, r.Category, int32(pos), r.Ratio})
		}
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"mbti_ratios"},
		[]string{"country", "category", "position", "ratio"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy rows: %w", err)
	}
	return int(n), nil
}
