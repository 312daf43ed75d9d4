package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/cellar/internal/querysql"
	"github.com/roach88/cellar/internal/wine"
)

// WineRow is one materialized wine row.
type WineRow struct {
	ID     int64
	Fields wine.Fields
	Geo    *wine.GeoLocation // nil when the region matched no geolocation
}

// QueryWines runs a compiled wine read and returns every row in result order.
// Returns an empty slice (not nil) when nothing matches.
//
// The rows are fully drained and closed before returning, so callers may issue
// further statements while processing the result.
func (s *Store) QueryWines(ctx context.Context, q querysql.Query) ([]WineRow, error) {
	rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query wines: %w", err)
	}
	defer rows.Close()

	result := []WineRow{}
	for rows.Next() {
		row, err := scanWine(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wines: %w", err)
	}

	return result, nil
}

// QueryWine runs a compiled wine read and returns its first row.
// The bool is false when there is no row; that is not an error.
func (s *Store) QueryWine(ctx context.Context, q querysql.Query) (WineRow, bool, error) {
	rows, err := s.QueryWines(ctx, q)
	if err != nil {
		return WineRow{}, false, err
	}
	if len(rows) == 0 {
		return WineRow{}, false, nil
	}
	return rows[0], true, nil
}

// ReadWine loads a wine row by id directly from storage.
func (s *Store) ReadWine(ctx context.Context, id int64) (WineRow, bool, error) {
	return s.QueryWine(ctx, querysql.SelectByID(id))
}

// CountWines runs a compiled COUNT(*) statement.
func (s *Store) CountWines(ctx context.Context, q querysql.Query) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, q.SQL, q.Args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count wines: %w", err)
	}
	return n, nil
}

// ForEachWine streams the columns that feed aggregate statistics. Only Title,
// Country, Winery, Color, Vintage, ScorePercent, ABV and Price are populated.
//
// fn must not call back into the store: the single connection is busy until
// the iteration ends.
func (s *Store) ForEachWine(ctx context.Context, fn func(wine.Fields) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, COALESCE(country, ''), COALESCE(winery, ''), COALESCE(color, ''),
		       COALESCE(vintage, 0), COALESCE(score_percent, 0), COALESCE(abv, 0), COALESCE(price, 0)
		FROM wine
		ORDER BY id ASC
	`)
	if err != nil {
		return fmt.Errorf("scan wines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f wine.Fields
		if err := rows.Scan(
			&f.Title, &f.Country, &f.Winery, &f.Color,
			&f.Vintage, &f.ScorePercent, &f.ABV, &f.Price,
		); err != nil {
			return fmt.Errorf("scan wines: %w", err)
		}
		if err := fn(f); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate wines: %w", err)
	}
	return nil
}

// scanWine scans a row projected with querysql.WineColumns.
func scanWine(rows *sql.Rows) (WineRow, error) {
	var row WineRow
	var lat, lng sql.NullFloat64
	f := &row.Fields

	if err := rows.Scan(
		&row.ID, &f.Title, &f.Variety, &f.Country, &f.Region, &f.Winery, &f.Color,
		&f.Vintage, &f.Description, &f.ScorePercent, &f.ABV, &f.Price, &f.AverageRating,
		&lat, &lng,
	); err != nil {
		return WineRow{}, fmt.Errorf("scan wine: %w", err)
	}

	if lat.Valid && lng.Valid {
		row.Geo = &wine.GeoLocation{Latitude: lat.Float64, Longitude: lng.Float64}
	}

	return row, nil
}
