package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cellar/internal/wine"
)

// Geolocation maps a location name to coordinates.
type Geolocation struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// PutGeolocations inserts or replaces geolocations in one transaction.
//
// The catalogue never calls this; it exists for the seeding path (CLI, fixtures).
// Names are unique case-insensitively.
func (s *Store) PutGeolocations(ctx context.Context, locs []Geolocation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put geolocations: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO geolocation (name, latitude, longitude)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude
	`)
	if err != nil {
		return fmt.Errorf("put geolocations: prepare: %w", err)
	}
	defer stmt.Close()

	for _, loc := range locs {
		if _, err := stmt.ExecContext(ctx, loc.Name, loc.Latitude, loc.Longitude); err != nil {
			return fmt.Errorf("put geolocation %q: %w", loc.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put geolocations: commit: %w", err)
	}
	return nil
}

// CountGeolocations returns the number of known locations.
func (s *Store) CountGeolocations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM geolocation").Scan(&n); err != nil {
		return 0, fmt.Errorf("count geolocations: %w", err)
	}
	return n, nil
}

// MatchGeolocations returns the coordinates for each of regions that names a
// known location, keyed by the region as given. Matching ignores case the same
// way the wine read path does. Unmatched regions are absent from the result.
func (s *Store) MatchGeolocations(ctx context.Context, regions []string) (map[string]wine.GeoLocation, error) {
	out := make(map[string]wine.GeoLocation)
	if len(regions) == 0 {
		return out, nil
	}

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT latitude, longitude FROM geolocation WHERE LOWER(name) = LOWER(?)
	`)
	if err != nil {
		return nil, fmt.Errorf("match geolocations: prepare: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]bool, len(regions))
	for _, region := range regions {
		if seen[region] {
			continue
		}
		seen[region] = true

		var g wine.GeoLocation
		err := stmt.QueryRowContext(ctx, region).Scan(&g.Latitude, &g.Longitude)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("match geolocation %q: %w", region, err)
		}
		out[region] = g
	}
	return out, nil
}
