package store

import (
	"context"
	"fmt"

	"github.com/roach88/cellar/internal/wine"
)

const insertWineSQL = `
	INSERT INTO wine
	(id, title, variety, country, region, winery, color, vintage, description,
	 score_percent, abv, price, average_rating)
	VALUES (NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertWines inserts rows in a single transaction and returns the generated
// ids in insertion order.
//
// Either every row is committed or none is: any failure rolls the whole call
// back and returns no ids.
func (s *Store) InsertWines(ctx context.Context, rows []wine.Fields) ([]int64, error) {
	if len(rows) == 0 {
		return []int64{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("insert wines: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, insertWineSQL)
	if err != nil {
		return nil, fmt.Errorf("insert wines: prepare: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(rows))
	for i, f := range rows {
		result, err := stmt.ExecContext(ctx,
			f.Title,
			f.Variety,
			f.Country,
			f.Region,
			f.Winery,
			f.Color,
			f.Vintage,
			f.Description,
			f.ScorePercent,
			f.ABV,
			f.Price,
			f.AverageRating,
		)
		if err != nil {
			return nil, fmt.Errorf("insert wines: row %d: %w", i, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert wines: row %d: last insert id: %w", i, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("insert wines: commit: %w", err)
	}

	return ids, nil
}

// UpdateWineField writes one column of one wine.
// Returns the number of rows affected (0 if the id no longer exists).
//
// The column name comes from wine.Field, never from caller-supplied text.
func (s *Store) UpdateWineField(ctx context.Context, id int64, field wine.Field, value any) (int64, error) {
	if !field.Valid() {
		return 0, fmt.Errorf("update wine: unknown field %v", field)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE wine SET "+field.Column()+" = ? WHERE id = ?",
		value, id,
	)
	if err != nil {
		return 0, fmt.Errorf("update wine %d %s: %w", id, field, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update wine %d %s: rows affected: %w", id, field, err)
	}
	return n, nil
}

// DeleteAllWines removes every wine (and, via cascade, every review).
func (s *Store) DeleteAllWines(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM wine")
	if err != nil {
		return 0, fmt.Errorf("delete wines: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete wines: rows affected: %w", err)
	}
	return n, nil
}
