package store

import (
	"context"
	"fmt"
	"time"
)

// ReviewRow is one stored review. A user reviews a wine at most once.
type ReviewRow struct {
	ID          int64
	WineID      int64
	Username    string
	Rating      float64
	Description string
	CreatedAt   time.Time
}

// UpsertReview inserts the review, or replaces rating, description and
// timestamp of the user's existing review of the same wine. Returns the row id.
//
// Note: the wine referenced by WineID must exist (foreign key constraint).
func (s *Store) UpsertReview(ctx context.Context, r ReviewRow) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO wine_review (wine_id, username, rating, description, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(wine_id, username) DO UPDATE SET
			rating = excluded.rating,
			description = excluded.description,
			created_at = excluded.created_at
		RETURNING id
	`,
		r.WineID,
		r.Username,
		r.Rating,
		r.Description,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert review: %w", err)
	}
	return id, nil
}

// DeleteReview removes a user's review of a wine. Reports whether one existed.
func (s *Store) DeleteReview(ctx context.Context, wineID int64, username string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM wine_review WHERE wine_id = ? AND username = ?",
		wineID, username,
	)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete review: rows affected: %w", err)
	}
	return n > 0, nil
}

// ReviewsForWine returns a wine's reviews ordered by id.
func (s *Store) ReviewsForWine(ctx context.Context, wineID int64) ([]ReviewRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wine_id, username, rating, description, created_at
		FROM wine_review
		WHERE wine_id = ?
		ORDER BY id ASC
	`, wineID)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []ReviewRow{}
	for rows.Next() {
		var r ReviewRow
		var created string
		if err := rows.Scan(&r.ID, &r.WineID, &r.Username, &r.Rating, &r.Description, &created); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("scan review %d: created_at: %w", r.ID, err)
		}
		reviews = append(reviews, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}

// AverageRating returns the mean rating of a wine's reviews and their count.
// A wine without reviews averages 0.
func (s *Store) AverageRating(ctx context.Context, wineID int64) (float64, int, error) {
	var avg float64
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM wine_review WHERE wine_id = ?",
		wineID,
	).Scan(&avg, &n)
	if err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	return avg, n, nil
}
