// Package reviews aggregates per-user wine reviews into each wine's average
// rating.
//
// The average is written through the wine's own setter, so the catalogue's
// write-through path persists it like any other field.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/roach88/cellar/internal/store"
	"github.com/roach88/cellar/internal/validate"
	"github.com/roach88/cellar/internal/wine"
)

const (
	// MaxDescription is the longest review text accepted, in characters.
	MaxDescription = 255

	MinRating = 0.0
	MaxRating = 5.0
)

// ErrWineNotFound is returned when a review targets an unknown wine.
var ErrWineNotFound = errors.New("wine not found")

// Wines resolves wine ids to live records. *catalogue.Catalogue satisfies it.
type Wines interface {
	Get(ctx context.Context, id int64) (*wine.Wine, bool, error)
}

// Store persists reviews. *store.Store satisfies it.
type Store interface {
	UpsertReview(ctx context.Context, r store.ReviewRow) (int64, error)
	DeleteReview(ctx context.Context, wineID int64, username string) (bool, error)
	ReviewsForWine(ctx context.Context, wineID int64) ([]store.ReviewRow, error)
	AverageRating(ctx context.Context, wineID int64) (float64, int, error)
}

// Clock supplies review timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Service adds, replaces and deletes reviews and keeps averages current.
type Service struct {
	wines Wines
	store Store
	clock Clock
	log   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the timestamp source.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a review service.
func NewService(wines Wines, st Store, opts ...Option) *Service {
	s := &Service{
		wines: wines,
		store: st,
		clock: systemClock{},
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit records username's review of a wine, replacing any earlier review by
// the same user, and returns the wine's new average rating.
func (s *Service) Submit(ctx context.Context, wineID int64, username string, rating float64, description string) (float64, error) {
	username = validate.Text(username)
	description = validate.Text(description)
	if err := check(username, rating, description); err != nil {
		return 0, err
	}

	w, err := s.wine(ctx, wineID)
	if err != nil {
		return 0, err
	}

	id, err := s.store.UpsertReview(ctx, store.ReviewRow{
		WineID:      wineID,
		Username:    username,
		Rating:      rating,
		Description: description,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("submit review: %w", err)
	}

	s.log.Info("review saved",
		"review_id", id,
		"wine_id", wineID,
		"username", username,
	)
	return s.recalculate(ctx, w)
}

// Delete removes username's review of a wine. Reports whether one existed.
func (s *Service) Delete(ctx context.Context, wineID int64, username string) (bool, error) {
	w, err := s.wine(ctx, wineID)
	if err != nil {
		return false, err
	}

	deleted, err := s.store.DeleteReview(ctx, wineID, validate.Text(username))
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	if !deleted {
		return false, nil
	}

	if _, err := s.recalculate(ctx, w); err != nil {
		return true, err
	}
	return true, nil
}

// List returns a wine's reviews in submission order.
func (s *Service) List(ctx context.Context, wineID int64) ([]store.ReviewRow, error) {
	reviews, err := s.store.ReviewsForWine(ctx, wineID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func (s *Service) wine(ctx context.Context, id int64) (*wine.Wine, error) {
	w, ok, err := s.wines.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrWineNotFound, id)
	}
	return w, nil
}

// recalculate writes the current mean through the wine's setter.
func (s *Service) recalculate(ctx context.Context, w *wine.Wine) (float64, error) {
	avg, n, err := s.store.AverageRating(ctx, w.ID())
	if err != nil {
		return 0, fmt.Errorf("recalculate rating: %w", err)
	}
	if err := w.SetAverageRating(ctx, avg); err != nil {
		return 0, fmt.Errorf("recalculate rating: %w", err)
	}

	s.log.Debug("average rating updated",
		"wine_id", w.ID(),
		"reviews", n,
		"average", avg,
	)
	return avg, nil
}

func check(username string, rating float64, description string) error {
	if username == "" {
		return &validate.ValidationError{Field: "username", Err: validate.ErrRequired}
	}
	if math.IsNaN(rating) || rating < MinRating || rating > MaxRating {
		return &validate.ValidationError{
			Field: "rating",
			Value: strconv.FormatFloat(rating, 'f', -1, 64),
			Err:   validate.ErrOutOfRange,
		}
	}
	if n := utf8.RuneCountInString(description); n > MaxDescription {
		return &validate.ValidationError{
			Field: "description",
			Value: strconv.Itoa(n) + " chars",
			Err:   fmt.Errorf("%w: max %d", validate.ErrOutOfRange, MaxDescription),
		}
	}
	return nil
}
