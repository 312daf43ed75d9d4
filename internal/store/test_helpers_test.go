package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/cellar/internal/wine"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testFields returns a fully populated record keyed by title.
func testFields(title string) wine.Fields {
	return wine.Fields{
		Title:        title,
		Variety:      "Pinot Noir",
		Country:      "New Zealand",
		Region:       "Marlborough",
		Winery:       "Cloudy Bay",
		Color:        "Red",
		Vintage:      2015,
		Description:  "cherry and spice",
		ScorePercent: 91,
		ABV:          13.5,
		Price:        32.5,
	}
}

// insertTestWines inserts rows and fails the test on error.
func insertTestWines(t *testing.T, s *Store, rows ...wine.Fields) []int64 {
	t.Helper()
	ids, err := s.InsertWines(context.Background(), rows)
	if err != nil {
		t.Fatalf("InsertWines() failed: %v", err)
	}
	return ids
}
