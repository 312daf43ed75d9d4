// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/roach88/cellar/internal/store"
	"github.com/roach88/cellar/internal/wine"
)

// OpenStore opens a fresh store in a temp directory and closes it on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cellar.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fields returns a fully populated record with the given title.
func Fields(title string) wine.Fields {
	return wine.Fields{
		Title:        title,
		Variety:      "Sauvignon Blanc",
		Country:      "New Zealand",
		Region:       "Marlborough",
		Winery:       "Cloudy Bay",
		Color:        "White",
		Vintage:      2019,
		Description:  "passionfruit and lime",
		ScorePercent: 90,
		ABV:          13,
		Price:        28,
	}
}

// Wines returns n unpersisted records titled "<prefix> 0" .. "<prefix> n-1".
// Vintages increase from 2000.
func Wines(prefix string, n int) []*wine.Wine {
	ws := make([]*wine.Wine, n)
	for i := range ws {
		f := Fields(prefix + " " + strconv.Itoa(i))
		f.Vintage = 2000 + i
		ws[i] = wine.New(f)
	}
	return ws
}
