package catalogue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cellar/internal/store"
	"github.com/roach88/cellar/internal/testutil"
	"github.com/roach88/cellar/internal/wine"
)

// recordingMetrics counts collector events.
type recordingMetrics struct {
	hits, misses  int
	writeThroughs []string
	writeErrors   int
	chunks        []int
	chunkErrors   int
	queries       []string
}

func (m *recordingMetrics) CacheLookup(hit bool) {
	if hit {
		m.hits++
		return
	}
	m.misses++
}

func (m *recordingMetrics) WriteThrough(column string, err error) {
	m.writeThroughs = append(m.writeThroughs, column)
	if err != nil {
		m.writeErrors++
	}
}

func (m *recordingMetrics) IngestChunk(rows int, err error) {
	m.chunks = append(m.chunks, rows)
	if err != nil {
		m.chunkErrors++
	}
}

func (m *recordingMetrics) Query(kind string, _ time.Duration, _ error) {
	m.queries = append(m.queries, kind)
}

type fixture struct {
	cat     *Catalogue
	store   *store.Store
	metrics *recordingMetrics
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	st := testutil.OpenStore(t)
	m := &recordingMetrics{}

	all := append([]Option{
		WithLogger(testutil.DiscardLogger()),
		WithMetrics(m),
		WithRunIDGenerator(testutil.NewSequenceGenerator("test")),
	}, opts...)

	cat, err := New(context.Background(), st, all...)
	require.NoError(t, err)
	return fixture{cat: cat, store: st, metrics: m}
}

// seed inserts records straight into storage, bypassing the cache.
func seed(t *testing.T, st *store.Store, rows ...wine.Fields) []int64 {
	t.Helper()
	ids, err := st.InsertWines(context.Background(), rows)
	require.NoError(t, err)
	return ids
}

func seedN(t *testing.T, st *store.Store, n int) []int64 {
	t.Helper()
	rows := make([]wine.Fields, n)
	for i, w := range testutil.Wines("Seed", n) {
		rows[i] = w.Fields()
	}
	return seed(t, st, rows...)
}

func ids(ws []*wine.Wine) []int64 {
	out := make([]int64, len(ws))
	for i, w := range ws {
		out[i] = w.ID()
	}
	return out
}
