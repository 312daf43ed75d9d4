package catalogue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellar/internal/filter"
	"github.com/roach88/cellar/internal/metrics"
	"github.com/roach88/cellar/internal/store"
	"github.com/roach88/cellar/internal/testutil"
	"github.com/roach88/cellar/internal/wine"
)

func TestNew_RejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, nil)
	require.Error(t, err)

	_, err = New(ctx, testutil.OpenStore(t), WithChunkSize(0))
	require.Error(t, err)
}

func TestNew_ComputesInitialStats(t *testing.T) {
	st := testutil.OpenStore(t)
	seed(t, st, wine.Fields{Title: "A", Vintage: 1999}, wine.Fields{Title: "B", Vintage: 2010})

	cat, err := New(context.Background(), st, WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)

	snap := cat.Stats()
	assert.Equal(t, 1999, snap.Vintage.Min)
	assert.Equal(t, 2010, snap.Vintage.Max)
}

func TestGet_IdentityUniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := seedN(t, f.store, 5)

	first, ok, err := f.cat.Get(ctx, seeded[2])
	require.NoError(t, err)
	require.True(t, ok)

	second, ok, err := f.cat.Get(ctx, seeded[2])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, first, second)

	all, err := f.cat.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Same(t, first, all[2])

	page, err := f.cat.GetAllInRange(ctx, 1, 4, nil)
	require.NoError(t, err)
	assert.Same(t, first, page[1])

	byTitle, ok, err := f.cat.GetByExactTitle(ctx, first.Title())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, first, byTitle)

	assert.Equal(t, 5, f.cat.CacheLen())
}

func TestGet_CachedInstanceWinsOverStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := seed(t, f.store, testutil.Fields("Original"))

	w, _, err := f.cat.Get(ctx, seeded[0])
	require.NoError(t, err)

	// Changed underneath the catalogue.
	_, err = f.store.Exec(ctx, "UPDATE wine SET title = 'Changed' WHERE id = ?", seeded[0])
	require.NoError(t, err)

	all, err := f.cat.GetAll(ctx)
	require.NoError(t, err)
	assert.Same(t, w, all[0])
	assert.Equal(t, "Original", all[0].Title())
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)

	w, ok, err := f.cat.Get(context.Background(), 404)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, w)

	w, ok, err = f.cat.GetByExactTitle(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, w)
}

func TestGet_RecordsCacheMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := seedN(t, f.store, 1)

	_, _, err := f.cat.Get(ctx, seeded[0])
	require.NoError(t, err)
	_, _, err = f.cat.Get(ctx, seeded[0])
	require.NoError(t, err)

	// First Get misses twice (probe + materialize), second hits.
	assert.Equal(t, 1, f.metrics.hits)
	assert.Equal(t, 2, f.metrics.misses)
	assert.Equal(t, []string{"get"}, f.metrics.queries)
}

func TestGet_JoinsGeolocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.PutGeolocations(ctx, []store.Geolocation{
		{Name: "MARLBOROUGH", Latitude: -41.5, Longitude: 173.9},
	}))
	seeded := seed(t, f.store, testutil.Fields("Geo"), wine.Fields{Title: "Nowhere", Region: "Atlantis"})

	w, _, err := f.cat.Get(ctx, seeded[0])
	require.NoError(t, err)
	require.NotNil(t, w.Geo())
	assert.Equal(t, -41.5, w.Geo().Latitude)

	w, _, err = f.cat.Get(ctx, seeded[1])
	require.NoError(t, err)
	assert.Nil(t, w.Geo())
}

func TestWriteThrough_FreshLoadSeesMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := seedN(t, f.store, 1)

	w, _, err := f.cat.Get(ctx, seeded[0])
	require.NoError(t, err)

	require.NoError(t, w.SetPrice(ctx, 99.5))
	require.NoError(t, w.SetTitle(ctx, "Renamed"))
	require.NoError(t, w.SetVintage(ctx, 1987))

	row, ok, err := f.store.ReadWine(ctx, seeded[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 99.5, row.Fields.Price)
	assert.Equal(t, "Renamed", row.Fields.Title)
	assert.Equal(t, 1987, row.Fields.Vintage)
	assert.Equal(t, []string{"price", "title", "vintage"}, f.metrics.writeThroughs)
}

func TestWriteThrough_SameValueIssuesNoWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := seedN(t, f.store, 1)

	w, _, err := f.cat.Get(ctx, seeded[0])
	require.NoError(t, err)

	require.NoError(t, w.SetCountry(ctx, w.Country()))
	assert.Empty(t, f.metrics.writeThroughs)
}

func TestWriteThrough_FailureLeavesMemoryAndStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := seedN(t, f.store, 1)

	w, _, err := f.cat.Get(ctx, seeded[0])
	require.NoError(t, err)
	before := w.ScorePercent()

	err = w.SetScorePercent(ctx, 150) // CHECK constraint
	require.Error(t, err)
	assert.True(t, IsPersistenceError(err))
	assert.Equal(t, before, w.ScorePercent())

	row, _, err := f.store.ReadWine(ctx, seeded[0])
	require.NoError(t, err)
	assert.Equal(t, before, row.Fields.ScorePercent)
	assert.Equal(t, 1, f.metrics.writeErrors)
}

func TestWriteThrough_UnassignedRecordNeverWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := wine.New(testutil.Fields("Draft"))
	require.NoError(t, w.SetPrice(ctx, 1))
	assert.Equal(t, 1.0, w.Price())

	// The notifier refuses the sentinel id on its own too.
	require.NoError(t, f.cat.notifier.SyncField(ctx, wine.UnassignedID, wine.FieldPrice, 2.0))

	assert.Empty(t, f.metrics.writeThroughs)
	n, err := f.cat.GetCount(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWriteThrough_DeletedRowIsNotAnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := seedN(t, f.store, 1)

	w, _, err := f.cat.Get(ctx, seeded[0])
	require.NoError(t, err)
	require.NoError(t, f.cat.RemoveAll(ctx))

	require.NoError(t, w.SetPrice(ctx, 5))
	assert.Equal(t, 5.0, w.Price())
}

func TestWriteThrough_RemovedRecordNeverReachesNewRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := seedN(t, f.store, 1)

	stale, _, err := f.cat.Get(ctx, seeded[0])
	require.NoError(t, err)

	fresh := wine.New(testutil.Fields("Fresh"))
	require.NoError(t, f.cat.ReplaceAll(ctx, []*wine.Wine{fresh}))

	require.NoError(t, stale.SetTitle(ctx, "Overwritten"))
	require.NoError(t, stale.SetPrice(ctx, 1))
	assert.Equal(t, "Overwritten", stale.Title())

	row, ok, err := f.store.ReadWine(ctx, fresh.ID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Fresh", row.Fields.Title)
	assert.Equal(t, 28.0, row.Fields.Price)
	assert.Equal(t, "Fresh", fresh.Title())

	n, err := f.cat.GetCount(ctx, filter.New(filter.WithTitle("Overwritten")))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, fresh.SetPrice(ctx, 30))
	row, _, err = f.store.ReadWine(ctx, fresh.ID())
	require.NoError(t, err)
	assert.Equal(t, 30.0, row.Fields.Price, "records added after the removal still write through")
}

func TestWriteThrough_SetRegionRematchesGeolocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.PutGeolocations(ctx, []store.Geolocation{
		{Name: "Marlborough", Latitude: -41.5, Longitude: 173.9},
		{Name: "Mosel", Latitude: 49.97, Longitude: 7.1},
	}))
	seeded := seedN(t, f.store, 1)

	w, _, err := f.cat.Get(ctx, seeded[0])
	require.NoError(t, err)
	require.NotNil(t, w.Geo())

	for _, region := range []string{"mosel", "Atlantis"} {
		require.NoError(t, w.SetRegion(ctx, region))

		row, _, err := f.store.ReadWine(ctx, seeded[0])
		require.NoError(t, err)
		assert.Equal(t, row.Geo, w.Geo(), "region %q", region)
	}
	assert.Nil(t, w.Geo())
}

func TestGetAllInRange_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := seedN(t, f.store, 10)

	tests := []struct {
		name       string
		begin, end int
		want       []int64
	}{
		{"first page", 0, 3, seeded[0:3]},
		{"middle", 4, 7, seeded[4:7]},
		{"clipped at end", 8, 20, seeded[8:10]},
		{"past end", 10, 15, []int64{}},
		{"empty window", 5, 5, []int64{}},
		{"inverted window", 6, 2, []int64{}},
		{"negative begin", -1, 2, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.cat.GetAllInRange(ctx, tt.begin, tt.end, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestGetAllInRange_PagesPartitionResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedN(t, f.store, 23)
	spec := filter.New(filter.WithVintage(2003, 2019))

	whole, err := f.cat.GetAllInRange(ctx, 0, 1000, spec)
	require.NoError(t, err)
	require.Len(t, whole, 17)

	var stitched []*wine.Wine
	for begin := 0; begin < len(whole); begin += 5 {
		page, err := f.cat.GetAllInRange(ctx, begin, begin+5, spec)
		require.NoError(t, err)
		stitched = append(stitched, page...)
	}
	assert.Equal(t, ids(whole), ids(stitched))

	n, err := f.cat.GetCount(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, 17, n)
}

func TestFilter_NilAndWildcardEquivalent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedN(t, f.store, 6)
	seed(t, f.store, wine.Fields{Title: "Sparse"})

	for _, spec := range []*filter.Spec{filter.All(), filter.New(), {}} {
		a, err := f.cat.GetAllInRange(ctx, 0, 100, nil)
		require.NoError(t, err)
		b, err := f.cat.GetAllInRange(ctx, 0, 100, spec)
		require.NoError(t, err)
		assert.Equal(t, ids(a), ids(b))

		na, err := f.cat.GetCount(ctx, nil)
		require.NoError(t, err)
		nb, err := f.cat.GetCount(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, na, nb)
	}
}

func TestFilter_MatchesInMemoryPredicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f.store,
		wine.Fields{Title: "Pinot 100% Noir", Country: "France", Color: "Red", Vintage: 2010, ScorePercent: 92, ABV: 13, Price: 40},
		wine.Fields{Title: "Pinot Gris", Country: "france", Color: "White", Vintage: 2018, ScorePercent: 85, ABV: 12, Price: 15},
		wine.Fields{Title: "Malbec", Country: "Argentina", Color: "Red", Vintage: 2015, ScorePercent: 88, ABV: 14.5, Price: 22},
		wine.Fields{Title: "Pinot_Blanc", Country: "Italy", Color: "White", Vintage: 2020, ScorePercent: 80, ABV: 11, Price: 9},
	)

	all, err := f.cat.GetAll(ctx)
	require.NoError(t, err)

	specs := map[string]*filter.Spec{
		"title":         filter.New(filter.WithTitle("pinot")),
		"literal pct":   filter.New(filter.WithTitle("100%")),
		"literal under": filter.New(filter.WithTitle("t_b")),
		"country":       filter.New(filter.WithCountry("FRANCE")),
		"red cheap":     filter.New(filter.WithColor("red"), filter.WithPrice(0, 30)),
		"vintage":       filter.New(filter.WithVintage(2012, 2018)),
		"score":         filter.New(filter.WithScore(85, 90)),
		"abv":           filter.New(filter.WithABV(12.5, 15)),
		"inverted":      filter.New(filter.WithPrice(50, 10)),
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			var want []int64
			for _, w := range all {
				if spec.Matches(w) {
					want = append(want, w.ID())
				}
			}
			if want == nil {
				want = []int64{}
			}

			got, err := f.cat.GetAllInRange(ctx, 0, 100, spec)
			require.NoError(t, err)
			assert.Equal(t, want, ids(got))

			n, err := f.cat.GetCount(ctx, spec)
			require.NoError(t, err)
			assert.Equal(t, len(want), n)
		})
	}
}

func TestAdd_AssignsIDAndFoldsStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := wine.New(wine.Fields{Title: "Solo", Country: "Spain", Vintage: 2004, Price: 11})
	require.NoError(t, f.cat.Add(ctx, w))

	require.True(t, w.IsPersisted())
	require.True(t, w.Attached())

	cached, ok := f.cat.Cached(w.ID())
	require.True(t, ok)
	assert.Same(t, w, cached)

	got, _, err := f.cat.Get(ctx, w.ID())
	require.NoError(t, err)
	assert.Same(t, w, got)

	snap := f.cat.Stats()
	assert.Equal(t, []string{"Spain"}, snap.Countries)
	assert.Equal(t, 2004, snap.Vintage.Min)

	require.NoError(t, w.SetWinery(ctx, "Bodega"))
	row, _, err := f.store.ReadWine(ctx, w.ID())
	require.NoError(t, err)
	assert.Equal(t, "Bodega", row.Fields.Winery)
}

func TestAdd_MatchesGeolocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.PutGeolocations(ctx, []store.Geolocation{
		{Name: "Marlborough", Latitude: -41.5, Longitude: 173.9},
	}))

	w := wine.New(wine.Fields{Title: "Added", Region: "MARLBOROUGH"})
	require.NoError(t, f.cat.Add(ctx, w))

	assert.Equal(t, &wine.GeoLocation{Latitude: -41.5, Longitude: 173.9}, w.Geo())
}

func TestAdd_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.cat.Add(ctx, nil), ErrNilWine)

	persisted := wine.Restore(3, wine.Fields{Title: "Old"}, nil)
	require.ErrorIs(t, f.cat.Add(ctx, persisted), wine.ErrAlreadyPersisted)

	err := f.cat.Add(ctx, wine.New(wine.Fields{}))
	require.Error(t, err)
	assert.True(t, IsPersistenceError(err), "empty title fails in storage")
}

func TestRemoveAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedN(t, f.store, 4)

	_, err := f.cat.GetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, f.cat.CacheLen())

	require.NoError(t, f.cat.RemoveAll(ctx))

	n, err := f.cat.GetCount(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, f.cat.CacheLen())
	assert.Empty(t, f.cat.Stats().Titles)
	assert.False(t, f.cat.Stats().Vintage.HasMax)
}

func TestStats_NotRetractedOnSingleDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.cat.AddAll(ctx, []*wine.Wine{
		wine.New(wine.Fields{Title: "Old", Vintage: 1950}),
		wine.New(wine.Fields{Title: "New", Vintage: 2020}),
	}))

	_, err := f.store.Exec(ctx, "DELETE FROM wine WHERE vintage = 1950")
	require.NoError(t, err)
	assert.Equal(t, 1950, f.cat.Stats().Vintage.Min)

	require.NoError(t, f.cat.RefreshStats(ctx))
	assert.Equal(t, 2020, f.cat.Stats().Vintage.Min)
}

func TestStats_UnknownVintageScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ws []*wine.Wine
	for _, v := range []int{0, 1990, 2005} {
		ws = append(ws, wine.New(wine.Fields{Title: "V", Vintage: v}))
	}
	require.NoError(t, f.cat.AddAll(ctx, ws))

	snap := f.cat.Stats()
	assert.Equal(t, 1990, snap.Vintage.Min)
	assert.Equal(t, 2005, snap.Vintage.Max)
}

func TestNew_DefaultsToNoopMetrics(t *testing.T) {
	cat, err := New(context.Background(), testutil.OpenStore(t), WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)
	assert.Equal(t, metrics.Noop{}, cat.metrics)
	assert.Equal(t, DefaultChunkSize, cat.chunkSize)
}
