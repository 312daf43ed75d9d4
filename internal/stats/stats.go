// Package stats maintains aggregate statistics over the catalogue: min/max
// bounds of the numeric fields and distinct values of the categorical ones.
//
// The aggregator is folded incrementally on single inserts and recomputed from
// storage after bulk changes. It never shrinks when individual rows go away.
package stats

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/cellar/internal/wine"
)

// Range holds the observed bounds of one numeric field. HasMin and HasMax
// report whether any value has updated the respective bound.
type Range[T cmp.Ordered] struct {
	Min    T    `json:"min"`
	Max    T    `json:"max"`
	HasMin bool `json:"has_min"`
	HasMax bool `json:"has_max"`
}

// IntRange is the range of an integer field.
type IntRange = Range[int]

// FloatRange is the range of a real-valued field.
type FloatRange = Range[float64]

func (r *Range[T]) observeMin(v T) {
	if !r.HasMin || v < r.Min {
		r.Min = v
		r.HasMin = true
	}
}

func (r *Range[T]) observeMax(v T) {
	if !r.HasMax || v > r.Max {
		r.Max = v
		r.HasMax = true
	}
}

func (r *Range[T]) observe(v T) {
	r.observeMin(v)
	r.observeMax(v)
}

// Snapshot is a point-in-time copy of the statistics. Distinct sets are sorted.
type Snapshot struct {
	Vintage IntRange   `json:"vintage"`
	Score   IntRange   `json:"score"`
	ABV     FloatRange `json:"abv"`
	Price   FloatRange `json:"price"`

	Titles    []string `json:"titles"`
	Countries []string `json:"countries"`
	Wineries  []string `json:"wineries"`
	Colors    []string `json:"colors"`
}

// Source streams the stat-relevant fields of every stored wine.
// store.Store satisfies it.
type Source interface {
	ForEachWine(ctx context.Context, fn func(wine.Fields) error) error
}

// Aggregator accumulates statistics. The zero value is ready to use.
// Not safe for concurrent use.
type Aggregator struct {
	vintage IntRange
	score   IntRange
	abv     FloatRange
	price   FloatRange

	titles    map[string]struct{}
	countries map[string]struct{}
	wineries  map[string]struct{}
	colors    map[string]struct{}
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	a := &Aggregator{}
	a.Reset()
	return a
}

// Reset discards every observation.
func (a *Aggregator) Reset() {
	a.vintage = IntRange{}
	a.score = IntRange{}
	a.abv = FloatRange{}
	a.price = FloatRange{}
	a.titles = map[string]struct{}{}
	a.countries = map[string]struct{}{}
	a.wineries = map[string]struct{}{}
	a.colors = map[string]struct{}{}
}

// Fold adds one persisted wine to the statistics.
func (a *Aggregator) Fold(w *wine.Wine) {
	if w == nil {
		return
	}
	a.FoldFields(w.Fields())
}

// FoldFields adds one record's values.
//
// Vintages <= 0 mean "unknown" and never lower the minimum; they still take
// part in the maximum.
func (a *Aggregator) FoldFields(f wine.Fields) {
	a.ensure()

	addDistinct(a.titles, f.Title)
	addDistinct(a.countries, f.Country)
	addDistinct(a.wineries, f.Winery)
	addDistinct(a.colors, f.Color)

	if f.Vintage > 0 {
		a.vintage.observeMin(f.Vintage)
	}
	a.vintage.observeMax(f.Vintage)
	a.score.observe(f.ScorePercent)
	a.abv.observe(f.ABV)
	a.price.observe(f.Price)
}

// Recompute resets the aggregator and folds every row of src.
// On error the aggregator holds whatever was folded before the failure.
func (a *Aggregator) Recompute(ctx context.Context, src Source) error {
	a.Reset()
	if err := src.ForEachWine(ctx, func(f wine.Fields) error {
		a.FoldFields(f)
		return nil
	}); err != nil {
		return fmt.Errorf("recompute stats: %w", err)
	}
	return nil
}

// Snapshot returns a deep copy of the current statistics.
func (a *Aggregator) Snapshot() Snapshot {
	a.ensure()
	return Snapshot{
		Vintage:   a.vintage,
		Score:     a.score,
		ABV:       a.abv,
		Price:     a.price,
		Titles:    sortedKeys(a.titles),
		Countries: sortedKeys(a.countries),
		Wineries:  sortedKeys(a.wineries),
		Colors:    sortedKeys(a.colors),
	}
}

func (a *Aggregator) ensure() {
	if a.titles == nil {
		a.Reset()
	}
}

func addDistinct(set map[string]struct{}, v string) {
	if v == "" {
		return
	}
	set[v] = struct{}{}
}

func sortedKeys(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}
