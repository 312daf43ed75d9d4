// Package catalogue is the record identity and synchronization layer over the
// wine store.
//
// A Catalogue guarantees at most one live *wine.Wine per stored row: every read
// path resolves rows through an identity cache, so two lookups of the same id
// return the same pointer. Records handed out are attached to a write-through
// notifier, so their setters update storage one column at a time.
//
// A Catalogue is an explicit context object with a single logical caller. It is
// not safe for concurrent use.
package catalogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/cellar/internal/filter"
	"github.com/roach88/cellar/internal/identity"
	"github.com/roach88/cellar/internal/metrics"
	"github.com/roach88/cellar/internal/querysql"
	"github.com/roach88/cellar/internal/stats"
	"github.com/roach88/cellar/internal/store"
	"github.com/roach88/cellar/internal/wine"
)

// DefaultChunkSize is the number of records written per ingestion transaction.
const DefaultChunkSize = 2048

// Catalogue serves wine records from a store.
type Catalogue struct {
	store     *store.Store
	cache     *identity.Map[*wine.Wine]
	notifier  *notifier
	stats     *stats.Aggregator
	log       *slog.Logger
	metrics   metrics.Collector
	chunkSize int
	runIDs    RunIDGenerator
}

// Option configures a Catalogue.
type Option func(*Catalogue)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalogue) { c.log = l }
}

// WithMetrics sets the metrics collector. Defaults to metrics.Noop.
func WithMetrics(m metrics.Collector) Option {
	return func(c *Catalogue) { c.metrics = m }
}

// WithChunkSize sets the ingestion chunk size. Defaults to DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(c *Catalogue) { c.chunkSize = n }
}

// WithRunIDGenerator sets how ingestion runs are labelled in logs.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *Catalogue) { c.runIDs = g }
}

// New creates a catalogue over st and computes initial statistics from it.
//
// The catalogue does not own st; the caller closes it.
func New(ctx context.Context, st *store.Store, opts ...Option) (*Catalogue, error) {
	if st == nil {
		return nil, errors.New("catalogue: nil store")
	}

	c := &Catalogue{
		store:     st,
		cache:     identity.New[*wine.Wine](),
		stats:     stats.NewAggregator(),
		log:       slog.Default(),
		metrics:   metrics.Noop{},
		chunkSize: DefaultChunkSize,
		runIDs:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("catalogue: chunk size must be positive, got %d", c.chunkSize)
	}

	c.notifier = c.newNotifier()

	if err := c.RefreshStats(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the wine with the given id. The bool is false when no such row
// exists; that is not an error.
func (c *Catalogue) Get(ctx context.Context, id int64) (*wine.Wine, bool, error) {
	if w, ok := c.lookup(id); ok {
		return w, true, nil
	}

	start := time.Now()
	row, ok, err := c.store.ReadWine(ctx, id)
	c.metrics.Query("get", time.Since(start), err)
	if err != nil {
		return nil, false, persistence("get", err)
	}
	if !ok {
		return nil, false, nil
	}

	w, err := c.materialize(row)
	if err != nil {
		return nil, false, err
	}
	return w, true, nil
}

// GetByExactTitle returns the lowest-id wine whose title equals title exactly.
func (c *Catalogue) GetByExactTitle(ctx context.Context, title string) (*wine.Wine, bool, error) {
	start := time.Now()
	row, ok, err := c.store.QueryWine(ctx, querysql.SelectByTitle(title))
	c.metrics.Query("title", time.Since(start), err)
	if err != nil {
		return nil, false, persistence("get by title", err)
	}
	if !ok {
		return nil, false, nil
	}

	w, err := c.materialize(row)
	if err != nil {
		return nil, false, err
	}
	return w, true, nil
}

// GetAll returns every wine in ascending id order.
func (c *Catalogue) GetAll(ctx context.Context) ([]*wine.Wine, error) {
	return c.query(ctx, "all", querysql.SelectAll())
}

// GetAllInRange returns the wines at positions [begin, end) of the filtered,
// id-ordered result. A nil spec matches everything. An empty or inverted
// window yields an empty slice.
func (c *Catalogue) GetAllInRange(ctx context.Context, begin, end int, spec *filter.Spec) ([]*wine.Wine, error) {
	q, err := querysql.SelectPage(spec, querysql.Page{Begin: begin, End: end})
	if errors.Is(err, querysql.ErrEmptyPage) {
		return []*wine.Wine{}, nil
	}
	if err != nil {
		return nil, err
	}
	return c.query(ctx, "page", q)
}

// GetCount returns the number of wines matching spec (nil matches everything).
func (c *Catalogue) GetCount(ctx context.Context, spec *filter.Spec) (int, error) {
	start := time.Now()
	n, err := c.store.CountWines(ctx, querysql.Count(spec))
	c.metrics.Query("count", time.Since(start), err)
	if err != nil {
		return 0, persistence("count", err)
	}
	return n, nil
}

// Add persists one unpersisted wine, assigns its id, caches it and folds it
// into the statistics.
func (c *Catalogue) Add(ctx context.Context, w *wine.Wine) error {
	if err := checkInsertable([]*wine.Wine{w}); err != nil {
		return err
	}

	if err := c.insert(ctx, "add", []*wine.Wine{w}); err != nil {
		return err
	}

	c.stats.Fold(w)
	c.log.Debug("wine added", "id", w.ID())
	return nil
}

// ReplaceAll removes every wine and ingests ws.
//
// The two phases commit separately: if ingestion fails the catalogue holds
// whatever chunks committed, not the previous contents.
func (c *Catalogue) ReplaceAll(ctx context.Context, ws []*wine.Wine) error {
	if err := checkInsertable(ws); err != nil {
		return err
	}
	if err := c.RemoveAll(ctx); err != nil {
		return err
	}
	return c.AddAll(ctx, ws)
}

// RemoveAll deletes every wine, empties the identity cache and resets the
// statistics.
//
// Instances handed out earlier stay usable in memory but are detached from
// storage: their setters change memory only, even once new rows exist.
func (c *Catalogue) RemoveAll(ctx context.Context) error {
	start := time.Now()
	n, err := c.store.DeleteAllWines(ctx)
	if err != nil {
		return persistence("remove all", err)
	}

	c.notifier.retired = true
	c.notifier = c.newNotifier()
	c.cache.Clear()
	c.stats.Reset()

	c.log.Info("removed all wines",
		"count", n,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Stats returns a copy of the current statistics.
func (c *Catalogue) Stats() stats.Snapshot {
	return c.stats.Snapshot()
}

// RefreshStats recomputes statistics from storage.
func (c *Catalogue) RefreshStats(ctx context.Context) error {
	if err := c.stats.Recompute(ctx, c.store); err != nil {
		return persistence("refresh stats", err)
	}
	return nil
}

// Cached returns the live instance for id without touching storage.
func (c *Catalogue) Cached(id int64) (*wine.Wine, bool) {
	return c.cache.TryGet(id)
}

// CacheLen returns the number of live instances.
func (c *Catalogue) CacheLen() int {
	return c.cache.Len()
}

func (c *Catalogue) query(ctx context.Context, kind string, q querysql.Query) ([]*wine.Wine, error) {
	start := time.Now()
	rows, err := c.store.QueryWines(ctx, q)
	c.metrics.Query(kind, time.Since(start), err)
	if err != nil {
		return nil, persistence("query "+kind, err)
	}

	out := make([]*wine.Wine, 0, len(rows))
	for _, row := range rows {
		w, err := c.materialize(row)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}

	c.log.Debug("query",
		"kind", kind,
		"rows", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Catalogue) lookup(id int64) (*wine.Wine, bool) {
	w, ok := c.cache.TryGet(id)
	c.metrics.CacheLookup(ok)
	return w, ok
}

// materialize resolves a row to its live instance. A cached instance wins over
// the row's contents.
func (c *Catalogue) materialize(row store.WineRow) (*wine.Wine, error) {
	if w, ok := c.lookup(row.ID); ok {
		return w, nil
	}

	w := wine.Restore(row.ID, row.Fields, row.Geo)
	if err := w.Attach(c.notifier); err != nil {
		return nil, fmt.Errorf("materialize wine %d: %w", row.ID, err)
	}
	if err := c.cache.Insert(row.ID, w); err != nil {
		return nil, fmt.Errorf("materialize wine %d: %w", row.ID, err)
	}
	return w, nil
}

func (c *Catalogue) newNotifier() *notifier {
	return &notifier{store: c.store, log: c.log, metrics: c.metrics}
}

// adopt assigns a freshly generated id to w, attaches it and caches it.
func (c *Catalogue) adopt(w *wine.Wine, id int64) error {
	if err := w.AssignID(id); err != nil {
		return fmt.Errorf("adopt wine %d: %w", id, err)
	}
	if err := w.Attach(c.notifier); err != nil {
		return fmt.Errorf("adopt wine %d: %w", id, err)
	}
	if err := c.cache.Insert(id, w); err != nil {
		return fmt.Errorf("adopt wine %d: %w", id, err)
	}
	return nil
}
