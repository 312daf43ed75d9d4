package catalogue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/roach88/cellar/internal/validate"
	"github.com/roach88/cellar/internal/wine"
)

// AddAll persists ws in chunks, one transaction per chunk.
//
// Input is checked before anything is written: a nil record, a record that
// already has an id, or the same pointer twice yields a *validate.ValidationError.
// When a chunk fails it is rolled back, earlier chunks stay committed, and a
// *BatchError reports how far ingestion got. Every committed record has its id
// assigned, carries the geolocation its region matches, is attached and is
// cached.
//
// Statistics are recomputed from storage afterwards, including after a partial
// failure.
func (c *Catalogue) AddAll(ctx context.Context, ws []*wine.Wine) error {
	if err := checkInsertable(ws); err != nil {
		return err
	}

	runID := c.runIDs.Generate()
	log := c.log.With("run_id", runID)
	start := time.Now()

	log.Info("ingest starting",
		"records", len(ws),
		"chunk_size", c.chunkSize,
	)

	committed := 0
	var batchErr error
	for chunk, begin := 0, 0; begin < len(ws); chunk, begin = chunk+1, begin+c.chunkSize {
		end := min(begin+c.chunkSize, len(ws))
		part := ws[begin:end]

		if err := c.insert(ctx, "add all", part); err != nil {
			c.metrics.IngestChunk(len(part), err)
			log.Error("ingest chunk failed",
				"chunk", chunk,
				"committed", committed,
				"error", err,
			)
			batchErr = &BatchError{Committed: committed, Chunk: chunk, Err: err}
			break
		}

		c.metrics.IngestChunk(len(part), nil)
		committed += len(part)
		log.Debug("ingest chunk committed",
			"chunk", chunk,
			"rows", len(part),
		)
	}

	if err := c.RefreshStats(ctx); err != nil {
		if batchErr != nil {
			return errors.Join(batchErr, err)
		}
		return err
	}

	if batchErr != nil {
		return batchErr
	}

	log.Info("ingest finished",
		"committed", committed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// insert writes ws in one transaction, then adopts them with the
// geolocations their regions match.
func (c *Catalogue) insert(ctx context.Context, op string, ws []*wine.Wine) error {
	rows := make([]wine.Fields, len(ws))
	regions := make([]string, len(ws))
	for i, w := range ws {
		rows[i] = w.Fields()
		regions[i] = w.Region()
	}

	geos, err := c.store.MatchGeolocations(ctx, regions)
	if err != nil {
		return persistence(op, err)
	}

	ids, err := c.store.InsertWines(ctx, rows)
	if err != nil {
		return persistence(op, err)
	}
	if len(ids) != len(ws) {
		return persistence(op, fmt.Errorf("got %d ids for %d rows", len(ids), len(ws)))
	}

	for i, w := range ws {
		if g, ok := geos[regions[i]]; ok {
			w.SetGeo(&g)
		} else {
			w.SetGeo(nil)
		}
		if err := c.adopt(w, ids[i]); err != nil {
			return err
		}
	}
	return nil
}

// checkInsertable rejects input that must not reach storage.
func checkInsertable(ws []*wine.Wine) error {
	seen := make(map[*wine.Wine]int, len(ws))
	for i, w := range ws {
		pos := strconv.Itoa(i)
		if w == nil {
			return &validate.ValidationError{Field: "wine", Value: pos, Err: ErrNilWine}
		}
		if w.IsPersisted() {
			return &validate.ValidationError{
				Field: "id",
				Value: strconv.FormatInt(w.ID(), 10),
				Err:   wine.ErrAlreadyPersisted,
			}
		}
		if first, ok := seen[w]; ok {
			return &validate.ValidationError{
				Field: "wine",
				Value: pos,
				Err:   fmt.Errorf("same record already at position %d", first),
			}
		}
		seen[w] = i
	}
	return nil
}

// RowSource yields raw rows in validate.Columns order. Next returns io.EOF
// after the last row.
type RowSource interface {
	Next() ([]string, error)
}

// RowError is a rejected input row.
type RowError struct {
	// Row is the zero-based index of the row in the source.
	Row int
	Err error
}

// ImportResult summarizes an Import.
type ImportResult struct {
	Read     int
	Added    int
	Rejected []RowError
}

// Import reads every row from src, validates it and ingests the valid records
// with AddAll. Rows failing validation are skipped and reported; a read error
// aborts the import before anything is written.
func (c *Catalogue) Import(ctx context.Context, src RowSource) (ImportResult, error) {
	ws, res, err := c.readRows(src)
	if err != nil {
		return res, err
	}
	return res.ingested(ws, c.AddAll(ctx, ws))
}

// ImportReplace is Import with ReplaceAll in place of AddAll. The source is
// read in full before anything is removed, so a read error leaves the
// catalogue as it was.
func (c *Catalogue) ImportReplace(ctx context.Context, src RowSource) (ImportResult, error) {
	ws, res, err := c.readRows(src)
	if err != nil {
		return res, err
	}
	return res.ingested(ws, c.ReplaceAll(ctx, ws))
}

// readRows collects the valid records of src and the rows it rejected.
func (c *Catalogue) readRows(src RowSource) ([]*wine.Wine, ImportResult, error) {
	var res ImportResult
	var ws []*wine.Wine

	for {
		raw, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, res, fmt.Errorf("import: read row %d: %w", res.Read, err)
		}

		w, err := validate.ParseWine(raw)
		if err != nil {
			c.log.Warn("import row rejected", "row", res.Read, "error", err)
			res.Rejected = append(res.Rejected, RowError{Row: res.Read, Err: err})
			res.Read++
			continue
		}
		ws = append(ws, w)
		res.Read++
	}
	return ws, res, nil
}

func (res ImportResult) ingested(ws []*wine.Wine, err error) (ImportResult, error) {
	var be *BatchError
	switch {
	case err == nil:
		res.Added = len(ws)
	case errors.As(err, &be):
		res.Added = be.Committed
	}
	return res, err
}
