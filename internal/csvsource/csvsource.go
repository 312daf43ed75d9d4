// Package csvsource reads wine and geolocation CSV files.
//
// Reader implements catalogue.RowSource. When the first record names columns
// ("title", "country", ...) it is treated as a header and later records are
// re-ordered into validate.Columns order; otherwise records are taken as
// already in that order.
package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/cellar/internal/store"
	"github.com/roach88/cellar/internal/validate"
	"github.com/roach88/cellar/internal/wine"
)

// Reader yields raw wine rows from CSV.
type Reader struct {
	r       *csv.Reader
	started bool
	// index[i] is the source column for validate.Columns[i], or -1.
	index []int
	line  int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &Reader{r: cr}
}

// Next returns the next row in validate.Columns order, or io.EOF.
func (r *Reader) Next() ([]string, error) {
	rec, err := r.read()
	if err != nil {
		return nil, err
	}

	if !r.started {
		r.started = true
		if index, ok := headerIndex(rec); ok {
			r.index = index
			if rec, err = r.read(); err != nil {
				return nil, err
			}
		}
	}

	if r.index == nil {
		return rec, nil
	}

	row := make([]string, len(validate.Columns))
	for i, src := range r.index {
		if src >= 0 && src < len(rec) {
			row[i] = rec[src]
		}
	}
	return row, nil
}

func (r *Reader) read() ([]string, error) {
	rec, err := r.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	r.line++
	if err != nil {
		return nil, fmt.Errorf("csv line %d: %w", r.line, err)
	}
	return rec, nil
}

// headerIndex recognizes a header row. It must name the title column; unknown
// names are ignored.
func headerIndex(rec []string) ([]int, bool) {
	pos := make(map[wine.Field]int, len(rec))
	for i, name := range rec {
		if f, err := wine.ParseField(name); err == nil {
			if _, dup := pos[f]; !dup {
				pos[f] = i
			}
		}
	}
	if _, ok := pos[wine.FieldTitle]; !ok {
		return nil, false
	}

	index := make([]int, len(validate.Columns))
	for i, f := range validate.Columns {
		src, ok := pos[f]
		if !ok {
			src = -1
		}
		index[i] = src
	}
	return index, true
}

// ReadGeolocations parses "name,latitude,longitude" records. A first record
// whose latitude is not a number is skipped as a header.
func ReadGeolocations(r io.Reader) ([]store.Geolocation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var locs []store.Geolocation
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return locs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if latErr != nil && line == 1 {
			continue
		}
		if latErr != nil {
			return nil, fmt.Errorf("csv line %d: latitude: %w", line, latErr)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: longitude: %w", line, err)
		}

		name := validate.Text(rec[0])
		if name == "" {
			return nil, fmt.Errorf("csv line %d: empty name", line)
		}
		locs = append(locs, store.Geolocation{Name: name, Latitude: lat, Longitude: lng})
	}
}
