// Package validate converts raw text rows into wine records.
//
// Conversion is all-or-nothing: a row that fails on any field yields a
// *ValidationError and no record.
package validate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cellar/internal/wine"
)

// Columns is the canonical order of a raw wine row.
var Columns = []wine.Field{
	wine.FieldTitle,
	wine.FieldVariety,
	wine.FieldCountry,
	wine.FieldRegion,
	wine.FieldWinery,
	wine.FieldColor,
	wine.FieldVintage,
	wine.FieldDescription,
	wine.FieldScorePercent,
	wine.FieldABV,
	wine.FieldPrice,
}

var (
	// ErrRequired marks an empty required field.
	ErrRequired = errors.New("required")

	// ErrOutOfRange marks a number outside its domain.
	ErrOutOfRange = errors.New("out of range")

	// ErrColumnCount marks a row with the wrong number of columns.
	ErrColumnCount = errors.New("wrong column count")

	// ErrNotEditable marks a field that raw input may not set.
	ErrNotEditable = errors.New("not editable")
)

// ValidationError reports a raw value that could not be converted.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field wine.Field, value string, err error) *ValidationError {
	return &ValidationError{Field: field.Column(), Value: value, Err: err}
}

// ParseWine builds an unpersisted wine from a row in Columns order.
//
// Text is trimmed and NFC-normalized. Empty score, ABV and price become 0. A
// vintage that is empty or not an integer falls back to a year found in the
// title, or 0.
func ParseWine(raw []string) (*wine.Wine, error) {
	f, err := ParseFields(raw)
	if err != nil {
		return nil, err
	}
	return wine.New(f), nil
}

// ParseFields is ParseWine without constructing the record.
func ParseFields(raw []string) (wine.Fields, error) {
	if len(raw) != len(Columns) {
		return wine.Fields{}, &ValidationError{
			Field: "row",
			Value: strconv.Itoa(len(raw)),
			Err:   fmt.Errorf("%w: want %d", ErrColumnCount, len(Columns)),
		}
	}

	col := make(map[wine.Field]string, len(Columns))
	for i, field := range Columns {
		col[field] = Text(raw[i])
	}

	f := wine.Fields{
		Title:       col[wine.FieldTitle],
		Variety:     col[wine.FieldVariety],
		Country:     col[wine.FieldCountry],
		Region:      col[wine.FieldRegion],
		Winery:      col[wine.FieldWinery],
		Color:       col[wine.FieldColor],
		Description: col[wine.FieldDescription],
	}
	if f.Title == "" {
		return wine.Fields{}, invalid(wine.FieldTitle, "", ErrRequired)
	}

	f.Vintage = VintageOrExtract(col[wine.FieldVintage], f.Title)

	var err error
	if f.ScorePercent, err = Score(col[wine.FieldScorePercent]); err != nil {
		return wine.Fields{}, err
	}
	if f.ABV, err = Real(wine.FieldABV, col[wine.FieldABV]); err != nil {
		return wine.Fields{}, err
	}
	if f.Price, err = Real(wine.FieldPrice, col[wine.FieldPrice]); err != nil {
		return wine.Fields{}, err
	}

	return f, nil
}

// Text trims surrounding space and applies Unicode NFC.
func Text(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Score parses a percentage in [0, 100]. Empty means 0.
func Score(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalid(wine.FieldScorePercent, s, err)
	}
	if v < 0 || v > 100 {
		return 0, invalid(wine.FieldScorePercent, s, ErrOutOfRange)
	}
	return v, nil
}

// Real parses a finite, non-negative real-valued field. Empty means 0.
func Real(field wine.Field, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalid(field, s, err)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid(field, s, ErrOutOfRange)
	}
	return v, nil
}

var yearPattern = regexp.MustCompile(`\b(18|19|20)\d{2}\b`)

// VintageOrExtract parses raw as a vintage; when that fails it returns the
// first year in 1800-2099 found in the title, else 0.
func VintageOrExtract(raw, title string) int {
	if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return v
	}
	return ExtractVintage(title)
}

// ExtractVintage returns the first year in 1800-2099 that appears as a whole
// word in title, or 0.
func ExtractVintage(title string) int {
	m := yearPattern.FindString(title)
	if m == "" {
		return 0
	}
	v, _ := strconv.Atoi(m)
	return v
}

// ApplyField parses raw for field and applies it through the wine's setter,
// so an attached record writes it through.
//
// Average rating is owned by the review aggregation and cannot be set here.
func ApplyField(ctx context.Context, w *wine.Wine, field wine.Field, raw string) error {
	switch field {
	case wine.FieldTitle:
		v := Text(raw)
		if v == "" {
			return invalid(field, "", ErrRequired)
		}
		return w.SetTitle(ctx, v)
	case wine.FieldVariety:
		return w.SetVariety(ctx, Text(raw))
	case wine.FieldCountry:
		return w.SetCountry(ctx, Text(raw))
	case wine.FieldRegion:
		return w.SetRegion(ctx, Text(raw))
	case wine.FieldWinery:
		return w.SetWinery(ctx, Text(raw))
	case wine.FieldColor:
		return w.SetColor(ctx, Text(raw))
	case wine.FieldDescription:
		return w.SetDescription(ctx, Text(raw))
	case wine.FieldVintage:
		s := strings.TrimSpace(raw)
		if s == "" {
			return w.SetVintage(ctx, 0)
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return invalid(field, s, err)
		}
		return w.SetVintage(ctx, v)
	case wine.FieldScorePercent:
		v, err := Score(raw)
		if err != nil {
			return err
		}
		return w.SetScorePercent(ctx, v)
	case wine.FieldABV:
		v, err := Real(field, raw)
		if err != nil {
			return err
		}
		return w.SetABV(ctx, v)
	case wine.FieldPrice:
		v, err := Real(field, raw)
		if err != nil {
			return err
		}
		return w.SetPrice(ctx, v)
	case wine.FieldAverageRating:
		return invalid(field, raw, ErrNotEditable)
	default:
		return &ValidationError{Field: field.String(), Value: raw, Err: ErrNotEditable}
	}
}
