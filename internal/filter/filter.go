// Package filter describes the text and range constraints applied to catalogue
// queries.
//
// A Spec is immutable once built. The zero value, All(), and New() with no
// options all constrain nothing.
//
// Semantics:
//   - Text fields (title, country, winery, color): case-insensitive substring
//     match; the empty string matches every row.
//   - Ranges (vintage, score, abv, price): inclusive [min, max]; an unset range
//     is unbounded. A range with min > max matches nothing and is not an error.
package filter

import (
	"strings"

	"github.com/roach88/cellar/internal/wine"
)

// Number is the set of range element types.
type Number interface {
	~int | ~float64
}

// Range is an inclusive numeric interval. The zero value is unbounded.
type Range[T Number] struct {
	Min     T
	Max     T
	Bounded bool
}

// Between returns a bounded range.
func Between[T Number](min, max T) Range[T] {
	return Range[T]{Min: min, Max: max, Bounded: true}
}

// Contains reports whether v lies within the range.
func (r Range[T]) Contains(v T) bool {
	if !r.Bounded {
		return true
	}
	return v >= r.Min && v <= r.Max
}

// Empty reports whether the range can match no value.
func (r Range[T]) Empty() bool {
	return r.Bounded && r.Min > r.Max
}

// Spec is an immutable set of per-field constraints.
type Spec struct {
	title   string
	country string
	winery  string
	color   string
	vintage Range[int]
	score   Range[int]
	abv     Range[float64]
	price   Range[float64]
}

// Option configures a Spec during construction.
type Option func(*Spec)

func WithTitle(s string) Option   { return func(f *Spec) { f.title = s } }
func WithCountry(s string) Option { return func(f *Spec) { f.country = s } }
func WithWinery(s string) Option  { return func(f *Spec) { f.winery = s } }
func WithColor(s string) Option   { return func(f *Spec) { f.color = s } }

func WithVintage(min, max int) Option {
	return func(f *Spec) { f.vintage = Between(min, max) }
}

func WithScore(min, max int) Option {
	return func(f *Spec) { f.score = Between(min, max) }
}

func WithABV(min, max float64) Option {
	return func(f *Spec) { f.abv = Between(min, max) }
}

func WithPrice(min, max float64) Option {
	return func(f *Spec) { f.price = Between(min, max) }
}

// New builds a Spec from options.
func New(opts ...Option) *Spec {
	s := &Spec{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// All returns a Spec that constrains nothing.
func All() *Spec {
	return &Spec{}
}

// With returns a copy of s with additional options applied. s is unchanged.
func (s *Spec) With(opts ...Option) *Spec {
	c := *s
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

func (s *Spec) Title() string         { return s.title }
func (s *Spec) Country() string       { return s.country }
func (s *Spec) Winery() string        { return s.winery }
func (s *Spec) Color() string         { return s.color }
func (s *Spec) Vintage() Range[int]   { return s.vintage }
func (s *Spec) Score() Range[int]     { return s.score }
func (s *Spec) ABV() Range[float64]   { return s.abv }
func (s *Spec) Price() Range[float64] { return s.price }

// IsWildcard reports whether s constrains nothing.
func (s *Spec) IsWildcard() bool {
	return s.title == "" && s.country == "" && s.winery == "" && s.color == "" &&
		!s.vintage.Bounded && !s.score.Bounded && !s.abv.Bounded && !s.price.Bounded
}

// Matches evaluates s against a wine in memory, with the same
// semantics as the compiled SQL. A nil spec matches everything.
func (s *Spec) Matches(w *wine.Wine) bool {
	if s == nil {
		return true
	}
	return containsFold(w.Title(), s.title) &&
		containsFold(w.Country(), s.country) &&
		containsFold(w.Winery(), s.winery) &&
		containsFold(w.Color(), s.color) &&
		s.vintage.Contains(w.Vintage()) &&
		s.score.Contains(w.ScorePercent()) &&
		s.abv.Contains(w.ABV()) &&
		s.price.Contains(w.Price())
}

// containsFold mirrors SQLite's LIKE, which only folds ASCII case.
func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(asciiLower(haystack), asciiLower(needle))
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
