// Package querysql compiles catalogue lookups and filter specs into
// parameterized SQLite statements.
//
// CRITICAL: every statement that returns wines ends in ORDER BY w.id ASC, so two
// reads with the same filter and no intervening write see the same rows in the
// same order.
// CRITICAL: values are never interpolated into SQL text; everything a caller
// supplies travels as a bound parameter.
package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/cellar/internal/filter"
)

// ErrEmptyPage is returned when a page window cannot contain any row.
var ErrEmptyPage = errors.New("empty page")

// Query is a compiled statement and its bound parameters.
type Query struct {
	SQL  string
	Args []any
}

// Page is the half-open window [Begin, End) over the ordered result set.
type Page struct {
	Begin int
	End   int
}

// Limit returns the number of rows the page can hold.
func (p Page) Limit() int {
	return p.End - p.Begin
}

// Validate reports ErrEmptyPage for negative bounds or Begin >= End.
func (p Page) Validate() error {
	if p.Begin < 0 || p.End < 0 {
		return fmt.Errorf("%w: negative bound [%d, %d)", ErrEmptyPage, p.Begin, p.End)
	}
	if p.Begin >= p.End {
		return fmt.Errorf("%w: [%d, %d)", ErrEmptyPage, p.Begin, p.End)
	}
	return nil
}

// WineColumns is the projection every wine read uses. store.scanWine reads
// columns in exactly this order.
//
// Text columns are COALESCEd so rows written by other tools with NULLs still
// scan; latitude and longitude stay nullable to signal a missing geolocation.
const WineColumns = "w.id, w.title, " +
	"COALESCE(w.variety, ''), COALESCE(w.country, ''), COALESCE(w.region, ''), " +
	"COALESCE(w.winery, ''), COALESCE(w.color, ''), COALESCE(w.vintage, 0), " +
	"COALESCE(w.description, ''), COALESCE(w.score_percent, 0), " +
	"COALESCE(w.abv, 0), COALESCE(w.price, 0), COALESCE(w.average_rating, 0), " +
	"g.latitude, g.longitude"

// wineSource joins the optional geolocation case-insensitively on region.
// geolocation.name is a NOCASE primary key, so the join adds at most one row.
const wineSource = "FROM wine w LEFT JOIN geolocation g ON LOWER(w.region) = LOWER(g.name)"

// stableOrder is appended to every wine read.
const stableOrder = " ORDER BY w.id ASC"

// likeEscape is the ESCAPE character used for substring predicates.
const likeEscape = `\`

// SelectPage compiles a filtered, paginated read.
//
// A nil spec takes the unfiltered path; a wildcard spec compiles to the same
// statement, so both return identical rows.
func SelectPage(spec *filter.Spec, page Page) (Query, error) {
	if err := page.Validate(); err != nil {
		return Query{}, err
	}

	var where string
	var args []any
	if spec != nil {
		where, args = compileSpec(spec)
	}

	sql := "SELECT " + WineColumns + " " + wineSource + where + stableOrder + " LIMIT ? OFFSET ?"
	args = append(args, page.Limit(), page.Begin)
	return Query{SQL: sql, Args: args}, nil
}

// Count compiles a row count under the same predicate as SelectPage.
func Count(spec *filter.Spec) Query {
	var where string
	var args []any
	if spec != nil {
		where, args = compileSpec(spec)
	}
	return Query{SQL: "SELECT COUNT(*) FROM wine w" + where, Args: args}
}

// SelectAll compiles a read of every wine.
func SelectAll() Query {
	return Query{SQL: "SELECT " + WineColumns + " " + wineSource + stableOrder}
}

// SelectByID compiles a primary-key lookup.
func SelectByID(id int64) Query {
	return Query{
		SQL:  "SELECT " + WineColumns + " " + wineSource + " WHERE w.id = ?" + stableOrder,
		Args: []any{id},
	}
}

// SelectByTitle compiles an exact, case-sensitive title lookup. When titles
// repeat, the lowest id comes first.
func SelectByTitle(title string) Query {
	return Query{
		SQL:  "SELECT " + WineColumns + " " + wineSource + " WHERE w.title = ?" + stableOrder + " LIMIT 1",
		Args: []any{title},
	}
}

// compileSpec returns the WHERE clause (with leading space) and its parameters.
// Fields the filter leaves open emit no predicate at all.
func compileSpec(spec *filter.Spec) (string, []any) {
	var b predicateBuilder

	b.like("w.title", spec.Title())
	b.like("w.country", spec.Country())
	b.like("w.winery", spec.Winery())
	b.like("w.color", spec.Color())
	between(&b, "w.vintage", spec.Vintage())
	between(&b, "w.score_percent", spec.Score())
	between(&b, "w.abv", spec.ABV())
	between(&b, "w.price", spec.Price())

	if len(b.parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(b.parts, " AND "), b.args
}

type predicateBuilder struct {
	parts []string
	args  []any
}

// like adds a case-insensitive substring predicate. LIKE wildcards inside the
// value are escaped so the value matches literally.
func (b *predicateBuilder) like(column, value string) {
	if value == "" {
		return
	}
	b.parts = append(b.parts, fmt.Sprintf("LOWER(%s) LIKE LOWER(?) ESCAPE '%s'", column, likeEscape))
	b.args = append(b.args, "%"+escapeLike(value)+"%")
}

func between[T filter.Number](b *predicateBuilder, column string, r filter.Range[T]) {
	if !r.Bounded {
		return
	}
	b.parts = append(b.parts, column+" BETWEEN ? AND ?")
	b.args = append(b.args, r.Min, r.Max)
}

var likeReplacer = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

func escapeLike(s string) string {
	return likeReplacer.Replace(s)
}
