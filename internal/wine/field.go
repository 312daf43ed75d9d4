package wine

import (
	"fmt"
	"strings"
)

// Field identifies a mutable, persisted column of a wine.
type Field int

const (
	FieldTitle Field = iota + 1
	FieldVariety
	FieldCountry
	FieldRegion
	FieldWinery
	FieldColor
	FieldVintage
	FieldDescription
	FieldScorePercent
	FieldABV
	FieldPrice
	FieldAverageRating
)

var fieldColumns = map[Field]string{
	FieldTitle:         "title",
	FieldVariety:       "variety",
	FieldCountry:       "country",
	FieldRegion:        "region",
	FieldWinery:        "winery",
	FieldColor:         "color",
	FieldVintage:       "vintage",
	FieldDescription:   "description",
	FieldScorePercent:  "score_percent",
	FieldABV:           "abv",
	FieldPrice:         "price",
	FieldAverageRating: "average_rating",
}

// AllFields returns every mutable field in column order.
func AllFields() []Field {
	return []Field{
		FieldTitle, FieldVariety, FieldCountry, FieldRegion, FieldWinery, FieldColor,
		FieldVintage, FieldDescription, FieldScorePercent, FieldABV, FieldPrice,
		FieldAverageRating,
	}
}

// Column returns the storage column name. Unknown fields return "".
func (f Field) Column() string {
	return fieldColumns[f]
}

// Valid reports whether f is one of the declared fields.
func (f Field) Valid() bool {
	_, ok := fieldColumns[f]
	return ok
}

func (f Field) String() string {
	if c, ok := fieldColumns[f]; ok {
		return c
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// ParseField resolves a column name (case-insensitive) to a Field.
// "score" and "rating" are accepted as short forms.
func ParseField(name string) (Field, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "score":
		return FieldScorePercent, nil
	case "rating":
		return FieldAverageRating, nil
	}
	for f, c := range fieldColumns {
		if c == n {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown wine field %q", name)
}
