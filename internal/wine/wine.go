package wine

import (
	"context"
	"errors"
	"fmt"
)

// UnassignedID is the identifier of a wine that has never been persisted.
const UnassignedID int64 = -1

var (
	// ErrAlreadyPersisted is returned when assigning an id to a wine that has one.
	ErrAlreadyPersisted = errors.New("wine already persisted")

	// ErrNotPersisted is returned when attaching a syncer to an unpersisted wine.
	ErrNotPersisted = errors.New("wine not persisted")

	// ErrAlreadyAttached is returned when a second syncer is attached.
	ErrAlreadyAttached = errors.New("wine already has a syncer")
)

// Syncer writes a single field of a persisted wine through to storage.
// Implementations must not retain the wine.
type Syncer interface {
	SyncField(ctx context.Context, id int64, field Field, value any) error
}

// GeoResolver is implemented by syncers that can match a region to
// coordinates. ok is false when the lookup itself failed.
type GeoResolver interface {
	ResolveGeo(ctx context.Context, region string) (geo *GeoLocation, ok bool)
}

// Fields holds the scalar attributes of a wine.
type Fields struct {
	Title         string
	Variety       string
	Country       string
	Region        string
	Winery        string
	Color         string
	Vintage       int // 0 = unknown
	Description   string
	ScorePercent  int // 0-100
	ABV           float64
	Price         float64
	AverageRating float64 // derived from reviews
}

// GeoLocation is the coordinate pair matched from the wine's region.
type GeoLocation struct {
	Latitude  float64
	Longitude float64
}

// Wine is a catalogue record.
//
// Not safe for concurrent use.
type Wine struct {
	id     int64
	f      Fields
	geo    *GeoLocation
	syncer Syncer
}

// New creates an unpersisted wine.
func New(f Fields) *Wine {
	return &Wine{id: UnassignedID, f: f}
}

// Restore creates a wine for a row that already exists in storage.
// geo may be nil.
func Restore(id int64, f Fields, geo *GeoLocation) *Wine {
	w := &Wine{id: id, f: f}
	if geo != nil {
		g := *geo
		w.geo = &g
	}
	return w
}

// ID returns the storage identifier, or UnassignedID.
func (w *Wine) ID() int64 { return w.id }

// IsPersisted reports whether the wine has a storage identifier.
func (w *Wine) IsPersisted() bool { return w.id != UnassignedID }

// AssignID records the identifier generated by storage.
func (w *Wine) AssignID(id int64) error {
	if w.IsPersisted() {
		return fmt.Errorf("assign id %d: %w (id=%d)", id, ErrAlreadyPersisted, w.id)
	}
	if id < 0 {
		return fmt.Errorf("assign id: invalid identifier %d", id)
	}
	w.id = id
	return nil
}

// Attach registers the syncer used by every subsequent setter.
// A wine accepts exactly one syncer, and only once persisted.
func (w *Wine) Attach(s Syncer) error {
	if !w.IsPersisted() {
		return ErrNotPersisted
	}
	if w.syncer != nil {
		return ErrAlreadyAttached
	}
	w.syncer = s
	return nil
}

// Attached reports whether the wine writes through to storage.
func (w *Wine) Attached() bool { return w.syncer != nil }

// Fields returns a copy of the wine's scalar attributes.
func (w *Wine) Fields() Fields { return w.f }

// Geo returns the matched geolocation, or nil.
func (w *Wine) Geo() *GeoLocation {
	if w.geo == nil {
		return nil
	}
	g := *w.geo
	return &g
}

// SetGeo replaces the matched geolocation. geo may be nil. The geolocation is
// derived from the region and is never written to storage.
func (w *Wine) SetGeo(geo *GeoLocation) {
	if geo == nil {
		w.geo = nil
		return
	}
	g := *geo
	w.geo = &g
}

func (w *Wine) Title() string          { return w.f.Title }
func (w *Wine) Variety() string        { return w.f.Variety }
func (w *Wine) Country() string        { return w.f.Country }
func (w *Wine) Region() string         { return w.f.Region }
func (w *Wine) Winery() string         { return w.f.Winery }
func (w *Wine) Color() string          { return w.f.Color }
func (w *Wine) Vintage() int           { return w.f.Vintage }
func (w *Wine) Description() string    { return w.f.Description }
func (w *Wine) ScorePercent() int      { return w.f.ScorePercent }
func (w *Wine) ABV() float64           { return w.f.ABV }
func (w *Wine) Price() float64         { return w.f.Price }
func (w *Wine) AverageRating() float64 { return w.f.AverageRating }

func (w *Wine) SetTitle(ctx context.Context, v string) error {
	return set(ctx, w, FieldTitle, &w.f.Title, v)
}

func (w *Wine) SetVariety(ctx context.Context, v string) error {
	return set(ctx, w, FieldVariety, &w.f.Variety, v)
}

func (w *Wine) SetCountry(ctx context.Context, v string) error {
	return set(ctx, w, FieldCountry, &w.f.Country, v)
}

// SetRegion changes the region. When the syncer is a GeoResolver the
// geolocation is re-matched against the new region; if that lookup fails the
// previous geolocation is kept.
func (w *Wine) SetRegion(ctx context.Context, v string) error {
	if w.f.Region == v {
		return nil
	}
	if err := set(ctx, w, FieldRegion, &w.f.Region, v); err != nil {
		return err
	}
	if r, ok := w.syncer.(GeoResolver); ok {
		if geo, found := r.ResolveGeo(ctx, v); found {
			w.SetGeo(geo)
		}
	}
	return nil
}

func (w *Wine) SetWinery(ctx context.Context, v string) error {
	return set(ctx, w, FieldWinery, &w.f.Winery, v)
}

func (w *Wine) SetColor(ctx context.Context, v string) error {
	return set(ctx, w, FieldColor, &w.f.Color, v)
}

func (w *Wine) SetVintage(ctx context.Context, v int) error {
	return set(ctx, w, FieldVintage, &w.f.Vintage, v)
}

func (w *Wine) SetDescription(ctx context.Context, v string) error {
	return set(ctx, w, FieldDescription, &w.f.Description, v)
}

func (w *Wine) SetScorePercent(ctx context.Context, v int) error {
	return set(ctx, w, FieldScorePercent, &w.f.ScorePercent, v)
}

func (w *Wine) SetABV(ctx context.Context, v float64) error {
	return set(ctx, w, FieldABV, &w.f.ABV, v)
}

func (w *Wine) SetPrice(ctx context.Context, v float64) error {
	return set(ctx, w, FieldPrice, &w.f.Price, v)
}

// SetAverageRating is reserved for the review aggregation collaborator.
func (w *Wine) SetAverageRating(ctx context.Context, v float64) error {
	return set(ctx, w, FieldAverageRating, &w.f.AverageRating, v)
}

// set writes v through the syncer (if any) and only then assigns it.
func set[T comparable](ctx context.Context, w *Wine, field Field, dst *T, v T) error {
	if *dst == v {
		return nil
	}
	if w.syncer != nil {
		if err := w.syncer.SyncField(ctx, w.id, field, v); err != nil {
			return fmt.Errorf("set %s: %w", field, err)
		}
	}
	*dst = v
	return nil
}
