package catalogue

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/cellar/internal/metrics"
	"github.com/roach88/cellar/internal/store"
	"github.com/roach88/cellar/internal/wine"
)

// notifier writes single-field mutations of attached wines to storage.
// It holds no references to records.
//
// A retired notifier belongs to wines whose rows were removed. It drops their
// mutations so they never reach a row inserted later.
type notifier struct {
	store   *store.Store
	log     *slog.Logger
	metrics metrics.Collector
	retired bool
}

var (
	_ wine.Syncer      = (*notifier)(nil)
	_ wine.GeoResolver = (*notifier)(nil)
)

// SyncField issues one UPDATE for one column of one row.
func (n *notifier) SyncField(ctx context.Context, id int64, field wine.Field, value any) error {
	if n.retired {
		n.log.Warn("mutation on removed wine not written",
			"id", id,
			"column", field.Column(),
		)
		return nil
	}
	if id == wine.UnassignedID {
		n.log.Warn("mutation on unpersisted wine not written",
			"column", field.Column(),
		)
		return nil
	}

	start := time.Now()
	affected, err := n.store.UpdateWineField(ctx, id, field, value)
	n.metrics.WriteThrough(field.Column(), err)
	if err != nil {
		n.log.Error("write-through failed",
			"id", id,
			"column", field.Column(),
			"error", err,
		)
		return persistence("update "+field.Column(), err)
	}

	if affected == 0 {
		n.log.Warn("write-through matched no row",
			"id", id,
			"column", field.Column(),
		)
		return nil
	}

	n.log.Debug("write-through",
		"id", id,
		"column", field.Column(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ResolveGeo matches region against the known geolocations.
func (n *notifier) ResolveGeo(ctx context.Context, region string) (*wine.GeoLocation, bool) {
	if n.retired {
		return nil, false
	}
	geos, err := n.store.MatchGeolocations(ctx, []string{region})
	if err != nil {
		n.log.Warn("geolocation match failed", "region", region, "error", err)
		return nil, false
	}
	if g, ok := geos[region]; ok {
		return &g, true
	}
	return nil, true
}
