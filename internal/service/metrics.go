package service

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Catalog lookups whose failure is masked with a default value.
const (
	lookupRating      = "rating"
	lookupFavorite    = "favorite"
	lookupDisplayName = "display_name"
)

// CatalogLookupFailures counts enrichment lookups that failed and were
// replaced by their default (rating 0, not favorited, fallback name).
var CatalogLookupFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_lookup_failures_total",
		Help: "Total number of catalog enrichment lookups that failed and were served with a default value",
	},
	[]string{"lookup"},
)

func maskLookupFailure(ctx context.Context, logger *slog.Logger, lookup string, err error) {
	CatalogLookupFailures.WithLabelValues(lookup).Inc()
	logger.WarnContext(ctx, "catalog lookup failed, serving default",
		slog.String("lookup", lookup),
		slog.String("error", err.Error()),
	)
}
