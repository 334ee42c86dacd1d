package pricing

import (
	"context"

	"github.com/google/uuid"

	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/internal/shared/money"
)

// CatalogService is the catalog's view of a bookable service, as consumed by
// the enricher.
type CatalogService struct {
	ID           uuid.UUID
	Title        string
	Category     string
	PriceMin     *float64
	PriceMax     *float64
	PriceDisplay string
	Features     []string
}

// CatalogReader is the port into the service catalog. Only active services
// are returned; unknown ids are omitted, not errors.
type CatalogReader interface {
	ActiveServices(ctx context.Context, ids []uuid.UUID) ([]CatalogService, error)
}

// Enricher converts service references into immutable priced snapshots.
type Enricher struct {
	catalog CatalogReader
}

// NewEnricher creates an enricher backed by the given catalog.
func NewEnricher(catalog CatalogReader) *Enricher {
	return &Enricher{catalog: catalog}
}

// Enrich materializes a snapshot for every resolvable reference, in input
// order. References to inactive or unknown services are silently dropped;
// the caller decides whether an empty result is an error.
func (e *Enricher) Enrich(ctx context.Context, refs []ServiceRef) ([]domain.ServiceSnapshot, error) {
	lookupIDs := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		if !ref.IsEnriched() {
			lookupIDs = append(lookupIDs, ref.ID)
		}
	}

	byID := make(map[uuid.UUID]CatalogService, len(lookupIDs))
	if len(lookupIDs) > 0 {
		services, err := e.catalog.ActiveServices(ctx, lookupIDs)
		if err != nil {
			return nil, err
		}
		for _, svc := range services {
			byID[svc.ID] = svc
		}
	}

	snapshots := make([]domain.ServiceSnapshot, 0, len(refs))
	for _, ref := range refs {
		if ref.IsEnriched() {
			snapshot := *ref.Snapshot
			if snapshot.PriceDisplay == "" {
				snapshot.PriceDisplay = money.FormatKshRange(snapshot.PriceMin, snapshot.PriceMax)
			}
			snapshots = append(snapshots, snapshot)
			continue
		}

		svc, ok := byID[ref.ID]
		if !ok {
			continue
		}
		snapshots = append(snapshots, toSnapshot(svc))
	}

	return snapshots, nil
}

// ReEnrichIfStale detects legacy snapshot lists persisted before enrichment
// existed. If the first snapshot lacks both price bounds, the whole list is
// treated as unenriched references and resolved again. Returns the (possibly
// unchanged) snapshots and whether a re-enrichment ran.
func (e *Enricher) ReEnrichIfStale(ctx context.Context, snapshots []domain.ServiceSnapshot) ([]domain.ServiceSnapshot, bool, error) {
	if len(snapshots) == 0 || snapshots[0].HasPricing() {
		return snapshots, false, nil
	}

	refs := make([]ServiceRef, 0, len(snapshots))
	for i := range snapshots {
		if snapshots[i].HasPricing() {
			refs = append(refs, ServiceRef{Snapshot: &snapshots[i]})
		} else {
			refs = append(refs, ServiceRef{ID: snapshots[i].ServiceID})
		}
	}

	enriched, err := e.Enrich(ctx, refs)
	if err != nil {
		return snapshots, false, err
	}
	return enriched, true, nil
}

func toSnapshot(svc CatalogService) domain.ServiceSnapshot {
	display := svc.PriceDisplay
	if display == "" {
		display = money.FormatKshRange(svc.PriceMin, svc.PriceMax)
	}

	features := svc.Features
	if features == nil {
		features = []string{}
	}

	return domain.ServiceSnapshot{
		ServiceID:    svc.ID,
		Title:        svc.Title,
		Category:     svc.Category,
		PriceMin:     svc.PriceMin,
		PriceMax:     svc.PriceMax,
		PriceDisplay: display,
		Features:     features,
	}
}
