package pricing

import (
	"fmt"

	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/internal/shared/money"
)

// PriceEstimate is the derived aggregate price band for a quote's selected
// services. Never stored; recomputed from snapshots on demand.
type PriceEstimate struct {
	MinEstimate       *float64 `json:"min_estimate"`
	MaxEstimate       *float64 `json:"max_estimate"`
	Formatted         string   `json:"formatted"`
	ServiceCount      int      `json:"service_count"`
	IsPartialEstimate bool     `json:"is_partial_estimate"`
}

// Estimate sums the available price bounds across snapshots. Snapshots
// without pricing contribute nothing to the totals but still count toward
// ServiceCount. When the direct totals are empty but some snapshots carry
// partial pricing, the estimate extrapolates from the average of the known
// prices and is flagged partial. With no pricing at all it degrades to
// "Price on request".
func Estimate(snapshots []domain.ServiceSnapshot) PriceEstimate {
	if len(snapshots) == 0 {
		return PriceEstimate{Formatted: money.PriceOnRequest}
	}

	var totalMin, totalMax float64
	for _, s := range snapshots {
		if s.PriceMin != nil {
			totalMin += *s.PriceMin
		}
		if s.PriceMax != nil {
			totalMax += *s.PriceMax
		}
	}

	if totalMin == 0 && totalMax == 0 {
		return extrapolate(snapshots)
	}

	partial := false
	for _, s := range snapshots {
		if !s.HasPricing() {
			partial = true
			break
		}
	}

	return PriceEstimate{
		MinEstimate:       &totalMin,
		MaxEstimate:       &totalMax,
		Formatted:         formatBand(totalMin, totalMax),
		ServiceCount:      len(snapshots),
		IsPartialEstimate: partial,
	}
}

// extrapolate handles lists whose direct totals are zero. If some snapshots
// carry a price bound, the missing ones are assumed to cost the average of
// the known ones.
func extrapolate(snapshots []domain.ServiceSnapshot) PriceEstimate {
	var availableMin, availableMax float64
	var minCount, maxCount int
	for _, s := range snapshots {
		if s.PriceMin != nil && *s.PriceMin != 0 {
			availableMin += *s.PriceMin
			minCount++
		}
		if s.PriceMax != nil && *s.PriceMax != 0 {
			availableMax += *s.PriceMax
			maxCount++
		}
	}

	if minCount > 0 && maxCount > 0 {
		estimatedMin := availableMin / float64(minCount) * float64(len(snapshots))
		estimatedMax := availableMax / float64(maxCount) * float64(len(snapshots))
		return PriceEstimate{
			MinEstimate:       &estimatedMin,
			MaxEstimate:       &estimatedMax,
			Formatted:         fmt.Sprintf("%s (estimated)", formatBand(estimatedMin, estimatedMax)),
			ServiceCount:      len(snapshots),
			IsPartialEstimate: true,
		}
	}

	return PriceEstimate{
		Formatted:    money.PriceOnRequest,
		ServiceCount: len(snapshots),
	}
}

func formatBand(min, max float64) string {
	return money.FormatKshRange(&min, &max)
}
