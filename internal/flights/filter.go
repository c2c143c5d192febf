// internal/flights/filter.go
package flights

import (
	"log/slog"
	"math"
	"sort"
)

const (
	// segment counts up to min+1 survive the quality gate
	filterSegmentsTolerance = 1
	// fraction kept by the price and duration prunes, applied only under volume pressure
	filterPriceLeftover = 0.3
	filterTimeLeftover  = 0.3
	// hard cap on the result set handed back to the caller
	filterResultsLimit = 250
)

// FilterOffers winnows a fan-out result set down to a bounded, competitive
// subset. The segment prune is a hard quality gate applied first; the price
// and duration prunes only fire while the set still exceeds the cap, so
// otherwise-competitive results are never discarded without pressure.
func FilterOffers(items []Offer, logger *slog.Logger) []Offer {
	if len(items) == 0 {
		return []Offer{}
	}

	minPrice := items[0].Price
	minSegments := items[0].Segments
	minDuration := items[0].Hours
	for _, item := range items[1:] {
		if item.Price < minPrice {
			minPrice = item.Price
		}
		if item.Segments < minSegments {
			minSegments = item.Segments
		}
		if item.Hours < minDuration {
			minDuration = item.Hours
		}
	}
	logger.Info("filter minimums",
		"min_price", minPrice,
		"min_segments", minSegments,
		"min_duration", minDuration,
	)

	total := len(items)
	results := make([]Offer, 0, total)
	for _, item := range items {
		if item.Segments <= minSegments+filterSegmentsTolerance {
			results = append(results, item)
		}
	}
	logger.Info("filter post segment check", "was", total, "is", len(results))

	if len(results) > filterResultsLimit {
		total = len(results)
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Price < results[j].Price
		})
		results = results[:int(math.Floor(float64(len(results))*filterPriceLeftover))]
		logger.Info("filter post price check", "was", total, "is", len(results))
	}

	if len(results) > filterResultsLimit {
		total = len(results)
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Hours < results[j].Hours
		})
		results = results[:int(math.Floor(float64(len(results))*filterTimeLeftover))]
		logger.Info("filter post time check", "was", total, "is", len(results))
	}

	if len(results) > filterResultsLimit {
		results = results[:filterResultsLimit]
	}
	return results
}
