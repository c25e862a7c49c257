// Package dedup collapses duplicate listings and filters already-seen ones.
//
// Two identities live here and they are kept apart on purpose:
//   - models.Key (date, owner, city, item, cost, item id, bulk) merges rows of
//     one snapshot side that describe the same order;
//   - models.Trade.ContentHash (date, city, owner, item, item id) recognises a
//     listing across snapshots.
package dedup

import "github.com/navid-fn/dupe-radar/internal/models"

// Merge sums the counts of trades sharing a Key and drops bulk listings.
// The input trades are not modified; order of the result is unspecified
// but stable for the same input.
func Merge(trades []*models.Trade) []*models.Trade {
	index := make(map[models.Key]*models.Trade, len(trades))
	order := make([]*models.Trade, 0, len(trades))

	for _, t := range trades {
		key := t.Key()
		if seen, ok := index[key]; ok {
			// one seller stacking the same item over several rows
			seen.Count += t.Count
			continue
		}
		merged := t.Clone()
		index[key] = merged
		order = append(order, merged)
	}

	result := order[:0]
	for _, t := range order {
		if t.Bulk {
			continue
		}
		result = append(result, t)
	}
	return result
}
