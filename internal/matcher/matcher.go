// Package matcher finds arbitrage opportunities between demands and offers.
//
// Matching is greedy: the most expensive demand is served first from the
// cheapest offers. It is not globally optimal and does not try to be.
package matcher

import (
	"sort"

	"github.com/navid-fn/dupe-radar/internal/models"
)

// FindDupes pairs demands with cheaper offers of the same item.
//
// FindDupes takes ownership of the trades it is given for the duration of
// the call: it decrements Count on both sides as supply is consumed, so an
// offer used up by one demand is gone for the next. Callers that need the
// original counts must pass copies (see models.CloneTrades).
//
// Dupes come back grouped per demand, highest demand cost first, and within a
// demand from the cheapest offer up.
func FindDupes(demands, offers []*models.Trade) []models.Dupe {
	buckets := indexOffers(offers)

	ordered := make([]*models.Trade, len(demands))
	copy(ordered, demands)
	// cost desc, count desc
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Cost != ordered[j].Cost {
			return ordered[i].Cost > ordered[j].Cost
		}
		return ordered[i].Count > ordered[j].Count
	})

	var dupes []models.Dupe
	for _, demand := range ordered {
		bucket, ok := buckets[demand.ItemKey()]
		if !ok {
			continue
		}

		eligible := eligibleOffers(bucket, demand)
		for demand.Count > 0 {
			offer := firstAvailable(eligible)
			if offer == nil {
				break
			}

			dupe := models.NewDupe(demand, offer)
			if dupe.BuyCount <= 0 {
				break
			}
			dupes = append(dupes, dupe)

			demand.Count -= dupe.BuyCount
			offer.Count -= dupe.BuyCount
		}
	}

	return dupes
}

// indexOffers buckets offers by item and sorts each bucket cost asc, count desc.
func indexOffers(offers []*models.Trade) map[string][]*models.Trade {
	buckets := make(map[string][]*models.Trade)
	for _, o := range offers {
		key := o.ItemKey()
		buckets[key] = append(buckets[key], o)
	}

	for _, bucket := range buckets {
		sort.SliceStable(bucket, func(i, j int) bool {
			if bucket[i].Cost != bucket[j].Cost {
				return bucket[i].Cost < bucket[j].Cost
			}
			return bucket[i].Count > bucket[j].Count
		})
	}
	return buckets
}

// eligibleOffers keeps unit offers strictly cheaper than the demand.
// Equal cost is not arbitrage.
func eligibleOffers(bucket []*models.Trade, demand *models.Trade) []*models.Trade {
	var eligible []*models.Trade
	for _, o := range bucket {
		if o.Count > 0 && o.Cost < demand.Cost && !o.Bulk {
			eligible = append(eligible, o)
		}
	}
	return eligible
}

func firstAvailable(offers []*models.Trade) *models.Trade {
	for _, o := range offers {
		if o.Count > 0 {
			return o
		}
	}
	return nil
}
