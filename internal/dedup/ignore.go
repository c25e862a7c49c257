package dedup

import "github.com/navid-fn/dupe-radar/internal/models"

// HashSet is a set of trade content hashes.
type HashSet map[string]struct{}

// NewHashSet builds a set from a list of hashes.
func NewHashSet(hashes ...string) HashSet {
	set := make(HashSet, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}
	return set
}

// Contains reports whether hash is in the set.
func (s HashSet) Contains(hash string) bool {
	_, ok := s[hash]
	return ok
}

// FilterIgnored removes trades whose content hash is in ignore. The hashes
// that actually matched a trade are returned once each, in input order.
func FilterIgnored(trades []*models.Trade, ignore HashSet) ([]*models.Trade, []string) {
	if len(ignore) == 0 {
		return trades, nil
	}

	kept := make([]*models.Trade, 0, len(trades))
	var ignored []string
	reported := make(map[string]struct{})

	for _, t := range trades {
		hash := t.ContentHash()
		if !ignore.Contains(hash) {
			kept = append(kept, t)
			continue
		}
		if _, ok := reported[hash]; !ok {
			reported[hash] = struct{}{}
			ignored = append(ignored, hash)
		}
	}
	return kept, ignored
}
