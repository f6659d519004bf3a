package table

import (
	"github.com/nhle/mail-reconciler/internal/model"
	"github.com/nhle/mail-reconciler/internal/normalize"
)

// FindRelatedRows returns every row whose primary or response address
// matches the original address or any of the related addresses, compared
// in normalized form. A row matching on its primary address is reported
// with that address and its response cell is not consulted. Blank cells
// never match. The order of the result follows row order.
func (s *Store) FindRelatedRows(original string, related []string) ([]model.MatchCandidate, error) {
	if s.rows == nil {
		return nil, ErrNotLoaded
	}

	target := normalize.Email(original)
	relatedSet := make(map[string]struct{}, len(related))
	for _, addr := range related {
		if n := normalize.Email(addr); n != "" {
			relatedSet[n] = struct{}{}
		}
	}

	matches := func(addr string) bool {
		if addr == "" {
			return false
		}
		if addr == target && target != "" {
			return true
		}
		_, ok := relatedSet[addr]
		return ok
	}

	var candidates []model.MatchCandidate
	for idx, row := range s.rows {
		if addr := normalize.Email(row[s.mailColumn]); matches(addr) {
			candidates = append(candidates, model.MatchCandidate{Row: idx, Address: addr})
			continue
		}
		if addr := normalize.Email(row[s.responseColumn]); matches(addr) {
			candidates = append(candidates, model.MatchCandidate{Row: idx, Address: addr})
		}
	}
	return candidates, nil
}
