package brackets

import (
	"sort"

	"github.com/Dosada05/tcg-arena/models"
)

// PairingSet tracks which participants have already played each other in
// one tournament. Append-only; the swiss generator consults it to avoid
// repeat pairings.
type PairingSet struct {
	pairs map[models.PairKey]struct{}
}

func NewPairingSet(pairs ...models.PairKey) *PairingSet {
	s := &PairingSet{pairs: make(map[models.PairKey]struct{}, len(pairs))}
	for _, p := range pairs {
		s.pairs[p] = struct{}{}
	}
	return s
}

func (s *PairingSet) Add(a, b int) {
	s.pairs[models.NewPairKey(a, b)] = struct{}{}
}

func (s *PairingSet) Played(a, b int) bool {
	_, ok := s.pairs[models.NewPairKey(a, b)]
	return ok
}

func (s *PairingSet) Len() int { return len(s.pairs) }

// Keys returns the recorded pairs in deterministic order.
func (s *PairingSet) Keys() []models.PairKey {
	keys := make([]models.PairKey, 0, len(s.pairs))
	for k := range s.pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].LowID != keys[j].LowID {
			return keys[i].LowID < keys[j].LowID
		}
		return keys[i].HighID < keys[j].HighID
	})
	return keys
}
