// Package promo validates storefront promo codes against gzipped source
// files published by the marketing pipeline, loaded from S3 with a local
// file fallback.
package promo

// Set is a read-only membership set of promo codes.
type Set interface {
	Contains(code string) bool
	Size() int
}

// mapSet implements Set with a plain map for O(1) lookups.
type mapSet struct {
	codes map[string]struct{}
}

func newMapSet(capacity int) *mapSet {
	return &mapSet{codes: make(map[string]struct{}, capacity)}
}

func (s *mapSet) add(code string) {
	s.codes[code] = struct{}{}
}

// Contains checks if a code exists in the set.
func (s *mapSet) Contains(code string) bool {
	_, ok := s.codes[code]
	return ok
}

// Size returns the number of codes in the set.
func (s *mapSet) Size() int {
	return len(s.codes)
}
