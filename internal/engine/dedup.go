package engine

import (
	"crypto/sha256"
	"strings"
	"sync"
)

// urlKey is the first 128 bits of a URL's SHA-256.
type urlKey [16]byte

func keyOf(rawURL string) urlKey {
	sum := sha256.Sum256([]byte(rawURL))
	var k urlKey
	copy(k[:], sum[:len(k)])
	return k
}

// VisitedSet records URLs by exact string identity. No normalisation is
// applied, so "https://a.test/x" and "https://a.test/x/" are distinct.
type VisitedSet struct {
	mu   sync.RWMutex
	keys map[urlKey]struct{}
}

// NewVisitedSet creates an empty set sized for about sizeHint URLs.
func NewVisitedSet(sizeHint int) *VisitedSet {
	return &VisitedSet{keys: make(map[urlKey]struct{}, sizeHint)}
}

// Contains reports whether rawURL was added before.
func (s *VisitedSet) Contains(rawURL string) bool {
	k := keyOf(rawURL)
	s.mu.RLock()
	_, ok := s.keys[k]
	s.mu.RUnlock()
	return ok
}

// Add inserts rawURL and reports whether it was new.
func (s *VisitedSet) Add(rawURL string) bool {
	k := keyOf(rawURL)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = struct{}{}
	return true
}

// Len returns the number of distinct URLs in the set.
func (s *VisitedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// NormalizeLink prepares a harvested href for the frontier. Only
// surrounding whitespace and the fragment are removed.
func NormalizeLink(rawURL string) string {
	rawURL, _, _ = strings.Cut(strings.TrimSpace(rawURL), "#")
	return rawURL
}
