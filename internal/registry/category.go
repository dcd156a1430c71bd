package registry

import (
	"sort"
	"strings"
	"sync"
)

// CategoryOther is the catch-all category. Unrecognized model output is
// coerced here rather than rejected, so one bad label never discards an
// otherwise-good article.
const CategoryOther = "other"

// CategorySet holds the registered article categories.
type CategorySet struct {
	mu     sync.RWMutex
	values map[string]struct{}
}

// NewCategorySet creates a category set containing only the catch-all.
func NewCategorySet() *CategorySet {
	s := &CategorySet{values: make(map[string]struct{})}
	s.values[CategoryOther] = struct{}{}
	return s
}

// Register adds a category value. Values are lowercased.
func (s *CategorySet) Register(value string) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[value] = struct{}{}
}

// Contains reports whether the value is a registered category.
func (s *CategorySet) Contains(value string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// Coerce returns the registered form of value, or CategoryOther (with
// coerced=true) if the value is not registered.
func (s *CategorySet) Coerce(value string) (category string, coerced bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if s.Contains(v) {
		return v, false
	}
	return CategoryOther, true
}

// Values returns all registered categories in sorted order.
func (s *CategorySet) Values() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.values))
	for v := range s.values {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// DefaultCategories returns the categories the service ships with.
func DefaultCategories() *CategorySet {
	s := NewCategorySet()
	for _, c := range []string{
		"politics", "economy", "technology", "business",
		"sports", "health", "environment", "science", "world",
	} {
		s.Register(c)
	}
	return s
}
