package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Region describes one publishable region. Regions are registered strings,
// not a compiled-in enum, so new regions can be added without code changes
// elsewhere in the pipeline.
type Region struct {
	Code     string `json:"code" yaml:"code"`
	Name     string `json:"name" yaml:"name"`         // display name, e.g. "United States"
	Audience string `json:"audience" yaml:"audience"` // prompt wording, e.g. "American"
	Timezone string `json:"timezone" yaml:"timezone"` // IANA zone for the local calendar day

	loc *time.Location
}

// RegionSet is an indexed collection of registered regions.
type RegionSet struct {
	mu     sync.RWMutex
	byCode map[string]*Region
}

// NewRegionSet creates an empty region set.
func NewRegionSet() *RegionSet {
	return &RegionSet{byCode: make(map[string]*Region)}
}

// Register adds a region to the set. The timezone must resolve against the
// host tz database. Re-registering a code replaces the prior entry.
func (s *RegionSet) Register(r Region) error {
	if r.Code == "" {
		return eris.New("registry: region code is required")
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return eris.Wrapf(err, "registry: region %s timezone %q", r.Code, r.Timezone)
	}
	r.loc = loc

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCode[r.Code] = &r
	return nil
}

// Get returns the region for the given code.
func (s *RegionSet) Get(code string) (*Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byCode[code]
	if !ok {
		return nil, eris.Errorf("registry: unknown region %q", code)
	}
	return r, nil
}

// Codes returns all registered region codes in sorted order.
func (s *RegionSet) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.byCode))
	for c := range s.byCode {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// LocalDate returns the calendar date (YYYY-MM-DD) for the region at the
// given instant. Every "today" in the pipeline goes through here so that
// runs near midnight UTC land on the correct local day.
func (r *Region) LocalDate(at time.Time) string {
	return at.In(r.loc).Format("2006-01-02")
}

// DefaultRegions returns a set seeded with the regions the service ships
// with. Additional regions come from configuration.
func DefaultRegions() *RegionSet {
	s := NewRegionSet()
	seed := []Region{
		{Code: "usa", Name: "United States", Audience: "American", Timezone: "America/New_York"},
		{Code: "india", Name: "India", Audience: "Indian", Timezone: "Asia/Kolkata"},
		{Code: "world", Name: "around the world", Audience: "global", Timezone: "UTC"},
	}
	for _, r := range seed {
		if err := s.Register(r); err != nil {
			// Seed zones are always present in the tz database.
			panic(err)
		}
	}
	return s
}
