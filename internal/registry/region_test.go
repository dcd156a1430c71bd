package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionSet_Register(t *testing.T) {
	s := NewRegionSet()
	require.NoError(t, s.Register(Region{Code: "uk", Name: "United Kingdom", Audience: "British", Timezone: "Europe/London"}))

	r, err := s.Get("uk")
	require.NoError(t, err)
	assert.Equal(t, "United Kingdom", r.Name)

	assert.Error(t, s.Register(Region{Name: "no code", Timezone: "UTC"}))
	assert.Error(t, s.Register(Region{Code: "bad", Timezone: "Mars/Olympus"}))
}

func TestRegionSet_RegisterReplaces(t *testing.T) {
	s := NewRegionSet()
	require.NoError(t, s.Register(Region{Code: "usa", Name: "old", Timezone: "UTC"}))
	require.NoError(t, s.Register(Region{Code: "usa", Name: "new", Timezone: "America/New_York"}))

	r, err := s.Get("usa")
	require.NoError(t, err)
	assert.Equal(t, "new", r.Name)
}

func TestRegionSet_GetUnknown(t *testing.T) {
	_, err := NewRegionSet().Get("atlantis")
	assert.Error(t, err)
}

func TestRegionSet_Codes(t *testing.T) {
	assert.Equal(t, []string{"india", "usa", "world"}, DefaultRegions().Codes())
}

func TestRegion_LocalDate(t *testing.T) {
	regions := DefaultRegions()

	// 2026-09-01 02:00 UTC: still Aug 31 in New York, already Sep 1 in Kolkata.
	at := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)

	usa, err := regions.Get("usa")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-31", usa.LocalDate(at))

	india, err := regions.Get("india")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", india.LocalDate(at))

	world, err := regions.Get("world")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", world.LocalDate(at))
}
