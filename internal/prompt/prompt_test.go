package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nri-news/brief-cli/internal/model"
	"github.com/nri-news/brief-cli/internal/registry"
)

func usaRegion(t *testing.T) *registry.Region {
	t.Helper()
	r, err := registry.DefaultRegions().Get("usa")
	require.NoError(t, err)
	return r
}

func TestTemplate_Bind(t *testing.T) {
	tmpl := Template{User: "top stories for {{DATE}} and again {{DATE}}"}
	bound := tmpl.Bind("2026-09-01")
	assert.Equal(t, "top stories for 2026-09-01 and again 2026-09-01", bound.User)
	// Bind returns a copy.
	assert.Contains(t, tmpl.User, "{{DATE}}")
}

func TestLibrary_Defaults(t *testing.T) {
	lib, err := Load("", registry.DefaultCategories())
	require.NoError(t, err)

	tmpl := lib.For(usaRegion(t), model.PeriodMorning, "2026-09-01")
	assert.Contains(t, tmpl.System, "American audience")
	assert.Contains(t, tmpl.User, "United States")
	assert.Contains(t, tmpl.User, "2026-09-01")
	assert.NotContains(t, tmpl.User, "{{DATE}}")
	// The registered categories are offered verbatim.
	assert.Contains(t, tmpl.User, "politics")
	assert.Contains(t, tmpl.User, "other")
}

func TestLibrary_PeriodWording(t *testing.T) {
	lib, err := Load("", registry.DefaultCategories())
	require.NoError(t, err)

	morning := lib.For(usaRegion(t), model.PeriodMorning, "2026-09-01")
	evening := lib.For(usaRegion(t), model.PeriodEvening, "2026-09-01")
	assert.NotEqual(t, morning.User, evening.User)
	assert.Contains(t, evening.User, "today's developments")
}

func TestLibrary_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
prompts:
  usa-morning:
    system: "custom system"
    user: "custom user for {{DATE}}"
`), 0o644))

	lib, err := Load(path, registry.DefaultCategories())
	require.NoError(t, err)

	tmpl := lib.For(usaRegion(t), model.PeriodMorning, "2026-09-01")
	assert.Equal(t, "custom system", tmpl.System)
	assert.Equal(t, "custom user for 2026-09-01", tmpl.User)

	// Periods without an override still get defaults.
	evening := lib.For(usaRegion(t), model.PeriodEvening, "2026-09-01")
	assert.Contains(t, evening.System, "news curator")
}

func TestLoad_MissingFile(t *testing.T) {
	lib, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), registry.DefaultCategories())
	require.NoError(t, err)
	assert.NotNil(t, lib)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prompts: [not a map"), 0o644))

	_, err := Load(path, registry.DefaultCategories())
	assert.Error(t, err)
}
