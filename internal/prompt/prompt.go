package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/nri-news/brief-cli/internal/model"
	"github.com/nri-news/brief-cli/internal/registry"
)

// Template is one prompt pair bound to a (region, period). The user prompt
// may contain a {{DATE}} placeholder which Bind substitutes.
type Template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Bind substitutes the target date into the user prompt.
func (t Template) Bind(date string) Template {
	t.User = strings.ReplaceAll(t.User, "{{DATE}}", date)
	return t
}

// Library resolves prompt templates by (region, period). Overrides come from
// an external YAML file; anything not overridden falls back to a default
// generated from the region registry.
type Library struct {
	overrides  map[string]Template
	categories *registry.CategorySet
}

type promptFile struct {
	Prompts map[string]Template `yaml:"prompts"` // keyed "region-period"
}

// Load reads template overrides from path. An empty path or a missing file
// yields a library of defaults only.
func Load(path string, categories *registry.CategorySet) (*Library, error) {
	lib := &Library{
		overrides:  make(map[string]Template),
		categories: categories,
	}
	if path == "" {
		return lib, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lib, nil
		}
		return nil, eris.Wrapf(err, "prompt: read %s", path)
	}

	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrapf(err, "prompt: parse %s", path)
	}
	for key, t := range pf.Prompts {
		lib.overrides[key] = t
	}
	return lib, nil
}

// For returns the template for a region and period with the date bound.
func (l *Library) For(region *registry.Region, period model.Period, date string) Template {
	key := fmt.Sprintf("%s-%s", region.Code, period)
	if t, ok := l.overrides[key]; ok {
		return t.Bind(date)
	}
	return l.defaultTemplate(region, period).Bind(date)
}

func (l *Library) defaultTemplate(region *registry.Region, period model.Period) Template {
	timeContext := "today"
	if period == model.PeriodEvening {
		timeContext = "today's developments"
	}

	system := fmt.Sprintf(`You are a professional news curator for a %s audience. Search the web for the most important breaking news stories and write concise, factual summaries suitable for a news brief.

Guidelines:
- Focus on verified information from major news outlets
- Prioritize stories with high public impact
- Avoid speculation or opinion
- Never fabricate information if sources are unavailable
- Format the response as JSON with an "articles" array of objects holding "title", "summary" and "category" fields`, region.Audience)

	user := fmt.Sprintf(`Search the web and identify the top 10 breaking news stories in %s for %s ({{DATE}}).

For each story provide:
1. Title (max 12 words, factual)
2. Summary (2-3 sentences, 40-60 words, covering who/what/when/where/why)
3. Category (select ONE from: %s)

Requirements:
- Only include stories published within the last 24 hours
- Prioritize stories with high national or international significance
- Prefer established news outlets
- Summaries must be self-contained, readable without clicking through
- If fewer than 10 stories meet the criteria, return only what qualifies

Return the response as JSON: {"articles": [{"title": "...", "summary": "...", "category": "..."}]}`,
		region.Name, timeContext, strings.Join(l.categories.Values(), ", "))

	return Template{System: system, User: user}
}
