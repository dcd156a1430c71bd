package dedupe

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nri-news/brief-cli/internal/config"
	"github.com/nri-news/brief-cli/internal/model"
)

func testFilter() *Filter {
	return New(config.DedupeConfig{TitleThreshold: 0.8, NoveltyThreshold: 0.25})
}

func bulletin(key model.Key, articles ...model.Article) *model.Bulletin {
	b := &model.Bulletin{
		ID:          key.BulletinID(),
		Region:      key.Region,
		Date:        key.Date,
		Period:      key.Period,
		GeneratedAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		Version:     model.SchemaVersion,
	}
	for i, a := range articles {
		a.ID = model.ArticleID(key, i+1)
		if a.Category == "" {
			a.Category = "politics"
		}
		if len(a.Citations) == 0 {
			a.Citations = []model.Citation{{URL: "https://example.com"}}
		}
		b.Articles = append(b.Articles, a)
	}
	b.Stats.ArticleCount = len(b.Articles)
	return b
}

func article(title, summary string) model.Article {
	return model.Article{Title: title, Summary: summary}
}

// filler generates n distinct articles that collide with nothing.
func filler(n int, tag string) []model.Article {
	out := make([]model.Article, n)
	for i := range out {
		out[i] = article(
			fmt.Sprintf("%s story number %d about topic %d", tag, i+1, i*7),
			fmt.Sprintf("Completely distinct summary %s %d covering separate subject matter %s", tag, i, strings.Repeat("pad ", 10)),
		)
	}
	return out
}

var (
	morningKey = model.Key{Region: "usa", Date: "2026-09-01", Period: model.PeriodMorning}
	eveningKey = model.Key{Region: "usa", Date: "2026-09-01", Period: model.PeriodEvening}
)

func TestApply_NilPrior(t *testing.T) {
	draft := bulletin(morningKey, filler(6, "alpha")...)
	dropped := testFilter().Apply(draft, nil)
	assert.Equal(t, 0, dropped)
	assert.Len(t, draft.Articles, 6)
}

func TestApply_DropsRepeatedStory(t *testing.T) {
	repeat := article(
		"Senate passes the annual budget resolution",
		"The Senate approved the annual budget resolution on a party line vote after extended debate over spending levels",
	)
	prior := bulletin(morningKey, append(filler(5, "prior"), repeat)...)
	draft := bulletin(eveningKey, append(filler(6, "fresh"), repeat)...)

	dropped := testFilter().Apply(draft, prior)
	assert.Equal(t, 1, dropped)
	require.Len(t, draft.Articles, 6)
	for _, a := range draft.Articles {
		assert.NotEqual(t, repeat.Title, a.Title)
	}
}

func TestApply_KeepsDevelopingStory(t *testing.T) {
	// Same headline, but the summary has mostly new content: an update, not
	// a repeat.
	prior := bulletin(morningKey, append(filler(5, "prior"),
		article("Wildfire spreads in northern California",
			"A fast moving wildfire forced evacuations across two counties overnight as crews struggled with high winds"))...)
	draft := bulletin(eveningKey, append(filler(5, "fresh"),
		article("Wildfire spreads in northern California",
			"Containment reached thirty percent this afternoon while officials lifted some evacuation orders and rain is forecast"))...)

	dropped := testFilter().Apply(draft, prior)
	assert.Equal(t, 0, dropped)
	assert.Len(t, draft.Articles, 6)
}

func TestApply_FloorBeatsFreshness(t *testing.T) {
	// Ten of twelve draft articles repeat the prior edition verbatim and only
	// two are fresh. Suppression must stop at the floor: five articles remain,
	// duplicates retained in relevance order.
	repeats := make([]model.Article, 10)
	for i := range repeats {
		repeats[i] = article(
			fmt.Sprintf("Recurring headline number %d for slot %d", i+1, i),
			fmt.Sprintf("Identical summary text number %d repeated verbatim from the previous edition without any changes at all %s", i, strings.Repeat("word ", 8)),
		)
	}
	prior := bulletin(morningKey, repeats...)
	draft := bulletin(eveningKey, append(filler(2, "fresh"), repeats...)...)

	dropped := testFilter().Apply(draft, prior)
	assert.Len(t, draft.Articles, model.MinArticles)
	assert.Equal(t, 12-model.MinArticles, dropped)

	// Relevance order is preserved: the two fresh stories come first, then
	// the earliest retained duplicates.
	assert.Contains(t, draft.Articles[0].Title, "fresh story number 1")
	assert.Contains(t, draft.Articles[1].Title, "fresh story number 2")
	assert.Contains(t, draft.Articles[2].Title, "Recurring headline number 1")

	// Ordinal IDs are re-derived after filtering.
	for i, a := range draft.Articles {
		assert.Equal(t, model.ArticleID(eveningKey, i+1), a.ID)
	}
	assert.Equal(t, model.MinArticles, draft.Stats.ArticleCount)
}

func TestApply_RederivesIDs(t *testing.T) {
	repeat := article(
		"Central bank holds interest rates steady",
		"The central bank held its benchmark interest rate steady citing stable inflation and a cooling labor market today",
	)
	prior := bulletin(morningKey, append(filler(5, "prior"), repeat)...)

	// Duplicate sits in the middle of the draft.
	drafts := filler(6, "fresh")
	drafts = append(drafts[:3], append([]model.Article{repeat}, drafts[3:]...)...)
	draft := bulletin(eveningKey, drafts...)

	dropped := testFilter().Apply(draft, prior)
	assert.Equal(t, 1, dropped)
	require.Len(t, draft.Articles, 6)
	for i, a := range draft.Articles {
		assert.Equal(t, model.ArticleID(eveningKey, i+1), a.ID)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Côte d'Ivoire Votes", "cote divoire votes"},
		{"Hello, World!", "hello world"},
		{"  UPPER-case  ", "  uppercase  "},
		{"résumé über façade", "resume uber facade"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeText(tt.in), "normalizeText(%q)", tt.in)
	}
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, jaccard([]string{"a", "b"}, []string{"b", "a"}))
	assert.Equal(t, 0.0, jaccard([]string{"a"}, []string{"b"}))
	assert.Equal(t, 0.0, jaccard(nil, []string{"a"}))
	assert.InDelta(t, 1.0/3.0, jaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
}

func TestNovelty(t *testing.T) {
	prior := tokenSet("the quick brown fox")
	assert.Equal(t, 0.0, novelty(tokenSet("quick brown"), prior))
	assert.Equal(t, 1.0, novelty(tokenSet("entirely different words"), prior))
	assert.InDelta(t, 0.5, novelty(tokenSet("quick jumps"), prior), 1e-9)
}
