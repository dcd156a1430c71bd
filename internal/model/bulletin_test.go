package model

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("morning")
	require.NoError(t, err)
	assert.Equal(t, PeriodMorning, p)

	p, err = ParsePeriod("evening")
	require.NoError(t, err)
	assert.Equal(t, PeriodEvening, p)

	_, err = ParsePeriod("afternoon")
	assert.Error(t, err)
	_, err = ParsePeriod("")
	assert.Error(t, err)
}

func TestKey_BulletinID(t *testing.T) {
	key := Key{Region: "usa", Date: "2026-09-01", Period: PeriodMorning}
	assert.Equal(t, "usa-2026-09-01-morning", key.BulletinID())
}

func TestKey_Validate(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		wantErr bool
	}{
		{"valid", Key{Region: "usa", Date: "2026-09-01", Period: PeriodMorning}, false},
		{"empty_region", Key{Date: "2026-09-01", Period: PeriodMorning}, true},
		{"bad_date", Key{Region: "usa", Date: "09/01/2026", Period: PeriodMorning}, true},
		{"bad_period", Key{Region: "usa", Date: "2026-09-01", Period: "noon"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKey_Previous(t *testing.T) {
	evening := Key{Region: "usa", Date: "2026-09-01", Period: PeriodEvening}
	assert.Equal(t, Key{Region: "usa", Date: "2026-09-01", Period: PeriodMorning}, evening.Previous())

	morning := Key{Region: "usa", Date: "2026-09-01", Period: PeriodMorning}
	assert.Equal(t, Key{Region: "usa", Date: "2026-08-31", Period: PeriodEvening}, morning.Previous())

	// Month boundary.
	first := Key{Region: "india", Date: "2026-03-01", Period: PeriodMorning}
	assert.Equal(t, "2026-02-28", first.Previous().Date)
}

func TestArticleID(t *testing.T) {
	key := Key{Region: "world", Date: "2026-09-01", Period: PeriodEvening}
	assert.Equal(t, "world-2026-09-01-evening-001", ArticleID(key, 1))
	assert.Equal(t, "world-2026-09-01-evening-010", ArticleID(key, 10))
}

func validBulletin() *Bulletin {
	key := Key{Region: "usa", Date: "2026-09-01", Period: PeriodMorning}
	b := &Bulletin{
		ID:          key.BulletinID(),
		Region:      key.Region,
		Date:        key.Date,
		Period:      key.Period,
		GeneratedAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		Version:     SchemaVersion,
	}
	for i := 1; i <= 5; i++ {
		b.Articles = append(b.Articles, Article{
			ID:        ArticleID(key, i),
			Title:     fmt.Sprintf("Headline number %d", i),
			Summary:   strings.Repeat("s", 80),
			Category:  "politics",
			Citations: []Citation{{URL: "https://example.com/a"}},
		})
	}
	b.Stats.ArticleCount = len(b.Articles)
	return b
}

func TestBulletin_Validate(t *testing.T) {
	require.NoError(t, validBulletin().Validate())

	tests := []struct {
		name    string
		mutate  func(*Bulletin)
		wantErr string
	}{
		{
			name:    "id_mismatch",
			mutate:  func(b *Bulletin) { b.ID = "usa-2026-09-01-evening" },
			wantErr: "does not match key",
		},
		{
			name:    "zero_generated_at",
			mutate:  func(b *Bulletin) { b.GeneratedAt = time.Time{} },
			wantErr: "generated_at",
		},
		{
			name:    "too_few_articles",
			mutate:  func(b *Bulletin) { b.Articles = b.Articles[:4] },
			wantErr: "4 articles",
		},
		{
			name: "too_many_articles",
			mutate: func(b *Bulletin) {
				key := b.Key()
				for i := 6; i <= 11; i++ {
					a := b.Articles[0]
					a.ID = ArticleID(key, i)
					b.Articles = append(b.Articles, a)
				}
			},
			wantErr: "11 articles",
		},
		{
			name:    "wrong_article_ordinal",
			mutate:  func(b *Bulletin) { b.Articles[2].ID = ArticleID(b.Key(), 9) },
			wantErr: "article 2 id",
		},
		{
			name:    "empty_title",
			mutate:  func(b *Bulletin) { b.Articles[0].Title = "" },
			wantErr: "title length",
		},
		{
			name:    "title_too_long",
			mutate:  func(b *Bulletin) { b.Articles[0].Title = strings.Repeat("t", MaxTitleLen+1) },
			wantErr: "title length",
		},
		{
			name:    "summary_too_short",
			mutate:  func(b *Bulletin) { b.Articles[0].Summary = strings.Repeat("s", MinSummaryLen-1) },
			wantErr: "summary length",
		},
		{
			name:    "summary_too_long",
			mutate:  func(b *Bulletin) { b.Articles[0].Summary = strings.Repeat("s", MaxSummaryLen+1) },
			wantErr: "summary length",
		},
		{
			name:    "no_category",
			mutate:  func(b *Bulletin) { b.Articles[0].Category = "" },
			wantErr: "no category",
		},
		{
			name:    "no_citations",
			mutate:  func(b *Bulletin) { b.Articles[0].Citations = nil },
			wantErr: "0 citations",
		},
		{
			name: "too_many_citations",
			mutate: func(b *Bulletin) {
				c := Citation{URL: "https://example.com/x"}
				b.Articles[0].Citations = []Citation{c, c, c, c}
			},
			wantErr: "4 citations",
		},
		{
			name:    "citation_missing_url",
			mutate:  func(b *Bulletin) { b.Articles[0].Citations = []Citation{{Title: "no url"}} },
			wantErr: "no url",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBulletin()
			tt.mutate(b)
			err := b.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBulletin_ValidateBoundaryLengths(t *testing.T) {
	b := validBulletin()
	b.Articles[0].Title = strings.Repeat("t", MaxTitleLen)
	b.Articles[0].Summary = strings.Repeat("s", MinSummaryLen)
	b.Articles[1].Summary = strings.Repeat("s", MaxSummaryLen)
	assert.NoError(t, b.Validate())
}

func TestBulletin_ValidateCountsCharactersNotBytes(t *testing.T) {
	b := validBulletin()
	b.Articles[0].Title = strings.Repeat("é", MaxTitleLen)
	b.Articles[0].Summary = strings.Repeat("ü", MinSummaryLen)
	b.Articles[1].Summary = strings.Repeat("ü", MaxSummaryLen)
	assert.NoError(t, b.Validate())

	b.Articles[0].Title += "é"
	assert.Error(t, b.Validate())
}

func TestTokenUsage(t *testing.T) {
	u := TokenUsage{PromptTokens: 100, CompletionTokens: 50}
	assert.Equal(t, 150, u.Total())

	u.Add(TokenUsage{PromptTokens: 10, CompletionTokens: 5})
	assert.Equal(t, 110, u.PromptTokens)
	assert.Equal(t, 55, u.CompletionTokens)
}
