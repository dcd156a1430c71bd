package model

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// Period identifies which half-day window a bulletin covers. Morning covers
// the overnight window ending at the morning anchor; evening covers the
// daytime window ending at the evening anchor. The two are contiguous and
// non-overlapping across a day.
type Period string

const (
	PeriodMorning Period = "morning"
	PeriodEvening Period = "evening"
)

// ParsePeriod validates a period string.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodMorning, PeriodEvening:
		return Period(s), nil
	default:
		return "", eris.Errorf("model: invalid period %q (want morning or evening)", s)
	}
}

// Article count bounds for a publishable bulletin.
const (
	MinArticles = 5
	MaxArticles = 10
)

// Field bounds, checked by the normalizer before a bulletin is persisted.
const (
	MaxTitleLen   = 120
	MinSummaryLen = 40
	MaxSummaryLen = 500
	MaxCitations  = 3
	SchemaVersion = "1.0"
	DateLayout    = "2006-01-02"
)

// Key identifies exactly one bulletin slot. At most one bulletin exists per
// key at any time; a re-run for the same key replaces it wholesale.
type Key struct {
	Region string `json:"region"`
	Date   string `json:"date"` // YYYY-MM-DD, region-local calendar day
	Period Period `json:"period"`
}

// BulletinID returns the canonical bulletin identifier, e.g.
// "usa-2026-09-01-morning".
func (k Key) BulletinID() string {
	return fmt.Sprintf("%s-%s-%s", k.Region, k.Date, string(k.Period))
}

func (k Key) String() string { return k.BulletinID() }

// Validate checks the key fields.
func (k Key) Validate() error {
	if k.Region == "" {
		return eris.New("model: key region is empty")
	}
	if _, err := time.Parse(DateLayout, k.Date); err != nil {
		return eris.Wrapf(err, "model: key date %q", k.Date)
	}
	if _, err := ParsePeriod(string(k.Period)); err != nil {
		return err
	}
	return nil
}

// Previous returns the key of the immediately preceding bulletin for the
// same region: morning follows the prior day's evening, evening follows the
// same day's morning.
func (k Key) Previous() Key {
	if k.Period == PeriodEvening {
		return Key{Region: k.Region, Date: k.Date, Period: PeriodMorning}
	}
	d, err := time.Parse(DateLayout, k.Date)
	if err != nil {
		return Key{Region: k.Region, Date: k.Date, Period: PeriodEvening}
	}
	return Key{
		Region: k.Region,
		Date:   d.AddDate(0, 0, -1).Format(DateLayout),
		Period: PeriodEvening,
	}
}

// Citation is one supporting reference attached to an article. Every
// persisted article carries between 1 and 3 of these.
type Citation struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Publisher string `json:"publisher,omitempty"`
}

// Source is the primary attribution for an article.
type Source struct {
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Article is one validated news item inside a bulletin. Articles have no
// lifecycle of their own; they are created and destroyed with their bulletin.
type Article struct {
	ID        string     `json:"id"` // "<bulletin id>-NNN", NNN = 1-based ordinal
	Title     string     `json:"title"`
	Summary   string     `json:"summary"`
	Category  string     `json:"category"`
	Source    *Source    `json:"source,omitempty"`
	Citations []Citation `json:"citations"`
}

// ArticleID derives the stable article identifier from the bulletin key and
// the article's 1-based position.
func ArticleID(key Key, ordinal int) string {
	return fmt.Sprintf("%s-%03d", key.BulletinID(), ordinal)
}

// TokenUsage tracks upstream token consumption for one run.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Total returns the combined token count.
func (u TokenUsage) Total() int { return u.PromptTokens + u.CompletionTokens }

// Add accumulates another usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// Stats is informational accounting attached to a bulletin. It is never
// validated against business rules.
type Stats struct {
	ArticleCount      int            `json:"article_count"`
	Categories        map[string]int `json:"categories_distribution,omitempty"`
	CoercedCategories int            `json:"coerced_categories,omitempty"` // data-quality signal
	Model             string         `json:"model,omitempty"`
	Usage             TokenUsage     `json:"usage"`
	EstimatedCostUSD  float64        `json:"estimated_cost_usd,omitempty"`
	ProcessingSeconds float64        `json:"processing_seconds"`
}

// Bulletin is the unit of persistence: one brief per (region, date, period).
type Bulletin struct {
	ID          string    `json:"id"`
	Region      string    `json:"region"`
	Date        string    `json:"date"`
	Period      Period    `json:"period"`
	GeneratedAt time.Time `json:"generated_at"` // UTC
	Version     string    `json:"version"`
	Articles    []Article `json:"articles"`
	Stats       Stats     `json:"stats"`
}

// Key returns the bulletin's slot key.
func (b *Bulletin) Key() Key {
	return Key{Region: b.Region, Date: b.Date, Period: b.Period}
}

// Validate checks the structural invariants a bulletin must satisfy before
// it may be persisted: id derivation, article count bounds, per-article
// field bounds and citation completeness.
func (b *Bulletin) Validate() error {
	key := b.Key()
	if err := key.Validate(); err != nil {
		return err
	}
	if b.ID != key.BulletinID() {
		return eris.Errorf("model: bulletin id %q does not match key %q", b.ID, key.BulletinID())
	}
	if b.GeneratedAt.IsZero() {
		return eris.New("model: bulletin generated_at is zero")
	}
	if n := len(b.Articles); n < MinArticles || n > MaxArticles {
		return eris.Errorf("model: bulletin has %d articles, want %d-%d", n, MinArticles, MaxArticles)
	}

	seen := make(map[string]struct{}, len(b.Articles))
	for i, a := range b.Articles {
		want := ArticleID(key, i+1)
		if a.ID != want {
			return eris.Errorf("model: article %d id %q, want %q", i, a.ID, want)
		}
		if _, dup := seen[a.ID]; dup {
			return eris.Errorf("model: duplicate article id %q", a.ID)
		}
		seen[a.ID] = struct{}{}

		// Length bounds count characters, not bytes.
		if n := utf8.RuneCountInString(a.Title); a.Title == "" || n > MaxTitleLen {
			return eris.Errorf("model: article %s title length %d outside (0,%d]", a.ID, n, MaxTitleLen)
		}
		if n := utf8.RuneCountInString(a.Summary); n < MinSummaryLen || n > MaxSummaryLen {
			return eris.Errorf("model: article %s summary length %d outside [%d,%d]", a.ID, n, MinSummaryLen, MaxSummaryLen)
		}
		if a.Category == "" {
			return eris.Errorf("model: article %s has no category", a.ID)
		}
		if n := len(a.Citations); n < 1 || n > MaxCitations {
			return eris.Errorf("model: article %s has %d citations, want 1-%d", a.ID, n, MaxCitations)
		}
		for j, c := range a.Citations {
			if c.URL == "" {
				return eris.Errorf("model: article %s citation %d has no url", a.ID, j)
			}
		}
	}

	return nil
}
