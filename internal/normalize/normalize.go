package normalize

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nri-news/brief-cli/internal/fetcher"
	"github.com/nri-news/brief-cli/internal/model"
	"github.com/nri-news/brief-cli/internal/registry"
	"github.com/nri-news/brief-cli/pkg/perplexity"
)

// Normalizer converts raw upstream payloads into validated bulletin drafts.
type Normalizer struct {
	categories *registry.CategorySet
}

// New creates a Normalizer bound to the registered category set.
func New(categories *registry.CategorySet) *Normalizer {
	return &Normalizer{categories: categories}
}

// rawArticle mirrors one element of the model's "articles" array.
type rawArticle struct {
	Title     string        `json:"title"`
	Summary   string        `json:"summary"`
	Category  string        `json:"category"`
	Source    *rawSource    `json:"source,omitempty"`
	Citations []rawCitation `json:"citations,omitempty"`
}

type rawSource struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at,omitempty"`
}

type rawCitation struct {
	Title     string `json:"title,omitempty"`
	URL       string `json:"url"`
	Publisher string `json:"publisher,omitempty"`
}

// Normalize parses, validates and assembles a bulletin draft for the given
// slot key. generatedAt is passed in explicitly so runs are deterministic
// under test. Failures are typed: *FormatError when the payload shape is
// broken, *InsufficiencyError when too few valid articles survive.
func (n *Normalizer) Normalize(res *fetcher.Result, key model.Key, generatedAt time.Time) (*model.Bulletin, error) {
	log := zap.L().With(zap.String("bulletin", key.BulletinID()))

	candidates, shape, err := extractArticles(res.Content)
	if err != nil {
		return nil, &FormatError{Reason: err.Error(), PayloadSize: len(res.Content), Shape: shape}
	}

	articles, coerced := n.filterArticles(candidates, res.Citations, log)

	if len(articles) < model.MinArticles {
		return nil, &InsufficiencyError{Valid: len(articles), Minimum: model.MinArticles}
	}
	if len(articles) > model.MaxArticles {
		// Relevance order is insertion order; keep the head, never the middle.
		articles = articles[:model.MaxArticles]
	}

	dist := make(map[string]int, len(articles))
	for i := range articles {
		articles[i].ID = model.ArticleID(key, i+1)
		dist[articles[i].Category]++
	}

	b := &model.Bulletin{
		ID:          key.BulletinID(),
		Region:      key.Region,
		Date:        key.Date,
		Period:      key.Period,
		GeneratedAt: generatedAt.UTC(),
		Version:     model.SchemaVersion,
		Articles:    articles,
		Stats: model.Stats{
			ArticleCount:      len(articles),
			Categories:        dist,
			CoercedCategories: coerced,
			Usage:             res.Usage,
		},
	}

	if err := b.Validate(); err != nil {
		return nil, &FormatError{Reason: err.Error(), PayloadSize: len(res.Content), Shape: shape}
	}

	log.Info("normalize: bulletin draft ready",
		zap.Int("candidates", len(candidates)),
		zap.Int("articles", len(articles)),
		zap.Int("coerced_categories", coerced),
	)

	return b, nil
}

// filterArticles applies per-article validation and citation attachment,
// returning the survivors in original relevance order plus the number of
// category coercions.
func (n *Normalizer) filterArticles(candidates []rawArticle, upstream []perplexity.Citation, log *zap.Logger) ([]model.Article, int) {
	var out []model.Article
	coerced := 0
	claimed := 0

	for i, raw := range candidates {
		title := strings.TrimSpace(raw.Title)
		summary := strings.TrimSpace(raw.Summary)

		if title == "" || utf8.RuneCountInString(title) > model.MaxTitleLen {
			log.Debug("normalize: dropping article with bad title", zap.Int("index", i), zap.Int("title_len", utf8.RuneCountInString(title)))
			continue
		}
		if n := utf8.RuneCountInString(summary); n < model.MinSummaryLen || n > model.MaxSummaryLen {
			log.Debug("normalize: dropping article with bad summary", zap.Int("index", i), zap.Int("summary_len", n))
			continue
		}

		category, wasCoerced := n.categories.Coerce(raw.Category)
		if wasCoerced {
			coerced++
			log.Debug("normalize: coerced unknown category",
				zap.Int("index", i),
				zap.String("got", raw.Category),
				zap.String("coerced_to", category),
			)
		}

		citations := inlineCitations(raw.Citations)
		if len(citations) == 0 {
			// Best-effort order matching: the next unclaimed upstream
			// citations go to the next articles lacking inline ones.
			for claimed < len(upstream) && len(citations) < 1 {
				citations = append(citations, fromUpstream(upstream[claimed]))
				claimed++
			}
		}
		if len(citations) == 0 {
			log.Debug("normalize: dropping article with no attachable citations", zap.Int("index", i), zap.String("title", title))
			continue
		}
		if len(citations) > model.MaxCitations {
			citations = citations[:model.MaxCitations]
		}

		out = append(out, model.Article{
			Title:     title,
			Summary:   summary,
			Category:  category,
			Source:    convertSource(raw.Source),
			Citations: citations,
		})
	}

	return out, coerced
}

func inlineCitations(raw []rawCitation) []model.Citation {
	var out []model.Citation
	for _, c := range raw {
		if strings.TrimSpace(c.URL) == "" {
			continue
		}
		out = append(out, model.Citation{
			Title:     orDefault(c.Title, "Reference"),
			URL:       c.URL,
			Publisher: orDefault(c.Publisher, domainName(c.URL)),
		})
	}
	return out
}

func fromUpstream(c perplexity.Citation) model.Citation {
	return model.Citation{
		Title:     orDefault(c.Title, "Reference"),
		URL:       c.URL,
		Publisher: orDefault(c.Publisher, domainName(c.URL)),
	}
}

func convertSource(raw *rawSource) *model.Source {
	if raw == nil || strings.TrimSpace(raw.URL) == "" {
		return nil
	}
	src := &model.Source{
		Name: orDefault(raw.Name, domainName(raw.URL)),
		URL:  raw.URL,
	}
	if raw.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, raw.PublishedAt); err == nil {
			src.PublishedAt = &ts
		}
	}
	return src
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// domainName extracts a display name from a URL, e.g. "reuters.com" from
// "https://www.reuters.com/markets/...".
func domainName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "Unknown Source"
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// extractArticles pulls the articles array out of the model's completion
// text, tolerating markdown code fences and loose wrapping. The returned
// shape string describes what the payload looked like for diagnostics.
func extractArticles(content string) ([]rawArticle, string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, "empty", errEmptyContent
	}

	cleaned := cleanJSON(trimmed)

	// {"articles": [...]} is the contract shape.
	var wrapper struct {
		Articles []rawArticle `json:"articles"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapper); err == nil && wrapper.Articles != nil {
		if len(wrapper.Articles) == 0 {
			return nil, "object", errNoArticles
		}
		return wrapper.Articles, "object", nil
	}

	// Bare array fallback.
	var list []rawArticle
	if err := json.Unmarshal([]byte(cleaned), &list); err == nil {
		if len(list) == 0 {
			return nil, "array", errNoArticles
		}
		return list, "array", nil
	}

	// Single object fallback.
	var single rawArticle
	if err := json.Unmarshal([]byte(cleaned), &single); err == nil && single.Title != "" {
		return []rawArticle{single}, "single", nil
	}

	return nil, "unparsable", errNotJSON
}

// cleanJSON strips markdown code fences and trims to the outermost JSON
// value so fenced completions still decode.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")
	switch {
	case arrStart >= 0 && (objStart < 0 || arrStart < objStart):
		if end := strings.LastIndex(text, "]"); end > arrStart {
			text = text[arrStart : end+1]
		}
	case objStart >= 0:
		if end := strings.LastIndex(text, "}"); end > objStart {
			text = text[objStart : end+1]
		}
	}

	return strings.TrimSpace(text)
}
