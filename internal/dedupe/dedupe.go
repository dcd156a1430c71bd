package dedupe

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/nri-news/brief-cli/internal/config"
	"github.com/nri-news/brief-cli/internal/model"
)

// Filter suppresses stories already covered in the immediately preceding
// period for the same region, unless dropping them would push the bulletin
// below the article floor. The similarity signal is a best-effort heuristic:
// missed duplicates are fine, dropping a genuinely new story is the costly
// error, so both thresholds are tuned toward under-suppression and live in
// configuration.
type Filter struct {
	titleThreshold   float64
	noveltyThreshold float64
}

// New creates a Filter with the given thresholds.
func New(cfg config.DedupeConfig) *Filter {
	f := &Filter{
		titleThreshold:   cfg.TitleThreshold,
		noveltyThreshold: cfg.NoveltyThreshold,
	}
	if f.titleThreshold <= 0 {
		f.titleThreshold = 0.8
	}
	if f.noveltyThreshold <= 0 {
		f.noveltyThreshold = 0.25
	}
	return f
}

// Apply filters draft's articles against the prior bulletin. It mutates the
// draft's article list (re-deriving ordinal IDs) and returns the number of
// duplicates dropped. A nil prior is the first run for the slot; nothing is
// dropped. Apply never reduces the draft below model.MinArticles: when the
// floor is at stake, duplicates are retained in preference to violating it.
func (f *Filter) Apply(draft *model.Bulletin, prior *model.Bulletin) int {
	if prior == nil || len(prior.Articles) == 0 {
		return 0
	}

	log := zap.L().With(
		zap.String("bulletin", draft.ID),
		zap.String("prior", prior.ID),
	)

	priorTitles := make([][]string, len(prior.Articles))
	priorSummaries := make([]map[string]struct{}, len(prior.Articles))
	for i, a := range prior.Articles {
		priorTitles[i] = tokens(a.Title)
		priorSummaries[i] = tokenSet(a.Summary)
	}

	type verdict struct {
		article   model.Article
		duplicate bool
		sim       float64
	}

	verdicts := make([]verdict, 0, len(draft.Articles))
	for _, a := range draft.Articles {
		v := verdict{article: a}
		newTitle := tokens(a.Title)
		newSummary := tokenSet(a.Summary)

		for i := range prior.Articles {
			sim := jaccard(newTitle, priorTitles[i])
			if sim < f.titleThreshold {
				continue
			}
			if novelty(newSummary, priorSummaries[i]) < f.noveltyThreshold {
				v.duplicate = true
				if sim > v.sim {
					v.sim = sim
				}
			}
		}
		verdicts = append(verdicts, v)
	}

	kept := make([]model.Article, 0, len(verdicts))
	var dupes []verdict
	for _, v := range verdicts {
		if v.duplicate {
			dupes = append(dupes, v)
		} else {
			kept = append(kept, v.article)
		}
	}

	// Freshness is sacrificed before completeness: top up from the dropped
	// duplicates, in original relevance order, until the floor holds.
	if len(kept) < model.MinArticles && len(dupes) > 0 {
		need := model.MinArticles - len(kept)
		retained := 0
		for _, v := range dupes {
			if retained >= need {
				break
			}
			kept = append(kept, v.article)
			retained++
		}
		log.Info("dedupe: retained duplicates to hold article floor",
			zap.Int("retained", retained),
			zap.Int("floor", model.MinArticles),
		)
		// Restore relevance order after the top-up.
		kept = reorder(draft.Articles, kept)
	}

	dropped := len(draft.Articles) - len(kept)
	if dropped > 0 {
		log.Info("dedupe: dropped duplicate articles",
			zap.Int("dropped", dropped),
			zap.Int("remaining", len(kept)),
		)
	}

	key := draft.Key()
	dist := make(map[string]int, len(kept))
	for i := range kept {
		kept[i].ID = model.ArticleID(key, i+1)
		dist[kept[i].Category]++
	}
	draft.Articles = kept
	draft.Stats.ArticleCount = len(kept)
	draft.Stats.Categories = dist

	return dropped
}

// reorder returns the subset of original that appears in kept, preserving
// original order. Matching is by title since ordinal IDs shift.
func reorder(original, kept []model.Article) []model.Article {
	want := make(map[string]struct{}, len(kept))
	for _, a := range kept {
		want[a.Title] = struct{}{}
	}
	out := make([]model.Article, 0, len(kept))
	for _, a := range original {
		if _, ok := want[a.Title]; ok {
			out = append(out, a)
			delete(want, a.Title)
		}
	}
	return out
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lowercases, removes diacritics and strips punctuation so
// "Côte d'Ivoire Votes" and "cote divoire votes" compare equal.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func tokens(s string) []string {
	return strings.Fields(normalizeText(s))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tokens(s) {
		set[t] = struct{}{}
	}
	return set
}

// jaccard computes token-set similarity between two token slices.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// novelty is the fraction of new-summary tokens absent from the prior
// summary. Low novelty on a matching title means the story carries no new
// factual content.
func novelty(newSummary, priorSummary map[string]struct{}) float64 {
	if len(newSummary) == 0 {
		return 0
	}
	fresh := 0
	for t := range newSummary {
		if _, ok := priorSummary[t]; !ok {
			fresh++
		}
	}
	return float64(fresh) / float64(len(newSummary))
}
