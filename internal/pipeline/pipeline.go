package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nri-news/brief-cli/internal/config"
	"github.com/nri-news/brief-cli/internal/cost"
	"github.com/nri-news/brief-cli/internal/dedupe"
	"github.com/nri-news/brief-cli/internal/fetcher"
	"github.com/nri-news/brief-cli/internal/model"
	"github.com/nri-news/brief-cli/internal/normalize"
	"github.com/nri-news/brief-cli/internal/prompt"
	"github.com/nri-news/brief-cli/internal/registry"
	"github.com/nri-news/brief-cli/internal/resilience"
	"github.com/nri-news/brief-cli/internal/runlog"
	"github.com/nri-news/brief-cli/internal/store"
)

// Pipeline sequences one end-to-end ingestion run:
// Requesting → Normalizing → Deduplicating → Persisting → Done.
// Failures exit to a terminal outcome; nothing is retried from here, since
// the upstream client's own retry policy is exhausted before control
// returns. A failure before Persisting leaves the prior bulletin (if any)
// untouched and visible to readers.
type Pipeline struct {
	cfg      *config.Config
	upstream *fetcher.Upstream
	norm     *normalize.Normalizer
	filter   *dedupe.Filter
	store    *store.Store
	log      runlog.Store
	prompts  *prompt.Library
	regions  *registry.RegionSet
	costCalc *cost.Calculator
	now      func() time.Time
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	upstream *fetcher.Upstream,
	norm *normalize.Normalizer,
	filter *dedupe.Filter,
	st *store.Store,
	log runlog.Store,
	prompts *prompt.Library,
	regions *registry.RegionSet,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		upstream: upstream,
		norm:     norm,
		filter:   filter,
		store:    st,
		log:      log,
		prompts:  prompts,
		regions:  regions,
		costCalc: cost.NewCalculator(cfg.Pricing),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the reference clock. Tests pin it to a fixed instant.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run executes one ingestion run for (region, period, date). An empty date
// defaults to today in the region's local calendar. The returned outcome is
// terminal: RunSuccess, RunSoftFailure (prior bulletin stands) or
// RunHardFailure (operator attention). Run does not return an error; the
// outcome carries the classification the caller maps to an exit status.
func (p *Pipeline) Run(ctx context.Context, regionCode string, period model.Period, date string) model.Outcome {
	start := p.now()

	region, err := p.regions.Get(regionCode)
	if err != nil {
		return p.finish(ctx, model.Outcome{
			Region: regionCode, Period: period, Date: date,
			Status: model.RunHardFailure, Stage: model.StageRequesting,
			FailureKind: model.FailureInvalidArgument, Error: err.Error(),
		}, start)
	}
	if date == "" {
		date = region.LocalDate(start)
	}

	key := model.Key{Region: regionCode, Date: date, Period: period}
	if err := key.Validate(); err != nil {
		return p.finish(ctx, model.Outcome{
			Region: regionCode, Period: period, Date: date,
			Status: model.RunHardFailure, Stage: model.StageRequesting,
			FailureKind: model.FailureInvalidArgument, Error: err.Error(),
		}, start)
	}

	log := zap.L().With(zap.String("bulletin", key.BulletinID()))
	log.Info("pipeline: run starting")

	outcome := model.Outcome{Region: regionCode, Period: period, Date: date}

	// Requesting.
	tmpl := p.prompts.For(region, period, date)
	res, err := p.upstream.Fetch(ctx, regionCode, period, date, tmpl)
	if err != nil {
		outcome.Stage = model.StageRequesting
		outcome.Error = err.Error()
		if resilience.IsAuth(err) {
			outcome.Status = model.RunHardFailure
			outcome.FailureKind = model.FailureAuth
			log.Error("pipeline: upstream authentication failed", zap.Error(err))
		} else {
			outcome.Status = model.RunSoftFailure
			outcome.FailureKind = model.FailureUpstream
			log.Warn("pipeline: upstream exhausted retries, prior bulletin stands", zap.Error(err))
		}
		return p.finish(ctx, outcome, start)
	}
	outcome.Usage = res.Usage
	outcome.CostUSD = p.costCalc.Query(res.Usage.PromptTokens, res.Usage.CompletionTokens)

	// Normalizing.
	draft, err := p.norm.Normalize(res, key, p.now())
	if err != nil {
		outcome.Stage = model.StageNormalizing
		outcome.Status = model.RunSoftFailure
		outcome.Error = err.Error()
		switch {
		case normalize.IsInsufficient(err):
			outcome.FailureKind = model.FailureInsufficiency
			log.Warn("pipeline: thin news day, prior bulletin stands", zap.Error(err))
		default:
			outcome.FailureKind = model.FailureFormat
			log.Warn("pipeline: unparsable upstream payload, prior bulletin stands",
				zap.Int("payload_size", len(res.Content)),
				zap.Error(err),
			)
		}
		return p.finish(ctx, outcome, start)
	}

	// Deduplicating. A failed prior-bulletin read is logged and skipped:
	// publishing with possible repeats beats not publishing.
	prior, err := p.store.Previous(key)
	if err != nil {
		log.Warn("pipeline: prior bulletin lookup failed, skipping dedupe", zap.Error(err))
		prior = nil
	}
	outcome.Duplicates = p.filter.Apply(draft, prior)

	// Persisting.
	draft.Stats.Model = p.cfg.Perplexity.Model
	draft.Stats.EstimatedCostUSD = outcome.CostUSD
	draft.Stats.ProcessingSeconds = p.now().Sub(start).Seconds()
	if err := p.store.Write(draft); err != nil {
		outcome.Stage = model.StagePersisting
		outcome.Status = model.RunHardFailure
		outcome.FailureKind = model.FailurePersistence
		outcome.Error = err.Error()
		log.Error("pipeline: persistence failed", zap.Error(err))
		return p.finish(ctx, outcome, start)
	}

	outcome.Stage = model.StageDone
	outcome.Status = model.RunSuccess
	outcome.BulletinID = draft.ID
	outcome.ArticleCount = len(draft.Articles)

	log.Info("pipeline: run complete",
		zap.Int("articles", outcome.ArticleCount),
		zap.Int("duplicates_dropped", outcome.Duplicates),
		zap.Int("total_tokens", outcome.Usage.Total()),
	)
	return p.finish(ctx, outcome, start)
}

// RunAll executes one run per registered region for the given period,
// concurrently. Runs are independent; the shared rate limiter in the
// upstream client keeps the combined request rate within budget. The slice
// is ordered by region code and carries every region's terminal outcome.
func (p *Pipeline) RunAll(ctx context.Context, period model.Period, date string) []model.Outcome {
	codes := p.regions.Codes()
	outcomes := make([]model.Outcome, len(codes))

	g, gCtx := errgroup.WithContext(ctx)
	for i, code := range codes {
		g.Go(func() error {
			outcomes[i] = p.Run(gCtx, code, period, date)
			return nil
		})
	}
	_ = g.Wait() // runs report through outcomes, never through errors
	return outcomes
}

// finish stamps duration and timestamps, then records the outcome in the
// run log. Recording is best-effort; a run log hiccup must not change the
// run's terminal status.
func (p *Pipeline) finish(ctx context.Context, o model.Outcome, start time.Time) model.Outcome {
	end := p.now()
	o.DurationMS = end.Sub(start).Milliseconds()
	o.FinishedAt = end

	if p.log != nil {
		if err := p.log.Record(ctx, o); err != nil {
			zap.L().Warn("pipeline: failed to record outcome", zap.Error(err))
		}
	}
	return o
}
