package fetcher

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nri-news/brief-cli/internal/config"
	"github.com/nri-news/brief-cli/internal/model"
	"github.com/nri-news/brief-cli/internal/prompt"
	"github.com/nri-news/brief-cli/internal/resilience"
	"github.com/nri-news/brief-cli/pkg/perplexity"
)

// Result is the raw success payload from one upstream call, ready for the
// normalizer. Content may still be unparsable; that is the normalizer's
// problem, not a transport failure.
type Result struct {
	Content   string
	Citations []perplexity.Citation
	Usage     model.TokenUsage
}

// Upstream issues one content-generation request per Fetch call, owning the
// retry discipline toward the model: three attempts with 1s/2s/4s delays on
// transient failures, immediate short-circuit on auth failures. It holds no
// state across invocations beyond the shared rate limiter.
type Upstream struct {
	client  perplexity.Client
	cfg     config.PerplexityConfig
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewUpstream creates an upstream fetcher. The rate limiter is shared by all
// concurrent region runs so a multi-region invocation stays under the API's
// request budget.
func NewUpstream(client perplexity.Client, cfg config.PerplexityConfig) *Upstream {
	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 20
	}
	retryCfg := resilience.UpstreamRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("perplexity", "chat_completion")
	return &Upstream{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		retry:   retryCfg,
	}
}

// WithRetryConfig overrides the retry policy. Tests use this to inject a
// recording sleep function.
func (u *Upstream) WithRetryConfig(cfg resilience.RetryConfig) *Upstream {
	u.retry = cfg
	return u
}

// Fetch performs the upstream call for one (region, period, date) with the
// bound prompt template.
func (u *Upstream) Fetch(ctx context.Context, region string, period model.Period, date string, tmpl prompt.Template) (*Result, error) {
	log := zap.L().With(
		zap.String("region", region),
		zap.String("period", string(period)),
		zap.String("date", date),
	)

	temp := u.cfg.Temperature
	maxTokens := u.cfg.MaxTokens
	req := perplexity.ChatCompletionRequest{
		Model:               u.cfg.Model,
		Temperature:         &temp,
		MaxTokens:           &maxTokens,
		SearchRecencyFilter: u.cfg.RecencyFilter,
		ReturnCitations:     true,
		Messages: []perplexity.Message{
			{Role: "system", Content: tmpl.System},
			{Role: "user", Content: tmpl.User},
		},
	}

	resp, err := resilience.DoVal(ctx, u.retry, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		if err := u.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limit wait")
		}
		return u.client.ChatCompletion(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: upstream call")
	}

	if len(resp.Choices) == 0 {
		return nil, eris.New("fetcher: upstream returned no choices")
	}

	result := &Result{
		Content:   resp.Choices[0].Message.Content,
		Citations: resp.Citations,
		Usage: model.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}

	log.Info("fetcher: upstream response received",
		zap.Int("content_length", len(result.Content)),
		zap.Int("citations", len(result.Citations)),
		zap.Int("total_tokens", result.Usage.Total()),
	)

	return result, nil
}
