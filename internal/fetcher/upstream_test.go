package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nri-news/brief-cli/internal/config"
	"github.com/nri-news/brief-cli/internal/model"
	"github.com/nri-news/brief-cli/internal/prompt"
	"github.com/nri-news/brief-cli/internal/resilience"
	"github.com/nri-news/brief-cli/pkg/perplexity"
)

// fakeClient scripts the responses for successive ChatCompletion calls.
type fakeClient struct {
	responses []func() (*perplexity.ChatCompletionResponse, error)
	calls     int
	requests  []perplexity.ChatCompletionRequest
}

func (f *fakeClient) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	return f.responses[idx]()
}

func success(content string) func() (*perplexity.ChatCompletionResponse, error) {
	return func() (*perplexity.ChatCompletionResponse, error) {
		return &perplexity.ChatCompletionResponse{
			Choices:   []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: content}}},
			Citations: []perplexity.Citation{{URL: "https://example.com"}},
			Usage:     perplexity.Usage{PromptTokens: 100, CompletionTokens: 350},
		}, nil
	}
}

func transient() func() (*perplexity.ChatCompletionResponse, error) {
	return func() (*perplexity.ChatCompletionResponse, error) {
		return nil, resilience.NewTransientError(errors.New("upstream 503"), 503)
	}
}

func testConfig() config.PerplexityConfig {
	return config.PerplexityConfig{
		Model:          "sonar",
		Temperature:    0.25,
		MaxTokens:      900,
		RecencyFilter:  "day",
		RequestsPerMin: 6000, // effectively unthrottled under test
	}
}

func instantRetry() resilience.RetryConfig {
	cfg := resilience.UpstreamRetryConfig()
	cfg.Sleep = func(_ context.Context, _ time.Duration) error { return nil }
	return cfg
}

func TestFetch_Success(t *testing.T) {
	client := &fakeClient{responses: []func() (*perplexity.ChatCompletionResponse, error){success(`{"articles":[]}`)}}
	u := NewUpstream(client, testConfig()).WithRetryConfig(instantRetry())

	tmpl := prompt.Template{System: "sys", User: "user for 2026-09-01"}
	res, err := u.Fetch(context.Background(), "usa", model.PeriodMorning, "2026-09-01", tmpl)
	require.NoError(t, err)

	assert.Equal(t, `{"articles":[]}`, res.Content)
	assert.Len(t, res.Citations, 1)
	assert.Equal(t, 450, res.Usage.Total())

	// The request carries the configured generation parameters.
	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "sonar", req.Model)
	assert.Equal(t, 0.25, *req.Temperature)
	assert.Equal(t, 900, *req.MaxTokens)
	assert.Equal(t, "day", req.SearchRecencyFilter)
	assert.True(t, req.ReturnCitations)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "sys", req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
}

func TestFetch_RetriesTransient(t *testing.T) {
	client := &fakeClient{responses: []func() (*perplexity.ChatCompletionResponse, error){
		transient(),
		transient(),
		success("payload"),
	}}
	u := NewUpstream(client, testConfig()).WithRetryConfig(instantRetry())

	res, err := u.Fetch(context.Background(), "usa", model.PeriodMorning, "2026-09-01", prompt.Template{})
	require.NoError(t, err)
	assert.Equal(t, "payload", res.Content)
	assert.Equal(t, 3, client.calls)
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	var delays []time.Duration
	retryCfg := resilience.UpstreamRetryConfig()
	retryCfg.Sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	client := &fakeClient{responses: []func() (*perplexity.ChatCompletionResponse, error){transient()}}
	u := NewUpstream(client, testConfig()).WithRetryConfig(retryCfg)

	_, err := u.Fetch(context.Background(), "usa", model.PeriodMorning, "2026-09-01", prompt.Template{})
	require.Error(t, err)
	assert.Equal(t, 3, client.calls)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, delays)
}

func TestFetch_AuthShortCircuits(t *testing.T) {
	client := &fakeClient{responses: []func() (*perplexity.ChatCompletionResponse, error){
		func() (*perplexity.ChatCompletionResponse, error) {
			return nil, resilience.NewAuthError(errors.New("invalid key"), 401)
		},
	}}
	u := NewUpstream(client, testConfig()).WithRetryConfig(instantRetry())

	_, err := u.Fetch(context.Background(), "usa", model.PeriodMorning, "2026-09-01", prompt.Template{})
	require.Error(t, err)
	assert.True(t, resilience.IsAuth(err))
	assert.Equal(t, 1, client.calls)
}

func TestFetch_NoChoices(t *testing.T) {
	client := &fakeClient{responses: []func() (*perplexity.ChatCompletionResponse, error){
		func() (*perplexity.ChatCompletionResponse, error) {
			return &perplexity.ChatCompletionResponse{}, nil
		},
	}}
	u := NewUpstream(client, testConfig()).WithRetryConfig(instantRetry())

	_, err := u.Fetch(context.Background(), "usa", model.PeriodMorning, "2026-09-01", prompt.Template{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
