package cost

import "github.com/nri-news/brief-cli/internal/config"

// Calculator computes estimated upstream spend for a run. The figures are
// informational accounting only and never feed business rules.
type Calculator struct {
	rates config.PricingConfig
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates config.PricingConfig) *Calculator {
	return &Calculator{rates: rates}
}

// Query returns the cost of one upstream call: the flat per-query search
// fee plus token pricing (USD per million tokens).
func (c *Calculator) Query(promptTokens, completionTokens int) float64 {
	inCost := (float64(promptTokens) / 1e6) * c.rates.InputPerMTok
	outCost := (float64(completionTokens) / 1e6) * c.rates.OutputPerMTok
	return c.rates.PerQuery + inCost + outCost
}
