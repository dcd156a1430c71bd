package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/nri-news/brief-cli/internal/config"
	"github.com/nri-news/brief-cli/internal/model"
	"github.com/nri-news/brief-cli/internal/runlog"
)

// Escalation flags a (region, period) tuple whose recent runs have soft-
// failed repeatedly. One soft failure is routine; a streak means the slot
// has gone stale and a human should look.
type Escalation struct {
	Region      string            `json:"region"`
	Period      model.Period      `json:"period"`
	Consecutive int               `json:"consecutive_soft_failures"`
	LastKind    model.FailureKind `json:"last_failure_kind"`
	LastError   string            `json:"last_error,omitempty"`
	LastRunAt   time.Time         `json:"last_run_at"`
}

// Message renders a human-readable summary for alert payloads.
func (e Escalation) Message() string {
	return fmt.Sprintf("%s/%s: %d consecutive soft failures (last: %s)",
		e.Region, e.Period, e.Consecutive, e.LastKind)
}

// Checker inspects the run log for soft-failure streaks.
type Checker struct {
	log runlog.Store
	cfg config.MonitoringConfig
}

// NewChecker creates a Checker over the given run log.
func NewChecker(log runlog.Store, cfg config.MonitoringConfig) *Checker {
	return &Checker{log: log, cfg: cfg}
}

// Evaluate scans every (region, period) tuple and returns escalations for
// those whose most recent runs are an unbroken streak of soft failures at
// or above the configured threshold.
func (c *Checker) Evaluate(ctx context.Context, regions []string) ([]Escalation, error) {
	threshold := c.cfg.ConsecutiveFailures
	if threshold <= 0 {
		threshold = 2
	}
	lookback := c.cfg.LookbackOutcomes
	if lookback < threshold {
		lookback = threshold
	}

	var escalations []Escalation
	for _, region := range regions {
		for _, period := range []model.Period{model.PeriodMorning, model.PeriodEvening} {
			outcomes, err := c.log.LastN(ctx, region, period, lookback)
			if err != nil {
				return nil, eris.Wrapf(err, "monitoring: outcomes for %s/%s", region, period)
			}

			streak := 0
			for _, o := range outcomes { // newest first
				if !o.IsSoft() {
					break
				}
				streak++
			}
			if streak >= threshold {
				last := outcomes[0]
				escalations = append(escalations, Escalation{
					Region:      region,
					Period:      period,
					Consecutive: streak,
					LastKind:    last.FailureKind,
					LastError:   last.Error,
					LastRunAt:   last.FinishedAt,
				})
			}
		}
	}
	return escalations, nil
}
