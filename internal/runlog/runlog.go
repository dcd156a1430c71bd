package runlog

import (
	"context"

	"github.com/nri-news/brief-cli/internal/model"
)

// Store records pipeline run outcomes and serves the recent history per
// (region, period) tuple. The history is what lets an external monitor spot
// two consecutive soft failures for the same slot; the log itself never
// raises alerts.
type Store interface {
	// Record appends one outcome.
	Record(ctx context.Context, o model.Outcome) error
	// LastN returns up to n most recent outcomes for the tuple, newest first.
	LastN(ctx context.Context, region string, period model.Period, n int) ([]model.Outcome, error)

	Migrate(ctx context.Context) error
	Close() error
}
