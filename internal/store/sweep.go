package store

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nri-news/brief-cli/internal/model"
)

// SweepReport summarizes one retention pass.
type SweepReport struct {
	Cutoff   string              `json:"cutoff"` // oldest date kept
	Deleted  []model.Key         `json:"deleted"`
	ByRegion map[string][]string `json:"by_region,omitempty"`
	DryRun   bool                `json:"dry_run"`
}

// Sweep deletes every bulletin whose date is strictly older than
// now − windowDays, as measured against the provided reference date
// (YYYY-MM-DD). The current date is never deleted regardless of clock skew,
// and running the sweep twice on the same day is a no-op the second time.
// After deleting, the index is rebuilt by re-scan, never by subtraction, so
// it comes out consistent even if the prior index was stale. With dryRun
// set, nothing is deleted and the index is left alone.
func (s *Store) Sweep(today string, windowDays int, dryRun bool) (*SweepReport, error) {
	ref, err := time.Parse(model.DateLayout, today)
	if err != nil {
		return nil, eris.Wrapf(err, "store: sweep reference date %q", today)
	}
	if windowDays < 1 {
		return nil, eris.Errorf("store: retention window %d days is too small", windowDays)
	}
	cutoff := ref.AddDate(0, 0, -windowDays)

	log := zap.L().With(
		zap.String("today", today),
		zap.Int("window_days", windowDays),
		zap.Bool("dry_run", dryRun),
	)

	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}

	report := &SweepReport{
		Cutoff:   cutoff.Format(model.DateLayout),
		ByRegion: make(map[string][]string),
		DryRun:   dryRun,
	}

	for _, key := range keys {
		d, err := time.Parse(model.DateLayout, key.Date)
		if err != nil {
			continue
		}
		if !d.Before(cutoff) {
			continue
		}
		if key.Date == today {
			continue
		}

		if !dryRun {
			if err := s.Delete(key); err != nil {
				return nil, err
			}
		}
		report.Deleted = append(report.Deleted, key)
		report.ByRegion[key.Region] = appendUnique(report.ByRegion[key.Region], key.Date)
		log.Info("store: swept bulletin", zap.String("bulletin", key.BulletinID()))
	}

	if !dryRun {
		if _, err := s.RebuildIndex(); err != nil {
			return nil, err
		}
	}

	log.Info("store: sweep complete", zap.Int("deleted", len(report.Deleted)))
	return report, nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
