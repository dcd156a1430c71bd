package model

import "time"

// RunStatus is the terminal status of one pipeline run.
type RunStatus string

const (
	// RunSuccess means a bulletin was written.
	RunSuccess RunStatus = "success"
	// RunSoftFailure means the run failed but the prior bulletin (if any)
	// still stands; only a diagnostic is logged.
	RunSoftFailure RunStatus = "soft_failure"
	// RunHardFailure means configuration, auth or infrastructure is broken
	// and an operator should be alerted.
	RunHardFailure RunStatus = "hard_failure"
)

// Stage names the pipeline state a run was in when it finished or failed.
type Stage string

const (
	StageRequesting    Stage = "requesting"
	StageNormalizing   Stage = "normalizing"
	StageDeduplicating Stage = "deduplicating"
	StagePersisting    Stage = "persisting"
	StageDone          Stage = "done"
)

// FailureKind classifies why a run failed. Distinct kinds carry distinct
// log signals: insufficiency means a thin news day, format means the model
// broke contract, and so on.
type FailureKind string

const (
	FailureNone            FailureKind = ""
	FailureAuth            FailureKind = "auth"
	FailureUpstream        FailureKind = "upstream_exhausted"
	FailureFormat          FailureKind = "format"
	FailureInsufficiency   FailureKind = "insufficient_content"
	FailurePersistence     FailureKind = "persistence"
	FailureInvalidArgument FailureKind = "invalid_argument"
)

// Outcome records the result of one orchestrated run for a (region, period,
// date) tuple. Outcomes are appended to the run log so that repeated soft
// failures for the same tuple can be escalated.
type Outcome struct {
	RunID        string      `json:"run_id"`
	Region       string      `json:"region"`
	Period       Period      `json:"period"`
	Date         string      `json:"date"`
	Status       RunStatus   `json:"status"`
	Stage        Stage       `json:"stage"`
	FailureKind  FailureKind `json:"failure_kind,omitempty"`
	Error        string      `json:"error,omitempty"`
	BulletinID   string      `json:"bulletin_id,omitempty"`
	ArticleCount int         `json:"article_count,omitempty"`
	Duplicates   int         `json:"duplicates_dropped,omitempty"`
	Usage        TokenUsage  `json:"usage"`
	CostUSD      float64     `json:"cost_usd,omitempty"`
	DurationMS   int64       `json:"duration_ms"`
	FinishedAt   time.Time   `json:"finished_at"`
}

// IsSoft reports whether the outcome is a soft failure.
func (o Outcome) IsSoft() bool { return o.Status == RunSoftFailure }
