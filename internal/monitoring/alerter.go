package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nri-news/brief-cli/internal/config"
)

// Alert is the webhook payload for one escalation.
type Alert struct {
	Type      string     `json:"type"`
	Severity  string     `json:"severity"`
	Message   string     `json:"message"`
	Details   Escalation `json:"details"`
	Timestamp time.Time  `json:"timestamp"`
}

// Alerter delivers escalations to a configured webhook. With no webhook
// configured it is a no-op; the status command still prints escalations.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates an Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers each escalation to the webhook URL. Returns the number of
// alerts successfully sent.
func (a *Alerter) Send(ctx context.Context, escalations []Escalation) int {
	if a.cfg.WebhookURL == "" || len(escalations) == 0 {
		return 0
	}

	sent := 0
	for _, e := range escalations {
		alert := Alert{
			Type:      "stale_bulletin",
			Severity:  "high",
			Message:   e.Message(),
			Details:   e,
			Timestamp: time.Now().UTC(),
		}
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("region", e.Region),
				zap.String("period", string(e.Period)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("region", e.Region),
			zap.String("period", string(e.Period)),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
