package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/reviewpower/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertStageFailureRate AlertType = "stage_failure_rate"
	AlertDataQuality      AlertType = "data_quality"
	AlertStaleRun         AlertType = "stale_run"
)

// minFinishedRuns is the number of finished runs a stage needs before its
// failure rate is evaluated.
const minFinishedRuns = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	for _, s := range snap.Stages {
		if s.Finished() >= minFinishedRuns && s.FailRate > a.cfg.FailureRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertStageFailureRate,
				Severity: "high",
				Message: fmt.Sprintf(
					"%s failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
					s.Stage, s.FailRate*100, a.cfg.FailureRateThreshold*100,
					s.Failed, s.Finished(), snap.LookbackHours,
				),
				Details: map[string]any{
					"stage":        s.Stage,
					"failure_rate": s.FailRate,
					"threshold":    a.cfg.FailureRateThreshold,
				},
				Timestamp: now,
			})
		}

		if a.cfg.SkipRateThreshold > 0 && s.SkipRate > a.cfg.SkipRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertDataQuality,
				Severity: "medium",
				Message: fmt.Sprintf(
					"%s skipped %.1f%% of input rows (%d of %d), threshold %.1f%%",
					s.Stage, s.SkipRate*100, s.Skipped, s.RowsIn, a.cfg.SkipRateThreshold*100,
				),
				Details: map[string]any{
					"stage":     s.Stage,
					"skip_rate": s.SkipRate,
					"skipped":   s.Skipped,
					"rows_in":   s.RowsIn,
				},
				Timestamp: now,
			})
		}

		if s.Stale > 0 {
			alerts = append(alerts, Alert{
				Type:     AlertStaleRun,
				Severity: "medium",
				Message:  fmt.Sprintf("%d %s run(s) never finished", s.Stale, s.Stage),
				Details: map[string]any{
					"stage": s.Stage,
					"stale": s.Stale,
				},
				Timestamp: now,
			})
		}
	}
	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
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
