package cron

import (
	"context"
	"fmt"
	"time"

	paystackwebhook "github.com/veldastudio/storefront-backend/internal/webhooks/paystack"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

// WebhookLogRetentionJob prunes webhook log rows past the retention window.
// The log is a reconciliation aid, not an archive.
type WebhookLogRetentionJob struct {
	repo   paystackwebhook.Repository
	logg   *logger.Logger
	maxAge time.Duration
	now    func() time.Time
}

// WebhookLogRetentionParams configure the retention job.
type WebhookLogRetentionParams struct {
	Repo   paystackwebhook.Repository
	Logger *logger.Logger
	MaxAge time.Duration
	Now    func() time.Time
}

// NewWebhookLogRetentionJob builds the retention job.
func NewWebhookLogRetentionJob(params WebhookLogRetentionParams) (*WebhookLogRetentionJob, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("webhook repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.MaxAge <= 0 {
		return nil, fmt.Errorf("retention max age must be positive")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &WebhookLogRetentionJob{
		repo:   params.Repo,
		logg:   params.Logger,
		maxAge: params.MaxAge,
		now:    now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *WebhookLogRetentionJob) Name() string { return "webhook_log_retention" }

// Run deletes log rows older than the retention window.
func (j *WebhookLogRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.maxAge)
	deleted, err := j.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithField(ctx, "deleted", deleted), "webhook log retention finished")
	return nil
}
