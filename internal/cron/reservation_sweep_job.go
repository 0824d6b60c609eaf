package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/veldastudio/storefront-backend/internal/inventory"
	"github.com/veldastudio/storefront-backend/pkg/logger"
	"github.com/veldastudio/storefront-backend/pkg/metrics"
)

const reservationSweepBatch = 500

// ReservationSweepJob releases stock holds whose TTL lapsed without payment.
type ReservationSweepJob struct {
	inventory inventory.Service
	logg      *logger.Logger
	metrics   *metrics.CronJobMetrics
	now       func() time.Time
}

// ReservationSweepParams configure the sweep job.
type ReservationSweepParams struct {
	Inventory inventory.Service
	Logger    *logger.Logger
	Metrics   *metrics.CronJobMetrics
	Now       func() time.Time
}

// NewReservationSweepJob builds the expiry sweep job.
func NewReservationSweepJob(params ReservationSweepParams) (*ReservationSweepJob, error) {
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ReservationSweepJob{
		inventory: params.Inventory,
		logg:      params.Logger,
		metrics:   params.Metrics,
		now:       now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *ReservationSweepJob) Name() string { return "reservation_sweep" }

// Run releases expired holds until a batch comes back short.
func (j *ReservationSweepJob) Run(ctx context.Context) error {
	total := 0
	for {
		released, err := j.inventory.CleanupExpired(ctx, j.now(), reservationSweepBatch)
		if err != nil {
			return err
		}
		total += released
		if released < reservationSweepBatch {
			break
		}
	}

	if j.metrics != nil && total > 0 {
		j.metrics.AddReleased(j.Name(), total)
	}
	j.logg.Info(j.logg.WithField(ctx, "released", total), "reservation sweep finished")
	return nil
}
