// Package jobs runs the scheduled background work: the nightly
// subscription reconciliation sweep that backstops lost webhooks.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jordanlanch/showcasely/pkg/subscription"
)

// CronManager manages scheduled jobs
type CronManager struct {
	cron          *cron.Cron
	subscriptions *subscription.Service
	logger        *log.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(subscriptions *subscription.Service, logger *log.Logger) *CronManager {
	if logger == nil {
		logger = log.Default()
	}

	return &CronManager{
		cron:          cron.New(),
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// SetupJobs configures all scheduled jobs. schedule is a standard cron
// expression for the reconciliation sweep.
func (cm *CronManager) SetupJobs(schedule string) error {
	cm.logger.Println("Setting up cron jobs...")

	_, err := cm.cron.AddFunc(schedule, func() {
		cm.logger.Println("🕐 Running subscription reconciliation sweep...")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()

		if err := cm.subscriptions.ReconcileAll(ctx); err != nil {
			cm.logger.Printf("⚠️ Reconciliation completed with errors: %v", err)
			return
		}

		cm.logger.Println("✅ Subscription reconciliation sweep completed")
	})
	if err != nil {
		return err
	}

	cm.logger.Println("✅ Cron jobs configured successfully")
	cm.logger.Printf("  - %s: Reconcile subscription projections", schedule)

	return nil
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Println("🚀 Starting cron scheduler...")
	cm.cron.Start()
}

// Stop stops the cron scheduler
func (cm *CronManager) Stop() {
	cm.logger.Println("🛑 Stopping cron scheduler...")
	cm.cron.Stop()
}
