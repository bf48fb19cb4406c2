package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/travelops/backoffice/internal/domain/ledger"
	"go.uber.org/zap"
)

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// Hour and Minute of the daily run, 24h clock, local time
	Hour   int
	Minute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		Hour:          2, // 2am
		Minute:        0,
		CheckInterval: time.Minute,
	}
}

// ParseCronSchedule reads the minute and hour fields of a five-field cron
// expression. Only daily schedules are supported; an empty expression means 02:00.
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	hour, minute = 2, 0

	parts := strings.Fields(cronExpr)
	if len(parts) == 0 {
		return hour, minute, nil
	}
	if len(parts) != 5 {
		return 0, 0, fmt.Errorf("%w: cron expression %q must have 5 fields", ErrInvalidConfig, cronExpr)
	}

	if minute, err = parseField(parts[0], 0, 59); err != nil {
		return 0, 0, fmt.Errorf("%w: minute: %v", ErrInvalidConfig, err)
	}
	if hour, err = parseField(parts[1], 0, 23); err != nil {
		return 0, 0, fmt.Errorf("%w: hour: %v", ErrInvalidConfig, err)
	}
	return hour, minute, nil
}

// parseField parses a numeric cron field; "*" maps to lo
func parseField(field string, lo, hi int) (int, error) {
	if field == "*" {
		return lo, nil
	}
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", field)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("must be %d-%d, got %d", lo, hi, v)
	}
	return v, nil
}

// CronTrigger submits a reconciliation of the current financial year once a day
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *CronTrigger {
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger.Named("cron"),
		now:       time.Now,
	}
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("hour", c.config.Hour),
		zap.Int("minute", c.config.Minute),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger()
		}
	}
}

func (c *CronTrigger) shouldRun(now time.Time) bool {
	return now.Hour() == c.config.Hour && now.Minute() == c.config.Minute
}

// checkAndTrigger submits at most one job per calendar day
func (c *CronTrigger) checkAndTrigger() bool {
	now := c.now()
	if !c.shouldRun(now) {
		return false
	}

	currentDate := now.Format("2006-01-02")
	c.mu.Lock()
	if c.lastRunDate == currentDate {
		c.mu.Unlock()
		return false
	}
	c.lastRunDate = currentDate
	c.mu.Unlock()

	financialYear := ledger.FinancialYear(now)
	job, err := c.scheduler.ScheduleReconciliation(financialYear)
	if err != nil {
		c.logger.Error("Failed to schedule advance reconciliation",
			zap.String("financial_year", financialYear),
			zap.Error(err),
		)
		return false
	}
	c.logger.Info("Advance reconciliation triggered",
		zap.String("job_id", job.ID.String()),
		zap.String("financial_year", financialYear),
	)
	return true
}
