// Package scheduler runs the periodic invoice consolidation sweep:
// every interval it folds the tenant's pending bills into invoices so
// manually created bills never linger unbilled.
package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/waterworks/internal/clock"
	"github.com/smallbiznis/waterworks/internal/config"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	"github.com/smallbiznis/waterworks/internal/ratelimit"
	"github.com/smallbiznis/waterworks/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sweepLockKey = "scheduler:invoice-sweep:"
	sweepLockTTL = 10 * time.Minute
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	InvoiceSvc invoicedomain.Service
	Locker     *ratelimit.Locker  `optional:"true"`
	Metrics    *telemetry.Metrics `optional:"true"`
}

type Scheduler struct {
	cfg        config.Config
	log        *zap.Logger
	clock      clock.Clock
	invoiceSvc invoicedomain.Service
	locker     *ratelimit.Locker
	metrics    *telemetry.Metrics

	interval time.Duration
	tenantID snowflake.ID
	stop     chan struct{}
	done     chan struct{}
}

func New(p Params) *Scheduler {
	return &Scheduler{
		cfg:        p.Cfg,
		log:        p.Log.Named("scheduler"),
		clock:      p.Clock,
		invoiceSvc: p.InvoiceSvc,
		locker:     p.Locker,
		metrics:    p.Metrics,
		interval:   time.Duration(p.Cfg.BatchInterval) * time.Hour,
		tenantID:   snowflake.ID(p.Cfg.DefaultTenantID),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Enabled reports whether the sweep loop should run at all.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0 && s.tenantID != 0
}

func (s *Scheduler) Start() {
	if !s.Enabled() {
		s.log.Info("invoice sweep disabled")
		close(s.done)
		return
	}
	go s.run()
	s.log.Info("invoice sweep started", zap.Duration("interval", s.interval))
}

func (s *Scheduler) Stop(ctx context.Context) error {
	close(s.stop)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep consolidates pending bills under a lease so concurrent
// replicas never double-invoice a tenant.
func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if s.locker != nil {
		lease, err := s.locker.Acquire(ctx, sweepLockKey+s.tenantID.String(), sweepLockTTL)
		if err != nil {
			s.log.Warn("sweep lock failed", zap.Error(err))
			return
		}
		if lease == nil {
			s.log.Debug("sweep already running elsewhere")
			return
		}
		defer func() {
			if err := lease.Release(ctx); err != nil {
				s.log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	start := s.clock.Now()
	result, err := s.invoiceSvc.GenerateBatch(ctx, s.tenantID, 0)
	elapsed := s.clock.Now().Sub(start)
	if err != nil {
		s.metrics.ObserveBatchRun(s.tenantID.String(), "error", elapsed)
		s.log.Error("invoice sweep failed", zap.Error(err))
		return
	}

	status := "success"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	s.metrics.ObserveBatchRun(s.tenantID.String(), status, elapsed)

	if result.InvoicesCreated > 0 || len(result.Errors) > 0 {
		s.log.Info("invoice sweep complete",
			zap.Int("invoices_created", result.InvoicesCreated),
			zap.Int("bills_invoiced", result.BillsInvoiced),
			zap.Int("errors", len(result.Errors)),
		)
	}
}
