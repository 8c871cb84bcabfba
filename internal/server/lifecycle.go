// Package server runs the backend's long-lived components, such as the
// housekeeping sweeper and the database watchdog. Components start in
// registration order and stop in reverse, with SIGINT/SIGTERM wired to a
// graceful stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is one long-lived component under lifecycle control.
type Service interface {
	// Start blocks until the service ends or ctx is cancelled. Returning
	// nil after cancellation is a clean exit; any error aborts the whole
	// lifecycle.
	Start(ctx context.Context) error
	// Stop releases the service's resources. Called exactly once, after
	// the run context is cancelled.
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func(ctx context.Context) error
	StopFn  func()
}

func (f *FuncService) Start(ctx context.Context) error { return f.StartFn(ctx) }

func (f *FuncService) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
}

type entry struct {
	name string
	svc  Service
}

// Lifecycle starts registered services in order, waits for a termination
// signal or a service failure, then stops them in reverse order.
type Lifecycle struct {
	logger *zap.Logger

	mu      sync.Mutex
	entries []entry
}

// NewLifecycle creates an empty lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers a named service. Start order follows registration order.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{name: name, svc: svc})
}

// Run starts every registered service and blocks until SIGINT/SIGTERM,
// context cancellation, or a service failure. The first failure is
// returned after all services have stopped.
//
// Postcondition: every service's Stop has run when this returns.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	failures := make(chan error, len(l.entries))
	for _, e := range l.entries {
		e := e
		go func() {
			l.logger.Info("starting service", zap.String("service", e.name))
			if err := e.svc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("service failed",
					zap.String("service", e.name),
					zap.Error(err),
				)
				failures <- fmt.Errorf("service %s: %w", e.name, err)
				cancel()
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(l.entries)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-failures:
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	// Unblock every Start before stopping in reverse order.
	cancel()
	l.shutdown()

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return runErr
}

func (l *Lifecycle) shutdown() {
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		stopStart := time.Now()
		e.svc.Stop()
		l.logger.Info("service stopped",
			zap.String("service", e.name),
			zap.Duration("elapsed", time.Since(stopStart)),
		)
	}
}
