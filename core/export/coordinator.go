// Package export turns an editing snapshot into downloadable artifacts.
// A Coordinator serializes requests and hands each one to the Strategy
// registered for its format; strategies never talk to the user directly.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gaurav-prasanna/markify/core"
)

// availability is implemented by strategies whose engine may be missing.
type availability interface {
	Available() error
}

// Coordinator runs at most one export at a time.
type Coordinator struct {
	trigger    core.Trigger
	strategies map[core.Format]core.Strategy
	logger     *slog.Logger
	notifier   core.Notifier
	metrics    *Metrics

	busy atomic.Bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger failures and completions are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithNotifier sets where user-facing failure messages go.
func WithNotifier(n core.Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithMetrics records every export outcome in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator creates a Coordinator delivering artifacts through trigger.
func NewCoordinator(trigger core.Trigger, strategies map[core.Format]core.Strategy, opts ...Option) *Coordinator {
	c := &Coordinator{
		trigger:    trigger,
		strategies: strategies,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exporting reports whether an export is in flight.
func (c *Coordinator) Exporting() bool {
	return c.busy.Load()
}

// Supports reports whether a strategy is registered for f.
func (c *Coordinator) Supports(f core.Format) bool {
	_, ok := c.strategies[f]
	return ok
}

// Export produces format from snap and delivers it. It returns where the
// artifact was delivered. A call made while another export is running fails
// with ErrBusy and is not queued.
func (c *Coordinator) Export(ctx context.Context, format core.Format, snap core.Snapshot) (location string, err error) {
	if !c.busy.CompareAndSwap(false, true) {
		c.metrics.observe(format, 0, ErrBusy, 0)
		c.report(format, ErrBusy)
		return "", ErrBusy
	}
	defer c.busy.Store(false)

	start := time.Now()
	var size int
	defer func() {
		c.metrics.observe(format, size, err, time.Since(start))
		if err != nil {
			c.report(format, err)
		}
	}()

	strategy, ok := c.strategies[format]
	if !ok {
		return "", unavailable(format, errors.New("no exporter registered"))
	}
	if a, ok := strategy.(availability); ok {
		if err := a.Available(); err != nil {
			return "", unavailable(format, err)
		}
	}

	c.logger.Debug("Starting export", slog.String("format", string(format)))
	artifact, err := run(ctx, format, strategy, snap)
	if err != nil {
		return "", conversion(format, err)
	}

	location, err = c.trigger.Deliver(ctx, artifact)
	if err != nil {
		return "", conversion(format, fmt.Errorf("delivering %s: %w", artifact.Filename, err))
	}
	size = len(artifact.Data)

	c.logger.Info("Export finished",
		slog.String("format", string(format)),
		slog.String("filename", artifact.Filename),
		slog.String("size", humanize.Bytes(uint64(size))),
		slog.String("location", location),
		slog.Duration("duration", time.Since(start)),
	)
	return location, nil
}

// run invokes the strategy, converting a panic into an error so the busy
// flag is always released.
func run(ctx context.Context, format core.Format, s core.Strategy, snap core.Snapshot) (a *core.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s exporter panicked: %v", format, r)
		}
	}()
	a, err = s.Export(ctx, snap)
	if err == nil && a == nil {
		err = fmt.Errorf("%s exporter returned no artifact", format)
	}
	return a, err
}

func (c *Coordinator) report(format core.Format, err error) {
	level := slog.LevelError
	if errors.Is(err, ErrBusy) {
		level = slog.LevelWarn
	}
	c.logger.Log(context.Background(), level, "Export failed",
		slog.String("format", string(format)),
		slog.Any("err", err),
	)
	if c.notifier != nil {
		c.notifier.Notify(Message(err))
	}
}

func isUnavailable(err error) bool {
	return errors.Is(err, ErrCapabilityUnavailable)
}
