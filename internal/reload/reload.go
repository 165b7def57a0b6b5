// Package reload re-reads the configuration layers on a cron schedule and
// hands changed records to the server
package reload

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/professor93/tgconfig/internal/config"
)

// DefaultSchedule is used when no schedule is configured
const DefaultSchedule = "@every 1m"

// LoadFunc produces a freshly loaded and validated set
type LoadFunc func() (config.Set, error)

// Target receives changed sets
type Target interface {
	Current() config.Set
	Swap(config.Set)
}

// Reloader polls LoadFunc and swaps the target when the result differs
type Reloader struct {
	cron   *cron.Cron
	load   LoadFunc
	target Target
	logger *zap.Logger

	mu sync.Mutex
}

// New schedules a reload at spec, a standard five-field cron expression or
// a descriptor such as "@every 30s"
func New(spec string, load LoadFunc, target Target, logger *zap.Logger) (*Reloader, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Reloader{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		load:   load,
		target: target,
		logger: logger,
	}

	if _, err := r.cron.AddFunc(spec, func() { r.Reload() }); err != nil {
		return nil, errors.Wrapf(err, "invalid reload schedule %q", spec)
	}
	return r, nil
}

// Start runs the schedule in its own goroutine
func (r *Reloader) Start() {
	r.logger.Info("Starting config reload scheduler")
	r.cron.Start()
}

// Stop halts the schedule; the returned context is done once a running
// reload finishes
func (r *Reloader) Stop() context.Context {
	return r.cron.Stop()
}

// Reload loads once and swaps the target if the records changed. A failed
// load keeps the records already being served. It reports whether a swap
// happened.
func (r *Reloader) Reload() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.load()
	if err != nil {
		r.logger.Warn("Config reload failed, keeping current records", zap.Error(err))
		return false, err
	}

	if next == r.target.Current() {
		r.logger.Debug("Config unchanged")
		return false, nil
	}

	r.target.Swap(next)
	r.logger.Info("Config reloaded",
		zap.String("kds_mode", string(next.KDS.Mode)),
		zap.String("kds_api_base", next.KDS.APIBase()),
	)
	return true, nil
}
