// Package health keeps an always-current verdict on storage writability so
// the health endpoint never has to wait on storage itself.
package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hyp3rd/countd/internal/constants"
	"github.com/hyp3rd/countd/pkg/logging"
)

// Target is the slice of the store the prober needs.
type Target interface {
	Probe(ctx context.Context) error
}

// Prober runs the storage probe on a fixed interval and publishes the
// result as a flag. Filesystem events on the watched directory trigger an
// immediate re-probe; the interval tick remains the correctness backstop
// for conditions that produce no event (remounts, permission flips).
type Prober struct {
	target   Target
	interval time.Duration
	watchDir string
	logger   logging.Adapter

	healthy atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewProber constructs a prober over the given target. watchDir may be
// empty to disable event-driven re-probes.
func NewProber(target Target, interval time.Duration, watchDir string, logger logging.Adapter) (*Prober, error) {
	if target == nil {
		return nil, ewrap.New("probe target is required")
	}

	if interval <= 0 {
		interval = constants.DefaultProbeInterval
	}

	if logger == nil {
		logger = logging.NewNoopAdapter()
	}

	return &Prober{
		target:   target,
		interval: interval,
		watchDir: watchDir,
		logger:   logger,
	}, nil
}

// Healthy reports the most recent probe verdict.
func (p *Prober) Healthy() bool {
	return p.healthy.Load()
}

// Start probes once synchronously, then keeps probing in the background
// until the context is canceled or Stop is called.
func (p *Prober) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ewrap.New("prober already running")
	}

	p.probe(ctx)

	watcher := p.newWatcher(ctx)

	probeCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)

	go p.run(probeCtx, watcher)

	return nil
}

// Stop halts background probing. The last verdict stays published.
func (p *Prober) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.running = false
}

func (p *Prober) newWatcher(ctx context.Context) *fsnotify.Watcher {
	if p.watchDir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error(ctx, err, "create storage watcher, falling back to interval probes")

		return nil
	}

	err = watcher.Add(p.watchDir)
	if err != nil {
		p.logger.Error(ctx, err, "watch storage directory, falling back to interval probes",
			attribute.String("dir", p.watchDir),
		)

		closeErr := watcher.Close()
		if closeErr != nil {
			p.logger.Error(ctx, closeErr, "close storage watcher after add failure")
		}

		return nil
	}

	return watcher
}

func (p *Prober) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()

	if watcher != nil {
		defer func() {
			closeErr := watcher.Close()
			if closeErr != nil {
				p.logger.Error(ctx, closeErr, "close storage watcher")
			}
		}()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	events := make(chan fsnotify.Event)
	watchErrs := make(chan error)

	if watcher != nil {
		events = watcher.Events
		watchErrs = watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx)
		case _, ok := <-events:
			if !ok {
				return
			}

			p.probe(ctx)
		case err, ok := <-watchErrs:
			if !ok {
				return
			}

			p.logger.Error(ctx, err, "storage watcher error")
		}
	}
}

// probe runs the check and publishes the verdict, logging transitions only.
func (p *Prober) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	err := p.target.Probe(probeCtx)
	was := p.healthy.Swap(err == nil)

	switch {
	case err != nil && was:
		p.logger.Error(ctx, err, "storage became unhealthy")
	case err == nil && !was:
		p.logger.Info(ctx, "storage healthy")
	}
}
