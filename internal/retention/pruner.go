// Package retention bounds the size of the event journal.
package retention

import (
	"context"
	"time"

	"github.com/raulk/clock"
	"go.uber.org/zap"

	"github.com/matheus3301/rtlink/internal/bus"
)

// DefaultInterval is how often the pruner sweeps the journal.
const DefaultInterval = time.Hour

// Pruned is the payload of bus.KindJournalPruned.
type Pruned struct {
	Cutoff  time.Time
	Removed int64
}

// EventPruner deletes journal entries older than a cutoff.
type EventPruner interface {
	PruneEvents(cutoff time.Time) (int64, error)
}

// checkpointer is implemented by stores that can reclaim space after a prune.
type checkpointer interface {
	Checkpoint() error
}

// Pruner periodically removes journal entries older than the retention window.
type Pruner struct {
	store    EventPruner
	keep     time.Duration
	interval time.Duration
	clock    clock.Clock
	bus      *bus.Bus
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPruner creates a pruner that keeps entries for keep. A nil clock uses
// the wall clock.
func NewPruner(store EventPruner, keep, interval time.Duration, c clock.Clock, b *bus.Bus, logger *zap.Logger) *Pruner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if c == nil {
		c = clock.New()
	}
	return &Pruner{
		store:    store,
		keep:     keep,
		interval: interval,
		clock:    c,
		bus:      b,
		logger:   logger.Named("retention"),
	}
}

// Start sweeps once immediately, then on every interval. A non-positive
// retention disables pruning.
func (p *Pruner) Start(ctx context.Context) {
	if p.keep <= 0 {
		p.logger.Info("journal retention disabled")
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx)
}

// Stop stops the sweep loop and waits for it to exit.
func (p *Pruner) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

func (p *Pruner) loop(ctx context.Context) {
	defer close(p.done)
	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	p.Sweep()
	for {
		select {
		case <-ticker.C:
			p.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Sweep removes entries older than the retention window once.
func (p *Pruner) Sweep() (int64, error) {
	cutoff := p.clock.Now().Add(-p.keep)
	n, err := p.store.PruneEvents(cutoff)
	if err != nil {
		p.logger.Error("failed to prune journal", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		p.logger.Info("journal pruned", zap.Int64("removed", n), zap.Time("cutoff", cutoff))
		if c, ok := p.store.(checkpointer); ok {
			if err := c.Checkpoint(); err != nil {
				p.logger.Warn("journal checkpoint failed", zap.Error(err))
			}
		}
	}
	if p.bus != nil {
		p.bus.Publish(bus.Event{
			Kind:      bus.KindJournalPruned,
			Timestamp: p.clock.Now(),
			Payload:   Pruned{Cutoff: cutoff, Removed: n},
		})
	}
	return n, nil
}
