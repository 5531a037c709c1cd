package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller is the interval-based fallback for environments where the
// change feed is unavailable. It re-fetches all polls on a fixed
// cadence and pushes them through the same cache and broadcast path
// the feed uses.
type Poller struct {
	source       SnapshotSource
	cache        *SnapshotCache
	sink         Broadcaster
	interval     time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger

	mu     sync.Mutex
	paused bool

	resume chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a poller sharing the feed's cache and sink
func NewPoller(
	source SnapshotSource,
	cache *SnapshotCache,
	sink Broadcaster,
	interval time.Duration,
	fetchTimeout time.Duration,
	logger *zap.Logger,
) *Poller {
	return &Poller{
		source:       source,
		cache:        cache,
		sink:         sink,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		resume:       make(chan struct{}, 1),
	}
}

// Start begins the fetch loop with an immediate first fetch
func (p *Poller) Start() {
	p.mu.Lock()
	if p.ctx != nil {
		p.mu.Unlock()
		return
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run()
}

// Stop halts the loop and waits for any in-flight fetch
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Pause suspends fetching without tearing the loop down. Used while a
// modal interaction is open so results do not shift underneath it.
func (p *Poller) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume lifts a pause and triggers one immediate fetch so the view
// catches up without waiting out the current interval
func (p *Poller) Resume() {
	p.mu.Lock()
	wasPaused := p.paused
	p.paused = false
	p.mu.Unlock()

	if wasPaused {
		select {
		case p.resume <- struct{}{}:
		default:
		}
	}
}

// Paused reports whether fetching is currently suspended
func (p *Poller) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Poller) run() {
	defer p.wg.Done()

	p.fetch()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if p.Paused() {
				continue
			}
			p.fetch()
		case <-p.resume:
			p.fetch()
		}
	}
}

func (p *Poller) fetch() {
	ctx, cancel := context.WithTimeout(p.ctx, p.fetchTimeout)
	defer cancel()

	snapshots, err := p.source.GetAllPollsWithResults(ctx, nil)
	if err != nil {
		p.logger.Warn("poll fetch failed", zap.Error(err))
		return
	}

	p.cache.ReplaceAll(snapshots)
	if p.sink != nil {
		for _, snapshot := range snapshots {
			p.sink.BroadcastSnapshot(snapshot)
		}
	}
}
