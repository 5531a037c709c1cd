package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"poll-service/internal/database"
	"poll-service/internal/domain"
	"poll-service/internal/middleware"
)

// ConnState is the change-feed subscription state
type ConnState string

const (
	StateDisconnected ConnState = "DISCONNECTED"
	StateConnecting   ConnState = "CONNECTING"
	StateSubscribed   ConnState = "SUBSCRIBED"
	StateChannelError ConnState = "CHANNEL_ERROR"
	StateTimedOut     ConnState = "TIMED_OUT"
)

// SnapshotSource supplies poll snapshots for initial and targeted
// fetches. Satisfied by service.SnapshotService.
type SnapshotSource interface {
	GetPollWithResults(ctx context.Context, pollID uuid.UUID, viewerID *uuid.UUID) (*domain.PollWithResults, error)
	GetAllPollsWithResults(ctx context.Context, viewerID *uuid.UUID) ([]*domain.PollWithResults, error)
}

// Broadcaster pushes refreshed snapshots out to connected viewers.
// Satisfied by Hub.
type Broadcaster interface {
	BroadcastSnapshot(snapshot *domain.PollWithResults)
	BroadcastPollRemoved(pollID uuid.UUID)
}

// ChangeStream is the feed transport. Subscribe blocks until the
// subscription is confirmed (bounded by ctx) and returns the payload
// channel plus a close function. The channel closing signals a
// dropped connection.
type ChangeStream interface {
	Subscribe(ctx context.Context) (<-chan []byte, func(), error)
}

// ErrStreamUnavailable reports that no transport client is configured.
// This is the degraded mode entered when Redis is unreachable at
// startup; subscribers settle into their error state and the fallback
// poller carries live updates.
var ErrStreamUnavailable = errors.New("stream unavailable: no redis client")

type redisChangeStream struct {
	client *redis.Client
}

// NewRedisChangeStream creates a ChangeStream over the shared Redis
// change-feed channel
func NewRedisChangeStream(client *redis.Client) ChangeStream {
	return &redisChangeStream{client: client}
}

func (s *redisChangeStream) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	if s.client == nil {
		return nil, nil, ErrStreamUnavailable
	}
	pubsub := s.client.Subscribe(ctx, database.ChangeFeedChannel)

	// Receive confirms the subscription; ctx bounds the wait.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	done := make(chan struct{})
	out := forwardPayloads(pubsub.Channel(), done)

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}, nil
}

// forwardPayloads copies pub/sub messages onto a plain byte channel.
// The done channel unblocks a pending send once the consumer is gone,
// so the forwarding goroutine cannot leak across a reconnect or
// shutdown.
func forwardPayloads(in <-chan *redis.Message, done <-chan struct{}) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range in {
			select {
			case out <- []byte(msg.Payload):
			case <-done:
				return
			}
		}
	}()
	return out
}

// FeedConfig tunes fetch timeouts and reconnection backoff
type FeedConfig struct {
	FetchTimeout      time.Duration
	ErrorRetryDelay   time.Duration
	TimeoutRetryDelay time.Duration
	MaxRetryDelay     time.Duration
}

// FeedClient maintains a live, consistent view of poll results. It
// subscribes to the change feed, performs one idempotent initial full
// fetch per subscription generation, re-fetches only the affected
// poll on vote/poll notifications, and recovers from channel drops
// with bounded exponential backoff.
type FeedClient struct {
	stream  ChangeStream
	source  SnapshotSource
	sink    Broadcaster
	cache   *SnapshotCache
	cfg     FeedConfig
	logger  *zap.Logger
	onState func(ConnState)

	mu             sync.Mutex
	state          ConnState
	connErr        string
	attempt        int
	initialFetched bool
	reconnecting   bool
	retryTimer     *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFeedClient creates a FeedClient. sink may be nil when no viewers
// are attached (e.g. in tests).
func NewFeedClient(
	stream ChangeStream,
	source SnapshotSource,
	sink Broadcaster,
	cfg FeedConfig,
	logger *zap.Logger,
) *FeedClient {
	return &FeedClient{
		stream: stream,
		source: source,
		sink:   sink,
		cache:  NewSnapshotCache(),
		cfg:    cfg,
		logger: logger,
		state:  StateDisconnected,
	}
}

// OnStateChange registers a callback invoked on subscription state
// transitions. The fallback poller hangs off this: resumed while the
// feed is down, paused once it is live again. Must be set before
// Start.
func (f *FeedClient) OnStateChange(fn func(ConnState)) {
	f.onState = fn
}

func (f *FeedClient) notify(state ConnState) {
	if f.onState != nil {
		f.onState(state)
	}
}

// Start opens the subscription loop. Idempotent against double start.
func (f *FeedClient) Start() {
	f.mu.Lock()
	if f.ctx != nil {
		f.mu.Unlock()
		return
	}
	f.ctx, f.cancel = context.WithCancel(context.Background())
	f.mu.Unlock()

	f.wg.Add(1)
	go f.connect()
}

// Stop tears down the subscription, the pending retry and all
// in-flight work
func (f *FeedClient) Stop() {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	if f.retryTimer != nil {
		if f.retryTimer.Stop() {
			// Balance the Add made when the retry was armed.
			f.wg.Done()
		}
		f.retryTimer = nil
	}
	f.state = StateDisconnected
	f.mu.Unlock()

	f.wg.Wait()
}

// State returns the connection state and the user-visible error
// string (empty while healthy)
func (f *FeedClient) State() (ConnState, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.connErr
}

// Cache exposes the shared snapshot cache so the fallback poller can
// feed the same view
func (f *FeedClient) Cache() *SnapshotCache {
	return f.cache
}

// Snapshots returns the current cached poll list
func (f *FeedClient) Snapshots() []*domain.PollWithResults {
	return f.cache.List()
}

// Snapshot returns one cached poll, or nil
func (f *FeedClient) Snapshot(pollID uuid.UUID) *domain.PollWithResults {
	return f.cache.Get(pollID)
}

// Refresh forces one full re-fetch of all polls regardless of
// connection state. User-triggered recovery path.
func (f *FeedClient) Refresh(ctx context.Context) error {
	return f.fetchAll(ctx)
}

func (f *FeedClient) connect() {
	defer f.wg.Done()

	f.mu.Lock()
	if f.ctx.Err() != nil {
		f.mu.Unlock()
		return
	}
	f.state = StateConnecting
	f.mu.Unlock()

	subCtx, cancel := context.WithTimeout(f.ctx, f.cfg.FetchTimeout)
	events, closeStream, err := f.stream.Subscribe(subCtx)
	cancel()
	if err != nil {
		if f.ctx.Err() != nil {
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			f.scheduleReconnect(StateTimedOut, "connection timed out, reconnecting")
		} else {
			f.scheduleReconnect(StateChannelError, "channel error, reconnecting")
		}
		return
	}
	defer closeStream()

	f.mu.Lock()
	f.state = StateSubscribed
	f.connErr = ""
	f.attempt = 0
	needInitial := !f.initialFetched
	f.mu.Unlock()

	f.notify(StateSubscribed)
	f.logger.Info("change feed subscribed")

	// Exactly one initial full fetch per generation; reconnects after
	// the first successful load only replay targeted updates.
	if needInitial {
		fetchCtx, cancel := context.WithTimeout(f.ctx, f.cfg.FetchTimeout)
		err := f.fetchAll(fetchCtx)
		cancel()
		if err == nil {
			f.mu.Lock()
			f.initialFetched = true
			f.mu.Unlock()
		}
	}

	for {
		select {
		case <-f.ctx.Done():
			return
		case payload, ok := <-events:
			if !ok {
				if f.ctx.Err() != nil {
					return
				}
				f.scheduleReconnect(StateChannelError, "channel dropped, reconnecting")
				return
			}
			f.handleEvent(payload)
		}
	}
}

// scheduleReconnect arms a single cancelable retry with exponential
// backoff. The reconnecting flag guards against overlapping attempts.
func (f *FeedClient) scheduleReconnect(state ConnState, message string) {
	f.mu.Lock()
	if f.reconnecting || f.ctx.Err() != nil {
		f.mu.Unlock()
		return
	}
	f.reconnecting = true
	f.state = state
	f.connErr = message
	f.attempt++
	attempt := f.attempt

	base := f.cfg.ErrorRetryDelay
	if state == StateTimedOut {
		base = f.cfg.TimeoutRetryDelay
	}
	delay := base << (attempt - 1)
	if delay > f.cfg.MaxRetryDelay || delay <= 0 {
		delay = f.cfg.MaxRetryDelay
	}

	f.wg.Add(1)
	f.retryTimer = time.AfterFunc(delay, func() {
		f.mu.Lock()
		f.reconnecting = false
		f.retryTimer = nil
		stopped := f.ctx.Err() != nil
		f.mu.Unlock()
		if stopped {
			f.wg.Done()
			return
		}
		f.connect()
	})
	f.mu.Unlock()

	f.notify(state)
	middleware.RecordFeedReconnect()
	f.logger.Warn("change feed dropped",
		zap.String("state", string(state)),
		zap.Int("attempt", attempt),
		zap.Duration("retry_in", delay))
}

// handleEvent dispatches one parsed notification. Each event is
// handled independently and may interleave with others; updates are
// scoped per poll and applied as whole-snapshot replacements, so
// duplicates and reordering are harmless.
func (f *FeedClient) handleEvent(payload []byte) {
	event, err := ParseChangeEvent(payload)
	if err != nil {
		f.logger.Warn("ignoring malformed change event", zap.Error(err))
		return
	}

	switch event.Kind {
	case EventVoteInserted, EventVoteDeleted, EventPollUpdated:
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.refreshPoll(event.PollID)
		}()
	case EventPollDeleted:
		// The row is gone; remove directly, no re-fetch possible.
		f.cache.Remove(event.PollID)
		if f.sink != nil {
			f.sink.BroadcastPollRemoved(event.PollID)
		}
	}
}

// refreshPoll re-derives a single poll's snapshot from the store and
// replaces only that poll's entry
func (f *FeedClient) refreshPoll(pollID uuid.UUID) {
	ctx, cancel := context.WithTimeout(f.ctx, f.cfg.FetchTimeout)
	defer cancel()

	snapshot, err := f.source.GetPollWithResults(ctx, pollID, nil)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			f.cache.Remove(pollID)
			if f.sink != nil {
				f.sink.BroadcastPollRemoved(pollID)
			}
			return
		}
		f.mu.Lock()
		f.connErr = "failed to refresh poll, results may be stale"
		f.mu.Unlock()
		f.logger.Error("targeted poll refresh failed",
			zap.String("poll_id", pollID.String()),
			zap.Error(err))
		return
	}

	f.cache.Upsert(snapshot)
	if f.sink != nil {
		f.sink.BroadcastSnapshot(snapshot)
	}
}

func (f *FeedClient) fetchAll(ctx context.Context) error {
	snapshots, err := f.source.GetAllPollsWithResults(ctx, nil)
	if err != nil {
		f.mu.Lock()
		f.connErr = "failed to load polls"
		f.mu.Unlock()
		f.logger.Error("full poll fetch failed", zap.Error(err))
		return err
	}

	f.cache.ReplaceAll(snapshots)
	if f.sink != nil {
		for _, snapshot := range snapshots {
			f.sink.BroadcastSnapshot(snapshot)
		}
	}
	return nil
}
