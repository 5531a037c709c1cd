package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"poll-service/internal/database"
	"poll-service/internal/domain"
	"poll-service/internal/middleware"
)

const (
	presenceJoin      = "JOIN"
	presenceHeartbeat = "HEARTBEAT"
	presenceLeave     = "LEAVE"

	anonymousUsername = "Anonymous User"
)

// PresenceUser is one entry of the online list
type PresenceUser struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	LastSeen time.Time `json:"last_seen"`
}

type presenceAnnouncement struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// PresenceStream is the announcement transport
type PresenceStream interface {
	Announce(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, func(), error)
}

type redisPresenceStream struct {
	client *redis.Client
}

// NewRedisPresenceStream creates a PresenceStream over the shared
// Redis presence channel
func NewRedisPresenceStream(client *redis.Client) PresenceStream {
	return &redisPresenceStream{client: client}
}

func (s *redisPresenceStream) Announce(ctx context.Context, payload []byte) error {
	if s.client == nil {
		return ErrStreamUnavailable
	}
	return s.client.Publish(ctx, database.PresenceChannel, payload).Err()
}

func (s *redisPresenceStream) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	if s.client == nil {
		return nil, nil, ErrStreamUnavailable
	}
	pubsub := s.client.Subscribe(ctx, database.PresenceChannel)
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

// UsernameResolver resolves identities to display names in one
// batched query. Satisfied by repository.ProfileRepository.
type UsernameResolver interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Profile, error)
}

// TrackerConfig tunes heartbeats, the grace cache and reconnection
type TrackerConfig struct {
	MinAnnounceGap    time.Duration
	Grace             time.Duration
	SweepInterval     time.Duration
	ResolveTimeout    time.Duration
	ErrorRetryDelay   time.Duration
	TimeoutRetryDelay time.Duration
}

type presenceEntry struct {
	username string
	lastSeen time.Time
}

// Tracker maintains the online-user set. It is a listen-only relay:
// local users announce through Heartbeat, remote announcements arrive
// over the stream, and the process itself never joins the list.
// Identities are kept in a grace-period cache after their last
// heartbeat so transient disconnects (tab backgrounding, brief
// network loss) do not flicker users offline.
type Tracker struct {
	stream   PresenceStream
	resolver UsernameResolver
	cfg      TrackerConfig
	logger   *zap.Logger
	now      func() time.Time

	mu           sync.Mutex
	entries      map[uuid.UUID]*presenceEntry
	connected    bool
	connErr      string
	reconnecting bool
	retryTimer   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker creates a presence tracker
func NewTracker(
	stream PresenceStream,
	resolver UsernameResolver,
	cfg TrackerConfig,
	logger *zap.Logger,
) *Tracker {
	return &Tracker{
		stream:   stream,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[uuid.UUID]*presenceEntry),
	}
}

// Start subscribes to the presence channel and begins sweeping
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.ctx != nil {
		t.mu.Unlock()
		return
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.mu.Unlock()

	t.wg.Add(1)
	go t.connect()
}

// Stop leaves the channel, clears all timers and empties the cache
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	if t.retryTimer != nil {
		if t.retryTimer.Stop() {
			t.wg.Done()
		}
		t.retryTimer = nil
	}
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.wg.Wait()

	t.mu.Lock()
	t.entries = make(map[uuid.UUID]*presenceEntry)
	t.connected = false
	t.mu.Unlock()

	middleware.SetPresenceOnline(0)
}

// OnlineUsers returns the current online list, grace window included
func (t *Tracker) OnlineUsers() []PresenceUser {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := make([]PresenceUser, 0, len(t.entries))
	for id, entry := range t.entries {
		username := entry.username
		if username == "" {
			username = anonymousUsername
		}
		users = append(users, PresenceUser{
			UserID:   id,
			Username: username,
			LastSeen: entry.lastSeen,
		})
	}
	return users
}

// OnlineCount returns the number of users currently considered online
func (t *Tracker) OnlineCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// IsConnected reports whether the presence channel is subscribed
func (t *Tracker) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// ConnectionError returns the user-visible error string, empty while
// healthy
func (t *Tracker) ConnectionError() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connErr
}

// Heartbeat records activity for a connected user and propagates it
// to other instances. Announcements are rate-limited per identity so
// chatty clients do not flood the channel.
func (t *Tracker) Heartbeat(userID uuid.UUID) {
	t.mu.Lock()
	entry, ok := t.entries[userID]
	recent := ok && t.now().Sub(entry.lastSeen) < t.cfg.MinAnnounceGap
	t.mu.Unlock()

	t.observe(userID)
	if recent {
		return
	}

	payload, err := json.Marshal(presenceAnnouncement{
		Type:   presenceHeartbeat,
		UserID: userID.String(),
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.ResolveTimeout)
	defer cancel()
	if err := t.stream.Announce(ctx, payload); err != nil {
		t.logger.Warn("failed to announce user heartbeat", zap.Error(err))
	}

	t.resolveUsernames()
}

// RefreshUsernames forces a re-resolution of every cached identity
func (t *Tracker) RefreshUsernames() {
	t.mu.Lock()
	for _, entry := range t.entries {
		entry.username = ""
	}
	t.mu.Unlock()
	t.resolveUsernames()
}

func (t *Tracker) connect() {
	defer t.wg.Done()

	subCtx, cancel := context.WithTimeout(t.ctx, t.cfg.TimeoutRetryDelay)
	events, closeStream, err := t.stream.Subscribe(subCtx)
	cancel()
	if err != nil {
		if t.ctx.Err() != nil {
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			t.scheduleReconnect(t.cfg.TimeoutRetryDelay, "presence connection timed out, reconnecting")
		} else {
			t.scheduleReconnect(t.cfg.ErrorRetryDelay, "presence channel error, reconnecting")
		}
		return
	}
	defer closeStream()

	t.mu.Lock()
	t.connected = true
	t.connErr = ""
	t.mu.Unlock()

	sweep := time.NewTicker(t.cfg.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-sweep.C:
			t.sweepOnce()
		case payload, ok := <-events:
			if !ok {
				if t.ctx.Err() != nil {
					return
				}
				t.mu.Lock()
				t.connected = false
				t.mu.Unlock()
				t.scheduleReconnect(t.cfg.ErrorRetryDelay, "presence channel dropped, reconnecting")
				return
			}
			t.handleAnnouncement(payload)
		}
	}
}

func (t *Tracker) scheduleReconnect(delay time.Duration, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.reconnecting || t.ctx.Err() != nil {
		return
	}
	t.reconnecting = true
	t.connected = false
	t.connErr = message

	t.logger.Warn("presence channel dropped", zap.Duration("retry_in", delay))

	t.wg.Add(1)
	t.retryTimer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		t.reconnecting = false
		t.retryTimer = nil
		stopped := t.ctx.Err() != nil
		t.mu.Unlock()
		if stopped {
			t.wg.Done()
			return
		}
		t.connect()
	})
}

func (t *Tracker) handleAnnouncement(payload []byte) {
	var ann presenceAnnouncement
	if err := json.Unmarshal(payload, &ann); err != nil {
		t.logger.Warn("ignoring malformed presence announcement", zap.Error(err))
		return
	}

	userID, err := uuid.Parse(ann.UserID)
	if err != nil {
		return
	}

	switch ann.Type {
	case presenceJoin, presenceHeartbeat:
		t.observe(userID)
		t.resolveUsernames()
	case presenceLeave:
		// Departures are absorbed by the grace window; the sweep
		// evicts the entry once the grace period elapses.
	}
}

// observe refreshes an identity's last-seen timestamp, inserting it
// into the cache on first sight
func (t *Tracker) observe(userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[userID]
	if !ok {
		entry = &presenceEntry{}
		t.entries[userID] = entry
	}
	entry.lastSeen = t.now()
	middleware.SetPresenceOnline(float64(len(t.entries)))
}

// sweepOnce evicts entries whose grace period has fully elapsed
func (t *Tracker) sweepOnce() {
	cutoff := t.now().Add(-t.cfg.Grace)

	t.mu.Lock()
	defer t.mu.Unlock()

	for id, entry := range t.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(t.entries, id)
		}
	}
	middleware.SetPresenceOnline(float64(len(t.entries)))
}

// resolveUsernames fills in display names for every unresolved entry
// with one batched lookup. Time-bounded; failures fall back to the
// anonymous name rather than blocking presence updates.
func (t *Tracker) resolveUsernames() {
	t.mu.Lock()
	var unresolved []uuid.UUID
	for id, entry := range t.entries {
		if entry.username == "" {
			unresolved = append(unresolved, id)
		}
	}
	t.mu.Unlock()

	if len(unresolved) == 0 || t.resolver == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.ResolveTimeout)
	defer cancel()

	profiles, err := t.resolver.FindByIDs(ctx, unresolved)
	if err != nil {
		t.logger.Warn("username resolution failed", zap.Error(err))
		t.mu.Lock()
		for _, id := range unresolved {
			if entry, ok := t.entries[id]; ok && entry.username == "" {
				entry.username = anonymousUsername
			}
		}
		t.mu.Unlock()
		return
	}

	names := make(map[uuid.UUID]string, len(profiles))
	for _, profile := range profiles {
		names[profile.ID] = profile.Username
	}

	t.mu.Lock()
	for _, id := range unresolved {
		entry, ok := t.entries[id]
		if !ok {
			continue
		}
		if name, found := names[id]; found {
			entry.username = name
		} else {
			entry.username = anonymousUsername
		}
	}
	t.mu.Unlock()
}
