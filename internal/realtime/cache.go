package realtime

import (
	"sync"

	"github.com/google/uuid"

	"poll-service/internal/domain"
)

// SnapshotCache is the client-side view of poll results, keyed by poll
// identifier. Updates are whole-snapshot replacements per poll; a
// poll's displayed state is always derived fresh from its own vote
// set, never incrementally patched, so last write wins per poll.
type SnapshotCache struct {
	mu    sync.RWMutex
	polls map[uuid.UUID]*domain.PollWithResults
	order []uuid.UUID
}

// NewSnapshotCache creates an empty cache
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{
		polls: make(map[uuid.UUID]*domain.PollWithResults),
	}
}

// ReplaceAll swaps the entire cache contents, preserving the given
// order for listing
func (c *SnapshotCache) ReplaceAll(snapshots []*domain.PollWithResults) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.polls = make(map[uuid.UUID]*domain.PollWithResults, len(snapshots))
	c.order = make([]uuid.UUID, 0, len(snapshots))
	for _, snapshot := range snapshots {
		c.polls[snapshot.Poll.ID] = snapshot
		c.order = append(c.order, snapshot.Poll.ID)
	}
}

// Upsert replaces a single poll's entry, appending unknown polls at
// the end of the listing order
func (c *SnapshotCache) Upsert(snapshot *domain.PollWithResults) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := snapshot.Poll.ID
	if _, ok := c.polls[id]; !ok {
		c.order = append(c.order, id)
	}
	c.polls[id] = snapshot
}

// Remove drops a poll from the cache
func (c *SnapshotCache) Remove(pollID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.polls[pollID]; !ok {
		return
	}
	delete(c.polls, pollID)
	for i, id := range c.order {
		if id == pollID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns one poll's snapshot, or nil when absent
func (c *SnapshotCache) Get(pollID uuid.UUID) *domain.PollWithResults {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.polls[pollID]
}

// List returns all snapshots in listing order
func (c *SnapshotCache) List() []*domain.PollWithResults {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshots := make([]*domain.PollWithResults, 0, len(c.order))
	for _, id := range c.order {
		if snapshot, ok := c.polls[id]; ok {
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots
}

// Len returns the number of cached polls
func (c *SnapshotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.polls)
}
