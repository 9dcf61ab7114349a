// Package stagecache caches derived stage status documents. Deriving a
// status walks every stage validator, so list-heavy dashboard pages go
// through the cache; any write to a workflow invalidates its entry.
package stagecache

import (
	"context"
	"sync"
	"time"

	"agritrace/internal/domain"
	"agritrace/internal/usecase"
)

type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	status    domain.StageStatus
	expiresAt time.Time
	hasExpiry bool
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
	}
}

func (c *Memory) Get(ctx context.Context, workflowID string) (*domain.StageStatus, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[workflowID]
	if !ok {
		return nil, false, nil
	}
	if entry.hasExpiry && time.Now().After(entry.expiresAt) {
		delete(c.entries, workflowID)
		return nil, false, nil
	}
	status := entry.status
	return &status, true, nil
}

func (c *Memory) Put(ctx context.Context, workflowID string, status domain.StageStatus, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := memoryEntry{status: status}
	if ttl > 0 {
		entry.hasExpiry = true
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries[workflowID] = entry
	return nil
}

func (c *Memory) Invalidate(ctx context.Context, workflowID string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, workflowID)
	return nil
}

var _ usecase.StageStatusCache = (*Memory)(nil)
