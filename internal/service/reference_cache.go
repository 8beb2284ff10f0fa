package service

import (
	"sync"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/google/uuid"
)

type cachedReference struct {
	studioID  uuid.UUID
	data      *model.ReferenceData
	expiresAt time.Time
}

// ReferenceCache holds each session's studio reference data. Entries are
// filled on first read, dropped at sign-out, invalidated for the whole
// studio after any studio, teacher or location change and evicted once
// they outlive the session TTL.
type ReferenceCache struct {
	mu      sync.RWMutex
	entries map[string]cachedReference // session id -> data
	ttl     time.Duration
	now     func() time.Time
}

func NewReferenceCache(ttl time.Duration) *ReferenceCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ReferenceCache{
		entries: make(map[string]cachedReference),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *ReferenceCache) Get(sessionID string) (*model.ReferenceData, bool) {
	c.mu.RLock()
	e, ok := c.entries[sessionID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		c.Drop(sessionID)
		return nil, false
	}
	return e.data, true
}

// Put stores the entry and evicts the ones whose session has expired.
func (c *ReferenceCache) Put(sessionID string, studioID uuid.UUID, data *model.ReferenceData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.evictLocked(now)
	c.entries[sessionID] = cachedReference{
		studioID:  studioID,
		data:      data,
		expiresAt: now.Add(c.ttl),
	}
}

// Drop forgets a session's entry.
func (c *ReferenceCache) Drop(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, sessionID)
}

// InvalidateStudio forgets every session entry of the studio.
func (c *ReferenceCache) InvalidateStudio(studioID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		if e.studioID == studioID {
			delete(c.entries, id)
		}
	}
}

// Evict removes expired entries and returns how many were removed.
func (c *ReferenceCache) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.evictLocked(c.now())
}

func (c *ReferenceCache) evictLocked(now time.Time) int {
	removed := 0
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len is the number of cached sessions.
func (c *ReferenceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
