package notify

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryCenter keeps pending notifications in process memory. The daemon uses
// it together with a Dispatcher; tests use it directly.
type MemoryCenter struct {
	mu         sync.Mutex
	pending    map[NotificationID]Request
	permission Permission
}

func NewMemoryCenter() *MemoryCenter {
	return &MemoryCenter{
		pending:    make(map[NotificationID]Request),
		permission: PermissionGranted,
	}
}

// SetPermission overrides the reported permission.
func (c *MemoryCenter) SetPermission(p Permission) {
	c.mu.Lock()
	c.permission = p
	c.mu.Unlock()
}

func (c *MemoryCenter) Schedule(ctx context.Context, req Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[req.ID] = req
	return nil
}

func (c *MemoryCenter) Cancel(ctx context.Context, ids ...NotificationID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.pending, id)
	}
	return nil
}

func (c *MemoryCenter) CancelAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.pending)
	return nil
}

// Pending returns scheduled notifications ordered by trigger time.
func (c *MemoryCenter) Pending(ctx context.Context) ([]Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, 0, len(c.pending))
	for _, r := range c.pending {
		out = append(out, r)
	}
	sortRequests(out)
	return out, nil
}

func (c *MemoryCenter) Permission(ctx context.Context) (Permission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission, nil
}

// PopDue removes and returns every notification due at or before now.
func (c *MemoryCenter) PopDue(ctx context.Context, now time.Time) ([]Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var due []Request
	for id, r := range c.pending {
		if !r.At.After(now) {
			due = append(due, r)
			delete(c.pending, id)
		}
	}
	sortRequests(due)
	return due, nil
}

func sortRequests(rs []Request) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].At.Equal(rs[j].At) {
			return rs[i].At.Before(rs[j].At)
		}
		return rs[i].ID.String() < rs[j].ID.String()
	})
}
