package core

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ResourceTracker records live GPU objects so leaks can be reported at shutdown.
type ResourceTracker struct {
	mu   sync.Mutex
	live map[uuid.UUID]string
}

func NewResourceTracker() *ResourceTracker {
	return &ResourceTracker{
		live: make(map[uuid.UUID]string),
	}
}

// Acquire registers a resource of the given kind and returns its identifier.
func (t *ResourceTracker) Acquire(kind string) uuid.UUID {
	id := uuid.New()
	t.mu.Lock()
	t.live[id] = kind
	t.mu.Unlock()
	return id
}

// Release forgets the resource. Releasing an unknown id is a no-op.
func (t *ResourceTracker) Release(id uuid.UUID) {
	t.mu.Lock()
	delete(t.live, id)
	t.mu.Unlock()
}

func (t *ResourceTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// CountKind returns how many live resources of a kind are registered.
func (t *ResourceTracker) CountKind(kind string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, k := range t.live {
		if k == kind {
			n++
		}
	}
	return n
}

// Report logs every resource still alive and returns the number of them.
func (t *ResourceTracker) Report() int {
	t.mu.Lock()
	kinds := make(map[string]int)
	for _, k := range t.live {
		kinds[k]++
	}
	n := len(t.live)
	t.mu.Unlock()

	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		LogWarn("leaked %d %s object(s)", kinds[k], k)
	}
	return n
}
