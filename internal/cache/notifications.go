package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Invalidation reasons.
const (
	ReasonMessage = "message"
)

// Notification is one fetched notification entry.
type Notification struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// FetchFunc loads the current notification list from the backend.
type FetchFunc func(ctx context.Context) ([]Notification, error)

// InvalidateHook runs after every invalidation with the new generation.
type InvalidateHook func(generation uint64, reason string)

// Notifications caches fetched notifications for the signed-in user.
// Realtime messages invalidate it so the next read refetches.
type Notifications struct {
	entries    *lru.Cache[string, Notification]
	generation atomic.Uint64

	// mu guards the list index and orders writes against invalidation, so a
	// fetch started before an invalidation never repopulates the cache.
	mu       sync.RWMutex
	index    []string
	indexGen uint64
	indexed  bool
	hooks    []InvalidateHook
}

func NewNotifications(size int) (*Notifications, error) {
	if size <= 0 {
		size = 128
	}
	entries, err := lru.New[string, Notification](size)
	if err != nil {
		return nil, err
	}
	return &Notifications{entries: entries}, nil
}

// List returns the cached list, fetching it when the cache was invalidated or
// has evicted part of it.
func (n *Notifications) List(ctx context.Context, fetch FetchFunc) ([]Notification, error) {
	if items, ok := n.cachedList(); ok {
		return items, nil
	}

	gen := n.generation.Load()
	items, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	n.store(gen, items)
	return items, nil
}

// Lookup returns one notification, loading the list on a miss.
func (n *Notifications) Lookup(ctx context.Context, id string, fetch FetchFunc) (Notification, bool, error) {
	if n.fresh() {
		if item, ok := n.entries.Get(id); ok {
			return item, true, nil
		}
	}
	items, err := n.List(ctx, fetch)
	if err != nil {
		return Notification{}, false, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, true, nil
		}
	}
	return Notification{}, false, nil
}

// Generation increases by one on every invalidation or reset.
func (n *Notifications) Generation() uint64 {
	return n.generation.Load()
}

// OnInvalidate registers a hook, typically the refetch of the notification list.
func (n *Notifications) OnInvalidate(hook InvalidateHook) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hooks = append(n.hooks, hook)
}

// Invalidate drops every entry and notifies the hooks.
func (n *Notifications) Invalidate(reason string) uint64 {
	gen := n.drop()

	n.mu.RLock()
	hooks := append([]InvalidateHook(nil), n.hooks...)
	n.mu.RUnlock()

	for _, hook := range hooks {
		hook(gen, reason)
	}
	return gen
}

// Reset drops every entry without running hooks. It is used when the session
// owner changes and nothing should be refetched on their behalf.
func (n *Notifications) Reset() uint64 {
	return n.drop()
}

func (n *Notifications) drop() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries.Purge()
	n.index = nil
	n.indexed = false
	return n.generation.Add(1)
}

func (n *Notifications) fresh() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.indexed && n.indexGen == n.generation.Load()
}

func (n *Notifications) cachedList() ([]Notification, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.indexed || n.indexGen != n.generation.Load() {
		return nil, false
	}
	items := make([]Notification, 0, len(n.index))
	for _, id := range n.index {
		item, ok := n.entries.Peek(id)
		if !ok {
			return nil, false
		}
		items = append(items, item)
	}
	return items, true
}

func (n *Notifications) store(gen uint64, items []Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.generation.Load() != gen {
		return
	}
	index := make([]string, 0, len(items))
	for _, item := range items {
		n.entries.Add(item.ID, item)
		index = append(index, item.ID)
	}
	n.index = index
	n.indexGen = gen
	n.indexed = true
}
