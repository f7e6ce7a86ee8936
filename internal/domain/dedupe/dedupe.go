// Package dedupe tracks idempotency keys so a retried client request maps back
// to the work it already started.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper records request keys together with the id of the work they created.
type Deduper interface {
	// Claim atomically records key -> value unless key is already known, in
	// which case it returns the stored value and true.
	Claim(ctx context.Context, key, value string) (existing string, duplicate bool)

	// Release forgets key so the request can be retried, e.g. after the
	// work could not be enqueued.
	Release(ctx context.Context, key string)

	// Reclaim replaces the value stored for key when it still equals stale,
	// or claims key when it is unknown. If key now holds another value that
	// value is returned with duplicate set.
	Reclaim(ctx context.Context, key, stale, value string) (existing string, duplicate bool)

	// Lookup returns the value stored for key.
	Lookup(ctx context.Context, key string) (string, bool)

	Size() int
}

type entry struct {
	key   string
	value string
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	index   map[string]*list.Element
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		order:   list.New(),
		index:   make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, key, value string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		return el.Value.(*entry).value, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.index[key] = d.order.PushBack(&entry{key: key, value: value})
	return value, false
}

func (d *inMemoryDeduper) Reclaim(ctx context.Context, key, stale, value string) (string, bool) {
	d.mu.Lock()
	el, ok := d.index[key]
	if ok {
		defer d.mu.Unlock()
		e := el.Value.(*entry)
		if e.value != stale {
			return e.value, true
		}
		e.value = value
		d.order.MoveToBack(el)
		return value, false
	}
	d.mu.Unlock()
	return d.Claim(ctx, key, value)
}

func (d *inMemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		d.order.Remove(el)
		delete(d.index, key)
	}
}

func (d *inMemoryDeduper) Lookup(_ context.Context, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.index[key]
	if !ok {
		return "", false
	}
	return el.Value.(*entry).value, true
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.order.Remove(front)
	delete(d.index, front.Value.(*entry).key)
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
