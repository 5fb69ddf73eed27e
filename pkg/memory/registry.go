package memory

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

type registry struct {
	mu sync.Mutex
	// namespaces maps namespace -> insertion-ordered list of *Entry (front = newest)
	namespaces map[string]*list.List
	// elements maps entryKey -> *list.Element for O(1) lookup
	elements map[string]*list.Element
	now      func() time.Time
}

// New returns an empty Store.
func New() Store {
	return &registry{
		namespaces: make(map[string]*list.List),
		elements:   make(map[string]*list.Element),
		now:        time.Now,
	}
}

func entryKey(namespace, key string) string {
	return namespace + "\x00" + key
}

func (r *registry) Insert(namespace, key string, opts ...Option) error {
	o := &insertOptions{}
	for _, opt := range opts {
		opt(o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	ek := entryKey(namespace, key)
	if elem, ok := r.elements[ek]; ok {
		if !r.expired(elem.Value.(*Entry), now) {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateKey, namespace, key)
		}
		r.remove(elem)
	}

	entry := &Entry{
		Namespace: namespace,
		Key:       key,
		Label:     o.label,
		CreatedAt: now,
	}
	if o.ttl > 0 {
		t := now.Add(o.ttl)
		entry.ExpiresAt = &t
	}

	l, ok := r.namespaces[namespace]
	if !ok {
		l = list.New()
		r.namespaces[namespace] = l
	}
	r.elements[ek] = l.PushFront(entry)
	return nil
}

func (r *registry) Contains(namespace, key string) bool {
	_, ok := r.Get(namespace, key)
	return ok
}

func (r *registry) Get(namespace, key string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	elem, ok := r.elements[entryKey(namespace, key)]
	if !ok {
		return Entry{}, false
	}

	e := elem.Value.(*Entry)

	// Lazy TTL eviction.
	if r.expired(e, r.now()) {
		r.remove(elem)
		return Entry{}, false
	}
	return *e, true
}

func (r *registry) Delete(namespace, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	elem, ok := r.elements[entryKey(namespace, key)]
	if !ok {
		return false
	}
	r.remove(elem)
	return true
}

func (r *registry) List(namespace string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.namespaces[namespace]
	if !ok {
		return nil
	}

	now := r.now()
	var result []Entry
	var toRemove []*list.Element

	for elem := l.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*Entry)
		if r.expired(e, now) {
			toRemove = append(toRemove, elem)
			continue
		}
		result = append(result, *e)
	}

	for _, elem := range toRemove {
		r.remove(elem)
	}
	return result
}

// Len counts live entries across all namespaces. Expired entries are not
// counted even if they have not been evicted yet.
func (r *registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	total := 0
	for _, l := range r.namespaces {
		for elem := l.Front(); elem != nil; elem = elem.Next() {
			if !r.expired(elem.Value.(*Entry), now) {
				total++
			}
		}
	}
	return total
}

func (r *registry) expired(e *Entry, now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// remove must be called with r.mu held.
func (r *registry) remove(elem *list.Element) {
	e := elem.Value.(*Entry)
	l := r.namespaces[e.Namespace]
	l.Remove(elem)
	delete(r.elements, entryKey(e.Namespace, e.Key))
	if l.Len() == 0 {
		delete(r.namespaces, e.Namespace)
	}
}
