// Package keylock hands out one lock per key. Locks for different keys never
// contend; the registry itself is only held to look an entry up.
package keylock

import "sync"

type entry struct {
	mu   sync.RWMutex
	refs int
}

type Map[K comparable] struct {
	mu sync.Mutex
	m  map[K]*entry
}

func New[K comparable]() *Map[K] {
	return &Map[K]{m: make(map[K]*entry)}
}

func (l *Map[K]) acquire(k K) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.m[k]
	if !ok {
		e = &entry{}
		l.m[k] = e
	}
	e.refs++
	return e
}

func (l *Map[K]) release(k K, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.m, k)
	}
}

// Lock takes k exclusively and returns its unlock func.
func (l *Map[K]) Lock(k K) func() {
	e := l.acquire(k)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.release(k, e)
	}
}

// RLock takes k shared and returns its unlock func.
func (l *Map[K]) RLock(k K) func() {
	e := l.acquire(k)
	e.mu.RLock()
	return func() {
		e.mu.RUnlock()
		l.release(k, e)
	}
}

// Len is the number of keys currently held or waited on.
func (l *Map[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
