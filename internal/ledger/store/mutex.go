// internal/ledger/store/mutex.go
package store

import "sync"

// KeyedMutex serializes read-modify-write sequences per owner key. The
// original host executed every call as a single non-preemptible unit;
// with concurrent callers the counter bumps and membership-list rewrites
// need a single writer per owner, which this provides.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock func. Entries
// are never evicted; cardinality is bounded by distinct owners seen by
// this process.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
