package assign

import "sync"

// lockTable hands out one mutex per track id so assignment transactions
// for the same track serialize while distinct tracks never contend.
// Entries are reference-counted and dropped when the last holder
// releases, so the table stays bounded by in-flight work.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the caller holds the per-key lock. A racing
// caller queues behind the holder; it does not fail.
func (t *lockTable) acquire(key string) {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &lockEntry{}
		t.entries[key] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()
}

func (t *lockTable) release(key string) {
	t.mu.Lock()
	e := t.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
	t.mu.Unlock()

	e.mu.Unlock()
}
