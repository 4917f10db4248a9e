package store

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in a plain map keyed by compound key.
// Ordered scans sort a snapshot, so iteration never holds the lock.
type MemoryStore struct {
	data map[string]Record
	mu   sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Record),
	}
}

func (ms *MemoryStore) Get(group, key string) (Record, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	rec, ok := ms.data[CompoundKey(group, key)]
	return rec, ok, nil
}

func (ms *MemoryStore) Put(rec Record) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.data[CompoundKey(rec.Group, rec.Key)] = rec
	return nil
}

func (ms *MemoryStore) Delete(group, key string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ck := CompoundKey(group, key)
	if _, ok := ms.data[ck]; !ok {
		return false, nil
	}
	delete(ms.data, ck)
	return true, nil
}

// DeleteIfCreated removes the record only when its created timestamp still
// matches, so a concurrently refreshed record survives.
func (ms *MemoryStore) DeleteIfCreated(group, key string, created time.Time) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ck := CompoundKey(group, key)
	rec, ok := ms.data[ck]
	if !ok || !rec.Created.Equal(created) {
		return false, nil
	}
	delete(ms.data, ck)
	return true, nil
}

func (ms *MemoryStore) ScanOrdered(fn func(Record) (bool, error)) error {
	recs := ms.snapshot()
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Created.Equal(recs[j].Created) {
			return recs[i].Created.Before(recs[j].Created)
		}
		return recs[i].TTL < recs[j].TTL
	})

	for _, rec := range recs {
		cont, err := fn(rec)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (ms *MemoryStore) ScanAll(fn func(Record) error) error {
	for _, rec := range ms.snapshot() {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MemoryStore) snapshot() []Record {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	recs := make([]Record, 0, len(ms.data))
	for _, rec := range ms.data {
		recs = append(recs, rec)
	}
	return recs
}
