// Package keeper implements a TTL-governed record store: values are
// registered under a (group, key) identity with a lifetime, re-registration
// is debounced while the previous record is live, expired records are
// invisible to reads and reclaimed by a background sweeper.
package keeper

import (
	"fmt"
	"sync"
	"time"

	"tempokv/store"
)

// DefaultTTL applies when Add is called with a non-positive ttl.
const DefaultTTL = 60 * time.Second

type Keeper struct {
	store store.Store
	clock Clock
	mu    sync.Mutex
}

func New(s store.Store) *Keeper {
	return NewWithClock(s, SystemClock{})
}

func NewWithClock(s store.Store, c Clock) *Keeper {
	return &Keeper{
		store: s,
		clock: c,
	}
}

// keyString coerces any key to its string form. Numeric and string keys
// that stringify identically collide on purpose.
func keyString(key interface{}) string {
	if s, ok := key.(string); ok {
		return s
	}
	return fmt.Sprint(key)
}

// Add registers value under (group, key) for ttl. If a live record already
// holds the identity, Add returns false and changes nothing; an expired
// record is overwritten in place with a fresh created timestamp. A nil
// value stores the marker true, a non-positive ttl means DefaultTTL.
func (k *Keeper) Add(group string, key, value interface{}, ttl time.Duration) (bool, error) {
	if value == nil {
		value = true
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ks := keyString(key)

	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.clock.Now()
	rec, found, err := k.store.Get(group, ks)
	if err != nil {
		return false, err
	}
	if found && !rec.Expired(now) {
		// Debounce: the previous registration is still live.
		return false, nil
	}

	err = k.store.Put(store.Record{
		Group:   group,
		Key:     ks,
		Value:   value,
		Created: now,
		TTL:     ttl,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// TryOnce is Add with the marker value: it returns true at most once per
// ttl window for a given identity.
func (k *Keeper) TryOnce(group string, key interface{}, ttl time.Duration) (bool, error) {
	return k.Add(group, key, true, ttl)
}

// Get returns the value for (group, key), or found=false when no record
// exists or its ttl has elapsed. Expired records are not deleted here;
// physical removal is the sweeper's job.
func (k *Keeper) Get(group string, key interface{}) (interface{}, bool, error) {
	rec, found, err := k.store.Get(group, keyString(key))
	if err != nil || !found {
		return nil, false, err
	}
	if rec.Expired(k.clock.Now()) {
		return nil, false, nil
	}
	return rec.Value, true, nil
}

// Exists reports whether a live record holds (group, key).
func (k *Keeper) Exists(group string, key interface{}) (bool, error) {
	left, found, err := k.TimeLeft(group, key)
	if err != nil {
		return false, err
	}
	return found && left > 0, nil
}

// TimeLeft returns the remaining lifetime for (group, key). found is false
// only when no record exists at all; an expired-but-unswept record reports
// zero. Note the boundary: at exactly elapsed == ttl, TimeLeft reports 0
// while Get already treats the record as expired.
func (k *Keeper) TimeLeft(group string, key interface{}) (time.Duration, bool, error) {
	rec, found, err := k.store.Get(group, keyString(key))
	if err != nil || !found {
		return 0, false, err
	}
	return rec.TimeLeft(k.clock.Now()), true, nil
}

// Delete removes the record for (group, key), live or expired. Returns
// true iff a record existed.
func (k *Keeper) Delete(group string, key interface{}) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.store.Delete(group, keyString(key))
}
