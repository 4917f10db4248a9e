package store

import "time"

// Store is the record-store collaborator contract. Backends provide durable
// keyed storage with atomic single-record operations; they never interpret
// TTLs themselves; liveness is decided by the caller, so expired records
// stay readable until explicitly deleted.
type Store interface {
	// Get retrieves the record for (group, key). found is false when no
	// record exists, expired or not.
	Get(group, key string) (rec Record, found bool, err error)

	// Put writes or overwrites the record for its identity, keeping the
	// expiry index in step atomically.
	Put(rec Record) error

	// Delete removes a record. Returns true iff one existed.
	Delete(group, key string) (bool, error)

	// ScanOrdered walks all records in ascending (created, ttl) order.
	// Returning false from fn stops the scan early.
	ScanOrdered(fn func(rec Record) (cont bool, err error)) error

	// ScanAll walks every record in unspecified order.
	ScanAll(fn func(rec Record) error) error
}

// ConditionalDeleter is implemented by backends that can cheaply delete a
// record only if its created timestamp is unchanged. The sweeper prefers it
// so a record refreshed between its two passes is not destroyed.
type ConditionalDeleter interface {
	DeleteIfCreated(group, key string, created time.Time) (bool, error)
}
