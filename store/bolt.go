package store

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	recordsBucket = []byte("records")
	expiryBucket  = []byte("expiry")
)

// BoltStore is a durable single-file backend. Records live in one bucket
// keyed by compound key; a second bucket acts as the expiry index, its keys
// laid out as big-endian created || ttl || compound key so a cursor walk
// yields ascending (created, ttl) order. Both buckets are updated in the
// same transaction.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(recordsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(expiryBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (bs *BoltStore) Close() error {
	return bs.db.Close()
}

// indexKey layout: 8 bytes big endian created nanos || 8 bytes big endian
// ttl nanos || compound key.
func indexKey(rec Record) []byte {
	ck := CompoundKey(rec.Group, rec.Key)
	buf := make([]byte, 16+len(ck))
	binary.BigEndian.PutUint64(buf[:8], uint64(rec.Created.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(rec.TTL))
	copy(buf[16:], ck)
	return buf
}

func (bs *BoltStore) Get(group, key string) (Record, bool, error) {
	var rec Record
	var found bool
	err := bs.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(recordsBucket).Get([]byte(CompoundKey(group, key)))
		if v == nil {
			return nil
		}
		r, err := decodeRecord(group, key, v)
		if err != nil {
			return err
		}
		rec, found = r, true
		return nil
	})
	return rec, found, err
}

func (bs *BoltStore) Put(rec Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	ck := []byte(CompoundKey(rec.Group, rec.Key))
	return bs.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		expiry := tx.Bucket(expiryBucket)

		// Overwrites must drop the old index entry first.
		if old := records.Get(ck); old != nil {
			oldRec, err := decodeRecord(rec.Group, rec.Key, old)
			if err != nil {
				return err
			}
			if err := expiry.Delete(indexKey(oldRec)); err != nil {
				return err
			}
		}
		if err := records.Put(ck, data); err != nil {
			return err
		}
		return expiry.Put(indexKey(rec), []byte{})
	})
}

func (bs *BoltStore) Delete(group, key string) (bool, error) {
	var existed bool
	err := bs.db.Update(func(tx *bolt.Tx) error {
		return bs.deleteTx(tx, group, key, nil, &existed)
	})
	return existed, err
}

func (bs *BoltStore) DeleteIfCreated(group, key string, created time.Time) (bool, error) {
	var existed bool
	err := bs.db.Update(func(tx *bolt.Tx) error {
		return bs.deleteTx(tx, group, key, &created, &existed)
	})
	return existed, err
}

// deleteTx removes a record and its index entry. When created is non-nil the
// delete only happens if the stored timestamp matches.
func (bs *BoltStore) deleteTx(tx *bolt.Tx, group, key string, created *time.Time, existed *bool) error {
	records := tx.Bucket(recordsBucket)
	ck := []byte(CompoundKey(group, key))
	v := records.Get(ck)
	if v == nil {
		return nil
	}
	rec, err := decodeRecord(group, key, v)
	if err != nil {
		return err
	}
	if created != nil && !rec.Created.Equal(*created) {
		return nil
	}
	if err := records.Delete(ck); err != nil {
		return err
	}
	if err := tx.Bucket(expiryBucket).Delete(indexKey(rec)); err != nil {
		return err
	}
	*existed = true
	return nil
}

func (bs *BoltStore) ScanOrdered(fn func(Record) (bool, error)) error {
	return bs.db.View(func(tx *bolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		c := tx.Bucket(expiryBucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			group, key := SplitCompoundKey(string(k[16:]))
			v := records.Get(k[16:])
			if v == nil {
				return fmt.Errorf("expiry index entry without record: %s/%s", group, key)
			}
			rec, err := decodeRecord(group, key, v)
			if err != nil {
				return err
			}
			cont, err := fn(rec)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

func (bs *BoltStore) ScanAll(fn func(Record) error) error {
	return bs.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			group, key := SplitCompoundKey(string(k))
			rec, err := decodeRecord(group, key, v)
			if err != nil {
				return err
			}
			return fn(rec)
		})
	})
}
