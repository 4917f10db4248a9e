package store

import (
	"testing"
	"time"
)

func TestMemoryStoreBasic(t *testing.T) {
	ms := NewMemoryStore()

	rec := Record{Group: "g", Key: "k", Value: true, Created: time.Unix(100, 0), TTL: time.Minute}
	if err := ms.Put(rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, found, err := ms.Get("g", "k")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got.Value != true || !got.Created.Equal(rec.Created) || got.TTL != rec.TTL {
		t.Errorf("Get returned %+v", got)
	}

	// Expired records stay readable; the store does not interpret ttls.
	stale := Record{Group: "g", Key: "old", Value: 1, Created: time.Unix(0, 0), TTL: time.Second}
	ms.Put(stale)
	_, found, _ = ms.Get("g", "old")
	if !found {
		t.Error("expired record should still be readable from the store")
	}

	existed, err := ms.Delete("g", "k")
	if err != nil || !existed {
		t.Fatalf("Delete: existed=%v err=%v", existed, err)
	}
	existed, _ = ms.Delete("g", "k")
	if existed {
		t.Error("second Delete should report no record")
	}
}

func TestMemoryStoreGroupsAreIndependent(t *testing.T) {
	ms := NewMemoryStore()
	ms.Put(Record{Group: "a", Key: "k", Value: "va", Created: time.Unix(1, 0), TTL: time.Minute})
	ms.Put(Record{Group: "b", Key: "k", Value: "vb", Created: time.Unix(2, 0), TTL: time.Minute})

	got, found, _ := ms.Get("a", "k")
	if !found || got.Value != "va" {
		t.Errorf("group a: got %+v found=%v", got, found)
	}
	got, found, _ = ms.Get("b", "k")
	if !found || got.Value != "vb" {
		t.Errorf("group b: got %+v found=%v", got, found)
	}
}

func TestMemoryStoreScanOrdered(t *testing.T) {
	ms := NewMemoryStore()
	// Inserted out of order; scan must come back ascending by
	// (created, ttl).
	ms.Put(Record{Group: "g", Key: "c", Created: time.Unix(30, 0), TTL: time.Second})
	ms.Put(Record{Group: "g", Key: "a", Created: time.Unix(10, 0), TTL: time.Second})
	ms.Put(Record{Group: "g", Key: "b2", Created: time.Unix(20, 0), TTL: 2 * time.Second})
	ms.Put(Record{Group: "g", Key: "b1", Created: time.Unix(20, 0), TTL: 1 * time.Second})

	var keys []string
	err := ms.ScanOrdered(func(rec Record) (bool, error) {
		keys = append(keys, rec.Key)
		return true, nil
	})
	if err != nil {
		t.Fatalf("ScanOrdered failed: %v", err)
	}

	want := []string{"a", "b1", "b2", "c"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}

func TestMemoryStoreScanOrderedEarlyStop(t *testing.T) {
	ms := NewMemoryStore()
	for i, key := range []string{"a", "b", "c"} {
		ms.Put(Record{Group: "g", Key: key, Created: time.Unix(int64(i), 0), TTL: time.Second})
	}

	seen := 0
	ms.ScanOrdered(func(rec Record) (bool, error) {
		seen++
		return false, nil
	})
	if seen != 1 {
		t.Errorf("scan should stop after first record, saw %d", seen)
	}
}

func TestMemoryStoreDeleteIfCreated(t *testing.T) {
	ms := NewMemoryStore()
	created := time.Unix(100, 0)
	ms.Put(Record{Group: "g", Key: "k", Value: true, Created: created, TTL: time.Second})

	// Mismatched timestamp: the record was refreshed, leave it alone.
	deleted, err := ms.DeleteIfCreated("g", "k", created.Add(time.Second))
	if err != nil || deleted {
		t.Fatalf("mismatched delete: deleted=%v err=%v", deleted, err)
	}
	if _, found, _ := ms.Get("g", "k"); !found {
		t.Fatal("record should survive mismatched conditional delete")
	}

	deleted, err = ms.DeleteIfCreated("g", "k", created)
	if err != nil || !deleted {
		t.Fatalf("matched delete: deleted=%v err=%v", deleted, err)
	}
	if _, found, _ := ms.Get("g", "k"); found {
		t.Fatal("record should be gone after matched conditional delete")
	}
}

func TestMemoryStoreScanAll(t *testing.T) {
	ms := NewMemoryStore()
	ms.Put(Record{Group: "a", Key: "1", Created: time.Unix(1, 0), TTL: time.Second})
	ms.Put(Record{Group: "a", Key: "2", Created: time.Unix(2, 0), TTL: time.Second})
	ms.Put(Record{Group: "b", Key: "1", Created: time.Unix(3, 0), TTL: time.Second})

	count := 0
	err := ms.ScanAll(func(Record) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if count != 3 {
		t.Errorf("got %d records, want 3", count)
	}
}
