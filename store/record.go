package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is a single TTL-governed entry. Its identity is (Group, Key);
// liveness is derived from Created and TTL, never stored.
type Record struct {
	Group   string
	Key     string
	Value   interface{}
	Created time.Time
	TTL     time.Duration
}

// Expired reports whether the record's lifetime has elapsed at now.
// A record is live only while now - created < ttl (strict).
func (r Record) Expired(now time.Time) bool {
	return now.Sub(r.Created) >= r.TTL
}

// TimeLeft returns the remaining lifetime at now, clamped at zero.
func (r Record) TimeLeft(now time.Time) time.Duration {
	left := r.TTL - now.Sub(r.Created)
	if left < 0 {
		return 0
	}
	return left
}

// keySep joins group and key into one storage key. Unit separator keeps
// compound keys unambiguous for groups/keys containing ':'.
const keySep = "\x1f"

// CompoundKey builds the storage key for an identity.
func CompoundKey(group, key string) string {
	return group + keySep + key
}

// SplitCompoundKey is the inverse of CompoundKey.
func SplitCompoundKey(ck string) (group, key string) {
	i := strings.Index(ck, keySep)
	if i < 0 {
		return ck, ""
	}
	return ck[:i], ck[i+len(keySep):]
}

// recordWire is the serialized form shared by the bolt and redis backends.
// Timestamps are unix nanoseconds so decoding does not depend on time zone
// or time.Time's JSON format.
type recordWire struct {
	Value     json.RawMessage `json:"v"`
	CreatedNs int64           `json:"c"`
	TTLNs     int64           `json:"t"`
}

func encodeRecord(rec Record) ([]byte, error) {
	jv, err := json.Marshal(rec.Value)
	if err != nil {
		return nil, fmt.Errorf("encode record value: %w", err)
	}
	return json.Marshal(recordWire{
		Value:     jv,
		CreatedNs: rec.Created.UnixNano(),
		TTLNs:     int64(rec.TTL),
	})
}

func decodeRecord(group, key string, data []byte) (Record, error) {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	var value interface{}
	if err := json.Unmarshal(w.Value, &value); err != nil {
		return Record{}, fmt.Errorf("decode record value: %w", err)
	}
	return Record{
		Group:   group,
		Key:     key,
		Value:   value,
		Created: time.Unix(0, w.CreatedNs),
		TTL:     time.Duration(w.TTLNs),
	}, nil
}
