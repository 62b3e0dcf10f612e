package memory

import (
	"encoding/json"
	"fmt"
)

// Bucket names used by snapshotting backends. Each bucket holds one JSON
// document.
const (
	BucketRecords = "records"
	BucketDecrees = "decrees"
	BucketLedger  = "ledger"
)

// Buckets lists every snapshot bucket in write order.
func Buckets() []string {
	return []string{BucketRecords, BucketDecrees, BucketLedger}
}

// EncodeBuckets marshals each snapshot bucket.
func EncodeBuckets(snapshot Snapshot) (map[string][]byte, error) {
	out := make(map[string][]byte, 3)
	for _, bucket := range Buckets() {
		var (
			data []byte
			err  error
		)
		switch bucket {
		case BucketRecords:
			data, err = json.Marshal(snapshot.Records)
		case BucketDecrees:
			data, err = json.Marshal(snapshot.Decrees)
		case BucketLedger:
			data, err = json.Marshal(snapshot.Ledger)
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBucket unmarshals one persisted bucket into snapshot. Unknown buckets
// and empty payloads are ignored.
func DecodeBucket(snapshot *Snapshot, bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var target any
	switch bucket {
	case BucketRecords:
		target = &snapshot.Records
	case BucketDecrees:
		target = &snapshot.Decrees
	case BucketLedger:
		target = &snapshot.Ledger
	default:
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
