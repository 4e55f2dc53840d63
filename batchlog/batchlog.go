// Package batchlog persists mounted mutation batches so a session can be
// replayed later. Batches are CBOR-encoded in canonical mode and stored in a
// bbolt bucket under big-endian sequence keys.
package batchlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/phanxgames/arbor"
	"github.com/tliron/commonlog"
	bolt "go.etcd.io/bbolt"
)

// BucketBatches is the bucket holding encoded batches.
const BucketBatches = "batches"

// ErrNoBatch is returned when a sequence number has no batch.
var ErrNoBatch = errors.New("batchlog: no such batch")

var log = commonlog.GetLogger("arbor.batchlog")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("batchlog: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("batchlog: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

// Marshal encodes a batch.
func Marshal(b arbor.Batch) ([]byte, error) {
	return encMode.Marshal(b)
}

// Unmarshal decodes a batch.
func Unmarshal(data []byte) (arbor.Batch, error) {
	var b arbor.Batch
	if err := decMode.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("batchlog: unmarshal batch: %w", err)
	}
	return b, nil
}

// Log is an append-only batch log backed by a bbolt database.
type Log struct {
	db *bolt.DB
}

// Open opens or creates the log at path.
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("batchlog: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketBatches))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Log{db: db}, nil
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append stores b and returns its sequence number. Sequence numbers start at
// 1.
func (l *Log) Append(b arbor.Batch) (uint64, error) {
	data, err := Marshal(b)
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = l.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket([]byte(BucketBatches))
		seq, err = bk.NextSequence()
		if err != nil {
			return err
		}
		return bk.Put(marshalSeq(seq), data)
	})
	return seq, err
}

// Batch returns the batch stored under seq.
func (l *Log) Batch(seq uint64) (arbor.Batch, error) {
	var data []byte
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketBatches)).Get(marshalSeq(seq))
		if v == nil {
			return ErrNoBatch
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return arbor.Batch{}, err
	}
	return Unmarshal(data)
}

// Len returns the number of stored batches.
func (l *Log) Len() (int, error) {
	var n int
	err := l.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(BucketBatches)).Stats().KeyN
		return nil
	})
	return n, err
}

// Iterate calls f with every batch from sequence number from (inclusive) in
// order, until f returns false.
func (l *Log) Iterate(from uint64, f func(seq uint64, b arbor.Batch) bool) error {
	return l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(BucketBatches)).Cursor()
		for k, v := c.Seek(marshalSeq(from)); k != nil; k, v = c.Next() {
			b, err := Unmarshal(v)
			if err != nil {
				return err
			}
			if !f(unmarshalSeq(k), b) {
				break
			}
		}
		return nil
	})
}

// Attach records every batch mm mounts. Writes happen on the runner's
// background thread so the UI thread never waits on disk. The returned handle
// stops recording.
func (l *Log) Attach(mm *arbor.MountingManager, runner *arbor.TaskRunner) arbor.CallbackHandle {
	return mm.OnDidMount(func(b arbor.Batch) {
		err := runner.RunAsync(arbor.BackgroundThread, func() {
			if _, err := l.Append(b); err != nil {
				log.Errorf("append batch: %s", err)
			}
		})
		if err != nil {
			log.Warningf("batch not recorded: %s", err)
		}
	})
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
