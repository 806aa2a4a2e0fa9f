package audit

import (
	"sync"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/table"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("audit record not found")

var headKey = []byte("head")

// Journal is an append-only, sequence-keyed store of audit records on
// top of a key-value store. Keys are big-endian sequence numbers, so
// iteration returns records in append order.
type Journal struct {
	mu   sync.RWMutex
	next uint64

	table struct {
		Records kvdb.Store // "r"
		Meta    kvdb.Store // "m"
	}
}

// NewJournal opens a journal over db, recovering the next sequence
// number from the persisted head.
func NewJournal(db kvdb.Store) (*Journal, error) {
	j := &Journal{}
	j.table.Records = table.New(db, []byte("r"))
	j.table.Meta = table.New(db, []byte("m"))

	head, err := j.table.Meta.Get(headKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read journal head")
	}
	if head != nil {
		j.next = bigendian.BytesToUint64(head)
	}
	return j, nil
}

// Append assigns the next sequence number to r and persists it.
// The rest of the record is stored as given.
func (j *Journal) Append(r Record) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	r.Seq = j.next
	b, err := r.MarshalBinary()
	if err != nil {
		return 0, errors.Wrap(err, "failed to encode audit record")
	}
	if err := j.table.Records.Put(bigendian.Uint64ToBytes(r.Seq), b); err != nil {
		return 0, errors.Wrap(err, "failed to store audit record")
	}
	if err := j.table.Meta.Put(headKey, bigendian.Uint64ToBytes(r.Seq+1)); err != nil {
		return 0, errors.Wrap(err, "failed to store journal head")
	}
	j.next = r.Seq + 1
	return r.Seq, nil
}

// Record reads a single record by sequence number.
func (j *Journal) Record(seq uint64) (Record, error) {
	b, err := j.table.Records.Get(bigendian.Uint64ToBytes(seq))
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to read audit record")
	}
	if b == nil {
		return Record{}, ErrNotFound
	}
	var r Record
	if err := r.UnmarshalBinary(b); err != nil {
		return Record{}, errors.Wrap(err, "failed to decode audit record")
	}
	return r, nil
}

// Range returns up to limit records starting at sequence number from,
// in append order. A non-positive limit means no limit.
func (j *Journal) Range(from uint64, limit int) ([]Record, error) {
	it := j.table.Records.NewIterator(nil, bigendian.Uint64ToBytes(from))
	defer it.Release()

	var out []Record
	for it.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		var r Record
		if err := r.UnmarshalBinary(it.Value()); err != nil {
			return nil, errors.Wrap(err, "failed to decode audit record")
		}
		out = append(out, r)
	}
	return out, it.Error()
}

// Len returns the number of records appended so far.
func (j *Journal) Len() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.next
}
