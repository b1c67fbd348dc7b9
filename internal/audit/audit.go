// Package audit appends a uuid-keyed record of every history-mutating
// operation (commit, reset, revert, cherry-pick) to a badger bucket.
// Nothing in the core's correctness depends on this log; it exists so
// callers can answer "what happened and when" beyond what the commit
// graph itself records.
package audit

import (
	"encoding/json"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"cellvcs/internal/errors"
)

// Record is one logged operation.
type Record struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`   // "commit" | "hard_reset" | "soft_reset" | "revert" | "cherry_pick"
	Target    string    `json:"target"` // the commit hash produced or targeted
	Result    string    `json:"result"` // "ok" | "error:<message>"
	Timestamp time.Time `json:"timestamp"`
}

const keyPrefix = "audit:"

// Log appends Records to a badger database.
type Log struct {
	db *badger.DB
}

// Open opens (creating if absent) a badger database at dir for audit
// records.
func Open(dir string) (*Log, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.IoFailure("opening audit log: " + err.Error())
	}
	return &Log{db: db}, nil
}

// Close releases the underlying badger database.
func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Append records one operation outcome. A failure to write the audit log
// is never fatal to the caller's operation — the callers in internal/vcs
// ignore the returned error and continue.
func (l *Log) Append(kind, target string, opErr error) error {
	if l == nil || l.db == nil {
		return nil
	}
	result := "ok"
	if opErr != nil {
		result = "error:" + opErr.Error()
	}
	rec := Record{
		ID:        uuid.New().String(),
		Kind:      kind,
		Target:    target,
		Result:    result,
		Timestamp: time.Now(),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return errors.IoFailure("encoding audit record: " + err.Error())
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+rec.ID), b)
	})
}

// Recent returns up to limit audit records in badger's lexicographic key
// order. Keys are random v4 uuids (uuid.New), so neither the order of the
// returned records nor which records fall within limit follows append
// time.
func (l *Log) Recent(limit int) ([]Record, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	var out []Record
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid() && len(out) < limit; it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var rec Record
				if err := json.Unmarshal(v, &rec); err != nil {
					return err
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.IoFailure("reading audit log: " + err.Error())
	}
	return out, nil
}
