package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const auditBucket = "login_audit"

// AuditRecord is one persisted audit event.
type AuditRecord struct {
	ID         string `json:"id"`
	Event      string `json:"event"`
	User       string `json:"user"`
	RemoteAddr string `json:"remote_addr"`
	CreatedAt  string `json:"created_at"`
}

// AuditStore is an append-only on-disk log of login-flow events, backed by
// a BBolt database. Keys are ordered by insertion so listing returns events
// chronologically.
type AuditStore struct {
	db *bbolt.DB
}

// NewAuditStore opens (or creates) the audit database at the given path.
func NewAuditStore(path string) (*AuditStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(auditBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit bucket: %w", err)
	}
	return &AuditStore{db: db}, nil
}

// Close closes the underlying database.
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// Append records one event.
func (s *AuditStore) Append(event AuditEvent, user, remoteAddr string) error {
	rec := AuditRecord{
		ID:         uuid.NewString(),
		Event:      string(event),
		User:       user,
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding audit record: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(auditBucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%016d", seq)
		return b.Put([]byte(key), data)
	})
}

// Records returns all persisted events in insertion order.
func (s *AuditStore) Records() ([]AuditRecord, error) {
	var records []AuditRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(auditBucket))
		return b.ForEach(func(_, v []byte) error {
			var rec AuditRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	return records, nil
}
