package channeldb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-errors/errors"
	"github.com/lightningnetwork/lnd/kvdb"
)

const (
	// DefaultGraphDBName is the file name of the bolt database holding
	// the persisted graph documents.
	DefaultGraphDBName = "channel_graph.db"

	// dbFilePermission is the permission the database directory is
	// created with.
	dbFilePermission = 0700
)

var (
	// documentBucket is the top level bucket that stores every document,
	// keyed by document name and JSON encoded.
	documentBucket = []byte("documents")
)

// DocumentStore is a small key/value store of JSON documents. Values put into
// the store are staged and only reach durable storage once Write is called.
type DocumentStore interface {
	// Get decodes the document stored under key into v. False is
	// returned if no such document exists.
	Get(key string, v interface{}) (bool, error)

	// Put stages v as the new document under key.
	Put(key string, v interface{}) error

	// Write persists every staged document.
	Write() error
}

// KVDocStore is a DocumentStore backed by a kvdb backend. Every document is a
// JSON value in a single bucket.
type KVDocStore struct {
	db kvdb.Backend

	// ownsDB is true if the store opened the backend and is in charge of
	// closing it.
	ownsDB bool

	mu     sync.Mutex
	staged map[string][]byte
}

// A compile time check to ensure KVDocStore implements the DocumentStore
// interface.
var _ DocumentStore = (*KVDocStore)(nil)

// NewKVDocStore creates a document store on top of an open backend, creating
// the document bucket if needed.
func NewKVDocStore(db kvdb.Backend) (*KVDocStore, error) {
	err := kvdb.Update(db, func(tx kvdb.RwTx) error {
		_, err := tx.CreateTopLevelBucket(documentBucket)
		return err
	}, func() {})
	if err != nil {
		return nil, err
	}

	return &KVDocStore{
		db:     db,
		staged: make(map[string][]byte),
	}, nil
}

// OpenBoltDocStore opens, or creates, a bolt database named
// DefaultGraphDBName within dbDir and returns a document store on top of it.
// The store closes the database when it is closed itself.
func OpenBoltDocStore(dbDir string) (*KVDocStore, error) {
	if err := os.MkdirAll(dbDir, dbFilePermission); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dbDir, DefaultGraphDBName)
	db, err := kvdb.Create(
		kvdb.BoltBackendName, dbPath, true, kvdb.DefaultDBTimeout,
	)
	if err != nil {
		return nil, err
	}

	store, err := NewKVDocStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.ownsDB = true

	log.Debugf("Opened graph document store at %v", dbPath)

	return store, nil
}

// Get decodes the document stored under key into v. Staged documents take
// precedence over persisted ones.
//
// NOTE: This is part of the DocumentStore interface.
func (s *KVDocStore) Get(key string, v interface{}) (bool, error) {
	s.mu.Lock()
	raw, ok := s.staged[key]
	s.mu.Unlock()

	if !ok {
		err := kvdb.View(s.db, func(tx kvdb.RTx) error {
			bucket := tx.ReadBucket(documentBucket)
			if bucket == nil {
				return nil
			}

			// The slice returned by Get is only valid for the
			// lifetime of the transaction.
			if value := bucket.Get([]byte(key)); value != nil {
				raw = append([]byte(nil), value...)
			}

			return nil
		}, func() {
			raw = nil
		})
		if err != nil {
			return false, err
		}
	}

	if raw == nil {
		return false, nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return false, errors.Errorf("unable to decode document %q: %v",
			key, err)
	}

	return true, nil
}

// Put stages v as the new document under key.
//
// NOTE: This is part of the DocumentStore interface.
func (s *KVDocStore) Put(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Errorf("unable to encode document %q: %v", key,
			err)
	}

	s.mu.Lock()
	s.staged[key] = raw
	s.mu.Unlock()

	return nil
}

// Write persists all staged documents in a single transaction.
//
// NOTE: This is part of the DocumentStore interface.
func (s *KVDocStore) Write() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.staged) == 0 {
		return nil
	}

	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(documentBucket)
		if bucket == nil {
			return errors.Errorf("bucket %s not found",
				documentBucket)
		}

		for key, raw := range s.staged {
			if err := bucket.Put([]byte(key), raw); err != nil {
				return err
			}
		}

		return nil
	}, func() {})
	if err != nil {
		return err
	}

	s.staged = make(map[string][]byte)

	return nil
}

// Close closes the underlying database if the store opened it.
func (s *KVDocStore) Close() error {
	if !s.ownsDB {
		return nil
	}

	return s.db.Close()
}
