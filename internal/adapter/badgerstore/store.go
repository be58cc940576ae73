package badgerstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tabledesk/orderboard/internal/config"
)

// Store keeps per-session annotation marks in an embedded BadgerDB, the
// local analog of the browser's session storage. Every entry carries the
// session TTL, so marks survive a display reload within a session but
// never outlive it. Keys: ann/<session>/<order> → JSON array of item ids.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

func Open(cfg config.AnnotationsConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.DataDir).WithLogger(nil)
	if cfg.DataDir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation store: %w", err)
	}

	return &Store{db: db, ttl: cfg.SessionTTL()}, nil
}

func key(sessionID, orderID string) []byte {
	return []byte("ann/" + sessionID + "/" + orderID)
}

func sessionPrefix(sessionID string) []byte {
	return []byte("ann/" + sessionID + "/")
}

func (s *Store) Toggle(sessionID, orderID, itemID string) (bool, error) {
	var nowMarked bool

	err := s.db.Update(func(txn *badger.Txn) error {
		ids, err := readIDs(txn, key(sessionID, orderID))
		if err != nil {
			return err
		}

		next := make([]string, 0, len(ids)+1)
		for _, id := range ids {
			if id != itemID {
				next = append(next, id)
			}
		}
		if len(next) == len(ids) {
			next = append(next, itemID)
			nowMarked = true
		}

		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		entry := badger.NewEntry(key(sessionID, orderID), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return false, fmt.Errorf("failed to toggle annotation: %w", err)
	}
	return nowMarked, nil
}

func (s *Store) IsMarked(sessionID, orderID, itemID string) (bool, error) {
	ids, err := s.Marked(sessionID, orderID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Marked(sessionID, orderID string) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ids, err = readIDs(txn, key(sessionID, orderID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations: %w", err)
	}
	return ids, nil
}

func (s *Store) EndSession(sessionID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: sessionPrefix(sessionID)})
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().KeyCopy(nil)
			keys = append(keys, k)
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

func readIDs(txn *badger.Txn, k []byte) ([]string, error) {
	item, err := txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &ids)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
