package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	addressBucket = "addresses"
	alertBucket   = "alerts"

	currentKey = "current"
	listKey    = "list"
)

// BoltStore is the default file-backed Backend.
type BoltStore struct {
	db         *bolt.DB
	maxEntries int
	now        func() time.Time
}

// OpenBolt opens (creating if needed) the database file at path.
func OpenBolt(path string, maxEntries int) (*BoltStore, error) {
	if path == "" {
		return nil, errors.New("addressbook.path is required")
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{addressBucket, alertBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db, maxEntries: maxEntries, now: time.Now}, nil
}

// Close releases the database file.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Current returns the current address, or "" when none is set.
func (s *BoltStore) Current(ctx context.Context) (string, error) {
	var current string
	err := s.db.View(func(tx *bolt.Tx) error {
		current = string(tx.Bucket([]byte(addressBucket)).Get([]byte(currentKey)))
		return nil
	})
	return current, err
}

// SetCurrent implements AddressBook.
func (s *BoltStore) SetCurrent(ctx context.Context, address string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(addressBucket))
		if address == "" {
			return b.Delete([]byte(currentKey))
		}
		if err := b.Put([]byte(currentKey), []byte(address)); err != nil {
			return err
		}
		list, err := readList(b)
		if err != nil {
			return err
		}
		return writeList(b, pushFront(list, address, s.maxEntries))
	})
}

// List returns the recent addresses, most recent first.
func (s *BoltStore) List(ctx context.Context) ([]string, error) {
	var list []string
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		list, err = readList(tx.Bucket([]byte(addressBucket)))
		return err
	})
	return list, err
}

// Remove implements AddressBook.
func (s *BoltStore) Remove(ctx context.Context, address string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(addressBucket))
		list, err := readList(b)
		if err != nil {
			return err
		}
		if err := writeList(b, without(list, address)); err != nil {
			return err
		}
		if string(b.Get([]byte(currentKey))) == address {
			return b.Delete([]byte(currentKey))
		}
		return nil
	})
}

// Clear empties the list and the current address.
func (s *BoltStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(addressBucket))
		if err := b.Delete([]byte(listKey)); err != nil {
			return err
		}
		return b.Delete([]byte(currentKey))
	})
}

// InsertAlert appends alert under the next bucket sequence.
func (s *BoltStore) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(alertBucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		alert.ID = int64(seq)
		if alert.CreatedAt.IsZero() {
			alert.CreatedAt = s.now().UTC()
		}
		raw, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("encode alert: %w", err)
		}
		return b.Put(itob(seq), raw)
	})
	if err != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", err)
	}
	return alert, nil
}

// ListRecentAlerts returns up to limit alerts, newest first.
func (s *BoltStore) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	alerts := make([]AlertRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(alertBucket)).Cursor()
		for k, v := c.Last(); k != nil && (limit <= 0 || len(alerts) < limit); k, v = c.Prev() {
			var rec AlertRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode alert %d: %w", binary.BigEndian.Uint64(k), err)
			}
			alerts = append(alerts, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func readList(b *bolt.Bucket) ([]string, error) {
	raw := b.Get([]byte(listKey))
	if raw == nil {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		// a corrupt list is dropped, as the address list is a convenience
		return []string{}, nil
	}
	return list, nil
}

func writeList(b *bolt.Bucket, list []string) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return b.Put([]byte(listKey), raw)
}

// itob returns an 8-byte big endian representation of v.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

var _ Backend = (*BoltStore)(nil)
