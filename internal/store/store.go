package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "preferences"

// Keys shared by the components allowed to write durable state.
const (
	KeyToken    = "token"
	KeyUser     = "user"
	KeyUserMode = "userMode"
)

// ErrNotFound is returned by Get when the key has never been set or was deleted.
var ErrNotFound = errors.New("preference not found")

// TutorialCompletedKey returns the onboarding completion marker for an identity.
func TutorialCompletedKey(identityID string) string {
	return "tutorialCompleted_" + identityID
}

// Preferences defines durable client-local string key/value storage
type Preferences interface {
	// Get returns the stored value or ErrNotFound
	Get(key string) (string, error)

	// Set stores a value, replacing any previous one
	Set(key, value string) error

	// Delete removes a key; deleting a missing key is not an error
	Delete(key string) error

	// Close releases the underlying resources
	Close() error
}

// BoltPreferences implements Preferences using BoltDB
type BoltPreferences struct {
	db *bbolt.DB
}

// NewBoltPreferences opens (or creates) the state file at path
func NewBoltPreferences(path string) (*BoltPreferences, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltPreferences{db: db}, nil
}

// Get returns the value stored under key
func (b *BoltPreferences) Get(key string) (string, error) {
	var value string
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		value = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores value under key
func (b *BoltPreferences) Set(key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), []byte(value))
	})
}

// Delete removes key
func (b *BoltPreferences) Delete(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Close closes the database
func (b *BoltPreferences) Close() error {
	return b.db.Close()
}

// MemoryPreferences keeps preferences in a map. Used by tests and dry runs.
type MemoryPreferences struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryPreferences creates an empty in-memory store
func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{values: make(map[string]string)}
}

func (m *MemoryPreferences) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryPreferences) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryPreferences) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryPreferences) Close() error {
	return nil
}
