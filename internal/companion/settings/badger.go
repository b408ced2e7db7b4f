package settings

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "settings/"

// BadgerKV persists settings in an embedded badger database
type BadgerKV struct {
	db *badger.DB
}

// NewBadgerKV opens (or creates) a badger database in dir
func NewBadgerKV(dir string) (*BadgerKV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerKV{db: db}, nil
}

// Read implements KV
func (b *BadgerKV) Read(key string) (string, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(value), true, nil
}

// Write implements KV
func (b *BadgerKV) Write(key, value string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Close implements KV
func (b *BadgerKV) Close() error {
	return b.db.Close()
}
