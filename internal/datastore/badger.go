// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package datastore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/dashforge/internal/logging"
)

const keyPrefix = "datastore/"

// Badger keeps documents in a local badger database under
// "datastore/{namespace}/{key}".
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the database at path. inMemory ignores path
// and keeps everything in memory.
func OpenBadger(path string, inMemory bool) (*Badger, error) {
	if !inMemory && path == "" {
		return nil, errors.New("datastore: badger path is required")
	}

	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", path).
		Bool("in_memory", inMemory).
		Msg("datastore opened")
	return &Badger{db: db}, nil
}

func documentKey(namespace, key string) []byte {
	return []byte(keyPrefix + namespace + "/" + key)
}

func namespacePrefix(namespace string) []byte {
	return []byte(keyPrefix + namespace + "/")
}

func (b *Badger) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(namespace, key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return out, err
}

func (b *Badger) Put(ctx context.Context, namespace, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validJSON(value) {
		return ErrInvalidJSON
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(documentKey(namespace, key), value))
	})
}

func (b *Badger) Delete(ctx context.Context, namespace, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		k := documentKey(namespace, key)
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(k)
	})
}

// Keys returns the namespace's keys in byte order. An unknown namespace is
// ErrNotFound, matching the DHIS2 API.
func (b *Badger) Keys(ctx context.Context, namespace string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := namespacePrefix(namespace)
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			if k == "" || strings.Contains(k, "/") {
				continue
			}
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, ErrNotFound
	}
	return keys, nil
}

// Close closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

func validJSON(value []byte) bool {
	return len(value) > 0 && json.Valid(value)
}

var _ Backend = (*Badger)(nil)
