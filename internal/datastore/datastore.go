// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package datastore reads and writes dataStore/{namespace}/{key} documents.
//
// Two backends exist: the current DHIS2 instance's dataStore API, and a
// local badger database for deployments that keep dashboard documents next
// to the service. Documents are opaque JSON values.
package datastore

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/dashforge/internal/config"
	"github.com/tomtom215/dashforge/internal/transport"
)

// Errors returned by every backend.
var (
	ErrNotFound    = errors.New("datastore: document not found")
	ErrInvalidJSON = errors.New("datastore: document is not valid JSON")
)

// Backend stores JSON documents by namespace and key.
type Backend interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	Keys(ctx context.Context, namespace string) ([]string, error)
	Close() error
}

// Remote is the dataStore API of a DHIS2 instance.
type Remote interface {
	GetDataStoreEntry(ctx context.Context, namespace, key string) ([]byte, error)
	PutDataStoreEntry(ctx context.Context, namespace, key string, value []byte) error
	DeleteDataStoreEntry(ctx context.Context, namespace, key string) error
	ListDataStoreKeys(ctx context.Context, namespace string) ([]string, error)
}

// Open returns the backend selected by cfg. remote is required for the
// dhis2 backend.
func Open(cfg config.DatastoreConfig, remote Remote) (Backend, error) {
	switch cfg.Backend {
	case "", config.DatastoreDHIS2:
		if remote == nil {
			return nil, errors.New("datastore: dhis2 backend needs a current instance")
		}
		return NewDHIS2(remote), nil
	case config.DatastoreBadger:
		b, err := OpenBadger(cfg.Path, cfg.InMemory)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("datastore: unknown backend %q", cfg.Backend)
	}
}

// DHIS2 forwards to the current instance.
type DHIS2 struct {
	remote Remote
}

// NewDHIS2 creates a DHIS2 backend.
func NewDHIS2(remote Remote) *DHIS2 {
	return &DHIS2{remote: remote}
}

func (d *DHIS2) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	body, err := d.remote.GetDataStoreEntry(ctx, namespace, key)
	return body, mapRemote(err)
}

func (d *DHIS2) Put(ctx context.Context, namespace, key string, value []byte) error {
	if !validJSON(value) {
		return ErrInvalidJSON
	}
	return mapRemote(d.remote.PutDataStoreEntry(ctx, namespace, key, value))
}

func (d *DHIS2) Delete(ctx context.Context, namespace, key string) error {
	return mapRemote(d.remote.DeleteDataStoreEntry(ctx, namespace, key))
}

func (d *DHIS2) Keys(ctx context.Context, namespace string) ([]string, error) {
	keys, err := d.remote.ListDataStoreKeys(ctx, namespace)
	return keys, mapRemote(err)
}

// Close is a no-op; the transport is owned by the caller.
func (d *DHIS2) Close() error { return nil }

func mapRemote(err error) error {
	if transport.IsNotFound(err) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

var (
	_ Backend = (*DHIS2)(nil)
	_ Remote  = (*transport.CurrentInstance)(nil)
)
