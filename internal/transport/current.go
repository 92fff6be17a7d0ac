// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/dashforge/internal/config"
	"github.com/tomtom215/dashforge/internal/models"
)

// CurrentInstanceName labels the hosting instance breaker.
const CurrentInstanceName = "dhis2-current"

// BatchResult is the outcome of one resource in a batch.
type BatchResult struct {
	Body []byte
	Err  error
}

// Batcher runs several resource paths against the hosting instance as one
// logical round trip.
type Batcher interface {
	QueryBatch(ctx context.Context, resources map[string]string) map[string]BatchResult
}

// Searcher runs Elasticsearch queries through the wal/search proxy.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) ([]byte, error)
}

// CurrentInstance is the DHIS2 instance hosting the dashboards.
type CurrentInstance struct {
	client         *Client
	maxConcurrency int
}

// NewCurrentInstance builds the hosting instance client. The configured
// password may be "enc:" sealed.
func NewCurrentInstance(cfg config.CurrentInstanceConfig, tcfg config.TransportConfig, enc *config.CredentialEncryptor) (*CurrentInstance, error) {
	password, err := enc.RevealPassword(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("current instance password: %w", err)
	}
	limit := tcfg.MaxBatchConcurrency
	if limit < 1 {
		limit = 1
	}
	return &CurrentInstance{
		client: NewClient(Options{
			Name:     CurrentInstanceName,
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: password,
			Timeout:  cfg.Timeout,
		}, tcfg),
		maxConcurrency: limit,
	}, nil
}

// Client exposes the underlying client.
func (ci *CurrentInstance) Client() *Client {
	return ci.client
}

// State returns the breaker state of the hosting instance.
func (ci *CurrentInstance) State() string {
	return ci.client.State()
}

// QueryBatch fetches every resource, keyed the same way as resources.
// Each resource fails independently; the batch itself never fails.
func (ci *CurrentInstance) QueryBatch(ctx context.Context, resources map[string]string) map[string]BatchResult {
	out := make(map[string]BatchResult, len(resources))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(ci.maxConcurrency)
	for key, path := range resources {
		g.Go(func() error {
			body, err := ci.client.Get(ctx, RouteCurrent, path)
			mu.Lock()
			out[key] = BatchResult{Body: body, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-resource errors are in out

	return out
}

// Search POSTs {index, size, query:{bool:{must}}} to wal/search.
func (ci *CurrentInstance) Search(ctx context.Context, req models.SearchRequest) ([]byte, error) {
	return ci.client.Post(ctx, RouteSearch, "wal/search", req)
}

// IndexDocument POSTs a document to wal/index?index=.
func (ci *CurrentInstance) IndexDocument(ctx context.Context, index string, doc json.RawMessage) ([]byte, error) {
	return ci.client.PostRaw(ctx, RouteSearch, "wal/index?index="+url.QueryEscape(index), doc)
}

// DeleteDocument POSTs to wal/delete?index=&id=.
func (ci *CurrentInstance) DeleteDocument(ctx context.Context, index, id string) error {
	q := url.Values{}
	q.Set("index", index)
	q.Set("id", id)
	_, err := ci.client.PostRaw(ctx, RouteSearch, "wal/delete?"+q.Encode(), []byte("{}"))
	return err
}

func dataStorePath(namespace, key string) string {
	if key == "" {
		return "dataStore/" + url.PathEscape(namespace)
	}
	return "dataStore/" + url.PathEscape(namespace) + "/" + url.PathEscape(key)
}

// GetDataStoreEntry reads dataStore/{namespace}/{key}.
func (ci *CurrentInstance) GetDataStoreEntry(ctx context.Context, namespace, key string) ([]byte, error) {
	return ci.client.Get(ctx, RouteDatastore, dataStorePath(namespace, key))
}

// PutDataStoreEntry writes dataStore/{namespace}/{key}. DHIS2 only accepts
// PUT for existing keys, so a 404 is retried once as a create.
func (ci *CurrentInstance) PutDataStoreEntry(ctx context.Context, namespace, key string, value []byte) error {
	path := dataStorePath(namespace, key)
	_, err := ci.client.PutRaw(ctx, RouteDatastore, path, value)
	if IsNotFound(err) {
		_, err = ci.client.PostRaw(ctx, RouteDatastore, path, value)
	}
	return err
}

// DeleteDataStoreEntry deletes dataStore/{namespace}/{key}.
func (ci *CurrentInstance) DeleteDataStoreEntry(ctx context.Context, namespace, key string) error {
	return ci.client.Delete(ctx, RouteDatastore, dataStorePath(namespace, key))
}

// ListDataStoreKeys lists the keys of a namespace.
func (ci *CurrentInstance) ListDataStoreKeys(ctx context.Context, namespace string) ([]string, error) {
	body, err := ci.client.Get(ctx, RouteDatastore, dataStorePath(namespace, ""))
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, fmt.Errorf("decode namespace %s keys: %w", namespace, err)
	}
	return keys, nil
}

var (
	_ Batcher  = (*CurrentInstance)(nil)
	_ Searcher = (*CurrentInstance)(nil)
)
