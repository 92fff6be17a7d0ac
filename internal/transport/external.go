// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/tomtom215/dashforge/internal/config"
	"github.com/tomtom215/dashforge/internal/models"
)

// ErrMissingURL is returned for external data sources without a URL.
var ErrMissingURL = errors.New("data source has no authentication url")

// HTTPGetter fetches a resource path from an external DHIS2 instance.
type HTTPGetter interface {
	HTTPGet(ctx context.Context, ds models.DataSource, path string) ([]byte, error)
}

type pooledClient struct {
	auth   models.Authentication
	client *Client
}

// Pool holds one Client per external data source. A client is rebuilt when
// the data source credentials change.
type Pool struct {
	cfg config.TransportConfig
	enc *config.CredentialEncryptor

	mu      sync.Mutex
	clients map[string]pooledClient
}

// NewPool creates an empty pool. enc may be nil when no passwords are sealed.
func NewPool(cfg config.TransportConfig, enc *config.CredentialEncryptor) *Pool {
	return &Pool{
		cfg:     cfg,
		enc:     enc,
		clients: make(map[string]pooledClient),
	}
}

// HTTPGet issues GET {url}/api/{path} with the data source credentials.
func (p *Pool) HTTPGet(ctx context.Context, ds models.DataSource, path string) ([]byte, error) {
	c, err := p.client(ds)
	if err != nil {
		return nil, &Error{Method: http.MethodGet, Path: path, Source: ds.ID, Err: err}
	}
	return c.Get(ctx, RouteExternal, path)
}

// Len returns the number of pooled clients.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

func (p *Pool) client(ds models.DataSource) (*Client, error) {
	if ds.Authentication.URL == "" {
		return nil, ErrMissingURL
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if pc, ok := p.clients[ds.ID]; ok && pc.auth == ds.Authentication {
		return pc.client, nil
	}

	password, err := p.enc.RevealPassword(ds.Authentication.Password)
	if err != nil {
		return nil, fmt.Errorf("data source %s password: %w", ds.ID, err)
	}
	c := NewClient(Options{
		Name:     "dhis2-" + ds.ID,
		URL:      ds.Authentication.URL,
		Username: ds.Authentication.Username,
		Password: password,
	}, p.cfg)
	p.clients[ds.ID] = pooledClient{auth: ds.Authentication, client: c}
	return c, nil
}

var _ HTTPGetter = (*Pool)(nil)
