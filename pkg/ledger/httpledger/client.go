/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package httpledger reads and writes a ledger over HTTP, caching reads.
package httpledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
)

const (
	defaultCacheSize   = 100
	defaultCacheExpiry = 10 * time.Minute
	defaultTimeout     = 10 * time.Second

	schemasPath  = "/schemas/"
	credDefsPath = "/cred_defs/"
	txnsPath     = "/txns"
)

var logger = log.New("vcx-agent/ledger/http")

type cacheKey struct {
	path string
	id   string
}

// Option configures the client.
type Option func(c *Client)

// WithHTTPClient sets the client used for ledger requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithCache sets the size and expiry of the read cache.
func WithCache(size int, expiry time.Duration) Option {
	return func(c *Client) {
		c.cacheSize = size
		c.cacheExpiry = expiry
	}
}

// WithTimeout bounds each cache load.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// Client implements ledger.Client against a ledger REST endpoint.
type Client struct {
	url         string
	client      *http.Client
	cache       gcache.Cache
	cacheSize   int
	cacheExpiry time.Duration
	timeout     time.Duration
}

// New returns a ledger client for the endpoint at ledgerURL.
func New(ledgerURL string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(ledgerURL); err != nil {
		return nil, fmt.Errorf("invalid ledger url: %w", err)
	}

	c := &Client{
		url:         strings.TrimSuffix(ledgerURL, "/"),
		client:      &http.Client{},
		cacheSize:   defaultCacheSize,
		cacheExpiry: defaultCacheExpiry,
		timeout:     defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.cache = gcache.New(c.cacheSize).LRU().
		LoaderFunc(func(key interface{}) (interface{}, error) {
			k := key.(cacheKey) //nolint:forcetypeassert

			ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
			defer cancel()

			return c.fetch(ctx, k.path, k.id)
		}).
		Expiration(c.cacheExpiry).
		Build()

	return c, nil
}

func (c *Client) fetch(ctx context.Context, path, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+path+url.PathEscape(id), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create ledger request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger request: %w", err)
	}

	defer closeResponseBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ledger response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", id, ledger.ErrNotFound)
	default:
		return nil, fmt.Errorf("ledger returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

func (c *Client) resolve(ctx context.Context, path, id string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := c.cache.Get(cacheKey{path: path, id: id})
	if err != nil {
		return err
	}

	body, ok := raw.([]byte)
	if !ok {
		return errors.New("unexpected cache entry")
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode ledger entry %s: %w", id, err)
	}

	return nil
}

// ResolveSchema implements ledger.Client.
func (c *Client) ResolveSchema(ctx context.Context, id string) (*ledger.Schema, error) {
	var s ledger.Schema
	if err := c.resolve(ctx, schemasPath, id, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// ResolveCredDef implements ledger.Client.
func (c *Client) ResolveCredDef(ctx context.Context, id string) (*ledger.CredDef, error) {
	var cd ledger.CredDef
	if err := c.resolve(ctx, credDefsPath, id, &cd); err != nil {
		return nil, err
	}

	return &cd, nil
}

// Submit implements ledger.Client.
func (c *Client) Submit(ctx context.Context, txn *ledger.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+txnsPath, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create ledger request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit transaction: %w", err)
	}

	defer closeResponseBody(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck

		return fmt.Errorf("ledger rejected %s transaction (%d): %s", txn.Kind, resp.StatusCode,
			strings.TrimSpace(string(body)))
	}

	return nil
}

func closeResponseBody(respBody io.Closer) {
	if err := respBody.Close(); err != nil {
		logger.Errorf("failed to close response body: %v", err)
	}
}
