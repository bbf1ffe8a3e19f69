/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package redis implements the storage provider interface on top of a Redis server. Each store is one Redis
// hash; tags are kept with the value and matched on query.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hyperledger/aries-framework-go/component/log"
	spi "github.com/hyperledger/aries-framework-go/spi/storage"
)

const (
	defaultPrefix  = "vcx:"
	configKeyInfix = "config:"
	storeKeyInfix  = "store:"
	defaultTimeout = 5 * time.Second

	invalidTagName  = `"%s" is an invalid tag name since it contains one or more ':' characters`
	invalidTagValue = `"%s" is an invalid tag value since it contains one or more ':' characters`
)

var logger = log.New("vcx-agent/storage/redis")

var (
	errEmptyKey                     = errors.New("key cannot be empty")
	errInvalidQueryExpressionFormat = errors.New("invalid expression format. " +
		"it must be in the following format: TagName:TagValue")
	errIteratorExhausted = errors.New("iterator is exhausted")
)

// Open parses url, connects and pings the server.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}

// Option configures the provider.
type Option func(p *Provider)

// WithPrefix namespaces every key written by the provider.
func WithPrefix(prefix string) Option {
	return func(p *Provider) {
		p.prefix = prefix
	}
}

// WithTimeout bounds every Redis round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		p.timeout = timeout
	}
}

// Provider is a Redis backed storage provider.
type Provider struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration

	lock   sync.RWMutex
	stores map[string]*store
}

// NewProvider returns a provider using client.
func NewProvider(client redis.UniversalClient, opts ...Option) *Provider {
	p := &Provider{
		client:  client,
		prefix:  defaultPrefix,
		timeout: defaultTimeout,
		stores:  map[string]*store{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// OpenStore opens the store with the given name. Names are not case-sensitive.
func (p *Provider) OpenStore(name string) (spi.Store, error) {
	if name == "" {
		return nil, fmt.Errorf("store name cannot be empty")
	}

	name = strings.ToLower(name)

	p.lock.Lock()
	defer p.lock.Unlock()

	if s, ok := p.stores[name]; ok {
		return s, nil
	}

	s := &store{name: name, key: p.prefix + storeKeyInfix + name, p: p}
	p.stores[name] = s

	return s, nil
}

// SetStoreConfig persists the store configuration.
func (p *Provider) SetStoreConfig(name string, config spi.StoreConfiguration) error {
	for _, tagName := range config.TagNames {
		if strings.Contains(tagName, ":") {
			return fmt.Errorf(invalidTagName, tagName)
		}
	}

	name = strings.ToLower(name)

	p.lock.RLock()
	_, ok := p.stores[name]
	p.lock.RUnlock()

	if !ok {
		return spi.ErrStoreNotFound
	}

	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal store config: %w", err)
	}

	ctx, cancel := p.ctx()
	defer cancel()

	if err := p.client.Set(ctx, p.prefix+configKeyInfix+name, raw, 0).Err(); err != nil {
		return fmt.Errorf("set store config: %w", err)
	}

	return nil
}

// GetStoreConfig reads the persisted store configuration.
func (p *Provider) GetStoreConfig(name string) (spi.StoreConfiguration, error) {
	ctx, cancel := p.ctx()
	defer cancel()

	raw, err := p.client.Get(ctx, p.prefix+configKeyInfix+strings.ToLower(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return spi.StoreConfiguration{}, spi.ErrStoreNotFound
	}

	if err != nil {
		return spi.StoreConfiguration{}, fmt.Errorf("get store config: %w", err)
	}

	var config spi.StoreConfiguration
	if err := json.Unmarshal(raw, &config); err != nil {
		return spi.StoreConfiguration{}, fmt.Errorf("decode store config: %w", err)
	}

	return config, nil
}

// GetOpenStores returns the stores opened through this provider.
func (p *Provider) GetOpenStores() []spi.Store {
	p.lock.RLock()
	defer p.lock.RUnlock()

	names := make([]string, 0, len(p.stores))
	for name := range p.stores {
		names = append(names, name)
	}

	sort.Strings(names)

	stores := make([]spi.Store, len(names))
	for i, name := range names {
		stores[i] = p.stores[name]
	}

	return stores
}

// Close forgets the open stores and closes the client. Data is kept on the server.
func (p *Provider) Close() error {
	p.lock.Lock()
	p.stores = map[string]*store{}
	p.lock.Unlock()

	return p.client.Close()
}

func (p *Provider) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), p.timeout)
}

type entry struct {
	Value []byte    `json:"value"`
	Tags  []spi.Tag `json:"tags,omitempty"`
}

type store struct {
	name string
	key  string
	p    *Provider
}

func validateTags(tags []spi.Tag) error {
	for _, tag := range tags {
		if strings.Contains(tag.Name, ":") {
			return fmt.Errorf(invalidTagName, tag.Name)
		}

		if strings.Contains(tag.Value, ":") {
			return fmt.Errorf(invalidTagValue, tag.Value)
		}
	}

	return nil
}

func (s *store) Put(key string, value []byte, tags ...spi.Tag) error {
	if key == "" {
		return errEmptyKey
	}

	if value == nil {
		return errors.New("value cannot be nil")
	}

	if err := validateTags(tags); err != nil {
		return err
	}

	raw, err := json.Marshal(&entry{Value: value, Tags: tags})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	ctx, cancel := s.p.ctx()
	defer cancel()

	if err := s.p.client.HSet(ctx, s.key, key, raw).Err(); err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}

	return nil
}

func (s *store) entry(key string) (*entry, error) {
	if key == "" {
		return nil, errEmptyKey
	}

	ctx, cancel := s.p.ctx()
	defer cancel()

	raw, err := s.p.client.HGet(ctx, s.key, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, spi.ErrDataNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", key, err)
	}

	return &e, nil
}

func (s *store) Get(key string) ([]byte, error) {
	e, err := s.entry(key)
	if err != nil {
		return nil, err
	}

	return e.Value, nil
}

func (s *store) GetTags(key string) ([]spi.Tag, error) {
	e, err := s.entry(key)
	if err != nil {
		return nil, err
	}

	return e.Tags, nil
}

func (s *store) GetBulk(keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, errors.New("keys slice must contain at least one key")
	}

	for _, key := range keys {
		if key == "" {
			return nil, errEmptyKey
		}
	}

	ctx, cancel := s.p.ctx()
	defer cancel()

	raws, err := s.p.client.HMGet(ctx, s.key, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get bulk: %w", err)
	}

	values := make([][]byte, len(keys))

	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}

		var e entry
		if err := json.Unmarshal([]byte(str), &e); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", keys[i], err)
		}

		values[i] = e.Value
	}

	return values, nil
}

type condition struct {
	name  string
	value string
}

func parseExpression(expression string) ([]condition, error) {
	if expression == "" {
		return nil, errInvalidQueryExpressionFormat
	}

	var conditions []condition

	for _, exp := range strings.Split(expression, "&&") {
		parts := strings.Split(exp, ":")

		switch len(parts) {
		case 1:
			conditions = append(conditions, condition{name: parts[0]})
		case 2: //nolint:gomnd
			conditions = append(conditions, condition{name: parts[0], value: parts[1]})
		default:
			return nil, errInvalidQueryExpressionFormat
		}
	}

	return conditions, nil
}

func (e *entry) matches(conditions []condition) bool {
	for _, c := range conditions {
		found := false

		for _, tag := range e.Tags {
			if tag.Name == c.name && (c.value == "" || tag.Value == c.value) {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

// Query supports TagName and TagName:TagValue expressions joined by &&. Results are ordered by key.
func (s *store) Query(expression string, options ...spi.QueryOption) (spi.Iterator, error) {
	opts := &spi.QueryOptions{}
	for _, option := range options {
		option(opts)
	}

	if opts.SortOptions != nil || opts.InitialPageNum != 0 {
		return nil, errors.New("sort and initial page options are not supported")
	}

	conditions, err := parseExpression(expression)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.p.ctx()
	defer cancel()

	all, err := s.p.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis query: %w", err)
	}

	it := &iterator{index: -1}

	for key, raw := range all {
		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			logger.Warnf("skipping undecodable entry %s in store %s: %v", key, s.name, err)

			continue
		}

		if e.matches(conditions) {
			it.keys = append(it.keys, key)
			it.entries = append(it.entries, e)
		}
	}

	sort.Sort(it)

	return it, nil
}

func (s *store) Delete(key string) error {
	if key == "" {
		return errEmptyKey
	}

	ctx, cancel := s.p.ctx()
	defer cancel()

	if err := s.p.client.HDel(ctx, s.key, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}

	return nil
}

func (s *store) Batch(operations []spi.Operation) error {
	if len(operations) == 0 {
		return errors.New("batch requires at least one operation")
	}

	for _, op := range operations {
		if op.Key == "" {
			return errEmptyKey
		}

		if err := validateTags(op.Tags); err != nil {
			return err
		}
	}

	ctx, cancel := s.p.ctx()
	defer cancel()

	_, err := s.p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range operations {
			if op.Value == nil {
				pipe.HDel(ctx, s.key, op.Key)

				continue
			}

			raw, err := json.Marshal(&entry{Value: op.Value, Tags: op.Tags})
			if err != nil {
				return fmt.Errorf("marshal entry: %w", err)
			}

			pipe.HSet(ctx, s.key, op.Key, raw)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("redis batch: %w", err)
	}

	return nil
}

func (s *store) Flush() error {
	return nil
}

func (s *store) Close() error {
	s.p.lock.Lock()
	delete(s.p.stores, s.name)
	s.p.lock.Unlock()

	return nil
}

type iterator struct {
	keys    []string
	entries []entry
	index   int
}

func (it *iterator) Len() int           { return len(it.keys) }
func (it *iterator) Less(i, j int) bool { return it.keys[i] < it.keys[j] }
func (it *iterator) Swap(i, j int) {
	it.keys[i], it.keys[j] = it.keys[j], it.keys[i]
	it.entries[i], it.entries[j] = it.entries[j], it.entries[i]
}

func (it *iterator) Next() (bool, error) {
	if it.index+1 >= len(it.keys) {
		it.index = len(it.keys)

		return false, nil
	}

	it.index++

	return true, nil
}

func (it *iterator) current() (*entry, error) {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil, errIteratorExhausted
	}

	return &it.entries[it.index], nil
}

func (it *iterator) Key() (string, error) {
	if _, err := it.current(); err != nil {
		return "", err
	}

	return it.keys[it.index], nil
}

func (it *iterator) Value() ([]byte, error) {
	e, err := it.current()
	if err != nil {
		return nil, err
	}

	return e.Value, nil
}

func (it *iterator) Tags() ([]spi.Tag, error) {
	e, err := it.current()
	if err != nil {
		return nil, err
	}

	return e.Tags, nil
}

func (it *iterator) TotalItems() (int, error) {
	return len(it.keys), nil
}

func (it *iterator) Close() error {
	return nil
}
