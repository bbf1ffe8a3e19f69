/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package local implements the wallet on a storage provider. Records and key seeds are kept in separate
// stores; seeds are sealed under a master key derived from the wallet key.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/tink/go/subtle/random"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"golang.org/x/exp/maps"

	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

const (
	recordsStoreName = "vcx_records"
	keysStoreName    = "vcx_keys"
	metaStoreName    = "vcx_meta"

	typeTagName = "type"
	saltKey     = "salt"
	checkKey    = "check"
	keyTagValue = "key"

	defaultIterations = 10000
)

var logger = log.New("vcx-agent/wallet")

// Option configures the wallet.
type Option func(w *Wallet)

// WithIterations sets the PBKDF2 iteration count used to derive the master key.
func WithIterations(n int) Option {
	return func(w *Wallet) {
		w.iterations = n
	}
}

// Wallet is a storage backed wallet.Wallet.
type Wallet struct {
	records    storage.Store
	keys       storage.Store
	lock       *masterLock
	iterations int
	mu         sync.Mutex
}

// New opens the wallet stores of provider. The first open records a salt and a check value, later opens with a
// different walletKey fail with wallet.ErrInvalidKey.
func New(provider storage.Provider, walletKey string, opts ...Option) (*Wallet, error) {
	w := &Wallet{iterations: defaultIterations}

	for _, opt := range opts {
		opt(w)
	}

	var err error

	w.records, err = provider.OpenStore(recordsStoreName)
	if err != nil {
		return nil, fmt.Errorf("open records store: %w", err)
	}

	err = provider.SetStoreConfig(recordsStoreName, storage.StoreConfiguration{TagNames: []string{typeTagName}})
	if err != nil {
		return nil, fmt.Errorf("set records store config: %w", err)
	}

	w.keys, err = provider.OpenStore(keysStoreName)
	if err != nil {
		return nil, fmt.Errorf("open keys store: %w", err)
	}

	err = provider.SetStoreConfig(keysStoreName, storage.StoreConfiguration{TagNames: []string{typeTagName}})
	if err != nil {
		return nil, fmt.Errorf("set keys store config: %w", err)
	}

	meta, err := provider.OpenStore(metaStoreName)
	if err != nil {
		return nil, fmt.Errorf("open meta store: %w", err)
	}

	if err := w.unlock(meta, walletKey); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *Wallet) unlock(meta storage.Store, walletKey string) error {
	salt, err := meta.Get(saltKey)

	switch {
	case errors.Is(err, storage.ErrDataNotFound):
		salt = random.GetRandomBytes(saltSize)

		w.lock, err = newMasterLock(walletKey, salt, w.iterations)
		if err != nil {
			return err
		}

		if err := meta.Put(saltKey, salt); err != nil {
			return fmt.Errorf("store wallet salt: %w", err)
		}

		if err := meta.Put(checkKey, []byte(w.lock.seal([]byte(checkValue), checkKey))); err != nil {
			return fmt.Errorf("store wallet check: %w", err)
		}

		logger.Infof("created wallet")

		return nil
	case err != nil:
		return fmt.Errorf("read wallet salt: %w", err)
	}

	w.lock, err = newMasterLock(walletKey, salt, w.iterations)
	if err != nil {
		return err
	}

	check, err := meta.Get(checkKey)
	if err != nil {
		return fmt.Errorf("read wallet check: %w", err)
	}

	if plain, err := w.lock.open(string(check), checkKey); err != nil || string(plain) != checkValue {
		return wallet.ErrInvalidKey
	}

	return nil
}

// CreateKey implements wallet.Wallet. A key created twice from the same seed is returned unchanged.
func (w *Wallet) CreateKey(_ context.Context, seed []byte) (*wallet.Key, error) {
	switch len(seed) {
	case 0:
		seed = random.GetRandomBytes(seedSize)
	case seedSize:
	default:
		return nil, fmt.Errorf("key seed must be %d bytes", seedSize)
	}

	key := keyFromSeed(seed)

	err := w.keys.Put(key.Verkey, []byte(w.lock.seal(seed, key.Verkey)), storage.Tag{Name: typeTagName, Value: keyTagValue})
	if err != nil {
		return nil, fmt.Errorf("store key: %w", err)
	}

	return key, nil
}

func (w *Wallet) seed(verkey string) ([]byte, error) {
	sealed, err := w.keys.Get(verkey)
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("key %s: %w", verkey, wallet.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("read key %s: %w", verkey, err)
	}

	seed, err := w.lock.open(string(sealed), verkey)
	if err != nil {
		return nil, fmt.Errorf("unseal key %s: %w", verkey, err)
	}

	return seed, nil
}

// Sign implements wallet.Wallet.
func (w *Wallet) Sign(_ context.Context, verkey string, data []byte) ([]byte, error) {
	seed, err := w.seed(verkey)
	if err != nil {
		return nil, err
	}

	return sign(seed, data)
}

// Verify implements wallet.Wallet. A signature that does not match is reported as false, not as an error.
func (w *Wallet) Verify(_ context.Context, verkey string, data, signature []byte) (bool, error) {
	return verify(verkey, data, signature)
}

func recordKey(recordType, id string) string {
	return base58.Encode([]byte(recordType)) + "/" + id
}

func (w *Wallet) getRecord(recordType, id string) (*wallet.Record, error) {
	raw, err := w.records.Get(recordKey(recordType, id))
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("record %s/%s: %w", recordType, id, wallet.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("read record %s/%s: %w", recordType, id, err)
	}

	var rec wallet.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s/%s: %w", recordType, id, err)
	}

	return &rec, nil
}

func (w *Wallet) putRecord(rec *wallet.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	err = w.records.Put(recordKey(rec.Type, rec.ID), raw,
		storage.Tag{Name: typeTagName, Value: base58.Encode([]byte(rec.Type))})
	if err != nil {
		return fmt.Errorf("store record %s/%s: %w", rec.Type, rec.ID, err)
	}

	return nil
}

func validateRecord(rec *wallet.Record) error {
	if rec == nil || rec.Type == "" || rec.ID == "" {
		return errors.New("record type and id are required")
	}

	if rec.Type == wallet.KeyRecordType {
		return fmt.Errorf("record type %s is reserved", wallet.KeyRecordType)
	}

	return nil
}

// AddRecord implements wallet.Wallet.
func (w *Wallet) AddRecord(_ context.Context, rec *wallet.Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.getRecord(rec.Type, rec.ID); err == nil {
		return fmt.Errorf("record %s/%s: %w", rec.Type, rec.ID, wallet.ErrDuplicate)
	} else if !errors.Is(err, wallet.ErrNotFound) {
		return err
	}

	return w.putRecord(rec)
}

// GetRecord implements wallet.Wallet.
func (w *Wallet) GetRecord(_ context.Context, recordType, id string) (*wallet.Record, error) {
	return w.getRecord(recordType, id)
}

func (w *Wallet) modify(recordType, id string, fn func(rec *wallet.Record)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec, err := w.getRecord(recordType, id)
	if err != nil {
		return err
	}

	fn(rec)

	return w.putRecord(rec)
}

// UpdateRecordValue implements wallet.Wallet.
func (w *Wallet) UpdateRecordValue(_ context.Context, recordType, id, value string) error {
	return w.modify(recordType, id, func(rec *wallet.Record) {
		rec.Value = value
	})
}

// UpdateRecordTags implements wallet.Wallet.
func (w *Wallet) UpdateRecordTags(_ context.Context, recordType, id string, tags map[string]string) error {
	return w.modify(recordType, id, func(rec *wallet.Record) {
		rec.Tags = maps.Clone(tags)
	})
}

// AddRecordTags implements wallet.Wallet.
func (w *Wallet) AddRecordTags(_ context.Context, recordType, id string, tags map[string]string) error {
	return w.modify(recordType, id, func(rec *wallet.Record) {
		if rec.Tags == nil {
			rec.Tags = map[string]string{}
		}

		for name, value := range tags {
			rec.Tags[name] = value
		}
	})
}

// DeleteRecordTags implements wallet.Wallet.
func (w *Wallet) DeleteRecordTags(_ context.Context, recordType, id string, names []string) error {
	return w.modify(recordType, id, func(rec *wallet.Record) {
		for _, name := range names {
			delete(rec.Tags, name)
		}
	})
}

// DeleteRecord implements wallet.Wallet.
func (w *Wallet) DeleteRecord(_ context.Context, recordType, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.getRecord(recordType, id); err != nil {
		return err
	}

	if err := w.records.Delete(recordKey(recordType, id)); err != nil {
		return fmt.Errorf("delete record %s/%s: %w", recordType, id, err)
	}

	return nil
}

// Query implements wallet.Wallet. Records are returned ordered by id.
func (w *Wallet) Query(_ context.Context, recordType string, filter wallet.Filter) ([]*wallet.Record, error) {
	iter, err := w.records.Query(typeTagName + ":" + base58.Encode([]byte(recordType)))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	defer storage.Close(iter, logger)

	var records []*wallet.Record

	for {
		ok, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("iterate records: %w", err)
		}

		if !ok {
			break
		}

		raw, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		var rec wallet.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}

		if filter.Match(&rec) {
			records = append(records, &rec)
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	return records, nil
}

// Export implements wallet.Wallet. Key records carry the base58 seed.
func (w *Wallet) Export(_ context.Context) ([]*wallet.Record, error) {
	var out []*wallet.Record

	for _, store := range []storage.Store{w.records, w.keys} {
		iter, err := store.Query(typeTagName)
		if err != nil {
			return nil, fmt.Errorf("export query: %w", err)
		}

		recs, err := w.collect(store, iter)

		storage.Close(iter, logger)

		if err != nil {
			return nil, err
		}

		out = append(out, recs...)
	}

	return out, nil
}

func (w *Wallet) collect(store storage.Store, iter storage.Iterator) ([]*wallet.Record, error) {
	var out []*wallet.Record

	for {
		ok, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("export iterate: %w", err)
		}

		if !ok {
			return out, nil
		}

		key, err := iter.Key()
		if err != nil {
			return nil, fmt.Errorf("export key: %w", err)
		}

		if store == w.keys {
			seed, err := w.seed(key)
			if err != nil {
				return nil, err
			}

			out = append(out, &wallet.Record{Type: wallet.KeyRecordType, ID: key, Value: base58.Encode(seed)})

			continue
		}

		raw, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("export value: %w", err)
		}

		var rec wallet.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("export decode: %w", err)
		}

		out = append(out, &rec)
	}
}

// Import implements wallet.Wallet.
func (w *Wallet) Import(ctx context.Context, records []*wallet.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, rec := range records {
		if rec.Type == wallet.KeyRecordType {
			key, err := w.CreateKey(ctx, base58.Decode(rec.Value))
			if err != nil {
				return fmt.Errorf("import key %s: %w", rec.ID, err)
			}

			if key.Verkey != rec.ID {
				return fmt.Errorf("import key %s: seed does not match verkey", rec.ID)
			}

			continue
		}

		if err := validateRecord(rec); err != nil {
			return fmt.Errorf("import: %w", err)
		}

		if err := w.putRecord(rec); err != nil {
			return err
		}
	}

	return nil
}
