/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wallet defines the key store and record store the engine relies on.
package wallet

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record or key does not exist.
	ErrNotFound = errors.New("wallet item not found")
	// ErrDuplicate is returned when adding a record whose type and id already exist.
	ErrDuplicate = errors.New("wallet item already exists")
	// ErrInvalidKey is returned when the wallet key does not open the wallet.
	ErrInvalidKey = errors.New("invalid wallet key")
)

// Record types written by the engine.
const (
	CredentialRecordType        = "credential"
	CredentialRequestRecordType = "credential_request"
	KeyRecordType               = "__key"
)

// Key is a DID and its verification key.
type Key struct {
	DID    string `json:"did"`
	Verkey string `json:"verkey"`
}

// Record is a typed, tagged wallet entry.
type Record struct {
	Type  string            `json:"type,omitempty"`
	ID    string            `json:"id"`
	Value string            `json:"value"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// Filter selects records by tag equality. An empty filter matches every record of the type.
type Filter map[string]string

// Match reports whether r carries every tag of the filter.
func (f Filter) Match(r *Record) bool {
	for name, value := range f {
		if v, ok := r.Tags[name]; !ok || v != value {
			return false
		}
	}

	return true
}

// Wallet signs with the agent's keys and stores its records.
type Wallet interface {
	// CreateKey creates an ed25519 key, deterministic when seed is given.
	CreateKey(ctx context.Context, seed []byte) (*Key, error)
	Sign(ctx context.Context, verkey string, data []byte) ([]byte, error)
	Verify(ctx context.Context, verkey string, data, signature []byte) (bool, error)

	AddRecord(ctx context.Context, record *Record) error
	GetRecord(ctx context.Context, recordType, id string) (*Record, error)
	UpdateRecordValue(ctx context.Context, recordType, id, value string) error
	UpdateRecordTags(ctx context.Context, recordType, id string, tags map[string]string) error
	AddRecordTags(ctx context.Context, recordType, id string, tags map[string]string) error
	DeleteRecordTags(ctx context.Context, recordType, id string, names []string) error
	DeleteRecord(ctx context.Context, recordType, id string) error
	Query(ctx context.Context, recordType string, filter Filter) ([]*Record, error)

	// Export returns every record, key material included, for backup.
	Export(ctx context.Context) ([]*Record, error)
	// Import adds exported records, replacing existing ones with the same type and id.
	Import(ctx context.Context, records []*Record) error
}
