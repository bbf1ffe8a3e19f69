/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package handle maps opaque integer handles to live protocol objects.
//
// Handles are drawn from one process-wide counter and are never reused, so a handle value
// identifies a single object for the lifetime of the process. Each entry carries its own mutex:
// commands against the same handle are linearized while commands against different handles run in
// parallel.
package handle

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
)

// Handle identifies one live protocol object.
type Handle uint32

// Kind names the type of object a table holds.
type Kind string

// Object kinds.
const (
	KindConnection       Kind = "connection"
	KindCredential       Kind = "credential"
	KindIssuerCredential Kind = "issuer_credential"
	KindProof            Kind = "proof"
	KindDisclosedProof   Kind = "disclosed_proof"
	KindWalletBackup     Kind = "wallet_backup"
	KindSearch           Kind = "search"
	KindSchema           Kind = "schema"
	KindCredentialDef    Kind = "credential_def"
)

// nolint:gochecknoglobals
var counter uint32

func next() (Handle, error) {
	for {
		cur := atomic.LoadUint32(&counter)
		if cur == math.MaxUint32 {
			return 0, vcxerr.New(vcxerr.Busy, "handle space exhausted")
		}

		if atomic.CompareAndSwapUint32(&counter, cur, cur+1) {
			return Handle(cur + 1), nil
		}
	}
}

type entry[T any] struct {
	mu       sync.Mutex
	obj      T
	released bool
}

// Table holds the live objects of one kind.
type Table[T any] struct {
	kind    Kind
	mu      sync.RWMutex
	entries map[Handle]*entry[T]
}

// NewTable returns an empty table for objects of the given kind.
func NewTable[T any](kind Kind) *Table[T] {
	return &Table[T]{kind: kind, entries: map[Handle]*entry[T]{}}
}

// Kind returns the kind of objects held by the table.
func (t *Table[T]) Kind() Kind {
	return t.kind
}

// Allocate stores obj under a fresh handle.
func (t *Table[T]) Allocate(obj T) (Handle, error) {
	h, err := next()
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	t.entries[h] = &entry[T]{obj: obj}
	t.mu.Unlock()

	return h, nil
}

func (t *Table[T]) get(h Handle) (*entry[T], error) {
	t.mu.RLock()
	e, ok := t.entries[h]
	t.mu.RUnlock()

	if !ok {
		return nil, vcxerr.New(vcxerr.InvalidHandle, "invalid %s handle %d", t.kind, h)
	}

	return e, nil
}

// Exists fails with InvalidHandle if h is not a live handle of this table. It does not wait for
// in-flight commands.
func (t *Table[T]) Exists(h Handle) error {
	_, err := t.get(h)

	return err
}

// With runs fn with exclusive access to the object behind h. The entry stays locked until fn
// returns, including any collaborator calls fn makes.
func (t *Table[T]) With(h Handle, fn func(obj T) error) error {
	e, err := t.get(h)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return vcxerr.New(vcxerr.InvalidHandle, "invalid %s handle %d", t.kind, h)
	}

	return fn(e.obj)
}

// Release invalidates h. It waits for a command running against h to finish first.
func (t *Table[T]) Release(h Handle) error {
	e, err := t.get(h)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.released {
		e.mu.Unlock()

		return vcxerr.New(vcxerr.InvalidHandle, "invalid %s handle %d", t.kind, h)
	}

	e.released = true

	var zero T
	e.obj = zero
	e.mu.Unlock()

	t.mu.Lock()
	delete(t.entries, h)
	t.mu.Unlock()

	return nil
}

// Len returns the number of live handles in the table.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}
