/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package memledger is an in-process ledger. It also serves the REST shape read by httpledger.
package memledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
)

var logger = log.New("vcx-agent/ledger/mem")

// Ledger keeps schemas and credential definitions in memory.
type Ledger struct {
	mu       sync.RWMutex
	schemas  map[string]*ledger.Schema
	credDefs map[string]*ledger.CredDef
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		schemas:  map[string]*ledger.Schema{},
		credDefs: map[string]*ledger.CredDef{},
	}
}

// ResolveSchema implements ledger.Client.
func (l *Ledger) ResolveSchema(_ context.Context, id string) (*ledger.Schema, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.schemas[id]
	if !ok {
		return nil, fmt.Errorf("schema %s: %w", id, ledger.ErrNotFound)
	}

	out := *s

	return &out, nil
}

// ResolveCredDef implements ledger.Client.
func (l *Ledger) ResolveCredDef(_ context.Context, id string) (*ledger.CredDef, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cd, ok := l.credDefs[id]
	if !ok {
		return nil, fmt.Errorf("cred def %s: %w", id, ledger.ErrNotFound)
	}

	out := *cd

	return &out, nil
}

// Submit implements ledger.Client. Entries are write-once.
func (l *Ledger) Submit(_ context.Context, txn *ledger.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch txn.Kind {
	case ledger.TxnSchema:
		if _, ok := l.schemas[txn.Schema.ID]; ok {
			return fmt.Errorf("schema %s already written", txn.Schema.ID)
		}

		s := *txn.Schema
		l.schemas[s.ID] = &s
	case ledger.TxnCredDef:
		if _, ok := l.credDefs[txn.CredDef.ID]; ok {
			return fmt.Errorf("cred def %s already written", txn.CredDef.ID)
		}

		cd := *txn.CredDef
		l.credDefs[cd.ID] = &cd
	}

	logger.Debugf("wrote %s transaction", txn.Kind)

	return nil
}

// Handler serves GET /schemas/{id}, GET /cred_defs/{id} and POST /txns.
func (l *Ledger) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/schemas/{id}", func(rw http.ResponseWriter, req *http.Request) {
		s, err := l.ResolveSchema(req.Context(), mux.Vars(req)["id"])
		writeResult(rw, s, err)
	}).Methods(http.MethodGet)

	router.HandleFunc("/cred_defs/{id}", func(rw http.ResponseWriter, req *http.Request) {
		cd, err := l.ResolveCredDef(req.Context(), mux.Vars(req)["id"])
		writeResult(rw, cd, err)
	}).Methods(http.MethodGet)

	router.HandleFunc("/txns", func(rw http.ResponseWriter, req *http.Request) {
		var txn ledger.Transaction
		if err := json.NewDecoder(req.Body).Decode(&txn); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)

			return
		}

		if err := l.Submit(req.Context(), &txn); err != nil {
			http.Error(rw, err.Error(), http.StatusConflict)

			return
		}

		rw.WriteHeader(http.StatusCreated)
	}).Methods(http.MethodPost)

	return router
}

func writeResult(rw http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		http.Error(rw, err.Error(), http.StatusNotFound)

		return
	}

	rw.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		logger.Errorf("failed to write ledger response: %v", err)
	}
}
