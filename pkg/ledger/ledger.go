/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ledger defines the read/write contract for schemas and credential definitions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the ledger has no entry for an id.
var ErrNotFound = errors.New("ledger entry not found")

// Transaction kinds.
const (
	TxnSchema  = "schema"
	TxnCredDef = "cred_def"
)

// Schema is a published set of attribute names.
type Schema struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	AttrNames []string `json:"attrNames"`
	IssuerDID string   `json:"issuer_did"`
}

// CredDef binds a schema to the issuer key that signs credentials of it.
type CredDef struct {
	ID        string `json:"id"`
	SchemaID  string `json:"schema_id"`
	Tag       string `json:"tag"`
	IssuerDID string `json:"issuer_did"`
	Verkey    string `json:"verkey"`
}

// Transaction is a write request.
type Transaction struct {
	Kind    string   `json:"kind"`
	Schema  *Schema  `json:"schema,omitempty"`
	CredDef *CredDef `json:"cred_def,omitempty"`
}

// Validate checks the transaction carries the payload its kind needs.
func (t *Transaction) Validate() error {
	switch t.Kind {
	case TxnSchema:
		if t.Schema == nil || t.Schema.ID == "" {
			return fmt.Errorf("schema transaction without schema id")
		}
	case TxnCredDef:
		if t.CredDef == nil || t.CredDef.ID == "" || t.CredDef.Verkey == "" {
			return fmt.Errorf("cred_def transaction without id or verkey")
		}
	default:
		return fmt.Errorf("unknown transaction kind %q", t.Kind)
	}

	return nil
}

// Client reads and writes the ledger.
type Client interface {
	ResolveSchema(ctx context.Context, id string) (*Schema, error)
	ResolveCredDef(ctx context.Context, id string) (*CredDef, error)
	Submit(ctx context.Context, txn *Transaction) error
}

// SchemaID builds the identifier of a schema, following the did:2:name:version layout.
func SchemaID(issuerDID, name, version string) string {
	return strings.Join([]string{issuerDID, "2", name, version}, ":")
}

// CredDefID builds the identifier of a credential definition.
func CredDefID(issuerDID, schemaID, tag string) string {
	return strings.Join([]string{issuerDID, "3", "CL", schemaID, tag}, ":")
}
