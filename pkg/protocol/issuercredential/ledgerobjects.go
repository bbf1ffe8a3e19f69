/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuercredential

import (
	"context"
	"errors"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/snapshot"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

// Snapshot kinds of the ledger objects.
const (
	SchemaSnapshotKind  = "schema"
	CredDefSnapshotKind = "credential_def"
)

// LedgerWriter supplies what publishing needs.
type LedgerWriter interface {
	Wallet() wallet.Wallet
	Ledger() ledger.Client
}

func submit(ctx context.Context, l ledger.Client, txn *ledger.Transaction) error {
	if err := txn.Validate(); err != nil {
		return vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid %s transaction", txn.Kind)
	}

	if err := l.Submit(ctx, txn); err != nil {
		return vcxerr.Collaborator(err, "submit %s", txn.Kind)
	}

	return nil
}

// Schema is a schema this agent published.
type Schema struct {
	SourceIDValue string        `json:"source_id"`
	Schema        ledger.Schema `json:"schema"`
}

// CreateSchema publishes a schema under issuerDID.
func CreateSchema(ctx context.Context, p LedgerWriter, sourceID, issuerDID, name, version string,
	attrs []string) (*Schema, error) {
	if issuerDID == "" || name == "" || version == "" {
		return nil, vcxerr.New(vcxerr.MalformedInput, "schema needs an issuer DID, a name and a version")
	}

	if len(attrs) == 0 {
		return nil, vcxerr.New(vcxerr.MalformedInput, "schema %s has no attributes", name)
	}

	s := &Schema{
		SourceIDValue: sourceID,
		Schema: ledger.Schema{
			ID:        ledger.SchemaID(issuerDID, name, version),
			Name:      name,
			Version:   version,
			AttrNames: attrs,
			IssuerDID: issuerDID,
		},
	}

	if err := submit(ctx, p.Ledger(), &ledger.Transaction{Kind: ledger.TxnSchema, Schema: &s.Schema}); err != nil {
		return nil, err
	}

	return s, nil
}

// DeserializeSchema restores a schema object.
func DeserializeSchema(raw string) (*Schema, error) {
	s := &Schema{}
	if err := snapshot.Unmarshal(raw, SchemaSnapshotKind, s); err != nil {
		return nil, err
	}

	if s.Schema.ID == "" {
		return nil, vcxerr.New(vcxerr.MalformedSnapshot, "schema snapshot has no id")
	}

	return s, nil
}

// ID returns the ledger id.
func (s *Schema) ID() string {
	return s.Schema.ID
}

// SourceID implements protocol.Object.
func (s *Schema) SourceID() string {
	return s.SourceIDValue
}

// StateName implements protocol.Object. A schema object exists only once published.
func (s *Schema) StateName() string {
	return StateNameAccepted
}

// State implements protocol.Object.
func (s *Schema) State() protocol.StateCode {
	return protocol.StateAccepted
}

// Serialize implements protocol.Object.
func (s *Schema) Serialize() (string, error) {
	return snapshot.Marshal(SchemaSnapshotKind, s)
}

// CredentialDef is a credential definition this agent published. Its key lives in the wallet.
type CredentialDef struct {
	SourceIDValue string         `json:"source_id"`
	CredDef       ledger.CredDef `json:"cred_def"`
}

// CreateCredentialDef creates an issuer key and publishes a credential definition for schemaID.
func CreateCredentialDef(ctx context.Context, p LedgerWriter, sourceID, schemaID, tag string) (*CredentialDef,
	error) {
	if schemaID == "" {
		return nil, vcxerr.New(vcxerr.MalformedInput, "schema id is required")
	}

	if tag == "" {
		tag = "tag1"
	}

	schema, err := p.Ledger().ResolveSchema(ctx, schemaID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, vcxerr.Wrap(vcxerr.NotFound, err, "schema %s", schemaID)
	}

	if err != nil {
		return nil, vcxerr.Collaborator(err, "resolve schema %s", schemaID)
	}

	key, err := p.Wallet().CreateKey(ctx, nil)
	if err != nil {
		return nil, vcxerr.Collaborator(err, "create issuer key")
	}

	cd := &CredentialDef{
		SourceIDValue: sourceID,
		CredDef: ledger.CredDef{
			ID:        ledger.CredDefID(key.DID, schema.ID, tag),
			SchemaID:  schema.ID,
			Tag:       tag,
			IssuerDID: key.DID,
			Verkey:    key.Verkey,
		},
	}

	if err := submit(ctx, p.Ledger(), &ledger.Transaction{Kind: ledger.TxnCredDef, CredDef: &cd.CredDef}); err != nil {
		return nil, err
	}

	return cd, nil
}

// DeserializeCredentialDef restores a credential definition object.
func DeserializeCredentialDef(raw string) (*CredentialDef, error) {
	cd := &CredentialDef{}
	if err := snapshot.Unmarshal(raw, CredDefSnapshotKind, cd); err != nil {
		return nil, err
	}

	if cd.CredDef.ID == "" || cd.CredDef.Verkey == "" {
		return nil, vcxerr.New(vcxerr.MalformedSnapshot, "credential definition snapshot has no id or key")
	}

	return cd, nil
}

// ID returns the ledger id.
func (cd *CredentialDef) ID() string {
	return cd.CredDef.ID
}

// SourceID implements protocol.Object.
func (cd *CredentialDef) SourceID() string {
	return cd.SourceIDValue
}

// StateName implements protocol.Object.
func (cd *CredentialDef) StateName() string {
	return StateNameAccepted
}

// State implements protocol.Object.
func (cd *CredentialDef) State() protocol.StateCode {
	return protocol.StateAccepted
}

// Serialize implements protocol.Object.
func (cd *CredentialDef) Serialize() (string, error) {
	return snapshot.Marshal(CredDefSnapshotKind, cd)
}
