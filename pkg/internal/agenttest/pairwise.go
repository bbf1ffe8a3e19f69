/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agenttest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

// Pairwise is one side of an established connection, without the handshake.
type Pairwise struct {
	DID         string
	Key         string
	TheirDID    string
	TheirKey    string
	Remote      *transport.Destination
	Established bool
}

// Accepted reports whether the pairwise is usable.
func (p *Pairwise) Accepted() bool {
	return p.Established
}

// PwDID returns my DID.
func (p *Pairwise) PwDID() string {
	return p.DID
}

// Verkey returns my key.
func (p *Pairwise) Verkey() string {
	return p.Key
}

// TheirPwDID returns the remote DID.
func (p *Pairwise) TheirPwDID() (string, error) {
	return p.TheirDID, nil
}

// TheirVerkey returns the remote key.
func (p *Pairwise) TheirVerkey() string {
	return p.TheirKey
}

// Destination returns the remote destination.
func (p *Pairwise) Destination() (*transport.Destination, error) {
	if !p.Established {
		return nil, vcxerr.New(vcxerr.InvalidState, "pairwise is not established")
	}

	return p.Remote, nil
}

// Pair creates keys on both agents and returns the two sides of their connection.
func Pair(t *testing.T, a, b *Agent) (*Pairwise, *Pairwise) {
	t.Helper()

	ka, err := a.W.CreateKey(context.Background(), nil)
	require.NoError(t, err)

	kb, err := b.W.CreateKey(context.Background(), nil)
	require.NoError(t, err)

	ab := &Pairwise{
		DID:         ka.DID,
		Key:         ka.Verkey,
		TheirDID:    kb.DID,
		TheirKey:    kb.Verkey,
		Remote:      &transport.Destination{RecipientKeys: []string{kb.Verkey}, ServiceEndpoint: b.Endpoint},
		Established: true,
	}

	ba := &Pairwise{
		DID:         kb.DID,
		Key:         kb.Verkey,
		TheirDID:    ka.DID,
		TheirKey:    ka.Verkey,
		Remote:      &transport.Destination{RecipientKeys: []string{ka.Verkey}, ServiceEndpoint: a.Endpoint},
		Established: true,
	}

	return ab, ba
}

// PublishCredDef creates an issuer key and writes a schema and credential definition to the ledger.
func (a *Agent) PublishCredDef(t *testing.T, name string, attrs ...string) *ledger.CredDef {
	t.Helper()

	ctx := context.Background()

	key, err := a.W.CreateKey(ctx, nil)
	require.NoError(t, err)

	schema := &ledger.Schema{
		ID:        ledger.SchemaID(key.DID, name, "1.0"),
		Name:      name,
		Version:   "1.0",
		AttrNames: attrs,
		IssuerDID: key.DID,
	}
	require.NoError(t, a.L.Submit(ctx, &ledger.Transaction{Kind: ledger.TxnSchema, Schema: schema}))

	credDef := &ledger.CredDef{
		ID:        ledger.CredDefID(key.DID, schema.ID, "tag1"),
		SchemaID:  schema.ID,
		Tag:       "tag1",
		IssuerDID: key.DID,
		Verkey:    key.Verkey,
	}
	require.NoError(t, a.L.Submit(ctx, &ledger.Transaction{Kind: ledger.TxnCredDef, CredDef: credDef}))

	return credDef
}

// SignCredential issues a credential of credDef over values.
func (a *Agent) SignCredential(t *testing.T, credDef *ledger.CredDef, values map[string]string) *credformat.Credential {
	t.Helper()

	cred := &credformat.Credential{
		SchemaID:  credDef.SchemaID,
		CredDefID: credDef.ID,
		Values:    credformat.NewValues(values),
	}

	input, err := cred.SigningInput()
	require.NoError(t, err)

	cred.Signature, err = a.W.Sign(context.Background(), credDef.Verkey, input)
	require.NoError(t, err)

	return cred
}

// StoreCredential writes cred to the agent wallet under referent, tagged the way a holder stores it.
func (a *Agent) StoreCredential(t *testing.T, referent string, cred *credformat.Credential) {
	t.Helper()

	raw, err := json.Marshal(cred)
	require.NoError(t, err)

	tags := map[string]string{
		"schema_id":   cred.SchemaID,
		"cred_def_id": cred.CredDefID,
		"issuer_did":  credformat.IssuerDID(cred.CredDefID),
	}

	for name, v := range cred.Values {
		tags[credformat.AttrMarkerTag(name)] = "1"
		tags[credformat.AttrValueTag(name)] = v.Raw
	}

	require.NoError(t, a.W.AddRecord(context.Background(), &wallet.Record{
		Type:  wallet.CredentialRecordType,
		ID:    referent,
		Value: string(raw),
		Tags:  tags,
	}))
}
