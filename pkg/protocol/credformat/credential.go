/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credformat holds the attachment payloads exchanged by the issue credential and present proof protocols,
// and the signing input of issued credentials.
package credformat

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
)

// Attachment ids.
const (
	OfferAttachID        = "libindy-cred-offer-0"
	RequestAttachID      = "libindy-cred-request-0"
	CredentialAttachID   = "libindy-cred-0"
	ProofRequestAttachID = "libindy-request-presentation-0"
	PresentationAttachID = "libindy-presentation-0"
)

// Offer is the credential offer attachment.
type Offer struct {
	SchemaID  string `json:"schema_id"`
	CredDefID string `json:"cred_def_id"`
	Nonce     string `json:"nonce"`
}

// Request is the credential request attachment.
type Request struct {
	ProverDID string `json:"prover_did"`
	CredDefID string `json:"cred_def_id"`
	Nonce     string `json:"nonce"`
}

// AttrValue is a raw attribute value and its integer encoding.
type AttrValue struct {
	Raw     string `json:"raw"`
	Encoded string `json:"encoded"`
}

// Credential is an issued credential. Signature is the issuer signature over SigningInput.
type Credential struct {
	SchemaID  string               `json:"schema_id"`
	CredDefID string               `json:"cred_def_id"`
	Values    map[string]AttrValue `json:"values"`
	Signature []byte               `json:"signature"`
}

// PreviewAttribute is one credential_preview entry.
type PreviewAttribute struct {
	Name     string `json:"name"`
	MimeType string `json:"mime-type,omitempty"`
	Value    string `json:"value"`
}

// Preview is the credential_preview decorator of an offer.
type Preview struct {
	Type       string             `json:"@type"`
	Attributes []PreviewAttribute `json:"attributes"`
}

// NewNonce returns a fresh decimal nonce.
func NewNonce() string {
	id := uuid.New()

	return new(big.Int).SetBytes(id[:]).String()
}

// EncodeValue encodes a raw attribute value: 32-bit integers are kept, anything else becomes the decimal form of
// its SHA-256 digest.
func EncodeValue(raw string) string {
	if _, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return raw
	}

	sum := sha256.Sum256([]byte(raw))

	return new(big.Int).SetBytes(sum[:]).String()
}

// NewValues encodes raw attribute values.
func NewValues(attrs map[string]string) map[string]AttrValue {
	values := make(map[string]AttrValue, len(attrs))

	for name, raw := range attrs {
		values[name] = AttrValue{Raw: raw, Encoded: EncodeValue(raw)}
	}

	return values
}

// NewPreview lists the attributes in name order.
func NewPreview(attrs map[string]string) *Preview {
	names := maps.Keys(attrs)
	slices.Sort(names)

	p := &Preview{Type: protocol.CredentialPreviewMsgType}

	for _, name := range names {
		p.Attributes = append(p.Attributes, PreviewAttribute{Name: name, Value: attrs[name]})
	}

	return p
}

// SigningInput returns the bytes the issuer signs: the canonical JSON of schema id, cred def id and values.
func (c *Credential) SigningInput() ([]byte, error) {
	return json.Marshal(struct {
		SchemaID  string               `json:"schema_id"`
		CredDefID string               `json:"cred_def_id"`
		Values    map[string]AttrValue `json:"values"`
	}{c.SchemaID, c.CredDefID, c.Values})
}

// Validate checks the credential carries its identifiers and consistent value encodings.
func (c *Credential) Validate() error {
	if c.SchemaID == "" || c.CredDefID == "" {
		return fmt.Errorf("credential without schema or cred def id")
	}

	if len(c.Values) == 0 {
		return fmt.Errorf("credential without values")
	}

	for name, v := range c.Values {
		if EncodeValue(v.Raw) != v.Encoded {
			return fmt.Errorf("credential value %s is not correctly encoded", name)
		}
	}

	return nil
}

// Raw returns the raw values by attribute name.
func (c *Credential) Raw() map[string]string {
	out := make(map[string]string, len(c.Values))
	for name, v := range c.Values {
		out[name] = v.Raw
	}

	return out
}

// IssuerDID returns the issuer DID embedded in a cred def or schema id.
func IssuerDID(id string) string {
	did, _, _ := strings.Cut(id, ":")

	return did
}

// AttrMarkerTag is the wallet tag marking that a stored credential carries attribute name.
func AttrMarkerTag(name string) string {
	return "attr::" + NormalizeAttrName(name) + "::marker"
}

// AttrValueTag is the wallet tag holding the raw value of attribute name in a stored credential.
func AttrValueTag(name string) string {
	return "attr::" + NormalizeAttrName(name) + "::value"
}

// NormalizeAttrName lower-cases a name and drops spaces, the form attribute names are matched in.
func NormalizeAttrName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ""))
}
