/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credformat

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
)

// Predicate types.
const (
	PredicateGE = ">="
	PredicateGT = ">"
	PredicateLE = "<="
	PredicateLT = "<"
)

// Restriction limits the credentials that may satisfy a requested attribute or predicate. AttrValues holds the
// attr::<name>::value conditions, keyed by attribute name.
type Restriction struct {
	SchemaID   string            `json:"schema_id,omitempty"`
	CredDefID  string            `json:"cred_def_id,omitempty"`
	IssuerDID  string            `json:"issuer_did,omitempty"`
	AttrValues map[string]string `json:"-"`
}

const (
	attrTagPrefix      = "attr::"
	attrValueTagSuffix = "::value"
)

// MarshalJSON writes attribute value conditions as attr::<name>::value keys.
func (r Restriction) MarshalJSON() ([]byte, error) {
	fields := map[string]string{}

	if r.SchemaID != "" {
		fields["schema_id"] = r.SchemaID
	}

	if r.CredDefID != "" {
		fields["cred_def_id"] = r.CredDefID
	}

	if r.IssuerDID != "" {
		fields["issuer_did"] = r.IssuerDID
	}

	for name, v := range r.AttrValues {
		fields[AttrValueTag(name)] = v
	}

	return json.Marshal(fields)
}

// UnmarshalJSON reads a restriction object. Keys other than the identifiers and attr::<name>::value are rejected.
func (r *Restriction) UnmarshalJSON(data []byte) error {
	fields := map[string]string{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("restriction: %w", err)
	}

	*r = Restriction{}

	for key, v := range fields {
		switch key {
		case "schema_id":
			r.SchemaID = v
		case "cred_def_id":
			r.CredDefID = v
		case "issuer_did":
			r.IssuerDID = v
		default:
			if !strings.HasPrefix(key, attrTagPrefix) || !strings.HasSuffix(key, attrValueTagSuffix) ||
				len(key) <= len(attrTagPrefix)+len(attrValueTagSuffix) {
				return fmt.Errorf("unsupported restriction %q", key)
			}

			if r.AttrValues == nil {
				r.AttrValues = map[string]string{}
			}

			r.AttrValues[NormalizeAttrName(strings.TrimSuffix(strings.TrimPrefix(key, attrTagPrefix),
				attrValueTagSuffix))] = v
		}
	}

	return nil
}

// conditions maps the json path of every constrained field of a credential document to its required value.
func (r *Restriction) conditions() map[string]string {
	c := map[string]string{}

	if r.SchemaID != "" {
		c["$.schema_id"] = r.SchemaID
	}

	if r.CredDefID != "" {
		c["$.cred_def_id"] = r.CredDefID
	}

	if r.IssuerDID != "" {
		c["$.issuer_did"] = r.IssuerDID
	}

	for name, v := range r.AttrValues {
		c[fmt.Sprintf("$.values[%q].raw", NormalizeAttrName(name))] = v
	}

	return c
}

// Match reports whether cred satisfies r.
func (r *Restriction) Match(cred *Credential) bool {
	return r.match(restrictionDocument(cred))
}

func (r *Restriction) match(doc interface{}) bool {
	for path, want := range r.conditions() {
		got, err := selectByPath(doc, path)
		if err != nil {
			return false
		}

		if s, ok := got.(string); !ok || s != want {
			return false
		}
	}

	return true
}

// MatchAny reports whether cred satisfies any restriction; an empty list matches everything.
func MatchAny(restrictions []Restriction, cred *Credential) bool {
	if len(restrictions) == 0 {
		return true
	}

	doc := restrictionDocument(cred)

	for i := range restrictions {
		if restrictions[i].match(doc) {
			return true
		}
	}

	return false
}

// restrictionDocument is the view of a credential restrictions are evaluated against. Attribute names are
// normalized.
func restrictionDocument(cred *Credential) interface{} {
	values := make(map[string]interface{}, len(cred.Values))
	for name, v := range cred.Values {
		values[NormalizeAttrName(name)] = map[string]interface{}{"raw": v.Raw, "encoded": v.Encoded}
	}

	return map[string]interface{}{
		"schema_id":   cred.SchemaID,
		"cred_def_id": cred.CredDefID,
		"issuer_did":  IssuerDID(cred.CredDefID),
		"values":      values,
	}
}

// AttrInfo is a requested attribute, either a single name or a group of names.
type AttrInfo struct {
	Name         string        `json:"name,omitempty"`
	Names        []string      `json:"names,omitempty"`
	Restrictions []Restriction `json:"restrictions,omitempty"`
}

// AttrNames returns the requested names.
func (a AttrInfo) AttrNames() []string {
	if a.Name != "" {
		return []string{a.Name}
	}

	return a.Names
}

// PredicateInfo is a requested predicate.
type PredicateInfo struct {
	Name         string        `json:"name"`
	PType        string        `json:"p_type"`
	PValue       int64         `json:"p_value"`
	Restrictions []Restriction `json:"restrictions,omitempty"`
}

// Holds evaluates the predicate against an encoded credential value.
func (p *PredicateInfo) Holds(encoded string) bool {
	v, err := strconv.ParseInt(encoded, 10, 64)
	if err != nil {
		return false
	}

	switch p.PType {
	case PredicateGE:
		return v >= p.PValue
	case PredicateGT:
		return v > p.PValue
	case PredicateLE:
		return v <= p.PValue
	case PredicateLT:
		return v < p.PValue
	default:
		return false
	}
}

// NonRevoked is the revocation interval of a request. It is recorded, not evaluated.
type NonRevoked struct {
	From int64 `json:"from,omitempty"`
	To   int64 `json:"to,omitempty"`
}

// ProofRequest is the proof request attachment.
type ProofRequest struct {
	Name                string                   `json:"name"`
	Version             string                   `json:"version"`
	Nonce               string                   `json:"nonce"`
	RequestedAttributes map[string]AttrInfo      `json:"requested_attributes"`
	RequestedPredicates map[string]PredicateInfo `json:"requested_predicates"`
	NonRevoked          *NonRevoked              `json:"non_revoked,omitempty"`
}

// NewProofRequest builds a proof request from the caller's attribute and predicate lists. Referents are
// attribute_<i> and predicate_<i>.
func NewProofRequest(name string, attrs []AttrInfo, predicates []PredicateInfo, nonRevoked *NonRevoked) (*ProofRequest,
	error) {
	req := &ProofRequest{
		Name:                name,
		Version:             "1.0",
		Nonce:               NewNonce(),
		RequestedAttributes: map[string]AttrInfo{},
		RequestedPredicates: map[string]PredicateInfo{},
		NonRevoked:          nonRevoked,
	}

	for i, attr := range attrs {
		if attr.Name == "" && len(attr.Names) == 0 {
			return nil, fmt.Errorf("requested attribute %d has no name", i)
		}

		if attr.Name != "" && len(attr.Names) > 0 {
			return nil, fmt.Errorf("requested attribute %d has both name and names", i)
		}

		req.RequestedAttributes[fmt.Sprintf("attribute_%d", i)] = attr
	}

	for i, pred := range predicates {
		if pred.Name == "" {
			return nil, fmt.Errorf("requested predicate %d has no name", i)
		}

		switch pred.PType {
		case PredicateGE, PredicateGT, PredicateLE, PredicateLT:
		default:
			return nil, fmt.Errorf("requested predicate %d has unsupported p_type %q", i, pred.PType)
		}

		req.RequestedPredicates[fmt.Sprintf("predicate_%d", i)] = pred
	}

	return req, nil
}

// PresentedCredential is one credential used in a presentation.
type PresentedCredential struct {
	Credential
	Referent string `json:"referent"`
}

// RevealedAttr is a revealed single attribute.
type RevealedAttr struct {
	SubProofIndex int    `json:"sub_proof_index"`
	Raw           string `json:"raw"`
	Encoded       string `json:"encoded"`
}

// RevealedAttrGroup is a revealed attribute group.
type RevealedAttrGroup struct {
	SubProofIndex int                  `json:"sub_proof_index"`
	Values        map[string]AttrValue `json:"values"`
}

// SubProofRef points at the credential backing a referent.
type SubProofRef struct {
	SubProofIndex int `json:"sub_proof_index"`
}

// RequestedProof maps the request referents to their answers.
type RequestedProof struct {
	RevealedAttrs      map[string]RevealedAttr      `json:"revealed_attrs"`
	RevealedAttrGroups map[string]RevealedAttrGroup `json:"revealed_attr_groups,omitempty"`
	SelfAttestedAttrs  map[string]string            `json:"self_attested_attrs"`
	UnrevealedAttrs    map[string]SubProofRef       `json:"unrevealed_attrs"`
	Predicates         map[string]SubProofRef       `json:"predicates"`
}

// Presentation is the presentation attachment.
type Presentation struct {
	Nonce          string                `json:"nonce"`
	Credentials    []PresentedCredential `json:"credentials"`
	RequestedProof RequestedProof        `json:"requested_proof"`
	ProverVerkey   string                `json:"prover_verkey,omitempty"`
	NonceSignature []byte                `json:"nonce_signature,omitempty"`
}

// SelectedCredential is the caller's choice of credential for a referent.
type SelectedCredential struct {
	CredInfo struct {
		Referent string `json:"referent"`
	} `json:"cred_info"`
	Reveal *bool `json:"revealed,omitempty"`
}

// SelectedCredentials is the generate_proof input: {"attrs":{referent:{"credential":{...}}}}.
type SelectedCredentials struct {
	Attrs map[string]struct {
		Credential *SelectedCredential `json:"credential"`
	} `json:"attrs"`
}

// CredInfo describes a wallet credential as returned by retrieve credentials.
type CredInfo struct {
	Referent  string            `json:"referent"`
	Attrs     map[string]string `json:"attrs"`
	SchemaID  string            `json:"schema_id"`
	CredDefID string            `json:"cred_def_id"`
}

// nolint:gochecknoglobals
var pathLanguage = gval.Full(jsonpath.PlaceholderExtension())

// SelectValue returns the raw and encoded value of attribute name in credential c, matching names in
// normalized form.
func SelectValue(c *Credential, name string) (AttrValue, bool) {
	if v, ok := c.Values[name]; ok {
		return v, true
	}

	want := NormalizeAttrName(name)

	for key, v := range c.Values {
		if NormalizeAttrName(key) == want {
			return v, true
		}
	}

	return AttrValue{}, false
}

func selectByPath(doc interface{}, jsonPath string) (interface{}, error) {
	path, err := pathLanguage.NewEvaluable(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build new json path evaluator: %w", err)
	}

	v, err := path(context.TODO(), doc)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate json path [%s]: %w", jsonPath, err)
	}

	return v, nil
}
