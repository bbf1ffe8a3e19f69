/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"context"
	"errors"
	"fmt"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
)

// errInvalid marks a presentation that does not satisfy the request.
var errInvalid = errors.New("invalid presentation")

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalid, fmt.Sprintf(format, args...))
}

// Verify checks pres against req. The request nonce must be signed with proverVerkey, the key of the connection
// the request was sent over. It returns ProofValidated or ProofInvalid; an error is a collaborator failure and
// leaves the outcome undefined.
func Verify(ctx context.Context, p Provider, req *credformat.ProofRequest, pres *credformat.Presentation,
	proverVerkey string) (protocol.ProofState, error) {
	err := verify(ctx, p, req, pres, proverVerkey)
	if errors.Is(err, errInvalid) {
		logger.Infof("presentation rejected: %v", err)

		return protocol.ProofInvalid, nil
	}

	if err != nil {
		return protocol.ProofUndefined, err
	}

	return protocol.ProofValidated, nil
}

func verify(ctx context.Context, p Provider, req *credformat.ProofRequest, pres *credformat.Presentation,
	proverVerkey string) error {
	if pres.Nonce != req.Nonce {
		return invalidf("nonce does not match the request")
	}

	if err := verifyNonceSignature(ctx, p, pres, proverVerkey); err != nil {
		return err
	}

	for i := range pres.Credentials {
		if err := verifyCredential(ctx, p, &pres.Credentials[i].Credential); err != nil {
			return err
		}
	}

	rp := &pres.RequestedProof

	for ref, attr := range req.RequestedAttributes {
		if err := verifyAttr(pres, rp, ref, attr); err != nil {
			return err
		}
	}

	for ref, pred := range req.RequestedPredicates {
		sub, ok := rp.Predicates[ref]
		if !ok {
			return invalidf("predicate %s is not proven", ref)
		}

		cred, err := credentialAt(pres, sub.SubProofIndex, ref, pred.Restrictions)
		if err != nil {
			return err
		}

		v, ok := credformat.SelectValue(cred, pred.Name)
		if !ok || !pred.Holds(v.Encoded) {
			return invalidf("predicate %s does not hold", ref)
		}
	}

	return nil
}

func verifyNonceSignature(ctx context.Context, p Provider, pres *credformat.Presentation, proverVerkey string) error {
	if proverVerkey == "" {
		return invalidf("presentation did not arrive over a connection")
	}

	if len(pres.NonceSignature) == 0 {
		return invalidf("nonce is not signed")
	}

	if pres.ProverVerkey != "" && pres.ProverVerkey != proverVerkey {
		return invalidf("presentation was made for another connection")
	}

	ok, err := p.Wallet().Verify(ctx, proverVerkey, []byte(pres.Nonce), pres.NonceSignature)
	if err != nil {
		return vcxerr.Collaborator(err, "verify nonce signature")
	}

	if !ok {
		return invalidf("nonce signature does not match the prover key")
	}

	return nil
}

func verifyCredential(ctx context.Context, p Provider, cred *credformat.Credential) error {
	if err := cred.Validate(); err != nil {
		return invalidf("%v", err)
	}

	credDef, err := p.Ledger().ResolveCredDef(ctx, cred.CredDefID)
	if errors.Is(err, ledger.ErrNotFound) {
		return invalidf("cred def %s is not on the ledger", cred.CredDefID)
	}

	if err != nil {
		return vcxerr.Collaborator(err, "resolve cred def %s", cred.CredDefID)
	}

	if credDef.SchemaID != cred.SchemaID {
		return invalidf("credential schema %s does not match cred def %s", cred.SchemaID, credDef.ID)
	}

	input, err := cred.SigningInput()
	if err != nil {
		return fmt.Errorf("credential signing input: %w", err)
	}

	ok, err := p.Wallet().Verify(ctx, credDef.Verkey, input, cred.Signature)
	if err != nil {
		return vcxerr.Collaborator(err, "verify credential signature")
	}

	if !ok {
		return invalidf("credential signature of %s is not valid", cred.CredDefID)
	}

	return nil
}

func credentialAt(pres *credformat.Presentation, index int, ref string,
	restrictions []credformat.Restriction) (*credformat.Credential, error) {
	if index < 0 || index >= len(pres.Credentials) {
		return nil, invalidf("%s refers to missing credential %d", ref, index)
	}

	cred := &pres.Credentials[index].Credential
	if !credformat.MatchAny(restrictions, cred) {
		return nil, invalidf("credential of %s does not satisfy the restrictions", ref)
	}

	return cred, nil
}

func verifyAttr(pres *credformat.Presentation, rp *credformat.RequestedProof, ref string,
	attr credformat.AttrInfo) error {
	if revealed, ok := rp.RevealedAttrs[ref]; ok {
		cred, err := credentialAt(pres, revealed.SubProofIndex, ref, attr.Restrictions)
		if err != nil {
			return err
		}

		v, ok := credformat.SelectValue(cred, attr.Name)
		if !ok || v.Raw != revealed.Raw || v.Encoded != revealed.Encoded {
			return invalidf("revealed value of %s does not match the credential", ref)
		}

		return nil
	}

	if group, ok := rp.RevealedAttrGroups[ref]; ok {
		cred, err := credentialAt(pres, group.SubProofIndex, ref, attr.Restrictions)
		if err != nil {
			return err
		}

		for _, name := range attr.AttrNames() {
			v, ok := credformat.SelectValue(cred, name)
			if !ok || group.Values[name] != v {
				return invalidf("revealed value of %s in %s does not match the credential", name, ref)
			}
		}

		return nil
	}

	if _, ok := rp.SelfAttestedAttrs[ref]; ok {
		if len(attr.Restrictions) > 0 {
			return invalidf("%s is restricted and cannot be self attested", ref)
		}

		return nil
	}

	if sub, ok := rp.UnrevealedAttrs[ref]; ok {
		cred, err := credentialAt(pres, sub.SubProofIndex, ref, attr.Restrictions)
		if err != nil {
			return err
		}

		if _, ok := credformat.SelectValue(cred, attr.Name); !ok {
			return invalidf("credential of %s has no %s", ref, attr.Name)
		}

		return nil
	}

	return invalidf("attribute %s is not presented", ref)
}
