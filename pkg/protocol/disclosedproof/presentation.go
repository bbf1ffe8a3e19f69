/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package disclosedproof

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

// RetrievedCredential is one wallet credential able to answer a referent.
type RetrievedCredential struct {
	CredInfo credformat.CredInfo    `json:"cred_info"`
	Interval *credformat.NonRevoked `json:"interval"`
}

// RetrievedCredentials maps every attribute and predicate referent of a request to its candidate credentials.
type RetrievedCredentials struct {
	Attrs map[string][]RetrievedCredential `json:"attrs"`
}

func decodeCredential(rec *wallet.Record) (*credformat.Credential, error) {
	cred := &credformat.Credential{}
	if err := json.Unmarshal([]byte(rec.Value), cred); err != nil {
		return nil, vcxerr.Wrap(vcxerr.Unknown, err, "stored credential %s is corrupt", rec.ID)
	}

	return cred, nil
}

// candidates returns the stored credentials carrying every name that satisfy the restrictions and, when given,
// the predicate.
func candidates(ctx context.Context, w wallet.Wallet, names []string, restrictions []credformat.Restriction,
	pred *credformat.PredicateInfo, interval *credformat.NonRevoked) ([]RetrievedCredential, error) {
	filter := wallet.Filter{}
	for _, name := range names {
		filter[credformat.AttrMarkerTag(name)] = "1"
	}

	records, err := w.Query(ctx, wallet.CredentialRecordType, filter)
	if err != nil {
		return nil, vcxerr.Collaborator(err, "query credentials")
	}

	out := []RetrievedCredential{}

	for _, rec := range records {
		cred, err := decodeCredential(rec)
		if err != nil {
			return nil, err
		}

		if !credformat.MatchAny(restrictions, cred) {
			continue
		}

		if pred != nil {
			v, ok := credformat.SelectValue(cred, pred.Name)
			if !ok || !pred.Holds(v.Encoded) {
				continue
			}
		}

		out = append(out, RetrievedCredential{
			CredInfo: credformat.CredInfo{
				Referent:  rec.ID,
				Attrs:     cred.Raw(),
				SchemaID:  cred.SchemaID,
				CredDefID: cred.CredDefID,
			},
			Interval: interval,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CredInfo.Referent < out[j].CredInfo.Referent })

	return out, nil
}

func retrieveCredentials(ctx context.Context, w wallet.Wallet, req *credformat.ProofRequest) (*RetrievedCredentials,
	error) {
	result := &RetrievedCredentials{Attrs: map[string][]RetrievedCredential{}}

	for ref, attr := range req.RequestedAttributes {
		found, err := candidates(ctx, w, attr.AttrNames(), attr.Restrictions, nil, req.NonRevoked)
		if err != nil {
			return nil, err
		}

		result.Attrs[ref] = found
	}

	for ref := range req.RequestedPredicates {
		pred := req.RequestedPredicates[ref]

		found, err := candidates(ctx, w, []string{pred.Name}, pred.Restrictions, &pred, req.NonRevoked)
		if err != nil {
			return nil, err
		}

		result.Attrs[ref] = found
	}

	return result, nil
}

type presentationBuilder struct {
	ctx   context.Context
	w     wallet.Wallet
	pres  *credformat.Presentation
	index map[string]int
}

// credential returns the sub proof index and value of the selected wallet credential, adding it on first use.
func (b *presentationBuilder) credential(ref string, selected *credformat.SelectedCredential) (int,
	*credformat.Credential, error) {
	if selected == nil || selected.CredInfo.Referent == "" {
		return 0, nil, vcxerr.New(vcxerr.MalformedInput, "no credential selected for %s", ref)
	}

	id := selected.CredInfo.Referent

	if i, ok := b.index[id]; ok {
		return i, &b.pres.Credentials[i].Credential, nil
	}

	rec, err := b.w.GetRecord(b.ctx, wallet.CredentialRecordType, id)
	if errors.Is(err, wallet.ErrNotFound) {
		return 0, nil, vcxerr.New(vcxerr.MalformedInput, "selected credential %s is not in the wallet", id)
	}

	if err != nil {
		return 0, nil, vcxerr.Collaborator(err, "read credential %s", id)
	}

	cred, err := decodeCredential(rec)
	if err != nil {
		return 0, nil, err
	}

	b.pres.Credentials = append(b.pres.Credentials, credformat.PresentedCredential{Credential: *cred, Referent: id})
	b.index[id] = len(b.pres.Credentials) - 1

	return b.index[id], cred, nil
}

func (b *presentationBuilder) attr(ref string, attr credformat.AttrInfo, selected *credformat.SelectedCredential) error {
	idx, cred, err := b.credential(ref, selected)
	if err != nil {
		return err
	}

	rp := &b.pres.RequestedProof

	if len(attr.Names) > 0 {
		group := credformat.RevealedAttrGroup{SubProofIndex: idx, Values: map[string]credformat.AttrValue{}}

		for _, name := range attr.Names {
			v, ok := credformat.SelectValue(cred, name)
			if !ok {
				return vcxerr.New(vcxerr.MalformedInput, "credential selected for %s has no %s", ref, name)
			}

			group.Values[name] = v
		}

		rp.RevealedAttrGroups[ref] = group

		return nil
	}

	v, ok := credformat.SelectValue(cred, attr.Name)
	if !ok {
		return vcxerr.New(vcxerr.MalformedInput, "credential selected for %s has no %s", ref, attr.Name)
	}

	if selected.Reveal != nil && !*selected.Reveal {
		rp.UnrevealedAttrs[ref] = credformat.SubProofRef{SubProofIndex: idx}

		return nil
	}

	rp.RevealedAttrs[ref] = credformat.RevealedAttr{SubProofIndex: idx, Raw: v.Raw, Encoded: v.Encoded}

	return nil
}

func (b *presentationBuilder) predicate(ref string, pred credformat.PredicateInfo,
	selected *credformat.SelectedCredential) error {
	idx, cred, err := b.credential(ref, selected)
	if err != nil {
		return err
	}

	v, ok := credformat.SelectValue(cred, pred.Name)
	if !ok || !pred.Holds(v.Encoded) {
		return vcxerr.New(vcxerr.MalformedInput, "predicate %s does not hold for credential %s", ref,
			selected.CredInfo.Referent)
	}

	b.pres.RequestedProof.Predicates[ref] = credformat.SubProofRef{SubProofIndex: idx}

	return nil
}

// buildPresentation answers req from the selected wallet credentials and the self attested values.
func buildPresentation(ctx context.Context, w wallet.Wallet, req *credformat.ProofRequest,
	selected *credformat.SelectedCredentials, selfAttested map[string]string) (*credformat.Presentation, error) {
	b := &presentationBuilder{
		ctx: ctx,
		w:   w,
		pres: &credformat.Presentation{
			Nonce:       req.Nonce,
			Credentials: []credformat.PresentedCredential{},
			RequestedProof: credformat.RequestedProof{
				RevealedAttrs:      map[string]credformat.RevealedAttr{},
				RevealedAttrGroups: map[string]credformat.RevealedAttrGroup{},
				SelfAttestedAttrs:  map[string]string{},
				UnrevealedAttrs:    map[string]credformat.SubProofRef{},
				Predicates:         map[string]credformat.SubProofRef{},
			},
		},
		index: map[string]int{},
	}

	chosen := func(ref string) *credformat.SelectedCredential {
		if selected == nil {
			return nil
		}

		return selected.Attrs[ref].Credential
	}

	refs := maps.Keys(req.RequestedAttributes)
	sort.Strings(refs)

	for _, ref := range refs {
		if sel := chosen(ref); sel != nil {
			if err := b.attr(ref, req.RequestedAttributes[ref], sel); err != nil {
				return nil, err
			}

			continue
		}

		value, ok := selfAttested[ref]
		if !ok {
			return nil, vcxerr.New(vcxerr.MalformedInput, "attribute %s has neither a credential nor a self attested value",
				ref)
		}

		b.pres.RequestedProof.SelfAttestedAttrs[ref] = value
	}

	refs = maps.Keys(req.RequestedPredicates)
	sort.Strings(refs)

	for _, ref := range refs {
		if err := b.predicate(ref, req.RequestedPredicates[ref], chosen(ref)); err != nil {
			return nil, err
		}
	}

	return b.pres, nil
}
