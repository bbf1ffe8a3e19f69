/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
)

// ParseProposal validates a propose-presentation message.
func ParseProposal(msg protocol.Message) (*ProposePresentation, error) {
	if msg.Type() != protocol.ProposePresentationMsgType {
		return nil, vcxerr.New(vcxerr.MalformedInput, "%s is not a presentation proposal", msg.Type())
	}

	p := &ProposePresentation{}
	if err := msg.Decode(p); err != nil {
		return nil, err
	}

	if p.PresentationProposal == nil ||
		len(p.PresentationProposal.Attributes) == 0 && len(p.PresentationProposal.Predicates) == 0 {
		return nil, vcxerr.New(vcxerr.MalformedInput, "presentation proposal %s is empty", p.ID)
	}

	return p, nil
}

func restrictedTo(credDefID string) []credformat.Restriction {
	if credDefID == "" {
		return nil
	}

	return []credformat.Restriction{{CredDefID: credDefID}}
}

// requestFromPreview builds the proof request asking for what the prover proposed. Entries naming a cred def are
// restricted to it.
func requestFromPreview(name string, preview *PresentationPreview) (*credformat.ProofRequest, error) {
	attrs := make([]credformat.AttrInfo, 0, len(preview.Attributes))
	for _, a := range preview.Attributes {
		attrs = append(attrs, credformat.AttrInfo{Name: a.Name, Restrictions: restrictedTo(a.CredDefID)})
	}

	predicates := make([]credformat.PredicateInfo, 0, len(preview.Predicates))
	for _, p := range preview.Predicates {
		predicates = append(predicates, credformat.PredicateInfo{
			Name:         p.Name,
			PType:        p.Predicate,
			PValue:       p.Threshold,
			Restrictions: restrictedTo(p.CredDefID),
		})
	}

	req, err := credformat.NewProofRequest(name, attrs, predicates, nil)
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "presentation proposal cannot be requested")
	}

	return req, nil
}

// NewWithProposal creates a verifier exchange from a received propose-presentation message. The request asks for
// the proposed attributes and predicates and answers on the proposal thread.
func NewWithProposal(sourceID string, proposal []byte, name string) (*Proof, error) {
	msg, err := protocol.NewMessage(proposal)
	if err != nil {
		return nil, err
	}

	p, err := ParseProposal(msg)
	if err != nil {
		return nil, err
	}

	req, err := requestFromPreview(name, p.PresentationProposal)
	if err != nil {
		return nil, err
	}

	return &Proof{
		current: &proposalReceived{},
		rec: record{
			SourceID:  sourceID,
			ThreadID:  msg.ThreadID(),
			RequestID: uuid.New().String(),
			Request:   req,
			Proposal:  p.PresentationProposal,
		},
	}, nil
}

// Proposal returns the last presentation proposal as JSON.
func (pr *Proof) Proposal() (string, error) {
	if pr.rec.Proposal == nil {
		return "", vcxerr.New(vcxerr.InvalidState, "proof %s has no presentation proposal", pr.rec.SourceID)
	}

	raw, err := json.Marshal(pr.rec.Proposal)
	if err != nil {
		return "", vcxerr.Wrap(vcxerr.Unknown, err, "marshal presentation proposal")
	}

	return string(raw), nil
}
