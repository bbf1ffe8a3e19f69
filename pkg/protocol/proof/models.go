/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
)

// RequestPresentation asks the prover for a presentation.
type RequestPresentation struct {
	protocol.Header            `json:",squash"`
	Comment                    string                `json:"comment,omitempty"`
	RequestPresentationsAttach []protocol.Attachment `json:"request_presentations~attach"`
}

// Presentation answers a request.
type Presentation struct {
	protocol.Header     `json:",squash"`
	Comment             string                `json:"comment,omitempty"`
	PresentationsAttach []protocol.Attachment `json:"presentations~attach"`
}

// PreviewAttribute is a proposed attribute.
type PreviewAttribute struct {
	Name      string `json:"name"`
	CredDefID string `json:"cred_def_id,omitempty"`
	MimeType  string `json:"mime-type,omitempty"`
	Value     string `json:"value,omitempty"`
	Referent  string `json:"referent,omitempty"`
}

// PreviewPredicate is a proposed predicate.
type PreviewPredicate struct {
	Name      string `json:"name"`
	CredDefID string `json:"cred_def_id,omitempty"`
	Predicate string `json:"predicate"`
	Threshold int64  `json:"threshold"`
}

// PresentationPreview is the presentation_proposal of a propose-presentation message.
type PresentationPreview struct {
	Type       string             `json:"@type"`
	Attributes []PreviewAttribute `json:"attributes"`
	Predicates []PreviewPredicate `json:"predicates"`
}

// ProposePresentation proposes a different presentation in reply to a request.
type ProposePresentation struct {
	protocol.Header      `json:",squash"`
	Comment              string               `json:"comment,omitempty"`
	PresentationProposal *PresentationPreview `json:"presentation_proposal"`
}

// ParseRequest validates a request-presentation message and returns it with its proof request.
func ParseRequest(msg protocol.Message) (*RequestPresentation, *credformat.ProofRequest, error) {
	if msg.Type() != protocol.RequestPresentationMsgType {
		return nil, nil, vcxerr.New(vcxerr.MalformedInput, "%s is not a presentation request", msg.Type())
	}

	req := &RequestPresentation{}
	if err := msg.Decode(req); err != nil {
		return nil, nil, err
	}

	pr := &credformat.ProofRequest{}
	if err := protocol.DecodeAttachment(req.RequestPresentationsAttach, credformat.ProofRequestAttachID, pr); err != nil {
		return nil, nil, err
	}

	if pr.Nonce == "" {
		return nil, nil, vcxerr.New(vcxerr.MalformedInput, "presentation request %s has no nonce", req.ID)
	}

	return req, pr, nil
}

// ParsePresentation decodes a presentation message.
func ParsePresentation(msg protocol.Message) (*Presentation, *credformat.Presentation, error) {
	if msg.Type() != protocol.PresentationMsgType {
		return nil, nil, vcxerr.New(vcxerr.MalformedInput, "%s is not a presentation", msg.Type())
	}

	p := &Presentation{}
	if err := msg.Decode(p); err != nil {
		return nil, nil, err
	}

	pres := &credformat.Presentation{}
	if err := protocol.DecodeAttachment(p.PresentationsAttach, credformat.PresentationAttachID, pres); err != nil {
		return nil, nil, err
	}

	return p, pres, nil
}
