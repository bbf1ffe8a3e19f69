/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
)

// OfferCredential is sent by the issuer to start an exchange.
type OfferCredential struct {
	protocol.Header `json:",squash"`
	Comment         string                `json:"comment,omitempty"`
	Preview         *credformat.Preview   `json:"credential_preview,omitempty"`
	OffersAttach    []protocol.Attachment `json:"offers~attach"`
}

// RequestCredential is sent by the holder in reply to an offer.
type RequestCredential struct {
	protocol.Header `json:",squash"`
	Comment         string                `json:"comment,omitempty"`
	RequestsAttach  []protocol.Attachment `json:"requests~attach"`
}

// IssueCredential carries the signed credential.
type IssueCredential struct {
	protocol.Header   `json:",squash"`
	Comment           string                `json:"comment,omitempty"`
	CredentialsAttach []protocol.Attachment `json:"credentials~attach"`
}

// Info describes a stored credential.
type Info struct {
	Referent  string            `json:"referent"`
	SchemaID  string            `json:"schema_id"`
	CredDefID string            `json:"cred_def_id"`
	Attrs     map[string]string `json:"attrs"`
}

// ParseOffer validates an offer message and returns it with its attachment.
func ParseOffer(msg protocol.Message) (*OfferCredential, *credformat.Offer, error) {
	if msg.Type() != protocol.OfferCredentialMsgType {
		return nil, nil, vcxerr.New(vcxerr.MalformedInput, "%s is not a credential offer", msg.Type())
	}

	offer := &OfferCredential{}
	if err := msg.Decode(offer); err != nil {
		return nil, nil, err
	}

	attach := &credformat.Offer{}
	if err := protocol.DecodeAttachment(offer.OffersAttach, credformat.OfferAttachID, attach); err != nil {
		return nil, nil, err
	}

	if attach.CredDefID == "" || attach.SchemaID == "" {
		return nil, nil, vcxerr.New(vcxerr.MalformedInput, "credential offer %s has no cred def or schema id", offer.ID)
	}

	return offer, attach, nil
}
