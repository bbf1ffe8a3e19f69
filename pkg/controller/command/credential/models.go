/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"encoding/json"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
)

// CreateWithOfferArgs model
//
// This is used for creating a holder credential from an offer.
type CreateWithOfferArgs struct {
	command.Header

	SourceID string `json:"source_id"`

	// The offer message as a JSON object, or as a string holding the JSON.
	Offer json.RawMessage `json:"offer"`
}

// CreateWithMessageIDArgs model
//
// This is used for creating a holder credential from an offer pending on a connection.
type CreateWithMessageIDArgs struct {
	command.Header

	SourceID         string        `json:"source_id"`
	ConnectionHandle handle.Handle `json:"connection_handle"`
	MessageID        string        `json:"msg_id"`
}

// RequestMessageArgs model
//
// This is used for building a credential request without sending it.
type RequestMessageArgs struct {
	command.Header

	Handle  handle.Handle `json:"handle"`
	MyPwDID string        `json:"my_pw_did"`
}

// RejectArgs model
//
// This is used for rejecting an offer.
type RejectArgs struct {
	command.Header

	Handle           handle.Handle `json:"handle"`
	ConnectionHandle handle.Handle `json:"connection_handle,omitempty"`
	Comment          string        `json:"comment,omitempty"`
}
