/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package disclosedproof

import (
	"encoding/json"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
)

// CreateWithRequestArgs model
//
// This is used for creating a disclosed proof from a presentation request.
type CreateWithRequestArgs struct {
	command.Header

	SourceID string `json:"source_id"`

	// The request-presentation message as a JSON object, or as a string holding the JSON.
	Request json.RawMessage `json:"request"`
}

// CreateWithMessageIDArgs model
//
// This is used for creating a disclosed proof from a request pending on a connection.
type CreateWithMessageIDArgs struct {
	command.Header

	SourceID         string        `json:"source_id"`
	ConnectionHandle handle.Handle `json:"connection_handle"`
	MessageID        string        `json:"msg_id"`
}

// CreateProposalArgs model
//
// This is used for starting an exchange with a presentation proposal.
type CreateProposalArgs struct {
	command.Header

	SourceID string          `json:"source_id"`
	Proposal json.RawMessage `json:"proposal"`
	Comment  string          `json:"comment,omitempty"`
}

// GenerateArgs model
//
// This is used for building the presentation.
type GenerateArgs struct {
	command.Header

	Handle handle.Handle `json:"handle"`

	// {"attrs":{referent:{"credential":{"cred_info":{"referent":...}}}}} as returned by retrieve credentials.
	SelectedCredentials json.RawMessage `json:"selected_credentials"`

	// {referent: value}.
	SelfAttestedAttrs json.RawMessage `json:"self_attested_attrs,omitempty"`
}

// DeclineArgs model
//
// This is used for declining a request with either a reason or a counter proposal.
type DeclineArgs struct {
	command.Header

	Handle           handle.Handle   `json:"handle"`
	ConnectionHandle handle.Handle   `json:"connection_handle,omitempty"`
	Reason           string          `json:"reason,omitempty"`
	Proposal         json.RawMessage `json:"proposal,omitempty"`
}

// RejectArgs model
//
// This is used for rejecting a request.
type RejectArgs struct {
	command.Header

	Handle           handle.Handle `json:"handle"`
	ConnectionHandle handle.Handle `json:"connection_handle,omitempty"`
	Comment          string        `json:"comment,omitempty"`
}

func optional(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	return command.Text(raw)
}
