/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"encoding/json"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
)

// CreateArgs model
//
// This is used for creating a proof request. Every JSON field may be given as a JSON value or as a string holding
// the JSON.
type CreateArgs struct {
	command.Header

	SourceID string `json:"source_id"`

	// List of {name|names, restrictions}.
	RequestedAttrs json.RawMessage `json:"requested_attrs"`

	// List of {name, p_type, p_value, restrictions}.
	RequestedPredicates json.RawMessage `json:"requested_predicates,omitempty"`

	// {from, to}. Recorded and echoed only.
	RevocationInterval json.RawMessage `json:"revocation_interval,omitempty"`

	Name string `json:"name,omitempty"`
}

// CreateWithProposalArgs model
//
// This is used for answering a propose-presentation message received from a prover.
type CreateWithProposalArgs struct {
	command.Header

	SourceID string `json:"source_id"`

	// The propose-presentation message as a JSON object, or as a string holding the JSON.
	Proposal json.RawMessage `json:"proposal"`

	Name string `json:"name,omitempty"`
}

func optional(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	return command.Text(raw)
}
