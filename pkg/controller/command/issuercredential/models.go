/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuercredential

import (
	"encoding/json"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
)

// CreateArgs model
//
// This is used for creating an issuer credential.
type CreateArgs struct {
	command.Header

	SourceID string `json:"source_id"`

	// Handle of a credential definition created by this agent. When zero CredDefID is resolved on the ledger.
	CredDefHandle handle.Handle `json:"cred_def_handle,omitempty"`
	CredDefID     string        `json:"cred_def_id,omitempty"`

	// Attribute values as a JSON object, or as a string holding the JSON.
	Attrs json.RawMessage `json:"attrs"`

	Name string `json:"name,omitempty"`
}

// TerminateArgs model
//
// This is used for abandoning an issuance. A zero connection handle uses the bound connection.
type TerminateArgs struct {
	command.ExchangeArgs

	Comment string `json:"comment,omitempty"`
}

// SchemaCreateArgs model
//
// This is used for publishing a schema.
type SchemaCreateArgs struct {
	command.Header

	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Version  string `json:"version"`

	// Attribute names as a JSON list, or as a string holding the JSON.
	Attrs json.RawMessage `json:"attrs"`
}

// CredentialDefCreateArgs model
//
// This is used for publishing a credential definition.
type CredentialDefCreateArgs struct {
	command.Header

	SourceID string `json:"source_id"`
	SchemaID string `json:"schema_id"`
	Tag      string `json:"tag,omitempty"`
}
