/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"encoding/json"

	"github.com/topcoder-platform/mobilewallet/pkg/handle"
)

// HandleArgs addresses one engine object.
type HandleArgs struct {
	Header

	Handle handle.Handle `json:"handle"`
}

// ExchangeArgs addresses an exchange object and the connection it runs over. A zero connection handle uses the
// connection the object is bound to.
type ExchangeArgs struct {
	Header

	Handle           handle.Handle `json:"handle"`
	ConnectionHandle handle.Handle `json:"connection_handle,omitempty"`
}

// ConnectionArgs addresses a connection.
type ConnectionArgs struct {
	Header

	ConnectionHandle handle.Handle `json:"connection_handle"`
}

// UpdateWithMessageArgs feeds one inbound message to an object.
type UpdateWithMessageArgs struct {
	Header

	Handle handle.Handle `json:"handle"`

	// The message as a JSON object, or as a string holding the JSON.
	Message json.RawMessage `json:"message"`
}

// DeserializeArgs restores an object from its snapshot.
type DeserializeArgs struct {
	Header

	// The snapshot as a JSON object, or as the string returned by serialize.
	Snapshot json.RawMessage `json:"snapshot"`
}

// Unquote returns the JSON held in raw. A JSON string is unquoted, anything else is returned as is.
func Unquote(raw json.RawMessage) []byte {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []byte(s)
	}

	return raw
}

// Text is Unquote for callers that want a string.
func Text(raw json.RawMessage) string {
	return string(Unquote(raw))
}
