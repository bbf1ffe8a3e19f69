/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"encoding/json"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/connection"
)

// CreateArgs model
//
// This is used for creating an inviter connection.
type CreateArgs struct {
	command.Header

	SourceID string `json:"source_id"`
}

// CreateOutOfBandArgs model
//
// This is used for creating an inviter connection whose invitation carries a goal.
type CreateOutOfBandArgs struct {
	command.Header

	SourceID string `json:"source_id"`
	GoalCode string `json:"goal_code,omitempty"`
	Goal     string `json:"goal,omitempty"`
}

// InviteArgs model
//
// This is used for creating an invitee connection from a received invitation.
type InviteArgs struct {
	command.Header

	SourceID string `json:"source_id"`

	// The invitation as a JSON object, or as a string holding the JSON.
	InviteDetails json.RawMessage `json:"invite_details"`

	// Connect options, used by accept invite only.
	Options *connection.ConnectOptions `json:"options,omitempty"`
}

// ConnectArgs model
//
// This is used for starting the handshake of a connection.
type ConnectArgs struct {
	command.Header

	Handle  handle.Handle              `json:"handle"`
	Options *connection.ConnectOptions `json:"options,omitempty"`
}

// InviteDetailsArgs model
//
// This is used for reading the invitation of a connection.
type InviteDetailsArgs struct {
	command.Header

	Handle      handle.Handle `json:"handle"`
	Abbreviated bool          `json:"abbreviated,omitempty"`
}

// SendMessageArgs model
//
// This is used for sending a basic message.
type SendMessageArgs struct {
	command.Header

	Handle  handle.Handle                  `json:"handle"`
	Message string                         `json:"message"`
	Options *connection.SendMessageOptions `json:"options,omitempty"`
}

// SignDataArgs model
//
// This is used for signing data with my pairwise key. Data is base64 encoded.
type SignDataArgs struct {
	command.Header

	Handle handle.Handle `json:"handle"`
	Data   []byte        `json:"data"`
}

// VerifySignatureArgs model
//
// This is used for checking a signature of the remote pairwise key. Data and signature are base64 encoded.
type VerifySignatureArgs struct {
	command.Header

	Handle    handle.Handle `json:"handle"`
	Data      []byte        `json:"data"`
	Signature []byte        `json:"signature"`
}

// SendPingArgs model
//
// This is used for sending a trust ping.
type SendPingArgs struct {
	command.Header

	Handle  handle.Handle `json:"handle"`
	Comment string        `json:"comment,omitempty"`
}

// SendReuseArgs model
//
// This is used for answering an out-of-band invitation over an existing connection.
type SendReuseArgs struct {
	command.Header

	Handle        handle.Handle   `json:"handle"`
	InviteDetails json.RawMessage `json:"invite_details"`
}

// DiscoverFeaturesArgs model
//
// This is used for querying the protocols supported by the remote party.
type DiscoverFeaturesArgs struct {
	command.Header

	Handle  handle.Handle `json:"handle"`
	Query   string        `json:"query,omitempty"`
	Comment string        `json:"comment,omitempty"`
}

// SendAnswerArgs model
//
// This is used for answering a received question.
type SendAnswerArgs struct {
	command.Header

	Handle   handle.Handle   `json:"handle"`
	Question json.RawMessage `json:"question"`
	Answer   json.RawMessage `json:"answer"`
}
