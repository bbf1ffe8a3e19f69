/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import "fmt"

// StateCode is the numeric object state reported to callers.
type StateCode uint32

// State codes.
const (
	StateNone StateCode = iota
	StateInitialized
	StateOfferSent
	StateRequestReceived
	StateAccepted
	StateUnfulfilled
	StateExpired
	StateRevoked
)

// nolint:gochecknoglobals
var stateCodeNames = []string{
	"none", "initialized", "offer_sent", "request_received", "accepted", "unfulfilled", "expired", "revoked",
}

func (s StateCode) String() string {
	if int(s) < len(stateCodeNames) {
		return stateCodeNames[s]
	}

	return fmt.Sprintf("state(%d)", uint32(s))
}

// ProofState is the verification outcome of a received presentation.
type ProofState uint32

// Proof verification outcomes.
const (
	ProofUndefined ProofState = iota
	ProofValidated
	ProofInvalid
)

func (p ProofState) String() string {
	switch p {
	case ProofValidated:
		return "validated"
	case ProofInvalid:
		return "invalid"
	default:
		return "undefined"
	}
}

// Object is the capability set shared by every protocol object held in a handle table.
type Object interface {
	// SourceID is the caller chosen label of the object.
	SourceID() string
	// StateName is the detailed state name used in snapshots and logs.
	StateName() string
	// State is the numeric state reported to callers.
	State() StateCode
	// Serialize encodes the object as a versioned snapshot.
	Serialize() (string, error)
}
