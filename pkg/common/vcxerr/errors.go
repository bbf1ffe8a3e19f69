/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vcxerr defines the error kinds reported by the engine and carried as result codes in command
// completions.
package vcxerr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind uint32

// Result codes. Success is never attached to an Error.
const (
	Success             Kind = 0
	Unknown             Kind = 1001
	InvalidHandle       Kind = 1002
	InvalidState        Kind = 1003
	MalformedInput      Kind = 1004
	MalformedSnapshot   Kind = 1005
	CollaboratorFailure Kind = 1006
	ProtocolRejected    Kind = 1007
	NotFound            Kind = 1008
	Busy                Kind = 1009
)

// Sentinels usable with errors.Is. Matching is done on the kind only.
var (
	ErrInvalidHandle       = &Error{kind: InvalidHandle}
	ErrInvalidState        = &Error{kind: InvalidState}
	ErrMalformedInput      = &Error{kind: MalformedInput}
	ErrMalformedSnapshot   = &Error{kind: MalformedSnapshot}
	ErrCollaboratorFailure = &Error{kind: CollaboratorFailure}
	ErrProtocolRejected    = &Error{kind: ProtocolRejected}
	ErrNotFound            = &Error{kind: NotFound}
	ErrBusy                = &Error{kind: Busy}
)

var kindNames = map[Kind]string{ //nolint:gochecknoglobals
	Success:             "success",
	Unknown:             "unknown",
	InvalidHandle:       "invalid handle",
	InvalidState:        "invalid state",
	MalformedInput:      "malformed input",
	MalformedSnapshot:   "malformed snapshot",
	CollaboratorFailure: "collaborator failure",
	ProtocolRejected:    "protocol rejected",
	NotFound:            "not found",
	Busy:                "busy",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", uint32(k))
}

// Error is an engine error of a given Kind, optionally wrapping its cause.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

// Collaborator wraps a wallet, ledger or transport failure.
func Collaborator(cause error, format string, args ...interface{}) *Error {
	return Wrap(CollaboratorFailure, cause, format, args...)
}

// Kind returns the error kind.
func (e *Error) Kind() Kind {
	return e.kind
}

func (e *Error) Error() string {
	msg := e.msg
	if msg == "" {
		msg = e.kind.String()
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s", msg, e.cause.Error())
	}

	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.kind == e.kind
}

// KindOf returns the kind of the first *Error in err's chain, Success for nil and Unknown otherwise.
func KindOf(err error) Kind {
	if err == nil {
		return Success
	}

	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}

	return Unknown
}
