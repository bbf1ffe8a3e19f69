/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
)

// Type is command error type.
type Type int32

const (
	// ValidationError is returned when the request is rejected before the engine accepts it.
	ValidationError Type = iota

	// ExecuteError is returned when an accepted command that was waited on completes with an error.
	ExecuteError
)

// Code is the error code of command errors.
type Code int32

const (
	// UnknownStatus default error code for unknown errors.
	UnknownStatus Code = iota
)

// Group is the error groups. Each command package takes codes from one group, and a second entity sharing the
// same protocol family offsets its codes by 100.
type Group int32

const (
	// Common error group for general command errors.
	Common Group = 1000

	// Messaging error group for message download and status commands.
	Messaging Group = 3000

	// IssueCredential error group for holder and issuer credential command errors.
	IssueCredential Group = 8000

	// PresentProof error group for proof and disclosed proof command errors.
	PresentProof Group = 9000

	// VCWallet error group for wallet record and wallet backup command errors.
	VCWallet Group = 12000

	// Connection error group for connection management errors.
	Connection Group = 15000
)

// Error is a failed command. Code identifies the command and the failure stage, ResultCode the engine error kind
// that caused it.
type Error interface {
	error
	// Code returns error code for this command error.
	Code() Code
	// Type returns error type for this command error.
	Type() Type
	// ResultCode returns the engine result code of the cause, vcxerr.Unknown when the cause is not an engine error.
	ResultCode() vcxerr.Kind
}

// NewValidationError returns new command validation error.
func NewValidationError(code Code, err error) Error {
	return &commandError{error: err, code: code, errType: ValidationError}
}

// NewExecuteError returns new command execute error.
func NewExecuteError(code Code, err error) Error {
	return &commandError{error: err, code: code, errType: ExecuteError}
}

type commandError struct {
	error
	code    Code
	errType Type
}

func (c *commandError) Code() Code {
	return c.code
}

func (c *commandError) Type() Type {
	return c.errType
}

func (c *commandError) ResultCode() vcxerr.Kind {
	return vcxerr.KindOf(c.error)
}

func (c *commandError) Unwrap() error {
	return c.error
}
