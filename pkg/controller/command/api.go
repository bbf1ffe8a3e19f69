/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"encoding/json"
	"io"

	"github.com/hyperledger/aries-framework-go/spi/log"
)

// CompletionTopic is the notifier topic of command completions.
const CompletionTopic = "completion"

// Exec is controller command execution function type.
type Exec func(rw io.Writer, req io.Reader) Error

// Handler for each controller command.
type Handler interface {
	// name of the command
	Name() string
	// method name of the command
	Method() string
	// execute function of the command
	Handle() Exec
}

// Notifier represents a notification dispatcher.
type Notifier interface {
	Notify(topic string, message []byte) error
}

// Header is embedded in every engine command request.
type Header struct {
	// Caller chosen handle echoed in the completion. Zero lets the controller pick one.
	CommandHandle uint32 `json:"command_handle,omitempty"`

	// Wait blocks the command until the engine completes it.
	Wait bool `json:"wait,omitempty"`
}

// CommandHeader returns the header.
func (h *Header) CommandHeader() *Header {
	return h
}

// Request is implemented by every request that embeds Header.
type Request interface {
	CommandHeader() *Header
}

// Response is the result of an accepted command.
type Response struct {
	CommandHandle uint32      `json:"command_handle"`
	Result        interface{} `json:"result,omitempty"`
}

// Completion is published on CompletionTopic when a command that was not waited on completes.
type Completion struct {
	CommandHandle uint32          `json:"command_handle"`
	Code          uint32          `json:"code"`
	Error         string          `json:"error,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
}

// WriteResponse writes resp to w. The command is already accepted when this runs, so a write failure is only
// logged.
func WriteResponse(w io.Writer, resp *Response, l log.Logger) {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		l.Errorf("response to command %d not written: %s", resp.CommandHandle, err)
	}
}
