/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmdutil

import (
	"net/http"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
)

// NewHTTPHandler returns the REST route method path served by handle.
func NewHTTPHandler(path, method string, handle http.HandlerFunc) *HTTPHandler {
	return &HTTPHandler{path: path, method: method, handle: handle}
}

// HTTPHandler is one REST route of an engine operation.
type HTTPHandler struct {
	path   string
	method string
	handle http.HandlerFunc
}

// Path returns the route path. Routes addressing one object carry the {handle} variable.
func (h *HTTPHandler) Path() string {
	return h.path
}

// Method returns http request method type.
func (h *HTTPHandler) Method() string {
	return h.method
}

// Handle returns http request handle func.
func (h *HTTPHandler) Handle() http.HandlerFunc {
	return h.handle
}

func (h *HTTPHandler) String() string {
	return h.method + " " + h.path
}

// NewCommandHandler returns the controller command name.method executed by exec.
func NewCommandHandler(name, method string, exec command.Exec) *CommandHandler {
	return &CommandHandler{name: name, method: method, exec: exec}
}

// CommandHandler is one controller command of an engine operation.
type CommandHandler struct {
	name   string
	method string
	exec   command.Exec
}

// Name is the entity the command operates on, such as connection or wallet.
func (c *CommandHandler) Name() string {
	return c.name
}

// Method is the operation name.
func (c *CommandHandler) Method() string {
	return c.method
}

// Handle returns execute function of the command handler.
func (c *CommandHandler) Handle() command.Exec {
	return c.exec
}

func (c *CommandHandler) String() string {
	return c.name + "." + c.method
}
