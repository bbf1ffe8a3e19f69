/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package messages

import (
	"net/http"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command/messages"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/rest"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

// constants for message endpoints.
const (
	OperationID      = "/messages"
	DownloadPath     = OperationID + "/download"
	UpdateStatusPath = OperationID + "/update-status"
)

// Operation is the REST controller for received messages.
type Operation struct {
	command  *messages.Command
	handlers []rest.Handler
}

// New returns new messages rest controller.
func New(e *engine.Engine, notifier command.Notifier, opts ...cmdutil.RunnerOpt) *Operation {
	op := &Operation{command: messages.New(e, notifier, opts...)}
	op.registerHandler()

	return op
}

// GetRESTHandlers get all controller API handlers available for this service.
func (c *Operation) GetRESTHandlers() []rest.Handler {
	return c.handlers
}

// registerHandler register handlers to be exposed from this service as REST API endpoints.
func (c *Operation) registerHandler() {
	c.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(DownloadPath, http.MethodPost, c.Download),
		cmdutil.NewHTTPHandler(UpdateStatusPath, http.MethodPost, c.UpdateStatus),
	}
}

// Download swagger:route POST /messages/download messages downloadMessages
//
// Returns received messages grouped by connection.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Download(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Download, rw, req.Body)
}

// UpdateStatus swagger:route POST /messages/update-status messages updateMessageStatus
//
// Sets the status of received messages.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) UpdateStatus(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.UpdateStatus, rw, req.Body)
}
