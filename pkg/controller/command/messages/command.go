/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package messages

import (
	"encoding/json"
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

var logger = log.New("vcx-agent/command/messages")

// constants for message commands.
const (
	CommandName = "messages"

	DownloadCommandMethod     = "Download"
	UpdateStatusCommandMethod = "UpdateStatus"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Messaging)

	// RejectedErrorCode is for operations the engine refused to start.
	RejectedErrorCode

	// ExecuteErrorCode is for awaited operations that completed with an error.
	ExecuteErrorCode
)

// Command is the controller command for received messages.
type Command struct {
	engine *engine.Engine
	runner *cmdutil.Runner
}

// New returns a new messages controller command.
func New(e *engine.Engine, notifier command.Notifier, opts ...cmdutil.RunnerOpt) *Command {
	return &Command{
		engine: e,
		runner: cmdutil.NewRunner(CommandName, cmdutil.Codes{
			Invalid:  InvalidRequestErrorCode,
			Rejected: RejectedErrorCode,
			Failed:   ExecuteErrorCode,
		}, notifier, logger, opts...),
	}
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, DownloadCommandMethod, c.Download),
		cmdutil.NewCommandHandler(CommandName, UpdateStatusCommandMethod, c.UpdateStatus),
	}
}

// Download returns received messages grouped by connection.
func (c *Command) Download(rw io.Writer, req io.Reader) command.Error {
	var request DownloadArgs

	return c.runner.Run(rw, req, DownloadCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.MessagesDownload(tok, request.Status, request.UIDs, request.PairwiseDIDs, cb)
	})
}

// UpdateStatus sets the status of received messages.
func (c *Command) UpdateStatus(rw io.Writer, req io.Reader) command.Error {
	var request UpdateStatusArgs

	return c.runner.Run(rw, req, UpdateStatusCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			updates, err := json.Marshal(request.Updates)
			if err != nil {
				return vcxerr.Wrap(vcxerr.MalformedInput, err, "encode message status updates")
			}

			return c.engine.MessagesUpdateStatus(tok, request.Status, string(updates), cb)
		})
}
