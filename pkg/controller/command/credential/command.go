/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

var logger = log.New("vcx-agent/command/credential")

// constants for holder credential commands.
const (
	CommandName = "credential"

	CreateWithOfferCommandMethod        = "CreateWithOffer"
	CreateWithMessageIDCommandMethod    = "CreateWithMessageID"
	OffersCommandMethod                 = "Offers"
	SendRequestCommandMethod            = "SendRequest"
	RequestMessageCommandMethod         = "RequestMessage"
	UpdateStateCommandMethod            = "UpdateState"
	UpdateStateWithMessageCommandMethod = "UpdateStateWithMessage"
	GetStateCommandMethod               = "GetState"
	GetCommandMethod                    = "Get"
	InfoCommandMethod                   = "Info"
	DeleteCommandMethod                 = "Delete"
	RejectCommandMethod                 = "Reject"
	ProblemReportCommandMethod          = "ProblemReport"
	SerializeCommandMethod              = "Serialize"
	DeserializeCommandMethod            = "Deserialize"
	ReleaseCommandMethod                = "Release"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.IssueCredential)

	// RejectedErrorCode is for operations the engine refused to start.
	RejectedErrorCode

	// ExecuteErrorCode is for awaited operations that completed with an error.
	ExecuteErrorCode
)

// Command is the controller command for credentials held by this agent.
type Command struct {
	engine *engine.Engine
	runner *cmdutil.Runner
}

// New returns a new credential controller command.
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
		cmdutil.NewCommandHandler(CommandName, CreateWithOfferCommandMethod, c.CreateWithOffer),
		cmdutil.NewCommandHandler(CommandName, CreateWithMessageIDCommandMethod, c.CreateWithMessageID),
		cmdutil.NewCommandHandler(CommandName, OffersCommandMethod, c.Offers),
		cmdutil.NewCommandHandler(CommandName, SendRequestCommandMethod, c.SendRequest),
		cmdutil.NewCommandHandler(CommandName, RequestMessageCommandMethod, c.RequestMessage),
		cmdutil.NewCommandHandler(CommandName, UpdateStateCommandMethod, c.UpdateState),
		cmdutil.NewCommandHandler(CommandName, UpdateStateWithMessageCommandMethod, c.UpdateStateWithMessage),
		cmdutil.NewCommandHandler(CommandName, GetStateCommandMethod, c.GetState),
		cmdutil.NewCommandHandler(CommandName, GetCommandMethod, c.Get),
		cmdutil.NewCommandHandler(CommandName, InfoCommandMethod, c.Info),
		cmdutil.NewCommandHandler(CommandName, DeleteCommandMethod, c.Delete),
		cmdutil.NewCommandHandler(CommandName, RejectCommandMethod, c.Reject),
		cmdutil.NewCommandHandler(CommandName, ProblemReportCommandMethod, c.ProblemReport),
		cmdutil.NewCommandHandler(CommandName, SerializeCommandMethod, c.Serialize),
		cmdutil.NewCommandHandler(CommandName, DeserializeCommandMethod, c.Deserialize),
		cmdutil.NewCommandHandler(CommandName, ReleaseCommandMethod, c.Release),
	}
}

// CreateWithOffer creates a credential from an offer message. The result is its handle.
func (c *Command) CreateWithOffer(rw io.Writer, req io.Reader) command.Error {
	var request CreateWithOfferArgs

	return c.runner.Run(rw, req, CreateWithOfferCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialCreateWithOffer(tok, request.SourceID, command.Unquote(request.Offer), cb)
		})
}

// CreateWithMessageID creates a credential from an offer pending on a connection. The result holds the handle and
// the offer.
func (c *Command) CreateWithMessageID(rw io.Writer, req io.Reader) command.Error {
	var request CreateWithMessageIDArgs

	return c.runner.Run(rw, req, CreateWithMessageIDCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialCreateWithMessageID(tok, request.SourceID, request.ConnectionHandle,
				request.MessageID, cb)
		})
}

// Offers lists the offers pending on a connection.
func (c *Command) Offers(rw io.Writer, req io.Reader) command.Error {
	var request command.ConnectionArgs

	return c.runner.Run(rw, req, OffersCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.CredentialOffers(tok, request.ConnectionHandle, cb)
	})
}

// SendRequest requests the offered credential.
func (c *Command) SendRequest(rw io.Writer, req io.Reader) command.Error {
	var request command.ExchangeArgs

	return c.runner.Run(rw, req, SendRequestCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialSendRequest(tok, request.Handle, request.ConnectionHandle, cb)
		})
}

// RequestMessage builds the credential request for a pairwise DID without sending it.
func (c *Command) RequestMessage(rw io.Writer, req io.Reader) command.Error {
	var request RequestMessageArgs

	return c.runner.Run(rw, req, RequestMessageCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialRequestMessage(tok, request.Handle, request.MyPwDID, cb)
		})
}

// UpdateState polls the connection for the issued credential. The result is the state.
func (c *Command) UpdateState(rw io.Writer, req io.Reader) command.Error {
	var request command.ExchangeArgs

	return c.runner.Run(rw, req, UpdateStateCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialUpdateState(tok, request.Handle, request.ConnectionHandle, cb)
		})
}

// UpdateStateWithMessage feeds one message to the credential. The result is the state.
func (c *Command) UpdateStateWithMessage(rw io.Writer, req io.Reader) command.Error {
	var request command.UpdateWithMessageArgs

	return c.runner.Run(rw, req, UpdateStateWithMessageCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialUpdateStateWithMessage(tok, request.Handle, command.Unquote(request.Message), cb)
		})
}

// GetState reports the state.
func (c *Command) GetState(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, GetStateCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.CredentialGetState(tok, request.Handle, cb)
	})
}

// Get returns the issued credential.
func (c *Command) Get(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, GetCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.CredentialGet(tok, request.Handle, cb)
	})
}

// Info summarizes the stored credential.
func (c *Command) Info(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, InfoCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.CredentialInfo(tok, request.Handle, cb)
	})
}

// Delete removes the stored credential from the wallet.
func (c *Command) Delete(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, DeleteCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.CredentialDelete(tok, request.Handle, cb)
	})
}

// Reject declines the offer and tells the issuer.
func (c *Command) Reject(rw io.Writer, req io.Reader) command.Error {
	var request RejectArgs

	return c.runner.Run(rw, req, RejectCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.CredentialReject(tok, request.Handle, request.ConnectionHandle, request.Comment, cb)
	})
}

// ProblemReport returns the last problem report received or sent.
func (c *Command) ProblemReport(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, ProblemReportCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialProblemReport(tok, request.Handle, cb)
		})
}

// Serialize returns the credential snapshot.
func (c *Command) Serialize(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, SerializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialSerialize(tok, request.Handle, cb)
		})
}

// Deserialize restores a credential. The result is its new handle.
func (c *Command) Deserialize(rw io.Writer, req io.Reader) command.Error {
	var request command.DeserializeArgs

	return c.runner.Run(rw, req, DeserializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialDeserialize(tok, command.Text(request.Snapshot), cb)
		})
}

// Release invalidates the handle.
func (c *Command) Release(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, ReleaseCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.CredentialRelease(tok, request.Handle, cb)
	})
}
