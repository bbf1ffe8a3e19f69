/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

var logger = log.New("vcx-agent/command/proof")

// constants for verifier proof commands.
const (
	CommandName = "proof"

	CreateCommandMethod                 = "Create"
	CreateWithProposalCommandMethod     = "CreateWithProposal"
	GetProposalCommandMethod            = "GetProposal"
	SetConnectionCommandMethod          = "SetConnection"
	RequestMessageCommandMethod         = "RequestMessage"
	SendRequestCommandMethod            = "SendRequest"
	UpdateStateCommandMethod            = "UpdateState"
	UpdateStateWithMessageCommandMethod = "UpdateStateWithMessage"
	GetStateCommandMethod               = "GetState"
	GetProofCommandMethod               = "GetProof"
	ProblemReportCommandMethod          = "ProblemReport"
	SerializeCommandMethod              = "Serialize"
	DeserializeCommandMethod            = "Deserialize"
	ReleaseCommandMethod                = "Release"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.PresentProof)

	// RejectedErrorCode is for operations the engine refused to start.
	RejectedErrorCode

	// ExecuteErrorCode is for awaited operations that completed with an error.
	ExecuteErrorCode
)

// Command is the controller command for proofs requested by this agent.
type Command struct {
	engine *engine.Engine
	runner *cmdutil.Runner
}

// New returns a new proof controller command.
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
		cmdutil.NewCommandHandler(CommandName, CreateCommandMethod, c.Create),
		cmdutil.NewCommandHandler(CommandName, CreateWithProposalCommandMethod, c.CreateWithProposal),
		cmdutil.NewCommandHandler(CommandName, GetProposalCommandMethod, c.GetProposal),
		cmdutil.NewCommandHandler(CommandName, SetConnectionCommandMethod, c.SetConnection),
		cmdutil.NewCommandHandler(CommandName, RequestMessageCommandMethod, c.RequestMessage),
		cmdutil.NewCommandHandler(CommandName, SendRequestCommandMethod, c.SendRequest),
		cmdutil.NewCommandHandler(CommandName, UpdateStateCommandMethod, c.UpdateState),
		cmdutil.NewCommandHandler(CommandName, UpdateStateWithMessageCommandMethod, c.UpdateStateWithMessage),
		cmdutil.NewCommandHandler(CommandName, GetStateCommandMethod, c.GetState),
		cmdutil.NewCommandHandler(CommandName, GetProofCommandMethod, c.GetProof),
		cmdutil.NewCommandHandler(CommandName, ProblemReportCommandMethod, c.ProblemReport),
		cmdutil.NewCommandHandler(CommandName, SerializeCommandMethod, c.Serialize),
		cmdutil.NewCommandHandler(CommandName, DeserializeCommandMethod, c.Deserialize),
		cmdutil.NewCommandHandler(CommandName, ReleaseCommandMethod, c.Release),
	}
}

// Create creates a proof request. The result is its handle.
func (c *Command) Create(rw io.Writer, req io.Reader) command.Error {
	var request CreateArgs

	return c.runner.Run(rw, req, CreateCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ProofCreate(tok, request.SourceID, optional(request.RequestedAttrs),
			optional(request.RequestedPredicates), optional(request.RevocationInterval), request.Name, cb)
	})
}

// CreateWithProposal creates a proof answering a received presentation proposal. The result is its handle.
func (c *Command) CreateWithProposal(rw io.Writer, req io.Reader) command.Error {
	var request CreateWithProposalArgs

	return c.runner.Run(rw, req, CreateWithProposalCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ProofCreateWithProposal(tok, request.SourceID, command.Unquote(request.Proposal),
				request.Name, cb)
		})
}

// GetProposal returns the last presentation proposal of the prover.
func (c *Command) GetProposal(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, GetProposalCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ProofGetProposal(tok, request.Handle, cb)
		})
}

// SetConnection binds the proof to a connection without sending anything.
func (c *Command) SetConnection(rw io.Writer, req io.Reader) command.Error {
	var request command.ExchangeArgs

	return c.runner.Run(rw, req, SetConnectionCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ProofSetConnection(tok, request.Handle, request.ConnectionHandle, cb)
		})
}

// RequestMessage returns the request-presentation message without sending it.
func (c *Command) RequestMessage(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, RequestMessageCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ProofRequestMessage(tok, request.Handle, cb)
		})
}

// SendRequest sends the request over a connection.
func (c *Command) SendRequest(rw io.Writer, req io.Reader) command.Error {
	var request command.ExchangeArgs

	return c.runner.Run(rw, req, SendRequestCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ProofSendRequest(tok, request.Handle, request.ConnectionHandle, cb)
		})
}

// UpdateState polls the connection for the presentation. The result is the state.
func (c *Command) UpdateState(rw io.Writer, req io.Reader) command.Error {
	var request command.ExchangeArgs

	return c.runner.Run(rw, req, UpdateStateCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ProofUpdateState(tok, request.Handle, request.ConnectionHandle, cb)
		})
}

// UpdateStateWithMessage feeds one message to the proof. The result is the state.
func (c *Command) UpdateStateWithMessage(rw io.Writer, req io.Reader) command.Error {
	var request command.UpdateWithMessageArgs

	return c.runner.Run(rw, req, UpdateStateWithMessageCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ProofUpdateStateWithMessage(tok, request.Handle, command.Unquote(request.Message), cb)
		})
}

// GetState reports the state.
func (c *Command) GetState(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, GetStateCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ProofGetState(tok, request.Handle, cb)
	})
}

// GetProof returns the verification outcome and the received presentation.
func (c *Command) GetProof(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, GetProofCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ProofGet(tok, request.Handle, cb)
	})
}

// ProblemReport returns the last problem report.
func (c *Command) ProblemReport(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, ProblemReportCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ProofProblemReport(tok, request.Handle, cb)
		})
}

// Serialize returns the proof snapshot.
func (c *Command) Serialize(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, SerializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ProofSerialize(tok, request.Handle, cb)
		})
}

// Deserialize restores a proof. The result is its new handle.
func (c *Command) Deserialize(rw io.Writer, req io.Reader) command.Error {
	var request command.DeserializeArgs

	return c.runner.Run(rw, req, DeserializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ProofDeserialize(tok, command.Text(request.Snapshot), cb)
		})
}

// Release invalidates the handle.
func (c *Command) Release(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, ReleaseCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ProofRelease(tok, request.Handle, cb)
	})
}
