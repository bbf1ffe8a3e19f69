/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package disclosedproof

import (
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

var logger = log.New("vcx-agent/command/disclosedproof")

// constants for disclosed proof commands.
const (
	CommandName = "disclosedproof"

	CreateWithRequestCommandMethod      = "CreateWithRequest"
	CreateWithMessageIDCommandMethod    = "CreateWithMessageID"
	CreateProposalCommandMethod         = "CreateProposal"
	RequestsCommandMethod               = "Requests"
	RetrieveCredentialsCommandMethod    = "RetrieveCredentials"
	GenerateProofCommandMethod          = "GenerateProof"
	SendProofCommandMethod              = "SendProof"
	ProofMessageCommandMethod           = "ProofMessage"
	RequestCommandMethod                = "Request"
	DeclineCommandMethod                = "Decline"
	RejectCommandMethod                 = "Reject"
	SendProposalCommandMethod           = "SendProposal"
	UpdateStateCommandMethod            = "UpdateState"
	UpdateStateWithMessageCommandMethod = "UpdateStateWithMessage"
	GetStateCommandMethod               = "GetState"
	ProblemReportCommandMethod          = "ProblemReport"
	SerializeCommandMethod              = "Serialize"
	DeserializeCommandMethod            = "Deserialize"
	ReleaseCommandMethod                = "Release"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.PresentProof + 100)

	// RejectedErrorCode is for operations the engine refused to start.
	RejectedErrorCode

	// ExecuteErrorCode is for awaited operations that completed with an error.
	ExecuteErrorCode
)

// Command is the controller command for proofs presented by this agent.
type Command struct {
	engine *engine.Engine
	runner *cmdutil.Runner
}

// New returns a new disclosed proof controller command.
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
		cmdutil.NewCommandHandler(CommandName, CreateWithRequestCommandMethod, c.CreateWithRequest),
		cmdutil.NewCommandHandler(CommandName, CreateWithMessageIDCommandMethod, c.CreateWithMessageID),
		cmdutil.NewCommandHandler(CommandName, CreateProposalCommandMethod, c.CreateProposal),
		cmdutil.NewCommandHandler(CommandName, RequestsCommandMethod, c.Requests),
		cmdutil.NewCommandHandler(CommandName, RetrieveCredentialsCommandMethod, c.RetrieveCredentials),
		cmdutil.NewCommandHandler(CommandName, GenerateProofCommandMethod, c.GenerateProof),
		cmdutil.NewCommandHandler(CommandName, SendProofCommandMethod, c.SendProof),
		cmdutil.NewCommandHandler(CommandName, ProofMessageCommandMethod, c.ProofMessage),
		cmdutil.NewCommandHandler(CommandName, RequestCommandMethod, c.Request),
		cmdutil.NewCommandHandler(CommandName, DeclineCommandMethod, c.Decline),
		cmdutil.NewCommandHandler(CommandName, RejectCommandMethod, c.Reject),
		cmdutil.NewCommandHandler(CommandName, SendProposalCommandMethod, c.SendProposal),
		cmdutil.NewCommandHandler(CommandName, UpdateStateCommandMethod, c.UpdateState),
		cmdutil.NewCommandHandler(CommandName, UpdateStateWithMessageCommandMethod, c.UpdateStateWithMessage),
		cmdutil.NewCommandHandler(CommandName, GetStateCommandMethod, c.GetState),
		cmdutil.NewCommandHandler(CommandName, ProblemReportCommandMethod, c.ProblemReport),
		cmdutil.NewCommandHandler(CommandName, SerializeCommandMethod, c.Serialize),
		cmdutil.NewCommandHandler(CommandName, DeserializeCommandMethod, c.Deserialize),
		cmdutil.NewCommandHandler(CommandName, ReleaseCommandMethod, c.Release),
	}
}

// CreateWithRequest creates a disclosed proof from a presentation request. The result is its handle.
func (c *Command) CreateWithRequest(rw io.Writer, req io.Reader) command.Error {
	var request CreateWithRequestArgs

	return c.runner.Run(rw, req, CreateWithRequestCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofCreateWithRequest(tok, request.SourceID, command.Unquote(request.Request), cb)
		})
}

// CreateWithMessageID creates a disclosed proof from a request pending on a connection. The result holds the handle
// and the request.
func (c *Command) CreateWithMessageID(rw io.Writer, req io.Reader) command.Error {
	var request CreateWithMessageIDArgs

	return c.runner.Run(rw, req, CreateWithMessageIDCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofCreateWithMessageID(tok, request.SourceID, request.ConnectionHandle,
				request.MessageID, cb)
		})
}

// CreateProposal creates an exchange started by proposing a presentation.
func (c *Command) CreateProposal(rw io.Writer, req io.Reader) command.Error {
	var request CreateProposalArgs

	return c.runner.Run(rw, req, CreateProposalCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofCreateProposal(tok, request.SourceID, optional(request.Proposal),
				request.Comment, cb)
		})
}

// Requests lists the presentation requests pending on a connection.
func (c *Command) Requests(rw io.Writer, req io.Reader) command.Error {
	var request command.ConnectionArgs

	return c.runner.Run(rw, req, RequestsCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.DisclosedProofRequests(tok, request.ConnectionHandle, cb)
	})
}

// RetrieveCredentials lists the wallet credentials able to answer each referent.
func (c *Command) RetrieveCredentials(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, RetrieveCredentialsCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofRetrieveCredentials(tok, request.Handle, cb)
		})
}

// GenerateProof builds the presentation from the selected credentials and self attested values.
func (c *Command) GenerateProof(rw io.Writer, req io.Reader) command.Error {
	var request GenerateArgs

	return c.runner.Run(rw, req, GenerateProofCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofGenerate(tok, request.Handle, optional(request.SelectedCredentials),
				optional(request.SelfAttestedAttrs), cb)
		})
}

// SendProof sends the generated presentation.
func (c *Command) SendProof(rw io.Writer, req io.Reader) command.Error {
	var request command.ExchangeArgs

	return c.runner.Run(rw, req, SendProofCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofSendProof(tok, request.Handle, request.ConnectionHandle, cb)
		})
}

// ProofMessage returns the generated presentation message.
func (c *Command) ProofMessage(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, ProofMessageCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofMessage(tok, request.Handle, cb)
		})
}

// Request returns the presentation request.
func (c *Command) Request(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, RequestCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.DisclosedProofRequest(tok, request.Handle, cb)
	})
}

// Decline declines the request with a reason or a counter proposal.
func (c *Command) Decline(rw io.Writer, req io.Reader) command.Error {
	var request DeclineArgs

	return c.runner.Run(rw, req, DeclineCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.DisclosedProofDecline(tok, request.Handle, request.ConnectionHandle, request.Reason,
			optional(request.Proposal), cb)
	})
}

// Reject rejects the request.
func (c *Command) Reject(rw io.Writer, req io.Reader) command.Error {
	var request RejectArgs

	return c.runner.Run(rw, req, RejectCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.DisclosedProofReject(tok, request.Handle, request.ConnectionHandle, request.Comment, cb)
	})
}

// SendProposal sends the proposal of an exchange created with CreateProposal.
func (c *Command) SendProposal(rw io.Writer, req io.Reader) command.Error {
	var request command.ExchangeArgs

	return c.runner.Run(rw, req, SendProposalCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofSendProposal(tok, request.Handle, request.ConnectionHandle, cb)
		})
}

// UpdateState polls the connection for the verifier's answer. The result is the state.
func (c *Command) UpdateState(rw io.Writer, req io.Reader) command.Error {
	var request command.ExchangeArgs

	return c.runner.Run(rw, req, UpdateStateCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofUpdateState(tok, request.Handle, request.ConnectionHandle, cb)
		})
}

// UpdateStateWithMessage feeds one message to the disclosed proof. The result is the state.
func (c *Command) UpdateStateWithMessage(rw io.Writer, req io.Reader) command.Error {
	var request command.UpdateWithMessageArgs

	return c.runner.Run(rw, req, UpdateStateWithMessageCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofUpdateStateWithMessage(tok, request.Handle,
				command.Unquote(request.Message), cb)
		})
}

// GetState reports the state.
func (c *Command) GetState(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, GetStateCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.DisclosedProofGetState(tok, request.Handle, cb)
	})
}

// ProblemReport returns the last problem report.
func (c *Command) ProblemReport(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, ProblemReportCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofProblemReport(tok, request.Handle, cb)
		})
}

// Serialize returns the disclosed proof snapshot.
func (c *Command) Serialize(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, SerializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofSerialize(tok, request.Handle, cb)
		})
}

// Deserialize restores a disclosed proof. The result is its new handle.
func (c *Command) Deserialize(rw io.Writer, req io.Reader) command.Error {
	var request command.DeserializeArgs

	return c.runner.Run(rw, req, DeserializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.DisclosedProofDeserialize(tok, command.Text(request.Snapshot), cb)
		})
}

// Release invalidates the handle.
func (c *Command) Release(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, ReleaseCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.DisclosedProofRelease(tok, request.Handle, cb)
	})
}
