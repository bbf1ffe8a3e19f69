/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

var logger = log.New("vcx-agent/command/connection")

// constants for connection management commands.
const (
	CommandName = "connection"

	CreateCommandMethod                 = "Create"
	CreateOutOfBandCommandMethod        = "CreateOutOfBand"
	CreateWithInviteCommandMethod       = "CreateWithInvite"
	AcceptInviteCommandMethod           = "AcceptInvite"
	ConnectCommandMethod                = "Connect"
	InviteDetailsCommandMethod          = "InviteDetails"
	UpdateStateCommandMethod            = "UpdateState"
	UpdateStateWithMessageCommandMethod = "UpdateStateWithMessage"
	GetStateCommandMethod               = "GetState"
	ProblemReportCommandMethod          = "ProblemReport"
	InfoCommandMethod                   = "Info"
	PwDIDCommandMethod                  = "PwDID"
	TheirPwDIDCommandMethod             = "TheirPwDID"
	SendMessageCommandMethod            = "SendMessage"
	SignDataCommandMethod               = "SignData"
	VerifySignatureCommandMethod        = "VerifySignature"
	SendPingCommandMethod               = "SendPing"
	SendDiscoveryFeaturesCommandMethod  = "SendDiscoveryFeatures"
	SendAnswerCommandMethod             = "SendAnswer"
	SendReuseCommandMethod              = "SendReuse"
	DeleteCommandMethod                 = "Delete"
	SerializeCommandMethod              = "Serialize"
	DeserializeCommandMethod            = "Deserialize"
	ReleaseCommandMethod                = "Release"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Connection)

	// RejectedErrorCode is for operations the engine refused to start.
	RejectedErrorCode

	// ExecuteErrorCode is for awaited operations that completed with an error.
	ExecuteErrorCode
)

// Command is the controller command for connections.
type Command struct {
	engine *engine.Engine
	runner *cmdutil.Runner
}

// New returns a new connection controller command. Completions of commands that are not waited on go to notifier.
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
		cmdutil.NewCommandHandler(CommandName, CreateOutOfBandCommandMethod, c.CreateOutOfBand),
		cmdutil.NewCommandHandler(CommandName, CreateWithInviteCommandMethod, c.CreateWithInvite),
		cmdutil.NewCommandHandler(CommandName, AcceptInviteCommandMethod, c.AcceptInvite),
		cmdutil.NewCommandHandler(CommandName, ConnectCommandMethod, c.Connect),
		cmdutil.NewCommandHandler(CommandName, InviteDetailsCommandMethod, c.InviteDetails),
		cmdutil.NewCommandHandler(CommandName, UpdateStateCommandMethod, c.UpdateState),
		cmdutil.NewCommandHandler(CommandName, UpdateStateWithMessageCommandMethod, c.UpdateStateWithMessage),
		cmdutil.NewCommandHandler(CommandName, GetStateCommandMethod, c.GetState),
		cmdutil.NewCommandHandler(CommandName, ProblemReportCommandMethod, c.ProblemReport),
		cmdutil.NewCommandHandler(CommandName, InfoCommandMethod, c.Info),
		cmdutil.NewCommandHandler(CommandName, PwDIDCommandMethod, c.PwDID),
		cmdutil.NewCommandHandler(CommandName, TheirPwDIDCommandMethod, c.TheirPwDID),
		cmdutil.NewCommandHandler(CommandName, SendMessageCommandMethod, c.SendMessage),
		cmdutil.NewCommandHandler(CommandName, SignDataCommandMethod, c.SignData),
		cmdutil.NewCommandHandler(CommandName, VerifySignatureCommandMethod, c.VerifySignature),
		cmdutil.NewCommandHandler(CommandName, SendPingCommandMethod, c.SendPing),
		cmdutil.NewCommandHandler(CommandName, SendDiscoveryFeaturesCommandMethod, c.SendDiscoveryFeatures),
		cmdutil.NewCommandHandler(CommandName, SendAnswerCommandMethod, c.SendAnswer),
		cmdutil.NewCommandHandler(CommandName, SendReuseCommandMethod, c.SendReuse),
		cmdutil.NewCommandHandler(CommandName, DeleteCommandMethod, c.Delete),
		cmdutil.NewCommandHandler(CommandName, SerializeCommandMethod, c.Serialize),
		cmdutil.NewCommandHandler(CommandName, DeserializeCommandMethod, c.Deserialize),
		cmdutil.NewCommandHandler(CommandName, ReleaseCommandMethod, c.Release),
	}
}

// Create creates an inviter connection. The result is its handle.
func (c *Command) Create(rw io.Writer, req io.Reader) command.Error {
	var request CreateArgs

	return c.runner.Run(rw, req, CreateCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ConnectionCreate(tok, request.SourceID, cb)
	})
}

// CreateOutOfBand creates an inviter connection whose invitation carries a goal.
func (c *Command) CreateOutOfBand(rw io.Writer, req io.Reader) command.Error {
	var request CreateOutOfBandArgs

	return c.runner.Run(rw, req, CreateOutOfBandCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionCreateOutOfBand(tok, request.SourceID, request.GoalCode, request.Goal, cb)
		})
}

// CreateWithInvite creates an invitee connection from a received invitation.
func (c *Command) CreateWithInvite(rw io.Writer, req io.Reader) command.Error {
	var request InviteArgs

	return c.runner.Run(rw, req, CreateWithInviteCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionCreateWithInvite(tok, request.SourceID, command.Unquote(request.InviteDetails), cb)
		})
}

// AcceptInvite creates an invitee connection and connects it.
func (c *Command) AcceptInvite(rw io.Writer, req io.Reader) command.Error {
	var request InviteArgs

	return c.runner.Run(rw, req, AcceptInviteCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionAcceptInvite(tok, request.SourceID, command.Unquote(request.InviteDetails),
				request.Options, cb)
		})
}

// Connect starts the handshake. The result is the invitation.
func (c *Command) Connect(rw io.Writer, req io.Reader) command.Error {
	var request ConnectArgs

	return c.runner.Run(rw, req, ConnectCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ConnectionConnect(tok, request.Handle, request.Options, cb)
	})
}

// InviteDetails returns the invitation of a connected connection.
func (c *Command) InviteDetails(rw io.Writer, req io.Reader) command.Error {
	var request InviteDetailsArgs

	return c.runner.Run(rw, req, InviteDetailsCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionInviteDetails(tok, request.Handle, request.Abbreviated, cb)
		})
}

// UpdateState polls for new messages. The result is the state.
func (c *Command) UpdateState(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, UpdateStateCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionUpdateState(tok, request.Handle, cb)
		})
}

// UpdateStateWithMessage feeds one message to the connection. The result is the state.
func (c *Command) UpdateStateWithMessage(rw io.Writer, req io.Reader) command.Error {
	var request command.UpdateWithMessageArgs

	return c.runner.Run(rw, req, UpdateStateWithMessageCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionUpdateStateWithMessage(tok, request.Handle, command.Unquote(request.Message), cb)
		})
}

// GetState reports the state.
func (c *Command) GetState(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, GetStateCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ConnectionGetState(tok, request.Handle, cb)
	})
}

// ProblemReport returns the last problem report received or sent.
func (c *Command) ProblemReport(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, ProblemReportCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionProblemReport(tok, request.Handle, cb)
		})
}

// Info describes both sides of the connection.
func (c *Command) Info(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, InfoCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ConnectionInfo(tok, request.Handle, cb)
	})
}

// PwDID returns my pairwise DID.
func (c *Command) PwDID(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, PwDIDCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ConnectionPwDID(tok, request.Handle, cb)
	})
}

// TheirPwDID returns the pairwise DID of the remote party.
func (c *Command) TheirPwDID(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, TheirPwDIDCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionTheirPwDID(tok, request.Handle, cb)
		})
}

// SendMessage sends a basic message. The result is its id.
func (c *Command) SendMessage(rw io.Writer, req io.Reader) command.Error {
	var request SendMessageArgs

	return c.runner.Run(rw, req, SendMessageCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionSendMessage(tok, request.Handle, request.Message, request.Options, cb)
		})
}

// SignData signs data with my pairwise key. The result is the base64 encoded signature.
func (c *Command) SignData(rw io.Writer, req io.Reader) command.Error {
	var request SignDataArgs

	return c.runner.Run(rw, req, SignDataCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ConnectionSignData(tok, request.Handle, request.Data, cb)
	})
}

// VerifySignature checks a signature of the remote pairwise key. The result tells whether it is valid.
func (c *Command) VerifySignature(rw io.Writer, req io.Reader) command.Error {
	var request VerifySignatureArgs

	return c.runner.Run(rw, req, VerifySignatureCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionVerifySignature(tok, request.Handle, request.Data, request.Signature, cb)
		})
}

// SendPing sends a trust ping.
func (c *Command) SendPing(rw io.Writer, req io.Reader) command.Error {
	var request SendPingArgs

	return c.runner.Run(rw, req, SendPingCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ConnectionSendPing(tok, request.Handle, request.Comment, cb)
	})
}

// SendDiscoveryFeatures asks the remote party which protocols it supports.
func (c *Command) SendDiscoveryFeatures(rw io.Writer, req io.Reader) command.Error {
	var request DiscoverFeaturesArgs

	return c.runner.Run(rw, req, SendDiscoveryFeaturesCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionSendDiscoveryFeatures(tok, request.Handle, request.Query, request.Comment, cb)
		})
}

// SendAnswer answers a received question.
func (c *Command) SendAnswer(rw io.Writer, req io.Reader) command.Error {
	var request SendAnswerArgs

	return c.runner.Run(rw, req, SendAnswerCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionSendAnswer(tok, request.Handle, command.Unquote(request.Question),
				command.Unquote(request.Answer), cb)
		})
}

// SendReuse answers an out-of-band invitation over an existing connection.
func (c *Command) SendReuse(rw io.Writer, req io.Reader) command.Error {
	var request SendReuseArgs

	return c.runner.Run(rw, req, SendReuseCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionSendReuse(tok, request.Handle, command.Unquote(request.InviteDetails), cb)
		})
}

// Delete revokes the connection.
func (c *Command) Delete(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, DeleteCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ConnectionDelete(tok, request.Handle, cb)
	})
}

// Serialize returns the connection snapshot.
func (c *Command) Serialize(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, SerializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionSerialize(tok, request.Handle, cb)
		})
}

// Deserialize restores a connection. The result is its new handle.
func (c *Command) Deserialize(rw io.Writer, req io.Reader) command.Error {
	var request command.DeserializeArgs

	return c.runner.Run(rw, req, DeserializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.ConnectionDeserialize(tok, command.Text(request.Snapshot), cb)
		})
}

// Release invalidates the handle.
func (c *Command) Release(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, ReleaseCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.ConnectionRelease(tok, request.Handle, cb)
	})
}
