/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuercredential

import (
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

var logger = log.New("vcx-agent/command/issuercredential")

// constants for issuer credential, schema and credential definition commands.
const (
	CommandName = "issuercredential"

	CreateCommandMethod                 = "Create"
	OfferMessageCommandMethod           = "OfferMessage"
	SendOfferCommandMethod              = "SendOffer"
	SendCredentialCommandMethod         = "SendCredential"
	UpdateStateCommandMethod            = "UpdateState"
	UpdateStateWithMessageCommandMethod = "UpdateStateWithMessage"
	GetRequestCommandMethod             = "GetRequest"
	TerminateCommandMethod              = "Terminate"
	GetStateCommandMethod               = "GetState"
	ProblemReportCommandMethod          = "ProblemReport"
	SerializeCommandMethod              = "Serialize"
	DeserializeCommandMethod            = "Deserialize"
	ReleaseCommandMethod                = "Release"

	SchemaCreateCommandMethod      = "SchemaCreate"
	SchemaGetIDCommandMethod       = "SchemaGetID"
	SchemaSerializeCommandMethod   = "SchemaSerialize"
	SchemaDeserializeCommandMethod = "SchemaDeserialize"
	SchemaReleaseCommandMethod     = "SchemaRelease"

	CredentialDefCreateCommandMethod      = "CredentialDefCreate"
	CredentialDefGetIDCommandMethod       = "CredentialDefGetID"
	CredentialDefSerializeCommandMethod   = "CredentialDefSerialize"
	CredentialDefDeserializeCommandMethod = "CredentialDefDeserialize"
	CredentialDefReleaseCommandMethod     = "CredentialDefRelease"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.IssueCredential + 100)

	// RejectedErrorCode is for operations the engine refused to start.
	RejectedErrorCode

	// ExecuteErrorCode is for awaited operations that completed with an error.
	ExecuteErrorCode
)

// Command is the controller command for credentials issued by this agent.
type Command struct {
	engine *engine.Engine
	runner *cmdutil.Runner
}

// New returns a new issuer credential controller command.
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
		cmdutil.NewCommandHandler(CommandName, OfferMessageCommandMethod, c.OfferMessage),
		cmdutil.NewCommandHandler(CommandName, SendOfferCommandMethod, c.SendOffer),
		cmdutil.NewCommandHandler(CommandName, SendCredentialCommandMethod, c.SendCredential),
		cmdutil.NewCommandHandler(CommandName, UpdateStateCommandMethod, c.UpdateState),
		cmdutil.NewCommandHandler(CommandName, UpdateStateWithMessageCommandMethod, c.UpdateStateWithMessage),
		cmdutil.NewCommandHandler(CommandName, GetRequestCommandMethod, c.GetRequest),
		cmdutil.NewCommandHandler(CommandName, TerminateCommandMethod, c.Terminate),
		cmdutil.NewCommandHandler(CommandName, GetStateCommandMethod, c.GetState),
		cmdutil.NewCommandHandler(CommandName, ProblemReportCommandMethod, c.ProblemReport),
		cmdutil.NewCommandHandler(CommandName, SerializeCommandMethod, c.Serialize),
		cmdutil.NewCommandHandler(CommandName, DeserializeCommandMethod, c.Deserialize),
		cmdutil.NewCommandHandler(CommandName, ReleaseCommandMethod, c.Release),
		cmdutil.NewCommandHandler(CommandName, SchemaCreateCommandMethod, c.SchemaCreate),
		cmdutil.NewCommandHandler(CommandName, SchemaGetIDCommandMethod, c.SchemaGetID),
		cmdutil.NewCommandHandler(CommandName, SchemaSerializeCommandMethod, c.SchemaSerialize),
		cmdutil.NewCommandHandler(CommandName, SchemaDeserializeCommandMethod, c.SchemaDeserialize),
		cmdutil.NewCommandHandler(CommandName, SchemaReleaseCommandMethod, c.SchemaRelease),
		cmdutil.NewCommandHandler(CommandName, CredentialDefCreateCommandMethod, c.CredentialDefCreate),
		cmdutil.NewCommandHandler(CommandName, CredentialDefGetIDCommandMethod, c.CredentialDefGetID),
		cmdutil.NewCommandHandler(CommandName, CredentialDefSerializeCommandMethod, c.CredentialDefSerialize),
		cmdutil.NewCommandHandler(CommandName, CredentialDefDeserializeCommandMethod, c.CredentialDefDeserialize),
		cmdutil.NewCommandHandler(CommandName, CredentialDefReleaseCommandMethod, c.CredentialDefRelease),
	}
}

// Create creates an issuer credential. The result is its handle.
func (c *Command) Create(rw io.Writer, req io.Reader) command.Error {
	var request CreateArgs

	return c.runner.Run(rw, req, CreateCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.IssuerCredentialCreate(tok, request.SourceID, request.CredDefHandle, request.CredDefID,
			command.Unquote(request.Attrs), request.Name, cb)
	})
}

// OfferMessage returns the offer without sending it.
func (c *Command) OfferMessage(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, OfferMessageCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.IssuerCredentialOfferMessage(tok, request.Handle, cb)
		})
}

// SendOffer sends the offer over a connection.
func (c *Command) SendOffer(rw io.Writer, req io.Reader) command.Error {
	var request command.ExchangeArgs

	return c.runner.Run(rw, req, SendOfferCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.IssuerCredentialSendOffer(tok, request.Handle, request.ConnectionHandle, cb)
		})
}

// SendCredential signs and sends the requested credential.
func (c *Command) SendCredential(rw io.Writer, req io.Reader) command.Error {
	var request command.ExchangeArgs

	return c.runner.Run(rw, req, SendCredentialCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.IssuerCredentialSendCredential(tok, request.Handle, request.ConnectionHandle, cb)
		})
}

// UpdateState polls the connection for the holder's answer. The result is the state.
func (c *Command) UpdateState(rw io.Writer, req io.Reader) command.Error {
	var request command.ExchangeArgs

	return c.runner.Run(rw, req, UpdateStateCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.IssuerCredentialUpdateState(tok, request.Handle, request.ConnectionHandle, cb)
		})
}

// UpdateStateWithMessage feeds one message to the issuer credential. The result is the state.
func (c *Command) UpdateStateWithMessage(rw io.Writer, req io.Reader) command.Error {
	var request command.UpdateWithMessageArgs

	return c.runner.Run(rw, req, UpdateStateWithMessageCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.IssuerCredentialUpdateStateWithMessage(tok, request.Handle,
				command.Unquote(request.Message), cb)
		})
}

// GetRequest returns the credential request received from the holder.
func (c *Command) GetRequest(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, GetRequestCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.IssuerCredentialGetRequest(tok, request.Handle, cb)
		})
}

// Terminate abandons the issuance. The result is the state.
func (c *Command) Terminate(rw io.Writer, req io.Reader) command.Error {
	var request TerminateArgs

	return c.runner.Run(rw, req, TerminateCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.IssuerCredentialTerminate(tok, request.Handle, request.ConnectionHandle, request.Comment, cb)
		})
}

// GetState reports the state.
func (c *Command) GetState(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, GetStateCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.IssuerCredentialGetState(tok, request.Handle, cb)
	})
}

// ProblemReport returns the last problem report.
func (c *Command) ProblemReport(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, ProblemReportCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.IssuerCredentialProblemReport(tok, request.Handle, cb)
		})
}

// Serialize returns the issuer credential snapshot.
func (c *Command) Serialize(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, SerializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.IssuerCredentialSerialize(tok, request.Handle, cb)
		})
}

// Deserialize restores an issuer credential. The result is its new handle.
func (c *Command) Deserialize(rw io.Writer, req io.Reader) command.Error {
	var request command.DeserializeArgs

	return c.runner.Run(rw, req, DeserializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.IssuerCredentialDeserialize(tok, command.Text(request.Snapshot), cb)
		})
}

// Release invalidates the handle.
func (c *Command) Release(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, ReleaseCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.IssuerCredentialRelease(tok, request.Handle, cb)
	})
}

// SchemaCreate publishes a schema. The result holds the handle and the schema id.
func (c *Command) SchemaCreate(rw io.Writer, req io.Reader) command.Error {
	var request SchemaCreateArgs

	return c.runner.Run(rw, req, SchemaCreateCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.SchemaCreate(tok, request.SourceID, request.Name, request.Version,
				command.Unquote(request.Attrs), cb)
		})
}

// SchemaGetID returns the ledger id of the schema.
func (c *Command) SchemaGetID(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, SchemaGetIDCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.SchemaGetID(tok, request.Handle, cb)
		})
}

// SchemaSerialize returns the schema snapshot.
func (c *Command) SchemaSerialize(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, SchemaSerializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.SchemaSerialize(tok, request.Handle, cb)
		})
}

// SchemaDeserialize restores a schema.
func (c *Command) SchemaDeserialize(rw io.Writer, req io.Reader) command.Error {
	var request command.DeserializeArgs

	return c.runner.Run(rw, req, SchemaDeserializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.SchemaDeserialize(tok, command.Text(request.Snapshot), cb)
		})
}

// SchemaRelease invalidates the schema handle.
func (c *Command) SchemaRelease(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, SchemaReleaseCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.SchemaRelease(tok, request.Handle, cb)
		})
}

// CredentialDefCreate publishes a credential definition. The result holds the handle and the id.
func (c *Command) CredentialDefCreate(rw io.Writer, req io.Reader) command.Error {
	var request CredentialDefCreateArgs

	return c.runner.Run(rw, req, CredentialDefCreateCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialDefCreate(tok, request.SourceID, request.SchemaID, request.Tag, cb)
		})
}

// CredentialDefGetID returns the ledger id of the credential definition.
func (c *Command) CredentialDefGetID(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, CredentialDefGetIDCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialDefGetID(tok, request.Handle, cb)
		})
}

// CredentialDefSerialize returns the credential definition snapshot.
func (c *Command) CredentialDefSerialize(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, CredentialDefSerializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialDefSerialize(tok, request.Handle, cb)
		})
}

// CredentialDefDeserialize restores a credential definition.
func (c *Command) CredentialDefDeserialize(rw io.Writer, req io.Reader) command.Error {
	var request command.DeserializeArgs

	return c.runner.Run(rw, req, CredentialDefDeserializeCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialDefDeserialize(tok, command.Text(request.Snapshot), cb)
		})
}

// CredentialDefRelease invalidates the credential definition handle.
func (c *Command) CredentialDefRelease(rw io.Writer, req io.Reader) command.Error {
	var request command.HandleArgs

	return c.runner.Run(rw, req, CredentialDefReleaseCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.CredentialDefRelease(tok, request.Handle, cb)
		})
}
