/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"net/http"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command/connection"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/rest"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

// constants for connection endpoints.
const (
	OperationID                = "/connections"
	CreateOutOfBandPath        = OperationID + "/out-of-band"
	CreateWithInvitePath       = OperationID + "/create-with-invite"
	AcceptInvitePath           = OperationID + "/accept-invite"
	DeserializePath            = OperationID + "/deserialize"
	connectionPath             = OperationID + "/{" + rest.HandleVar + "}"
	ConnectPath                = connectionPath + "/connect"
	InviteDetailsPath          = connectionPath + "/invite-details"
	UpdateStatePath            = connectionPath + "/update-state"
	UpdateStateWithMessagePath = connectionPath + "/update-state-with-message"
	StatePath                  = connectionPath + "/state"
	ProblemReportPath          = connectionPath + "/problem-report"
	InfoPath                   = connectionPath + "/info"
	PwDIDPath                  = connectionPath + "/pw-did"
	TheirPwDIDPath             = connectionPath + "/their-pw-did"
	SendMessagePath            = connectionPath + "/send-message"
	SignDataPath               = connectionPath + "/sign-data"
	VerifySignaturePath        = connectionPath + "/verify-signature"
	SendPingPath               = connectionPath + "/send-ping"
	SendDiscoveryFeaturesPath  = connectionPath + "/send-discovery-features"
	SendAnswerPath             = connectionPath + "/send-answer"
	SendReusePath              = connectionPath + "/send-reuse"
	SerializePath              = connectionPath + "/serialize"
	ReleasePath                = connectionPath + "/release"
)

// Operation is the REST controller for connections.
type Operation struct {
	command  *connection.Command
	handlers []rest.Handler
}

// New returns new connection rest controller.
func New(e *engine.Engine, notifier command.Notifier, opts ...cmdutil.RunnerOpt) *Operation {
	op := &Operation{command: connection.New(e, notifier, opts...)}
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
		cmdutil.NewHTTPHandler(OperationID, http.MethodPost, c.Create),
		cmdutil.NewHTTPHandler(CreateOutOfBandPath, http.MethodPost, c.CreateOutOfBand),
		cmdutil.NewHTTPHandler(CreateWithInvitePath, http.MethodPost, c.CreateWithInvite),
		cmdutil.NewHTTPHandler(AcceptInvitePath, http.MethodPost, c.AcceptInvite),
		cmdutil.NewHTTPHandler(DeserializePath, http.MethodPost, c.Deserialize),
		cmdutil.NewHTTPHandler(ConnectPath, http.MethodPost, c.Connect),
		cmdutil.NewHTTPHandler(InviteDetailsPath, http.MethodPost, c.InviteDetails),
		cmdutil.NewHTTPHandler(UpdateStatePath, http.MethodPost, c.UpdateState),
		cmdutil.NewHTTPHandler(UpdateStateWithMessagePath, http.MethodPost, c.UpdateStateWithMessage),
		cmdutil.NewHTTPHandler(StatePath, http.MethodPost, c.GetState),
		cmdutil.NewHTTPHandler(ProblemReportPath, http.MethodPost, c.ProblemReport),
		cmdutil.NewHTTPHandler(InfoPath, http.MethodPost, c.Info),
		cmdutil.NewHTTPHandler(PwDIDPath, http.MethodPost, c.PwDID),
		cmdutil.NewHTTPHandler(TheirPwDIDPath, http.MethodPost, c.TheirPwDID),
		cmdutil.NewHTTPHandler(SendMessagePath, http.MethodPost, c.SendMessage),
		cmdutil.NewHTTPHandler(SignDataPath, http.MethodPost, c.SignData),
		cmdutil.NewHTTPHandler(VerifySignaturePath, http.MethodPost, c.VerifySignature),
		cmdutil.NewHTTPHandler(SendPingPath, http.MethodPost, c.SendPing),
		cmdutil.NewHTTPHandler(SendDiscoveryFeaturesPath, http.MethodPost, c.SendDiscoveryFeatures),
		cmdutil.NewHTTPHandler(SendAnswerPath, http.MethodPost, c.SendAnswer),
		cmdutil.NewHTTPHandler(SendReusePath, http.MethodPost, c.SendReuse),
		cmdutil.NewHTTPHandler(SerializePath, http.MethodPost, c.Serialize),
		cmdutil.NewHTTPHandler(ReleasePath, http.MethodPost, c.Release),
		cmdutil.NewHTTPHandler(connectionPath, http.MethodDelete, c.Delete),
	}
}

// Create swagger:route POST /connections connections createConnection
//
// Creates a connection in the initialized state.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Create(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Create, rw, req.Body)
}

// CreateOutOfBand swagger:route POST /connections/out-of-band connections createOutOfBand
//
// Creates a connection that invites with an out-of-band invitation.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) CreateOutOfBand(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateOutOfBand, rw, req.Body)
}

// CreateWithInvite swagger:route POST /connections/create-with-invite connections createWithInvite
//
// Creates an invitee connection from a received invitation.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) CreateWithInvite(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateWithInvite, rw, req.Body)
}

// AcceptInvite swagger:route POST /connections/accept-invite connections acceptInvite
//
// Creates an invitee connection and sends the connection request.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) AcceptInvite(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.AcceptInvite, rw, req.Body)
}

// Deserialize swagger:route POST /connections/deserialize connections deserializeConnection
//
// Restores a connection from its snapshot.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Deserialize(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Deserialize, rw, req.Body)
}

// Connect swagger:route POST /connections/{handle}/connect connections connect
//
// Publishes the invitation of an inviter connection.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Connect(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Connect, rw, req)
}

// InviteDetails returns the invitation of the connection.
func (c *Operation) InviteDetails(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.InviteDetails, rw, req)
}

// UpdateState swagger:route POST /connections/{handle}/update-state connections updateConnectionState
//
// Polls the agency and advances the connection.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) UpdateState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateState, rw, req)
}

// UpdateStateWithMessage feeds one received message to the connection.
func (c *Operation) UpdateStateWithMessage(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateStateWithMessage, rw, req)
}

// GetState reports the connection state.
func (c *Operation) GetState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.GetState, rw, req)
}

// ProblemReport returns the last problem report of the connection.
func (c *Operation) ProblemReport(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.ProblemReport, rw, req)
}

// Info returns the pairwise details of the connection.
func (c *Operation) Info(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Info, rw, req)
}

// PwDID returns our pairwise DID.
func (c *Operation) PwDID(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.PwDID, rw, req)
}

// TheirPwDID returns the peer's pairwise DID.
func (c *Operation) TheirPwDID(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.TheirPwDID, rw, req)
}

// SendMessage swagger:route POST /connections/{handle}/send-message connections sendMessage
//
// Sends a generic message over the connection.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) SendMessage(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SendMessage, rw, req)
}

// SignData signs data with the connection key.
func (c *Operation) SignData(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SignData, rw, req)
}

// VerifySignature verifies a signature of the peer.
func (c *Operation) VerifySignature(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.VerifySignature, rw, req)
}

// SendPing sends a trust ping.
func (c *Operation) SendPing(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SendPing, rw, req)
}

// SendDiscoveryFeatures sends a discover-features query.
func (c *Operation) SendDiscoveryFeatures(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SendDiscoveryFeatures, rw, req)
}

// SendAnswer answers a received question.
func (c *Operation) SendAnswer(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SendAnswer, rw, req)
}

// SendReuse answers an out-of-band invitation over an existing connection.
func (c *Operation) SendReuse(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SendReuse, rw, req)
}

// Serialize returns the connection snapshot.
func (c *Operation) Serialize(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Serialize, rw, req)
}

// Release invalidates the connection handle.
func (c *Operation) Release(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Release, rw, req)
}

// Delete swagger:route DELETE /connections/{handle} connections deleteConnection
//
// Deletes the connection at the agency and invalidates the handle.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Delete(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Delete, rw, req)
}
