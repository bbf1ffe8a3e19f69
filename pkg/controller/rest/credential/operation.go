/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"net/http"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command/credential"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/rest"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

// constants for holder credential endpoints.
const (
	OperationID                = "/credentials"
	CreateWithOfferPath        = OperationID + "/create-with-offer"
	CreateWithMessageIDPath    = OperationID + "/create-with-msg-id"
	OffersPath                 = OperationID + "/offers"
	DeserializePath            = OperationID + "/deserialize"
	credentialPath             = OperationID + "/{" + rest.HandleVar + "}"
	SendRequestPath            = credentialPath + "/send-request"
	RequestMessagePath         = credentialPath + "/request-message"
	UpdateStatePath            = credentialPath + "/update-state"
	UpdateStateWithMessagePath = credentialPath + "/update-state-with-message"
	StatePath                  = credentialPath + "/state"
	CredentialPath             = credentialPath + "/credential"
	InfoPath                   = credentialPath + "/info"
	RejectPath                 = credentialPath + "/reject"
	ProblemReportPath          = credentialPath + "/problem-report"
	SerializePath              = credentialPath + "/serialize"
	ReleasePath                = credentialPath + "/release"
)

// Operation is the REST controller for holder credentials.
type Operation struct {
	command  *credential.Command
	handlers []rest.Handler
}

// New returns new holder credential rest controller.
func New(e *engine.Engine, notifier command.Notifier, opts ...cmdutil.RunnerOpt) *Operation {
	op := &Operation{command: credential.New(e, notifier, opts...)}
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
		cmdutil.NewHTTPHandler(CreateWithOfferPath, http.MethodPost, c.CreateWithOffer),
		cmdutil.NewHTTPHandler(CreateWithMessageIDPath, http.MethodPost, c.CreateWithMessageID),
		cmdutil.NewHTTPHandler(OffersPath, http.MethodPost, c.Offers),
		cmdutil.NewHTTPHandler(DeserializePath, http.MethodPost, c.Deserialize),
		cmdutil.NewHTTPHandler(SendRequestPath, http.MethodPost, c.SendRequest),
		cmdutil.NewHTTPHandler(RequestMessagePath, http.MethodPost, c.RequestMessage),
		cmdutil.NewHTTPHandler(UpdateStatePath, http.MethodPost, c.UpdateState),
		cmdutil.NewHTTPHandler(UpdateStateWithMessagePath, http.MethodPost, c.UpdateStateWithMessage),
		cmdutil.NewHTTPHandler(StatePath, http.MethodPost, c.GetState),
		cmdutil.NewHTTPHandler(CredentialPath, http.MethodPost, c.Get),
		cmdutil.NewHTTPHandler(InfoPath, http.MethodPost, c.Info),
		cmdutil.NewHTTPHandler(RejectPath, http.MethodPost, c.Reject),
		cmdutil.NewHTTPHandler(ProblemReportPath, http.MethodPost, c.ProblemReport),
		cmdutil.NewHTTPHandler(SerializePath, http.MethodPost, c.Serialize),
		cmdutil.NewHTTPHandler(ReleasePath, http.MethodPost, c.Release),
		cmdutil.NewHTTPHandler(credentialPath, http.MethodDelete, c.Delete),
	}
}

// CreateWithOffer swagger:route POST /credentials/create-with-offer credentials createWithOffer
//
// Creates a holder credential from an offer message.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) CreateWithOffer(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateWithOffer, rw, req.Body)
}

// CreateWithMessageID swagger:route POST /credentials/create-with-msg-id credentials createWithMessageID
//
// Creates a holder credential from an offer waiting at the agency.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) CreateWithMessageID(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateWithMessageID, rw, req.Body)
}

// Offers swagger:route POST /credentials/offers credentials credentialOffers
//
// Lists the credential offers received on a connection.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Offers(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Offers, rw, req.Body)
}

// Deserialize restores a holder credential from its snapshot.
func (c *Operation) Deserialize(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Deserialize, rw, req.Body)
}

// SendRequest sends the credential request.
func (c *Operation) SendRequest(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SendRequest, rw, req)
}

// RequestMessage builds the credential request without sending it.
func (c *Operation) RequestMessage(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.RequestMessage, rw, req)
}

// UpdateState polls the agency and advances the credential.
func (c *Operation) UpdateState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateState, rw, req)
}

// UpdateStateWithMessage feeds one received message to the credential.
func (c *Operation) UpdateStateWithMessage(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateStateWithMessage, rw, req)
}

// GetState reports the credential state.
func (c *Operation) GetState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.GetState, rw, req)
}

// Get returns the issued credential.
func (c *Operation) Get(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Get, rw, req)
}

// Info returns the attributes and ids of the issued credential.
func (c *Operation) Info(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Info, rw, req)
}

// Reject declines the offer with a problem report.
func (c *Operation) Reject(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Reject, rw, req)
}

// ProblemReport returns the last problem report of the exchange.
func (c *Operation) ProblemReport(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.ProblemReport, rw, req)
}

// Serialize returns the credential snapshot.
func (c *Operation) Serialize(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Serialize, rw, req)
}

// Release invalidates the credential handle.
func (c *Operation) Release(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Release, rw, req)
}

// Delete swagger:route DELETE /credentials/{handle} credentials deleteCredential
//
// Deletes the stored credential and invalidates the handle.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Delete(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Delete, rw, req)
}
