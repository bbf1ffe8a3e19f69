/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuercredential

import (
	"net/http"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command/issuercredential"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/rest"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

// constants for issuer endpoints.
const (
	OperationID                = "/issuer-credentials"
	DeserializePath            = OperationID + "/deserialize"
	issuerCredentialPath       = OperationID + "/{" + rest.HandleVar + "}"
	OfferMessagePath           = issuerCredentialPath + "/offer-message"
	SendOfferPath              = issuerCredentialPath + "/send-offer"
	SendCredentialPath         = issuerCredentialPath + "/send-credential"
	UpdateStatePath            = issuerCredentialPath + "/update-state"
	UpdateStateWithMessagePath = issuerCredentialPath + "/update-state-with-message"
	RequestPath                = issuerCredentialPath + "/request"
	TerminatePath              = issuerCredentialPath + "/terminate"
	StatePath                  = issuerCredentialPath + "/state"
	ProblemReportPath          = issuerCredentialPath + "/problem-report"
	SerializePath              = issuerCredentialPath + "/serialize"
	ReleasePath                = issuerCredentialPath + "/release"

	SchemasPath            = "/schemas"
	SchemaDeserializePath  = SchemasPath + "/deserialize"
	schemaPath             = SchemasPath + "/{" + rest.HandleVar + "}"
	SchemaIDPath           = schemaPath + "/id"
	SchemaSerializePath    = schemaPath + "/serialize"
	SchemaReleasePath      = schemaPath + "/release"
	CredentialDefsPath     = "/credential-definitions"
	CredDefDeserializePath = CredentialDefsPath + "/deserialize"
	credDefPath            = CredentialDefsPath + "/{" + rest.HandleVar + "}"
	CredDefIDPath          = credDefPath + "/id"
	CredDefSerializePath   = credDefPath + "/serialize"
	CredDefReleasePath     = credDefPath + "/release"
)

// Operation is the REST controller for issuing credentials and publishing their ledger objects.
type Operation struct {
	command  *issuercredential.Command
	handlers []rest.Handler
}

// New returns new issuer rest controller.
func New(e *engine.Engine, notifier command.Notifier, opts ...cmdutil.RunnerOpt) *Operation {
	op := &Operation{command: issuercredential.New(e, notifier, opts...)}
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
		cmdutil.NewHTTPHandler(DeserializePath, http.MethodPost, c.Deserialize),
		cmdutil.NewHTTPHandler(OfferMessagePath, http.MethodPost, c.OfferMessage),
		cmdutil.NewHTTPHandler(SendOfferPath, http.MethodPost, c.SendOffer),
		cmdutil.NewHTTPHandler(SendCredentialPath, http.MethodPost, c.SendCredential),
		cmdutil.NewHTTPHandler(UpdateStatePath, http.MethodPost, c.UpdateState),
		cmdutil.NewHTTPHandler(UpdateStateWithMessagePath, http.MethodPost, c.UpdateStateWithMessage),
		cmdutil.NewHTTPHandler(RequestPath, http.MethodPost, c.GetRequest),
		cmdutil.NewHTTPHandler(TerminatePath, http.MethodPost, c.Terminate),
		cmdutil.NewHTTPHandler(StatePath, http.MethodPost, c.GetState),
		cmdutil.NewHTTPHandler(ProblemReportPath, http.MethodPost, c.ProblemReport),
		cmdutil.NewHTTPHandler(SerializePath, http.MethodPost, c.Serialize),
		cmdutil.NewHTTPHandler(ReleasePath, http.MethodPost, c.Release),
		cmdutil.NewHTTPHandler(SchemasPath, http.MethodPost, c.SchemaCreate),
		cmdutil.NewHTTPHandler(SchemaDeserializePath, http.MethodPost, c.SchemaDeserialize),
		cmdutil.NewHTTPHandler(SchemaIDPath, http.MethodPost, c.SchemaGetID),
		cmdutil.NewHTTPHandler(SchemaSerializePath, http.MethodPost, c.SchemaSerialize),
		cmdutil.NewHTTPHandler(SchemaReleasePath, http.MethodPost, c.SchemaRelease),
		cmdutil.NewHTTPHandler(CredentialDefsPath, http.MethodPost, c.CredentialDefCreate),
		cmdutil.NewHTTPHandler(CredDefDeserializePath, http.MethodPost, c.CredentialDefDeserialize),
		cmdutil.NewHTTPHandler(CredDefIDPath, http.MethodPost, c.CredentialDefGetID),
		cmdutil.NewHTTPHandler(CredDefSerializePath, http.MethodPost, c.CredentialDefSerialize),
		cmdutil.NewHTTPHandler(CredDefReleasePath, http.MethodPost, c.CredentialDefRelease),
	}
}

// Create swagger:route POST /issuer-credentials issuer createIssuerCredential
//
// Creates an issuer credential for a credential definition and attribute values.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Create(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Create, rw, req.Body)
}

// Deserialize restores an issuer credential from its snapshot.
func (c *Operation) Deserialize(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Deserialize, rw, req.Body)
}

// OfferMessage builds the offer without sending it.
func (c *Operation) OfferMessage(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.OfferMessage, rw, req)
}

// SendOffer swagger:route POST /issuer-credentials/{handle}/send-offer issuer sendOffer
//
// Sends the credential offer over a connection.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) SendOffer(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SendOffer, rw, req)
}

// SendCredential swagger:route POST /issuer-credentials/{handle}/send-credential issuer sendCredential
//
// Issues and sends the credential for the received request.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) SendCredential(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SendCredential, rw, req)
}

// UpdateState polls the agency and advances the exchange.
func (c *Operation) UpdateState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateState, rw, req)
}

// UpdateStateWithMessage feeds one received message to the exchange.
func (c *Operation) UpdateStateWithMessage(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateStateWithMessage, rw, req)
}

// GetRequest returns the holder's credential request.
func (c *Operation) GetRequest(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.GetRequest, rw, req)
}

// Terminate swagger:route POST /issuer-credentials/{handle}/terminate issuer terminateIssuerCredential
//
// Abandons the issuance and reports it to the holder.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Terminate(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Terminate, rw, req)
}

// GetState reports the exchange state.
func (c *Operation) GetState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.GetState, rw, req)
}

// ProblemReport returns the holder's problem report.
func (c *Operation) ProblemReport(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.ProblemReport, rw, req)
}

// Serialize returns the issuer credential snapshot.
func (c *Operation) Serialize(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Serialize, rw, req)
}

// Release invalidates the issuer credential handle.
func (c *Operation) Release(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Release, rw, req)
}

// SchemaCreate swagger:route POST /schemas issuer createSchema
//
// Publishes a schema on the ledger.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) SchemaCreate(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SchemaCreate, rw, req.Body)
}

// SchemaDeserialize restores a schema from its snapshot.
func (c *Operation) SchemaDeserialize(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SchemaDeserialize, rw, req.Body)
}

// SchemaGetID returns the ledger id of the schema.
func (c *Operation) SchemaGetID(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SchemaGetID, rw, req)
}

// SchemaSerialize returns the schema snapshot.
func (c *Operation) SchemaSerialize(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SchemaSerialize, rw, req)
}

// SchemaRelease invalidates the schema handle.
func (c *Operation) SchemaRelease(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SchemaRelease, rw, req)
}

// CredentialDefCreate swagger:route POST /credential-definitions issuer createCredentialDef
//
// Publishes a credential definition for a schema on the ledger.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) CredentialDefCreate(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CredentialDefCreate, rw, req.Body)
}

// CredentialDefDeserialize restores a credential definition from its snapshot.
func (c *Operation) CredentialDefDeserialize(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CredentialDefDeserialize, rw, req.Body)
}

// CredentialDefGetID returns the ledger id of the credential definition.
func (c *Operation) CredentialDefGetID(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.CredentialDefGetID, rw, req)
}

// CredentialDefSerialize returns the credential definition snapshot.
func (c *Operation) CredentialDefSerialize(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.CredentialDefSerialize, rw, req)
}

// CredentialDefRelease invalidates the credential definition handle.
func (c *Operation) CredentialDefRelease(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.CredentialDefRelease, rw, req)
}
