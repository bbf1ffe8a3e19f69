/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package disclosedproof

import (
	"net/http"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command/disclosedproof"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/rest"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

// constants for prover endpoints.
const (
	OperationID                = "/disclosed-proofs"
	CreateWithRequestPath      = OperationID + "/create-with-request"
	CreateWithMessageIDPath    = OperationID + "/create-with-msg-id"
	CreateProposalPath         = OperationID + "/create-proposal"
	RequestsPath               = OperationID + "/requests"
	DeserializePath            = OperationID + "/deserialize"
	disclosedProofPath         = OperationID + "/{" + rest.HandleVar + "}"
	RetrieveCredentialsPath    = disclosedProofPath + "/retrieve-credentials"
	GenerateProofPath          = disclosedProofPath + "/generate-proof"
	SendProofPath              = disclosedProofPath + "/send-proof"
	ProofMessagePath           = disclosedProofPath + "/proof-message"
	RequestPath                = disclosedProofPath + "/request"
	DeclinePath                = disclosedProofPath + "/decline"
	RejectPath                 = disclosedProofPath + "/reject"
	SendProposalPath           = disclosedProofPath + "/send-proposal"
	UpdateStatePath            = disclosedProofPath + "/update-state"
	UpdateStateWithMessagePath = disclosedProofPath + "/update-state-with-message"
	StatePath                  = disclosedProofPath + "/state"
	ProblemReportPath          = disclosedProofPath + "/problem-report"
	SerializePath              = disclosedProofPath + "/serialize"
	ReleasePath                = disclosedProofPath + "/release"
)

// Operation is the REST controller for prover proofs.
type Operation struct {
	command  *disclosedproof.Command
	handlers []rest.Handler
}

// New returns new prover rest controller.
func New(e *engine.Engine, notifier command.Notifier, opts ...cmdutil.RunnerOpt) *Operation {
	op := &Operation{command: disclosedproof.New(e, notifier, opts...)}
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
		cmdutil.NewHTTPHandler(CreateWithRequestPath, http.MethodPost, c.CreateWithRequest),
		cmdutil.NewHTTPHandler(CreateWithMessageIDPath, http.MethodPost, c.CreateWithMessageID),
		cmdutil.NewHTTPHandler(CreateProposalPath, http.MethodPost, c.CreateProposal),
		cmdutil.NewHTTPHandler(RequestsPath, http.MethodPost, c.Requests),
		cmdutil.NewHTTPHandler(DeserializePath, http.MethodPost, c.Deserialize),
		cmdutil.NewHTTPHandler(RetrieveCredentialsPath, http.MethodPost, c.RetrieveCredentials),
		cmdutil.NewHTTPHandler(GenerateProofPath, http.MethodPost, c.GenerateProof),
		cmdutil.NewHTTPHandler(SendProofPath, http.MethodPost, c.SendProof),
		cmdutil.NewHTTPHandler(ProofMessagePath, http.MethodPost, c.ProofMessage),
		cmdutil.NewHTTPHandler(RequestPath, http.MethodPost, c.Request),
		cmdutil.NewHTTPHandler(DeclinePath, http.MethodPost, c.Decline),
		cmdutil.NewHTTPHandler(RejectPath, http.MethodPost, c.Reject),
		cmdutil.NewHTTPHandler(SendProposalPath, http.MethodPost, c.SendProposal),
		cmdutil.NewHTTPHandler(UpdateStatePath, http.MethodPost, c.UpdateState),
		cmdutil.NewHTTPHandler(UpdateStateWithMessagePath, http.MethodPost, c.UpdateStateWithMessage),
		cmdutil.NewHTTPHandler(StatePath, http.MethodPost, c.GetState),
		cmdutil.NewHTTPHandler(ProblemReportPath, http.MethodPost, c.ProblemReport),
		cmdutil.NewHTTPHandler(SerializePath, http.MethodPost, c.Serialize),
		cmdutil.NewHTTPHandler(ReleasePath, http.MethodPost, c.Release),
	}
}

// CreateWithRequest swagger:route POST /disclosed-proofs/create-with-request disclosed-proofs createWithRequest
//
// Creates a disclosed proof from a presentation request message.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) CreateWithRequest(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateWithRequest, rw, req.Body)
}

// CreateWithMessageID creates a disclosed proof from a request waiting at the agency.
func (c *Operation) CreateWithMessageID(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateWithMessageID, rw, req.Body)
}

// CreateProposal creates a disclosed proof that starts with a presentation proposal.
func (c *Operation) CreateProposal(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateProposal, rw, req.Body)
}

// Requests swagger:route POST /disclosed-proofs/requests disclosed-proofs proofRequests
//
// Lists the presentation requests received on a connection.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Requests(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Requests, rw, req.Body)
}

// Deserialize restores a disclosed proof from its snapshot.
func (c *Operation) Deserialize(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Deserialize, rw, req.Body)
}

// RetrieveCredentials lists the stored credentials matching each requested attribute.
func (c *Operation) RetrieveCredentials(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.RetrieveCredentials, rw, req)
}

// GenerateProof swagger:route POST /disclosed-proofs/{handle}/generate-proof disclosed-proofs generateProof
//
// Builds the presentation from selected credentials and self-attested values.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) GenerateProof(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.GenerateProof, rw, req)
}

// SendProof sends the generated presentation.
func (c *Operation) SendProof(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SendProof, rw, req)
}

// ProofMessage returns the generated presentation message.
func (c *Operation) ProofMessage(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.ProofMessage, rw, req)
}

// Request returns the presentation request being answered.
func (c *Operation) Request(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Request, rw, req)
}

// Decline declines the request with a reason or a counter proposal.
func (c *Operation) Decline(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Decline, rw, req)
}

// Reject rejects the request with a problem report.
func (c *Operation) Reject(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Reject, rw, req)
}

// SendProposal sends the presentation proposal.
func (c *Operation) SendProposal(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SendProposal, rw, req)
}

// UpdateState polls the agency and advances the disclosed proof.
func (c *Operation) UpdateState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateState, rw, req)
}

// UpdateStateWithMessage feeds one received message to the disclosed proof.
func (c *Operation) UpdateStateWithMessage(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateStateWithMessage, rw, req)
}

// GetState reports the disclosed proof state.
func (c *Operation) GetState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.GetState, rw, req)
}

// ProblemReport returns the last problem report of the exchange.
func (c *Operation) ProblemReport(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.ProblemReport, rw, req)
}

// Serialize returns the disclosed proof snapshot.
func (c *Operation) Serialize(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Serialize, rw, req)
}

// Release invalidates the disclosed proof handle.
func (c *Operation) Release(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Release, rw, req)
}
