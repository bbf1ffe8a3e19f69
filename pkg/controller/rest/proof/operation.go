/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"net/http"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command/proof"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/rest"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

// constants for verifier endpoints.
const (
	OperationID                = "/proofs"
	DeserializePath            = OperationID + "/deserialize"
	CreateWithProposalPath     = OperationID + "/with-proposal"
	proofPath                  = OperationID + "/{" + rest.HandleVar + "}"
	ProposalPath               = proofPath + "/proposal"
	SetConnectionPath          = proofPath + "/set-connection"
	RequestMessagePath         = proofPath + "/request-message"
	SendRequestPath            = proofPath + "/send-request"
	UpdateStatePath            = proofPath + "/update-state"
	UpdateStateWithMessagePath = proofPath + "/update-state-with-message"
	StatePath                  = proofPath + "/state"
	ProofPath                  = proofPath + "/proof"
	ProblemReportPath          = proofPath + "/problem-report"
	SerializePath              = proofPath + "/serialize"
	ReleasePath                = proofPath + "/release"
)

// Operation is the REST controller for verifier proofs.
type Operation struct {
	command  *proof.Command
	handlers []rest.Handler
}

// New returns new verifier rest controller.
func New(e *engine.Engine, notifier command.Notifier, opts ...cmdutil.RunnerOpt) *Operation {
	op := &Operation{command: proof.New(e, notifier, opts...)}
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
		cmdutil.NewHTTPHandler(CreateWithProposalPath, http.MethodPost, c.CreateWithProposal),
		cmdutil.NewHTTPHandler(ProposalPath, http.MethodPost, c.GetProposal),
		cmdutil.NewHTTPHandler(SetConnectionPath, http.MethodPost, c.SetConnection),
		cmdutil.NewHTTPHandler(RequestMessagePath, http.MethodPost, c.RequestMessage),
		cmdutil.NewHTTPHandler(SendRequestPath, http.MethodPost, c.SendRequest),
		cmdutil.NewHTTPHandler(UpdateStatePath, http.MethodPost, c.UpdateState),
		cmdutil.NewHTTPHandler(UpdateStateWithMessagePath, http.MethodPost, c.UpdateStateWithMessage),
		cmdutil.NewHTTPHandler(StatePath, http.MethodPost, c.GetState),
		cmdutil.NewHTTPHandler(ProofPath, http.MethodPost, c.GetProof),
		cmdutil.NewHTTPHandler(ProblemReportPath, http.MethodPost, c.ProblemReport),
		cmdutil.NewHTTPHandler(SerializePath, http.MethodPost, c.Serialize),
		cmdutil.NewHTTPHandler(ReleasePath, http.MethodPost, c.Release),
	}
}

// Create swagger:route POST /proofs proofs createProof
//
// Creates a proof request for attributes and predicates.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Create(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Create, rw, req.Body)
}

// Deserialize restores a proof from its snapshot.
func (c *Operation) Deserialize(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Deserialize, rw, req.Body)
}

// CreateWithProposal swagger:route POST /proofs/with-proposal proofs createProofWithProposal
//
// Creates a proof request answering a presentation proposal of the prover.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) CreateWithProposal(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateWithProposal, rw, req.Body)
}

// GetProposal returns the prover's last presentation proposal.
func (c *Operation) GetProposal(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.GetProposal, rw, req)
}

// SetConnection binds the proof to a connection.
func (c *Operation) SetConnection(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SetConnection, rw, req)
}

// RequestMessage builds the presentation request without sending it.
func (c *Operation) RequestMessage(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.RequestMessage, rw, req)
}

// SendRequest swagger:route POST /proofs/{handle}/send-request proofs sendProofRequest
//
// Sends the presentation request over a connection.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) SendRequest(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.SendRequest, rw, req)
}

// UpdateState polls the agency and verifies a received presentation.
func (c *Operation) UpdateState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateState, rw, req)
}

// UpdateStateWithMessage feeds one received message to the proof.
func (c *Operation) UpdateStateWithMessage(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateStateWithMessage, rw, req)
}

// GetState reports the proof state.
func (c *Operation) GetState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.GetState, rw, req)
}

// GetProof swagger:route POST /proofs/{handle}/proof proofs getProof
//
// Returns the verification result and the received presentation.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) GetProof(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.GetProof, rw, req)
}

// ProblemReport returns the prover's problem report.
func (c *Operation) ProblemReport(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.ProblemReport, rw, req)
}

// Serialize returns the proof snapshot.
func (c *Operation) Serialize(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Serialize, rw, req)
}

// Release invalidates the proof handle.
func (c *Operation) Release(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Release, rw, req)
}
