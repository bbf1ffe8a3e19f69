/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package disclosedproof implements the prover side of the present proof protocol.
package disclosedproof

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/proof"
	"github.com/topcoder-platform/mobilewallet/pkg/snapshot"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

var logger = log.New("vcx-agent/disclosedproof")

// SnapshotKind tags serialized disclosed proofs.
const SnapshotKind = "disclosed_proof"

const problemCodeDeclined = "request_declined"

// Provider supplies the collaborators of the prover.
type Provider interface {
	Wallet() wallet.Wallet
	Transport() transport.Transport
}

// Connection is the pairwise connection the exchange runs over.
type Connection interface {
	Accepted() bool
	Verkey() string
	Destination() (*transport.Destination, error)
}

type record struct {
	SourceID        string                     `json:"source_id"`
	ThreadID        string                     `json:"thread_id"`
	ConnectionDID   string                     `json:"connection_did,omitempty"`
	RequestMsg      protocol.Message           `json:"request_msg,omitempty"`
	Request         *credformat.ProofRequest   `json:"request,omitempty"`
	Presentation    *credformat.Presentation   `json:"presentation,omitempty"`
	PresentationID  string                     `json:"presentation_id,omitempty"`
	Proposal        *proof.PresentationPreview `json:"proposal,omitempty"`
	ProposalComment string                     `json:"proposal_comment,omitempty"`
	ProblemReport   *protocol.ProblemReport    `json:"problem_report,omitempty"`
	ReportedByPeer  bool                       `json:"reported_by_peer,omitempty"`
}

type snapshotData struct {
	State string `json:"state"`
	record
}

func send(c *execContext, msg interface{}) error {
	if c.conn == nil {
		return vcxerr.New(vcxerr.InvalidState, "disclosed proof %s has no connection", c.rec.SourceID)
	}

	dest, err := c.conn.Destination()
	if err != nil {
		return err
	}

	m, err := protocol.NewMessageFromStruct(msg)
	if err != nil {
		return err
	}

	if err := c.p.Transport().Send(c.ctx, dest, m); err != nil {
		return vcxerr.Collaborator(err, "send %s", m.Type())
	}

	return nil
}

// parseRequest accepts a request-presentation message or a bare proof request, which is wrapped into a message.
func parseRequest(raw []byte) (protocol.Message, *credformat.ProofRequest, error) {
	msg, err := protocol.NewMessage(raw)
	if err == nil {
		_, req, perr := proof.ParseRequest(msg)

		return msg, req, perr
	}

	bare := &credformat.ProofRequest{}
	if jerr := json.Unmarshal(raw, bare); jerr != nil || bare.Nonce == "" || len(bare.RequestedAttributes) == 0 {
		return nil, nil, err
	}

	attach, aerr := protocol.NewJSONAttachment(credformat.ProofRequestAttachID, bare)
	if aerr != nil {
		return nil, nil, aerr
	}

	msg = protocol.MustMessage(&proof.RequestPresentation{
		Header:                     protocol.NewHeader(protocol.RequestPresentationMsgType),
		RequestPresentationsAttach: []protocol.Attachment{attach},
	})

	return msg, bare, nil
}

func parseProposal(raw string) (*proof.PresentationPreview, error) {
	preview := &proof.PresentationPreview{}
	if err := json.Unmarshal([]byte(raw), preview); err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid presentation proposal")
	}

	if len(preview.Attributes) == 0 && len(preview.Predicates) == 0 {
		return nil, vcxerr.New(vcxerr.MalformedInput, "presentation proposal is empty")
	}

	if preview.Type == "" {
		preview.Type = protocol.PresentationPreviewMsgType
	}

	return preview, nil
}

// DisclosedProof is the prover side of one presentation exchange.
type DisclosedProof struct {
	current state
	rec     record
}

func newFromMessage(sourceID string, msg protocol.Message) (*DisclosedProof, error) {
	_, req, err := proof.ParseRequest(msg)
	if err != nil {
		return nil, err
	}

	return &DisclosedProof{
		current: &requestReceived{},
		rec:     record{SourceID: sourceID, ThreadID: msg.ThreadID(), RequestMsg: msg, Request: req},
	}, nil
}

// NewWithRequest creates a disclosed proof from a received request.
func NewWithRequest(sourceID string, request []byte) (*DisclosedProof, error) {
	msg, _, err := parseRequest(request)
	if err != nil {
		return nil, err
	}

	return newFromMessage(sourceID, msg)
}

// Requests returns the presentation requests pending on the connection's inbox.
func Requests(ctx context.Context, p Provider, conn Connection) ([]protocol.Message, error) {
	if !conn.Accepted() {
		return nil, vcxerr.New(vcxerr.InvalidState, "connection is not accepted")
	}

	msgs, err := transport.PendingOfType(ctx, p.Transport(), conn.Verkey(), protocol.RequestPresentationMsgType, "")
	if err != nil {
		return nil, vcxerr.Collaborator(err, "poll inbox")
	}

	requests := make([]protocol.Message, 0, len(msgs))
	for _, m := range msgs {
		requests = append(requests, m.Payload)
	}

	return requests, nil
}

// NewWithMessageID creates a disclosed proof from the pending request msgID of the connection. The request is
// marked reviewed.
func NewWithMessageID(ctx context.Context, p Provider, conn Connection, sourceID, msgID string) (*DisclosedProof,
	error) {
	msg, err := transport.TakeMessage(ctx, p.Transport(), conn.Verkey(), msgID, protocol.RequestPresentationMsgType)
	if err != nil {
		return nil, err
	}

	return newFromMessage(sourceID, msg)
}

// NewProposal creates an exchange started by the prover proposing a presentation.
func NewProposal(sourceID, proposal, comment string) (*DisclosedProof, error) {
	preview, err := parseProposal(proposal)
	if err != nil {
		return nil, err
	}

	return &DisclosedProof{
		current: &initialized{},
		rec: record{
			SourceID:        sourceID,
			ThreadID:        uuid.New().String(),
			Proposal:        preview,
			ProposalComment: comment,
		},
	}, nil
}

// Deserialize restores a disclosed proof from a snapshot.
func Deserialize(raw string) (*DisclosedProof, error) {
	data := &snapshotData{}
	if err := snapshot.Unmarshal(raw, SnapshotKind, data); err != nil {
		return nil, err
	}

	current, err := stateFromName(data.State)
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedSnapshot, err, "restore disclosed proof")
	}

	if data.ThreadID == "" {
		return nil, vcxerr.New(vcxerr.MalformedSnapshot, "disclosed proof snapshot has no thread")
	}

	if data.Request == nil && data.Proposal == nil {
		return nil, vcxerr.New(vcxerr.MalformedSnapshot, "disclosed proof snapshot has neither request nor proposal")
	}

	return &DisclosedProof{current: current, rec: data.record}, nil
}

// Serialize implements protocol.Object.
func (d *DisclosedProof) Serialize() (string, error) {
	return snapshot.Marshal(SnapshotKind, &snapshotData{State: d.current.Name(), record: d.rec})
}

// SourceID implements protocol.Object.
func (d *DisclosedProof) SourceID() string {
	return d.rec.SourceID
}

// StateName implements protocol.Object.
func (d *DisclosedProof) StateName() string {
	return d.current.Name()
}

// State implements protocol.Object.
func (d *DisclosedProof) State() protocol.StateCode {
	return d.current.Code()
}

// ThreadID returns the exchange thread.
func (d *DisclosedProof) ThreadID() string {
	return d.rec.ThreadID
}

// ConnectionDID returns my pairwise DID of the connection the exchange is bound to.
func (d *DisclosedProof) ConnectionDID() string {
	return d.rec.ConnectionDID
}

// BindConnection binds the exchange to the connection with my pairwise DID pwDID.
func (d *DisclosedProof) BindConnection(pwDID string) {
	d.rec.ConnectionDID = pwDID
}

// ProblemReport returns the last received problem report as JSON, or {}.
func (d *DisclosedProof) ProblemReport() string {
	if d.rec.ProblemReport == nil {
		return "{}"
	}

	raw, err := json.Marshal(d.rec.ProblemReport)
	if err != nil {
		return "{}"
	}

	return string(raw)
}

// RequestJSON returns the request-presentation message.
func (d *DisclosedProof) RequestJSON() (string, error) {
	if d.rec.RequestMsg == nil {
		return "", vcxerr.New(vcxerr.InvalidState, "disclosed proof %s has no request", d.rec.SourceID)
	}

	raw, err := json.Marshal(d.rec.RequestMsg)
	if err != nil {
		return "", vcxerr.Wrap(vcxerr.Unknown, err, "marshal request")
	}

	return string(raw), nil
}

func (d *DisclosedProof) transition(next state, work *record, action stateAction) error {
	if !d.current.CanTransitionTo(next) {
		return vcxerr.New(vcxerr.InvalidState, "disclosed proof %s cannot move from %s to %s", d.rec.SourceID,
			d.current.Name(), next.Name())
	}

	if action != nil {
		if err := action(); err != nil {
			return err
		}
	}

	logger.Debugf("disclosed proof %s: %s -> %s", d.rec.SourceID, d.current.Name(), next.Name())

	d.current = next
	d.rec = *work

	return nil
}

func (d *DisclosedProof) requireRequest() error {
	if d.current.Name() != StateNameRequestReceived || d.rec.Request == nil {
		return vcxerr.New(vcxerr.InvalidState, "disclosed proof %s has no open request in state %s", d.rec.SourceID,
			d.current.Name())
	}

	return nil
}

func (d *DisclosedProof) sendOver(ctx context.Context, p Provider, conn Connection, next state, work *record,
	msg interface{}) error {
	if conn == nil || !conn.Accepted() {
		return vcxerr.New(vcxerr.InvalidState, "connection is not accepted")
	}

	ec := &execContext{ctx: ctx, p: p, conn: conn, rec: work}

	return d.transition(next, work, func() error { return send(ec, msg) })
}

// RetrieveCredentials lists the wallet credentials able to answer each referent of the request.
func (d *DisclosedProof) RetrieveCredentials(ctx context.Context, p Provider) (*RetrievedCredentials, error) {
	if d.rec.Request == nil {
		return nil, vcxerr.New(vcxerr.InvalidState, "disclosed proof %s has no request", d.rec.SourceID)
	}

	return retrieveCredentials(ctx, p.Wallet(), d.rec.Request)
}

// GenerateProof builds the presentation from selectedCreds ({"attrs":{referent:{"credential":{...}}}}) and
// selfAttested ({referent:value}). The nonce is signed with the connection key when conn is given.
func (d *DisclosedProof) GenerateProof(ctx context.Context, p Provider, conn Connection, selectedCreds,
	selfAttested string) error {
	if err := d.requireRequest(); err != nil {
		return err
	}

	selected := &credformat.SelectedCredentials{}
	if s := strings.TrimSpace(selectedCreds); s != "" {
		if err := json.Unmarshal([]byte(s), selected); err != nil {
			return vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid selected credentials")
		}
	}

	attested := map[string]string{}
	if s := strings.TrimSpace(selfAttested); s != "" {
		if err := json.Unmarshal([]byte(s), &attested); err != nil {
			return vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid self attested attributes")
		}
	}

	pres, err := buildPresentation(ctx, p.Wallet(), d.rec.Request, selected, attested)
	if err != nil {
		return err
	}

	if conn != nil && conn.Verkey() != "" {
		if err := signNonce(ctx, p, conn.Verkey(), pres); err != nil {
			return err
		}
	}

	d.rec.Presentation = pres
	d.rec.PresentationID = uuid.New().String()

	return nil
}

func signNonce(ctx context.Context, p Provider, verkey string, pres *credformat.Presentation) error {
	sig, err := p.Wallet().Sign(ctx, verkey, []byte(pres.Nonce))
	if err != nil {
		return vcxerr.Collaborator(err, "sign nonce")
	}

	pres.ProverVerkey = verkey
	pres.NonceSignature = sig

	return nil
}

// PresentationMessage returns the presentation message built by GenerateProof.
func (d *DisclosedProof) PresentationMessage() (*proof.Presentation, error) {
	return presentationMessage(&d.rec)
}

func presentationMessage(rec *record) (*proof.Presentation, error) {
	if rec.Presentation == nil {
		return nil, vcxerr.New(vcxerr.InvalidState, "disclosed proof %s has no generated presentation", rec.SourceID)
	}

	attach, err := protocol.NewJSONAttachment(credformat.PresentationAttachID, rec.Presentation)
	if err != nil {
		return nil, err
	}

	return &proof.Presentation{
		Header: protocol.Header{
			ID:     rec.PresentationID,
			Type:   protocol.PresentationMsgType,
			Thread: &protocol.Thread{ID: rec.ThreadID},
		},
		PresentationsAttach: []protocol.Attachment{attach},
	}, nil
}

// SendProof sends the generated presentation. A presentation generated without a connection, or for another
// one, has its nonce signed again with the key of conn.
func (d *DisclosedProof) SendProof(ctx context.Context, p Provider, conn Connection) error {
	if d.rec.ReportedByPeer {
		return protocol.RejectedByPeer(d.rec.SourceID, d.rec.ProblemReport)
	}

	if err := d.requireRequest(); err != nil {
		return err
	}

	if d.rec.Presentation == nil {
		return vcxerr.New(vcxerr.InvalidState, "disclosed proof %s has no generated presentation", d.rec.SourceID)
	}

	work := d.rec

	if conn != nil && conn.Verkey() != "" && work.Presentation.ProverVerkey != conn.Verkey() {
		pres := *work.Presentation
		if err := signNonce(ctx, p, conn.Verkey(), &pres); err != nil {
			return err
		}

		work.Presentation = &pres
	}

	msg, err := presentationMessage(&work)
	if err != nil {
		return err
	}

	return d.sendOver(ctx, p, conn, &presentationSent{}, &work, msg)
}

// Decline declines the request either with a reason, sent as a problem report, or with a counter proposal that
// waits for a new request. Exactly one of them must be given.
func (d *DisclosedProof) Decline(ctx context.Context, p Provider, conn Connection, reason, proposal string) error {
	if d.rec.ReportedByPeer {
		return protocol.RejectedByPeer(d.rec.SourceID, d.rec.ProblemReport)
	}

	if (reason == "") == (proposal == "") {
		return vcxerr.New(vcxerr.MalformedInput, "decline needs either a reason or a proposal")
	}

	if err := d.requireRequest(); err != nil {
		return err
	}

	work := d.rec

	if reason != "" {
		report := protocol.NewProblemReport(protocol.PresentationProblemReportType, d.rec.ThreadID,
			problemCodeDeclined, reason)
		work.ProblemReport = report

		return d.sendOver(ctx, p, conn, &declined{}, &work, report)
	}

	preview, err := parseProposal(proposal)
	if err != nil {
		return err
	}

	work.Proposal = preview

	return d.sendOver(ctx, p, conn, &proposalSent{}, &work, &proof.ProposePresentation{
		Header:               protocol.NewHeader(protocol.ProposePresentationMsgType).Threaded(d.rec.ThreadID),
		PresentationProposal: preview,
	})
}

// Reject rejects the request or the pending proposal exchange.
func (d *DisclosedProof) Reject(ctx context.Context, p Provider, conn Connection, comment string) error {
	if d.rec.ReportedByPeer {
		return protocol.RejectedByPeer(d.rec.SourceID, d.rec.ProblemReport)
	}

	work := d.rec
	report := protocol.NewProblemReport(protocol.PresentationProblemReportType, d.rec.ThreadID,
		protocol.ProblemCodeRejected, comment)
	work.ProblemReport = report

	return d.sendOver(ctx, p, conn, &rejected{}, &work, report)
}

// SendProposal sends the proposal of an exchange created with NewProposal.
func (d *DisclosedProof) SendProposal(ctx context.Context, p Provider, conn Connection) error {
	if d.rec.ReportedByPeer {
		return protocol.RejectedByPeer(d.rec.SourceID, d.rec.ProblemReport)
	}

	work := d.rec

	return d.sendOver(ctx, p, conn, &proposalSent{}, &work, &proof.ProposePresentation{
		Header:               protocol.Header{ID: d.rec.ThreadID, Type: protocol.ProposePresentationMsgType},
		Comment:              d.rec.ProposalComment,
		PresentationProposal: d.rec.Proposal,
	})
}

// UpdateStateWithMessage feeds one message through the state machine and reports whether it was consumed.
func (d *DisclosedProof) UpdateStateWithMessage(ctx context.Context, p Provider, conn Connection,
	msg protocol.Message) (bool, error) {
	if isTerminal(d.current) {
		return false, nil
	}

	work := d.rec

	next, action, err := d.current.ExecuteInbound(msg, &execContext{ctx: ctx, p: p, conn: conn, rec: &work})
	if err != nil || next == nil {
		return false, err
	}

	if err := d.transition(next, &work, action); err != nil {
		return false, err
	}

	return true, nil
}

// UpdateState polls the connection's inbox for messages of this exchange.
func (d *DisclosedProof) UpdateState(ctx context.Context, p Provider, conn Connection) error {
	if isTerminal(d.current) || conn == nil || conn.Verkey() == "" {
		return nil
	}

	msgs, err := p.Transport().PollInbox(ctx, conn.Verkey())
	if err != nil {
		return vcxerr.Collaborator(err, "poll inbox")
	}

	for _, m := range msgs {
		if m.Payload.ThreadID() != d.rec.ThreadID {
			continue
		}

		consumed, err := d.UpdateStateWithMessage(ctx, p, conn, m.Payload)
		if err != nil {
			return err
		}

		if !consumed {
			continue
		}

		if err := p.Transport().UpdateStatus(ctx, conn.Verkey(), transport.StatusReviewed, m.UID); err != nil {
			return vcxerr.Collaborator(err, "mark message %s reviewed", m.UID)
		}
	}

	return nil
}
