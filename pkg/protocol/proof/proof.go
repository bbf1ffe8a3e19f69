/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package proof implements the verifier side of the present proof protocol.
package proof

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
	"github.com/topcoder-platform/mobilewallet/pkg/snapshot"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

var logger = log.New("vcx-agent/proof")

// SnapshotKind tags serialized proofs.
const SnapshotKind = "proof"

// Provider supplies the collaborators of the verifier.
type Provider interface {
	Wallet() wallet.Wallet
	Transport() transport.Transport
	Ledger() ledger.Client
}

// Connection is the pairwise connection the request is sent over. TheirVerkey is the key the prover signs the
// request nonce with.
type Connection interface {
	Accepted() bool
	PwDID() string
	Verkey() string
	TheirVerkey() string
	Destination() (*transport.Destination, error)
}

type record struct {
	SourceID       string                   `json:"source_id"`
	ThreadID       string                   `json:"thread_id"`
	RequestID      string                   `json:"request_id,omitempty"`
	ConnectionDID  string                   `json:"connection_did,omitempty"`
	Request        *credformat.ProofRequest `json:"request"`
	Proposal       *PresentationPreview     `json:"proposal,omitempty"`
	Presentation   *credformat.Presentation `json:"presentation,omitempty"`
	ProofState     protocol.ProofState      `json:"proof_state"`
	ProblemReport  *protocol.ProblemReport  `json:"problem_report,omitempty"`
	ReportedByPeer bool                     `json:"reported_by_peer,omitempty"`
}

type snapshotData struct {
	State string `json:"state"`
	record
}

func send(c *execContext, msg interface{}) error {
	if c.conn == nil {
		return vcxerr.New(vcxerr.InvalidState, "proof %s has no connection", c.rec.SourceID)
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

func decodeOptional(raw string, v interface{}) (bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" || trimmed == "{}" || trimmed == "[]" {
		return false, nil
	}

	if err := json.Unmarshal([]byte(trimmed), v); err != nil {
		return false, vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid proof request input")
	}

	return true, nil
}

// Proof is the verifier side of one presentation exchange.
type Proof struct {
	current state
	rec     record
}

// New creates a proof request. requestedAttrs is a list of {name|names, restrictions}, requestedPredicates a list
// of {name, p_type, p_value, restrictions} and revocationInterval {from, to}; the last two may be empty.
func New(sourceID, requestedAttrs, requestedPredicates, revocationInterval, name string) (*Proof, error) {
	var (
		attrs      []credformat.AttrInfo
		predicates []credformat.PredicateInfo
		interval   credformat.NonRevoked
	)

	ok, err := decodeOptional(requestedAttrs, &attrs)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, vcxerr.New(vcxerr.MalformedInput, "proof request has no requested attributes")
	}

	if _, err := decodeOptional(requestedPredicates, &predicates); err != nil {
		return nil, err
	}

	var nonRevoked *credformat.NonRevoked

	ok, err = decodeOptional(revocationInterval, &interval)
	if err != nil {
		return nil, err
	}

	if ok {
		nonRevoked = &interval
	}

	req, err := credformat.NewProofRequest(name, attrs, predicates, nonRevoked)
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid proof request")
	}

	return &Proof{
		current: &initialized{},
		rec:     record{SourceID: sourceID, ThreadID: uuid.New().String(), Request: req},
	}, nil
}

// Deserialize restores a proof from a snapshot.
func Deserialize(raw string) (*Proof, error) {
	data := &snapshotData{}
	if err := snapshot.Unmarshal(raw, SnapshotKind, data); err != nil {
		return nil, err
	}

	current, err := stateFromName(data.State)
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedSnapshot, err, "restore proof")
	}

	if data.Request == nil || data.ThreadID == "" {
		return nil, vcxerr.New(vcxerr.MalformedSnapshot, "proof snapshot has no request")
	}

	return &Proof{current: current, rec: data.record}, nil
}

// Serialize implements protocol.Object.
func (pr *Proof) Serialize() (string, error) {
	return snapshot.Marshal(SnapshotKind, &snapshotData{State: pr.current.Name(), record: pr.rec})
}

// SourceID implements protocol.Object.
func (pr *Proof) SourceID() string {
	return pr.rec.SourceID
}

// StateName implements protocol.Object.
func (pr *Proof) StateName() string {
	return pr.current.Name()
}

// State implements protocol.Object.
func (pr *Proof) State() protocol.StateCode {
	return pr.current.Code()
}

// ThreadID returns the exchange thread.
func (pr *Proof) ThreadID() string {
	return pr.rec.ThreadID
}

// ConnectionDID returns my pairwise DID of the connection the exchange is bound to.
func (pr *Proof) ConnectionDID() string {
	return pr.rec.ConnectionDID
}

// BindConnection binds the exchange to the connection with my pairwise DID pwDID.
func (pr *Proof) BindConnection(pwDID string) {
	pr.rec.ConnectionDID = pwDID
}

// ProblemReport returns the last problem report as JSON, or {}.
func (pr *Proof) ProblemReport() string {
	if pr.rec.ProblemReport == nil {
		return "{}"
	}

	raw, err := json.Marshal(pr.rec.ProblemReport)
	if err != nil {
		return "{}"
	}

	return string(raw)
}

func (pr *Proof) transition(next state, work *record, action stateAction) error {
	if !pr.current.CanTransitionTo(next) {
		return vcxerr.New(vcxerr.InvalidState, "proof %s cannot move from %s to %s", pr.rec.SourceID,
			pr.current.Name(), next.Name())
	}

	if action != nil {
		if err := action(); err != nil {
			return err
		}
	}

	logger.Debugf("proof %s: %s -> %s", pr.rec.SourceID, pr.current.Name(), next.Name())

	pr.current = next
	pr.rec = *work

	return nil
}

// RequestMessage returns the request-presentation message. The message id is stable across calls; a request that
// answers a proposal is threaded to it.
func (pr *Proof) RequestMessage() (*RequestPresentation, error) {
	attach, err := protocol.NewJSONAttachment(credformat.ProofRequestAttachID, pr.rec.Request)
	if err != nil {
		return nil, err
	}

	hdr := protocol.Header{ID: pr.rec.RequestID, Type: protocol.RequestPresentationMsgType}
	if hdr.ID == "" {
		hdr.ID = pr.rec.ThreadID
	}

	if hdr.ID != pr.rec.ThreadID {
		hdr.Thread = &protocol.Thread{ID: pr.rec.ThreadID}
	}

	return &RequestPresentation{
		Header:                     hdr,
		Comment:                    pr.rec.Request.Name,
		RequestPresentationsAttach: []protocol.Attachment{attach},
	}, nil
}

// SendRequest sends the request over an accepted connection, either the one it was created with or the one asking
// for a received proposal.
func (pr *Proof) SendRequest(ctx context.Context, p Provider, conn Connection) error {
	if pr.rec.ReportedByPeer {
		return protocol.RejectedByPeer(pr.rec.SourceID, pr.rec.ProblemReport)
	}

	if name := pr.current.Name(); name != StateNameInitialized && name != StateNameProposalReceived {
		return vcxerr.New(vcxerr.InvalidState, "cannot send proof request %s in state %s", pr.rec.SourceID,
			pr.current.Name())
	}

	if conn == nil || !conn.Accepted() {
		return vcxerr.New(vcxerr.InvalidState, "cannot send a proof request over a connection that is not accepted")
	}

	msg, err := pr.RequestMessage()
	if err != nil {
		return err
	}

	work := pr.rec
	ec := &execContext{ctx: ctx, p: p, conn: conn, rec: &work}

	return pr.transition(&requestSent{}, &work, func() error { return send(ec, msg) })
}

// UpdateStateWithMessage feeds one message through the state machine and reports whether it was consumed. An
// undecodable presentation is a MalformedInput error and leaves the state unchanged.
func (pr *Proof) UpdateStateWithMessage(ctx context.Context, p Provider, conn Connection,
	msg protocol.Message) (bool, error) {
	work := pr.rec

	next, action, err := pr.current.ExecuteInbound(msg, &execContext{ctx: ctx, p: p, conn: conn, rec: &work})
	if err != nil || next == nil {
		return false, err
	}

	if err := pr.transition(next, &work, action); err != nil {
		return false, err
	}

	return true, nil
}

// UpdateState polls the connection's inbox for messages of this exchange. A malformed presentation is marked
// reviewed before its error is returned.
func (pr *Proof) UpdateState(ctx context.Context, p Provider, conn Connection) error {
	if name := pr.current.Name(); name != StateNameRequestSent && name != StateNameProposalReceived {
		return nil
	}

	if conn == nil || conn.Verkey() == "" {
		return nil
	}

	msgs, err := p.Transport().PollInbox(ctx, conn.Verkey())
	if err != nil {
		return vcxerr.Collaborator(err, "poll inbox")
	}

	for _, m := range msgs {
		if m.Payload.ThreadID() != pr.rec.ThreadID {
			continue
		}

		consumed, err := pr.UpdateStateWithMessage(ctx, p, conn, m.Payload)
		if err != nil && vcxerr.KindOf(err) != vcxerr.MalformedInput {
			return err
		}

		if consumed || err != nil {
			if serr := p.Transport().UpdateStatus(ctx, conn.Verkey(), transport.StatusReviewed, m.UID); serr != nil {
				return vcxerr.Collaborator(serr, "mark message %s reviewed", m.UID)
			}
		}

		if err != nil {
			return err
		}

		if consumed {
			break
		}
	}

	return nil
}

// Result returns the verification outcome and the presentation JSON.
func (pr *Proof) Result() (protocol.ProofState, string, error) {
	if pr.current.Name() != StateNameAccepted {
		return protocol.ProofUndefined, "", vcxerr.New(vcxerr.InvalidState, "proof %s has no presentation in state %s",
			pr.rec.SourceID, pr.current.Name())
	}

	raw, err := json.Marshal(pr.rec.Presentation)
	if err != nil {
		return protocol.ProofUndefined, "", vcxerr.Wrap(vcxerr.Unknown, err, "marshal presentation")
	}

	return pr.rec.ProofState, string(raw), nil
}
