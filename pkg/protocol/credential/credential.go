/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credential implements the holder side of the issue credential protocol.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
	"github.com/topcoder-platform/mobilewallet/pkg/snapshot"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

var logger = log.New("vcx-agent/credential")

// SnapshotKind tags serialized holder credentials.
const SnapshotKind = "credential"

// Provider supplies the collaborators of the holder.
type Provider interface {
	Wallet() wallet.Wallet
	Transport() transport.Transport
	Ledger() ledger.Client
}

// Connection is the pairwise connection an exchange runs over.
type Connection interface {
	Accepted() bool
	PwDID() string
	Verkey() string
	Destination() (*transport.Destination, error)
}

type record struct {
	SourceID       string                  `json:"source_id"`
	ThreadID       string                  `json:"thread_id"`
	ConnectionDID  string                  `json:"connection_did,omitempty"`
	Offer          *OfferCredential        `json:"offer"`
	OfferAttach    *credformat.Offer       `json:"offer_attach"`
	RequestNonce   string                  `json:"request_nonce,omitempty"`
	Referent       string                  `json:"referent,omitempty"`
	Credential     *credformat.Credential  `json:"credential,omitempty"`
	ProblemReport  *protocol.ProblemReport `json:"problem_report,omitempty"`
	ReportedByPeer bool                    `json:"reported_by_peer,omitempty"`
}

type snapshotData struct {
	State string `json:"state"`
	record
}

// requestMetadata is stored in the wallet while the request is outstanding.
type requestMetadata struct {
	CredDefID string `json:"cred_def_id"`
	Nonce     string `json:"nonce"`
}

func send(c *execContext, msg interface{}) error {
	if c.conn == nil {
		return vcxerr.New(vcxerr.InvalidState, "credential %s has no connection", c.rec.SourceID)
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

func storeCredential(ctx context.Context, w wallet.Wallet, rec *record) error {
	raw, err := json.Marshal(rec.Credential)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	tags := map[string]string{
		"schema_id":   rec.Credential.SchemaID,
		"cred_def_id": rec.Credential.CredDefID,
		"issuer_did":  credformat.IssuerDID(rec.Credential.CredDefID),
		"thread_id":   rec.ThreadID,
	}

	for name, v := range rec.Credential.Values {
		tags[credformat.AttrMarkerTag(name)] = "1"
		tags[credformat.AttrValueTag(name)] = v.Raw
	}

	err = w.AddRecord(ctx, &wallet.Record{
		Type:  wallet.CredentialRecordType,
		ID:    rec.Referent,
		Value: string(raw),
		Tags:  tags,
	})
	if err != nil {
		return vcxerr.Collaborator(err, "store credential")
	}

	err = w.DeleteRecord(ctx, wallet.CredentialRequestRecordType, rec.ThreadID)
	if err != nil && !errors.Is(err, wallet.ErrNotFound) {
		logger.Warnf("credential %s: request metadata not removed: %v", rec.SourceID, err)
	}

	return nil
}

// Credential is the holder side of one credential exchange.
type Credential struct {
	current state
	rec     record
}

// NewWithOffer creates a holder credential from a received offer.
func NewWithOffer(sourceID string, offer protocol.Message) (*Credential, error) {
	msg, attach, err := ParseOffer(offer)
	if err != nil {
		return nil, err
	}

	return &Credential{
		current: &offerReceived{},
		rec: record{
			SourceID:    sourceID,
			ThreadID:    offer.ThreadID(),
			Offer:       msg,
			OfferAttach: attach,
		},
	}, nil
}

// Offers returns the offers pending on the connection's inbox.
func Offers(ctx context.Context, p Provider, conn Connection) ([]protocol.Message, error) {
	if !conn.Accepted() {
		return nil, vcxerr.New(vcxerr.InvalidState, "connection is not accepted")
	}

	msgs, err := transport.PendingOfType(ctx, p.Transport(), conn.Verkey(), protocol.OfferCredentialMsgType, "")
	if err != nil {
		return nil, vcxerr.Collaborator(err, "poll inbox")
	}

	offers := make([]protocol.Message, 0, len(msgs))
	for _, m := range msgs {
		offers = append(offers, m.Payload)
	}

	return offers, nil
}

// NewWithMessageID creates a holder credential from the pending offer msgID of the connection. The offer is
// marked reviewed.
func NewWithMessageID(ctx context.Context, p Provider, conn Connection, sourceID, msgID string) (*Credential,
	error) {
	msg, err := transport.TakeMessage(ctx, p.Transport(), conn.Verkey(), msgID, protocol.OfferCredentialMsgType)
	if err != nil {
		return nil, err
	}

	return NewWithOffer(sourceID, msg)
}

// Deserialize restores a holder credential from a snapshot.
func Deserialize(raw string) (*Credential, error) {
	data := &snapshotData{}
	if err := snapshot.Unmarshal(raw, SnapshotKind, data); err != nil {
		return nil, err
	}

	current, err := stateFromName(data.State)
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedSnapshot, err, "restore credential")
	}

	if data.Offer == nil || data.OfferAttach == nil {
		return nil, vcxerr.New(vcxerr.MalformedSnapshot, "credential snapshot has no offer")
	}

	if current.Name() == StateNameAccepted && data.Credential == nil {
		return nil, vcxerr.New(vcxerr.MalformedSnapshot, "accepted credential snapshot has no credential")
	}

	return &Credential{current: current, rec: data.record}, nil
}

// Serialize implements protocol.Object.
func (c *Credential) Serialize() (string, error) {
	return snapshot.Marshal(SnapshotKind, &snapshotData{State: c.current.Name(), record: c.rec})
}

// SourceID implements protocol.Object.
func (c *Credential) SourceID() string {
	return c.rec.SourceID
}

// StateName implements protocol.Object.
func (c *Credential) StateName() string {
	return c.current.Name()
}

// State implements protocol.Object.
func (c *Credential) State() protocol.StateCode {
	return c.current.Code()
}

// ThreadID returns the exchange thread.
func (c *Credential) ThreadID() string {
	return c.rec.ThreadID
}

// ConnectionDID returns my pairwise DID of the connection the exchange is bound to.
func (c *Credential) ConnectionDID() string {
	return c.rec.ConnectionDID
}

// Offer returns the offer the exchange started from.
func (c *Credential) Offer() *OfferCredential {
	return c.rec.Offer
}

// BindConnection binds the exchange to the connection with my pairwise DID pwDID.
func (c *Credential) BindConnection(pwDID string) {
	c.rec.ConnectionDID = pwDID
}

// ProblemReport returns the last problem report as JSON, or {}.
func (c *Credential) ProblemReport() string {
	if c.rec.ProblemReport == nil {
		return "{}"
	}

	raw, err := json.Marshal(c.rec.ProblemReport)
	if err != nil {
		return "{}"
	}

	return string(raw)
}

func (c *Credential) transition(next state, work *record, action stateAction) error {
	if !c.current.CanTransitionTo(next) {
		return vcxerr.New(vcxerr.InvalidState, "credential %s cannot move from %s to %s", c.rec.SourceID,
			c.current.Name(), next.Name())
	}

	if action != nil {
		if err := action(); err != nil {
			return err
		}
	}

	logger.Debugf("credential %s: %s -> %s", c.rec.SourceID, c.current.Name(), next.Name())

	c.current = next
	c.rec = *work

	return nil
}

// RequestMessage builds the request-credential message without sending it.
func (c *Credential) RequestMessage(myPwDID string) (*RequestCredential, string, error) {
	if c.current.Name() != StateNameOfferReceived {
		return nil, "", vcxerr.New(vcxerr.InvalidState, "credential %s has no offer to request in state %s",
			c.rec.SourceID, c.current.Name())
	}

	nonce := credformat.NewNonce()

	attach, err := protocol.NewJSONAttachment(credformat.RequestAttachID, &credformat.Request{
		ProverDID: myPwDID,
		CredDefID: c.rec.OfferAttach.CredDefID,
		Nonce:     nonce,
	})
	if err != nil {
		return nil, "", err
	}

	return &RequestCredential{
		Header:         protocol.NewHeader(protocol.RequestCredentialMsgType).Threaded(c.rec.ThreadID),
		RequestsAttach: []protocol.Attachment{attach},
	}, nonce, nil
}

// SendRequest requests the offered credential over an accepted connection.
func (c *Credential) SendRequest(ctx context.Context, p Provider, conn Connection) error {
	if c.rec.ReportedByPeer {
		return protocol.RejectedByPeer(c.rec.SourceID, c.rec.ProblemReport)
	}

	if conn == nil || !conn.Accepted() {
		return vcxerr.New(vcxerr.InvalidState, "cannot send credential request over a connection that is not accepted")
	}

	req, nonce, err := c.RequestMessage(conn.PwDID())
	if err != nil {
		return err
	}

	work := c.rec
	work.RequestNonce = nonce
	ec := &execContext{ctx: ctx, p: p, conn: conn, rec: &work}

	return c.transition(&requestSent{}, &work, func() error {
		if err := putRequestMetadata(ctx, p.Wallet(), work.ThreadID, &requestMetadata{
			CredDefID: work.OfferAttach.CredDefID,
			Nonce:     nonce,
		}); err != nil {
			return err
		}

		return send(ec, req)
	})
}

func putRequestMetadata(ctx context.Context, w wallet.Wallet, id string, meta *requestMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal request metadata: %w", err)
	}

	err = w.AddRecord(ctx, &wallet.Record{Type: wallet.CredentialRequestRecordType, ID: id, Value: string(raw)})
	if errors.Is(err, wallet.ErrDuplicate) {
		err = w.UpdateRecordValue(ctx, wallet.CredentialRequestRecordType, id, string(raw))
	}

	if err != nil {
		return vcxerr.Collaborator(err, "store credential request metadata")
	}

	return nil
}

// UpdateStateWithMessage feeds one message through the state machine and reports whether it was consumed.
func (c *Credential) UpdateStateWithMessage(ctx context.Context, p Provider, conn Connection,
	msg protocol.Message) (bool, error) {
	if isTerminal(c.current) {
		return false, nil
	}

	work := c.rec

	next, action, err := c.current.ExecuteInbound(msg, &execContext{ctx: ctx, p: p, conn: conn, rec: &work})
	if err != nil || next == nil {
		return false, err
	}

	if err := c.transition(next, &work, action); err != nil {
		return false, err
	}

	return true, nil
}

// UpdateState polls the connection's inbox for messages of this exchange.
func (c *Credential) UpdateState(ctx context.Context, p Provider, conn Connection) error {
	if isTerminal(c.current) || conn == nil || conn.Verkey() == "" {
		return nil
	}

	msgs, err := p.Transport().PollInbox(ctx, conn.Verkey())
	if err != nil {
		return vcxerr.Collaborator(err, "poll inbox")
	}

	for _, m := range msgs {
		if m.Payload.ThreadID() != c.rec.ThreadID {
			continue
		}

		consumed, err := c.UpdateStateWithMessage(ctx, p, conn, m.Payload)
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

func (c *Credential) requireAccepted(op string) error {
	if c.current.Name() != StateNameAccepted {
		return vcxerr.New(vcxerr.InvalidState, "cannot %s credential %s in state %s", op, c.rec.SourceID,
			c.current.Name())
	}

	return nil
}

// CredentialJSON returns the issued credential.
func (c *Credential) CredentialJSON() (string, error) {
	if err := c.requireAccepted("get"); err != nil {
		return "", err
	}

	raw, err := json.Marshal(c.rec.Credential)
	if err != nil {
		return "", fmt.Errorf("marshal credential: %w", err)
	}

	return string(raw), nil
}

// Info describes the stored credential.
func (c *Credential) Info() (*Info, error) {
	if err := c.requireAccepted("describe"); err != nil {
		return nil, err
	}

	return &Info{
		Referent:  c.rec.Referent,
		SchemaID:  c.rec.Credential.SchemaID,
		CredDefID: c.rec.Credential.CredDefID,
		Attrs:     c.rec.Credential.Raw(),
	}, nil
}

// Delete removes the stored credential from the wallet. The exchange state is unchanged.
func (c *Credential) Delete(ctx context.Context, p Provider) error {
	if err := c.requireAccepted("delete"); err != nil {
		return err
	}

	err := p.Wallet().DeleteRecord(ctx, wallet.CredentialRecordType, c.rec.Referent)
	if errors.Is(err, wallet.ErrNotFound) {
		return vcxerr.Wrap(vcxerr.NotFound, err, "credential %s", c.rec.Referent)
	}

	if err != nil {
		return vcxerr.Collaborator(err, "delete credential %s", c.rec.Referent)
	}

	return nil
}

// Reject tells the issuer the exchange is rejected. The state is unchanged when the report cannot be sent.
func (c *Credential) Reject(ctx context.Context, p Provider, conn Connection, comment string) error {
	if c.rec.ReportedByPeer {
		return protocol.RejectedByPeer(c.rec.SourceID, c.rec.ProblemReport)
	}

	if isTerminal(c.current) || c.current.Name() == StateNameAccepted {
		return vcxerr.New(vcxerr.InvalidState, "cannot reject credential %s in state %s", c.rec.SourceID,
			c.current.Name())
	}

	work := c.rec
	report := protocol.NewProblemReport(protocol.CredentialProblemReportType, work.ThreadID,
		protocol.ProblemCodeRejected, comment)
	report.Comment = comment
	work.ProblemReport = report

	ec := &execContext{ctx: ctx, p: p, conn: conn, rec: &work}

	return c.transition(&rejected{}, &work, func() error { return send(ec, report) })
}
