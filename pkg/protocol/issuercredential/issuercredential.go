/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuercredential implements the issuer side of the issue credential protocol, with the schema and
// credential definition objects it issues against.
package issuercredential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credential"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
	"github.com/topcoder-platform/mobilewallet/pkg/snapshot"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

var logger = log.New("vcx-agent/issuercredential")

// SnapshotKind tags serialized issuer credentials.
const SnapshotKind = "issuer_credential"

// Provider supplies the collaborators of the issuer.
type Provider interface {
	Wallet() wallet.Wallet
	Transport() transport.Transport
	Ledger() ledger.Client
}

// Connection is the pairwise connection an exchange runs over.
type Connection interface {
	Accepted() bool
	Verkey() string
	Destination() (*transport.Destination, error)
}

type record struct {
	SourceID       string                  `json:"source_id"`
	Name           string                  `json:"name,omitempty"`
	ThreadID       string                  `json:"thread_id,omitempty"`
	ConnectionDID  string                  `json:"connection_did,omitempty"`
	SchemaID       string                  `json:"schema_id"`
	CredDefID      string                  `json:"cred_def_id"`
	IssuerVerkey   string                  `json:"issuer_verkey"`
	Attrs          map[string]string       `json:"attrs"`
	Request        *credformat.Request     `json:"request,omitempty"`
	ProblemReport  *protocol.ProblemReport `json:"problem_report,omitempty"`
	ReportedByPeer bool                    `json:"reported_by_peer,omitempty"`
}

type snapshotData struct {
	State string `json:"state"`
	record
}

func send(c *execContext, msg interface{}) error {
	if c.conn == nil {
		return vcxerr.New(vcxerr.InvalidState, "issuer credential %s has no connection", c.rec.SourceID)
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

// ParseAttrs reads credential values given as {"name":"value"}, {"name":["value"]} or
// [{"name":..,"value":..}].
func ParseAttrs(raw []byte) (map[string]string, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid credential attributes")
	}

	attrs := map[string]string{}

	switch v := generic.(type) {
	case map[string]interface{}:
		for name, value := range v {
			s, err := attrValue(value)
			if err != nil {
				return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "attribute %s", name)
			}

			attrs[name] = s
		}
	case []interface{}:
		var list []credformat.PreviewAttribute
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid credential attribute list")
		}

		for _, a := range list {
			if a.Name == "" {
				return nil, vcxerr.New(vcxerr.MalformedInput, "credential attribute without name")
			}

			attrs[a.Name] = a.Value
		}
	default:
		return nil, vcxerr.New(vcxerr.MalformedInput, "credential attributes must be an object or a list")
	}

	if len(attrs) == 0 {
		return nil, vcxerr.New(vcxerr.MalformedInput, "no credential attributes")
	}

	return attrs, nil
}

func attrValue(v interface{}) (string, error) {
	switch value := v.(type) {
	case string:
		return value, nil
	case []interface{}:
		if len(value) == 1 {
			if s, ok := value[0].(string); ok {
				return s, nil
			}
		}
	}

	return "", errors.New("value must be a string or a one element string list")
}

// IssuerCredential is the issuer side of one credential exchange.
type IssuerCredential struct {
	current state
	rec     record
}

// New creates an issuer credential over the given credential definition.
func New(sourceID string, credDef *ledger.CredDef, attrs map[string]string, name string) (*IssuerCredential, error) {
	if credDef == nil || credDef.ID == "" || credDef.Verkey == "" {
		return nil, vcxerr.New(vcxerr.MalformedInput, "credential definition is required")
	}

	if len(attrs) == 0 {
		return nil, vcxerr.New(vcxerr.MalformedInput, "no credential attributes")
	}

	return &IssuerCredential{
		current: &initialized{},
		rec: record{
			SourceID:     sourceID,
			Name:         name,
			SchemaID:     credDef.SchemaID,
			CredDefID:    credDef.ID,
			IssuerVerkey: credDef.Verkey,
			Attrs:        attrs,
		},
	}, nil
}

// Deserialize restores an issuer credential from a snapshot.
func Deserialize(raw string) (*IssuerCredential, error) {
	data := &snapshotData{}
	if err := snapshot.Unmarshal(raw, SnapshotKind, data); err != nil {
		return nil, err
	}

	current, err := stateFromName(data.State)
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedSnapshot, err, "restore issuer credential")
	}

	if data.CredDefID == "" || data.IssuerVerkey == "" || len(data.Attrs) == 0 {
		return nil, vcxerr.New(vcxerr.MalformedSnapshot, "issuer credential snapshot has no cred def or attributes")
	}

	return &IssuerCredential{current: current, rec: data.record}, nil
}

// Serialize implements protocol.Object.
func (ic *IssuerCredential) Serialize() (string, error) {
	return snapshot.Marshal(SnapshotKind, &snapshotData{State: ic.current.Name(), record: ic.rec})
}

// SourceID implements protocol.Object.
func (ic *IssuerCredential) SourceID() string {
	return ic.rec.SourceID
}

// StateName implements protocol.Object.
func (ic *IssuerCredential) StateName() string {
	return ic.current.Name()
}

// State implements protocol.Object.
func (ic *IssuerCredential) State() protocol.StateCode {
	return ic.current.Code()
}

// ThreadID returns the exchange thread, empty before the offer is sent.
func (ic *IssuerCredential) ThreadID() string {
	return ic.rec.ThreadID
}

// ConnectionDID returns my pairwise DID of the connection the exchange is bound to.
func (ic *IssuerCredential) ConnectionDID() string {
	return ic.rec.ConnectionDID
}

// BindConnection binds the exchange to the connection with my pairwise DID pwDID.
func (ic *IssuerCredential) BindConnection(pwDID string) {
	ic.rec.ConnectionDID = pwDID
}

// ProblemReport returns the last problem report as JSON, or {}.
func (ic *IssuerCredential) ProblemReport() string {
	if ic.rec.ProblemReport == nil {
		return "{}"
	}

	raw, err := json.Marshal(ic.rec.ProblemReport)
	if err != nil {
		return "{}"
	}

	return string(raw)
}

func (ic *IssuerCredential) transition(next state, work *record, action stateAction) error {
	if !ic.current.CanTransitionTo(next) {
		return vcxerr.New(vcxerr.InvalidState, "issuer credential %s cannot move from %s to %s", ic.rec.SourceID,
			ic.current.Name(), next.Name())
	}

	if action != nil {
		if err := action(); err != nil {
			return err
		}
	}

	logger.Debugf("issuer credential %s: %s -> %s", ic.rec.SourceID, ic.current.Name(), next.Name())

	ic.current = next
	ic.rec = *work

	return nil
}

// OfferMessage builds the offer-credential message.
func (ic *IssuerCredential) OfferMessage() (*credential.OfferCredential, error) {
	attach, err := protocol.NewJSONAttachment(credformat.OfferAttachID, &credformat.Offer{
		SchemaID:  ic.rec.SchemaID,
		CredDefID: ic.rec.CredDefID,
		Nonce:     credformat.NewNonce(),
	})
	if err != nil {
		return nil, err
	}

	return &credential.OfferCredential{
		Header:       protocol.NewHeader(protocol.OfferCredentialMsgType),
		Comment:      ic.rec.Name,
		Preview:      credformat.NewPreview(ic.rec.Attrs),
		OffersAttach: []protocol.Attachment{attach},
	}, nil
}

// SendOffer offers the credential over an accepted connection.
func (ic *IssuerCredential) SendOffer(ctx context.Context, p Provider, conn Connection) error {
	if ic.current.Name() != StateNameInitialized {
		return vcxerr.New(vcxerr.InvalidState, "cannot offer issuer credential %s in state %s", ic.rec.SourceID,
			ic.current.Name())
	}

	if conn == nil || !conn.Accepted() {
		return vcxerr.New(vcxerr.InvalidState, "cannot offer a credential over a connection that is not accepted")
	}

	offer, err := ic.OfferMessage()
	if err != nil {
		return err
	}

	work := ic.rec
	work.ThreadID = offer.ID
	ec := &execContext{ctx: ctx, p: p, conn: conn, rec: &work}

	return ic.transition(&offerSent{}, &work, func() error { return send(ec, offer) })
}

// SendCredential signs the credential values with the cred def key and sends them.
func (ic *IssuerCredential) SendCredential(ctx context.Context, p Provider, conn Connection) error {
	if ic.rec.ReportedByPeer {
		return protocol.RejectedByPeer(ic.rec.SourceID, ic.rec.ProblemReport)
	}

	if ic.current.Name() != StateNameRequestReceived {
		return vcxerr.New(vcxerr.InvalidState, "cannot send issuer credential %s in state %s", ic.rec.SourceID,
			ic.current.Name())
	}

	cred := &credformat.Credential{
		SchemaID:  ic.rec.SchemaID,
		CredDefID: ic.rec.CredDefID,
		Values:    credformat.NewValues(ic.rec.Attrs),
	}

	input, err := cred.SigningInput()
	if err != nil {
		return fmt.Errorf("credential signing input: %w", err)
	}

	cred.Signature, err = p.Wallet().Sign(ctx, ic.rec.IssuerVerkey, input)
	if err != nil {
		return vcxerr.Collaborator(err, "sign credential")
	}

	attach, err := protocol.NewJSONAttachment(credformat.CredentialAttachID, cred)
	if err != nil {
		return err
	}

	work := ic.rec
	ec := &execContext{ctx: ctx, p: p, conn: conn, rec: &work}

	return ic.transition(&credentialSent{}, &work, func() error {
		return send(ec, &credential.IssueCredential{
			Header:            protocol.NewHeader(protocol.IssueCredentialMsgType).Threaded(work.ThreadID),
			CredentialsAttach: []protocol.Attachment{attach},
		})
	})
}

// RequestJSON returns the received credential request.
func (ic *IssuerCredential) RequestJSON() (string, error) {
	if ic.rec.Request == nil {
		return "", vcxerr.New(vcxerr.InvalidState, "issuer credential %s has no request in state %s", ic.rec.SourceID,
			ic.current.Name())
	}

	raw, err := json.Marshal(ic.rec.Request)
	if err != nil {
		return "", vcxerr.Wrap(vcxerr.Unknown, err, "marshal credential request")
	}

	return string(raw), nil
}

// Terminate abandons the issuance. Once the offer was sent the holder is told with a problem report, which needs
// the connection; before that the exchange just fails.
func (ic *IssuerCredential) Terminate(ctx context.Context, p Provider, conn Connection, comment string) error {
	switch ic.current.Name() {
	case StateNameAccepted, StateNameFailed:
		return vcxerr.New(vcxerr.InvalidState, "cannot terminate issuer credential %s in state %s", ic.rec.SourceID,
			ic.current.Name())
	case StateNameInitialized:
		work := ic.rec

		return ic.transition(&failed{}, &work, nil)
	}

	work := ic.rec
	report := protocol.NewProblemReport(protocol.CredentialProblemReportType, work.ThreadID, problemCodeAbandoned,
		comment)
	report.Comment = comment
	work.ProblemReport = report
	ec := &execContext{ctx: ctx, p: p, conn: conn, rec: &work}

	return ic.transition(&failed{}, &work, func() error { return send(ec, report) })
}

// UpdateStateWithMessage feeds one message through the state machine and reports whether it was consumed.
func (ic *IssuerCredential) UpdateStateWithMessage(ctx context.Context, p Provider, conn Connection,
	msg protocol.Message) (bool, error) {
	work := ic.rec

	next, action, err := ic.current.ExecuteInbound(msg, &execContext{ctx: ctx, p: p, conn: conn, rec: &work})
	if err != nil || next == nil {
		return false, err
	}

	if err := ic.transition(next, &work, action); err != nil {
		return false, err
	}

	return true, nil
}

// UpdateState polls the connection's inbox for messages of this exchange.
func (ic *IssuerCredential) UpdateState(ctx context.Context, p Provider, conn Connection) error {
	if ic.rec.ThreadID == "" || conn == nil || conn.Verkey() == "" {
		return nil
	}

	msgs, err := p.Transport().PollInbox(ctx, conn.Verkey())
	if err != nil {
		return vcxerr.Collaborator(err, "poll inbox")
	}

	for _, m := range msgs {
		if m.Payload.ThreadID() != ic.rec.ThreadID {
			continue
		}

		consumed, err := ic.UpdateStateWithMessage(ctx, p, conn, m.Payload)
		if err != nil {
			return err
		}

		if consumed {
			if err := p.Transport().UpdateStatus(ctx, conn.Verkey(), transport.StatusReviewed, m.UID); err != nil {
				return vcxerr.Collaborator(err, "mark message %s reviewed", m.UID)
			}
		}
	}

	return nil
}
