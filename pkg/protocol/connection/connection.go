/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package connection implements the pairwise connection protocol: invitation, request, signed response and the
// messages an accepted connection can carry.
package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/snapshot"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

var logger = log.New("vcx-agent/connection")

// SnapshotKind tags serialized connections.
const SnapshotKind = "connection"

// Roles.
const (
	RoleInviter = "inviter"
	RoleInvitee = "invitee"
)

// ProtocolVersion is the connection protocol version negotiated by this engine.
const ProtocolVersion = "1.0"

// Provider supplies the collaborators a connection uses.
type Provider interface {
	Wallet() wallet.Wallet
	Transport() transport.Transport
	// ServiceEndpoint is where remote agents deliver messages for this agent.
	ServiceEndpoint() string
	// Label names this agent in invitations and requests.
	Label() string
}

type record struct {
	SourceID         string                  `json:"source_id"`
	Role             string                  `json:"role"`
	Version          string                  `json:"version"`
	MyDID            string                  `json:"my_did,omitempty"`
	MyVerkey         string                  `json:"my_verkey,omitempty"`
	TheirDID         string                  `json:"their_did,omitempty"`
	TheirVerkey      string                  `json:"their_verkey,omitempty"`
	TheirEndpoint    string                  `json:"their_endpoint,omitempty"`
	TheirRoutingKeys []string                `json:"their_routing_keys,omitempty"`
	TheirLabel       string                  `json:"their_label,omitempty"`
	TheirProtocols   []string                `json:"their_protocols,omitempty"`
	Invitation       *Invitation             `json:"invitation,omitempty"`
	RequestID        string                  `json:"request_id,omitempty"`
	ConnectionType   string                  `json:"connection_type,omitempty"`
	OutOfBand        bool                    `json:"out_of_band,omitempty"`
	Goal             string                  `json:"goal,omitempty"`
	GoalCode         string                  `json:"goal_code,omitempty"`
	ProblemReport    *protocol.ProblemReport `json:"problem_report,omitempty"`
}

// onThread reports whether msg belongs to this connection's exchange.
func (r *record) onThread(msg protocol.Message) bool {
	if r.RequestID != "" && msg.ThreadID() == r.RequestID {
		return true
	}

	if r.Invitation == nil {
		return false
	}

	return msg.ThreadID() == r.Invitation.ID || msg.ParentThreadID() == r.Invitation.ID
}

func (r *record) destination() *transport.Destination {
	return &transport.Destination{
		RecipientKeys:   []string{r.TheirVerkey},
		ServiceEndpoint: r.TheirEndpoint,
		RoutingKeys:     r.TheirRoutingKeys,
	}
}

func (r *record) send(c *execContext, msg interface{}) error {
	m, err := protocol.NewMessageFromStruct(msg)
	if err != nil {
		return err
	}

	if err := c.p.Transport().Send(c.ctx, r.destination(), m); err != nil {
		return vcxerr.Collaborator(err, "send %s", m.Type())
	}

	return nil
}

// Connection is one pairwise connection.
type Connection struct {
	current state
	rec     record
	now     func() time.Time
}

type snapshotData struct {
	State string `json:"state"`
	record
}

// New creates an inviter connection.
func New(sourceID string) *Connection {
	return &Connection{
		current: &initialized{},
		rec:     record{SourceID: sourceID, Role: RoleInviter, Version: ProtocolVersion},
		now:     time.Now,
	}
}

// NewOutOfBand creates an inviter connection whose invitation carries a goal.
func NewOutOfBand(sourceID, goalCode, goal string) *Connection {
	c := New(sourceID)
	c.rec.OutOfBand = true
	c.rec.Goal = goal
	c.rec.GoalCode = goalCode

	return c
}

// NewWithInvite creates an invitee connection from a full or abbreviated invitation.
func NewWithInvite(sourceID string, invite []byte) (*Connection, error) {
	inv, err := ParseInvitation(invite)
	if err != nil {
		return nil, err
	}

	return &Connection{
		current: &initialized{},
		rec: record{
			SourceID:         sourceID,
			Role:             RoleInvitee,
			Version:          ProtocolVersion,
			Invitation:       inv,
			TheirVerkey:      inv.RecipientKeys[0],
			TheirEndpoint:    inv.ServiceEndpoint,
			TheirRoutingKeys: inv.RoutingKeys,
			TheirLabel:       inv.Label,
		},
		now: time.Now,
	}, nil
}

// ParseInvitation validates an invitation. The abbreviated form is accepted as well.
func ParseInvitation(invite []byte) (*Invitation, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(invite, &raw); err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid invitation")
	}

	inv := &Invitation{}

	if _, full := raw["@type"]; full {
		msg, err := protocol.NewMessage(invite)
		if err != nil {
			return nil, err
		}

		if msg.Type() != protocol.InvitationMsgType {
			return nil, vcxerr.New(vcxerr.MalformedInput, "%s is not a connection invitation", msg.Type())
		}

		if err := msg.Decode(inv); err != nil {
			return nil, err
		}
	} else {
		abbr := &AbbreviatedInvitation{}
		if err := json.Unmarshal(invite, abbr); err != nil {
			return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid abbreviated invitation")
		}

		inv.Header = protocol.Header{ID: abbr.ID, Type: protocol.InvitationMsgType}
		inv.Label = abbr.Label
		inv.RecipientKeys = abbr.Keys
		inv.ServiceEndpoint = abbr.Endpoint
		inv.RoutingKeys = abbr.Routing
		inv.Goal = abbr.Goal
	}

	if inv.ID == "" {
		return nil, vcxerr.New(vcxerr.MalformedInput, "invitation has no id")
	}

	if len(inv.RecipientKeys) == 0 || inv.RecipientKeys[0] == "" {
		return nil, vcxerr.New(vcxerr.MalformedInput, "invitation has no recipient keys")
	}

	if inv.ServiceEndpoint == "" {
		return nil, vcxerr.New(vcxerr.MalformedInput, "invitation has no service endpoint")
	}

	return inv, nil
}

// Deserialize restores a connection from a snapshot.
func Deserialize(raw string) (*Connection, error) {
	data := &snapshotData{}
	if err := snapshot.Unmarshal(raw, SnapshotKind, data); err != nil {
		return nil, err
	}

	current, err := stateFromName(data.State)
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedSnapshot, err, "restore connection")
	}

	if data.Role != RoleInviter && data.Role != RoleInvitee {
		return nil, vcxerr.New(vcxerr.MalformedSnapshot, "connection snapshot has role %q", data.Role)
	}

	if data.Role == RoleInvitee && (data.Invitation == nil || len(data.Invitation.RecipientKeys) == 0) {
		return nil, vcxerr.New(vcxerr.MalformedSnapshot, "invitee connection snapshot has no invitation")
	}

	return &Connection{current: current, rec: data.record, now: time.Now}, nil
}

// Serialize implements protocol.Object.
func (c *Connection) Serialize() (string, error) {
	return snapshot.Marshal(SnapshotKind, &snapshotData{State: c.current.Name(), record: c.rec})
}

// SourceID implements protocol.Object.
func (c *Connection) SourceID() string {
	return c.rec.SourceID
}

// StateName implements protocol.Object.
func (c *Connection) StateName() string {
	return c.current.Name()
}

// State implements protocol.Object.
func (c *Connection) State() protocol.StateCode {
	return c.current.Code()
}

// Role returns inviter or invitee.
func (c *Connection) Role() string {
	return c.rec.Role
}

// Accepted reports whether the connection is established.
func (c *Connection) Accepted() bool {
	return c.current.Name() == StateNameAccepted
}

// PwDID returns my pairwise DID, empty before connect.
func (c *Connection) PwDID() string {
	return c.rec.MyDID
}

// Verkey returns my pairwise verkey, empty before connect.
func (c *Connection) Verkey() string {
	return c.rec.MyVerkey
}

// TheirPwDID returns the remote pairwise DID.
func (c *Connection) TheirPwDID() (string, error) {
	if c.rec.TheirDID == "" {
		return "", vcxerr.New(vcxerr.InvalidState, "remote DID of connection %s is not known in state %s",
			c.rec.SourceID, c.current.Name())
	}

	return c.rec.TheirDID, nil
}

// TheirVerkey returns the remote pairwise verkey.
func (c *Connection) TheirVerkey() string {
	return c.rec.TheirVerkey
}

// Destination returns where messages for the remote party go. The connection must be accepted.
func (c *Connection) Destination() (*transport.Destination, error) {
	if err := c.requireAccepted("send"); err != nil {
		return nil, err
	}

	return c.rec.destination(), nil
}

// ProblemReport returns the last problem report received as JSON, or {}.
func (c *Connection) ProblemReport() string {
	if c.rec.ProblemReport == nil {
		return "{}"
	}

	raw, err := json.Marshal(c.rec.ProblemReport)
	if err != nil {
		return "{}"
	}

	return string(raw)
}

func (c *Connection) requireAccepted(op string) error {
	if !c.Accepted() {
		return vcxerr.New(vcxerr.InvalidState, "cannot %s on connection %s in state %s", op, c.rec.SourceID,
			c.current.Name())
	}

	return nil
}

// transition runs action against a working copy of the record and commits both the copy and next once it succeeds.
func (c *Connection) transition(next state, work *record, action stateAction) error {
	if next.Name() != c.current.Name() && !c.current.CanTransitionTo(next) {
		return vcxerr.New(vcxerr.InvalidState, "connection %s cannot move from %s to %s", c.rec.SourceID,
			c.current.Name(), next.Name())
	}

	if action != nil {
		if err := action(); err != nil {
			return err
		}
	}

	if next.Name() != c.current.Name() {
		logger.Debugf("connection %s: %s -> %s", c.rec.SourceID, c.current.Name(), next.Name())
	}

	c.current = next
	c.rec = *work

	return nil
}

func (c *Connection) execContext(ctx context.Context, p Provider, work *record) *execContext {
	return &execContext{ctx: ctx, p: p, rec: work, now: c.now()}
}

// Connect creates the pairwise key. An inviter publishes its invitation; an invitee sends its request.
func (c *Connection) Connect(ctx context.Context, p Provider, opts *ConnectOptions) error {
	if c.current.Name() != StateNameInitialized {
		return vcxerr.New(vcxerr.InvalidState, "cannot connect connection %s in state %s", c.rec.SourceID,
			c.current.Name())
	}

	key, err := p.Wallet().CreateKey(ctx, nil)
	if err != nil {
		return vcxerr.Collaborator(err, "create pairwise key")
	}

	work := c.rec
	work.MyDID = key.DID
	work.MyVerkey = key.Verkey

	if opts != nil {
		work.ConnectionType = opts.ConnectionType
	}

	if c.rec.Role == RoleInviter {
		header := protocol.NewHeader(protocol.InvitationMsgType)
		work.Invitation = &Invitation{
			Header:          header,
			Label:           p.Label(),
			RecipientKeys:   []string{key.Verkey},
			ServiceEndpoint: p.ServiceEndpoint(),
			Goal:            work.Goal,
			GoalCode:        work.GoalCode,
		}

		return c.transition(&offerSent{}, &work, nil)
	}

	ec := c.execContext(ctx, p, &work)
	req := &Request{
		Header: protocol.NewHeader(protocol.ConnectionRequestType),
		Label:  p.Label(),
		Connection: &Info{
			DID:    key.DID,
			DIDDoc: newDIDDoc(key.DID, key.Verkey, p.ServiceEndpoint()),
		},
	}
	req.Thread = &protocol.Thread{PID: work.Invitation.ID}
	work.RequestID = req.ID

	return c.transition(&requestReceived{}, &work, func() error { return work.send(ec, req) })
}

// InviteDetails returns the invitation, in abbreviated form when asked.
func (c *Connection) InviteDetails(abbreviated bool) (string, error) {
	if c.rec.Invitation == nil {
		return "", vcxerr.New(vcxerr.InvalidState, "connection %s has no invitation in state %s", c.rec.SourceID,
			c.current.Name())
	}

	var v interface{} = c.rec.Invitation

	if abbreviated {
		inv := c.rec.Invitation
		v = &AbbreviatedInvitation{
			ID:       inv.ID,
			Label:    inv.Label,
			Keys:     inv.RecipientKeys,
			Endpoint: inv.ServiceEndpoint,
			Routing:  inv.RoutingKeys,
			Goal:     inv.Goal,
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal invitation: %w", err)
	}

	return string(raw), nil
}

// Handles reports whether msg belongs to a protocol family the connection consumes.
func Handles(msgType string) bool {
	switch protocol.Family(msgType) {
	case protocol.ConnectionsPID, protocol.NotificationPID, protocol.TrustPingPID, protocol.DiscoverFeaturesPID:
		return true
	default:
		return false
	}
}

// UpdateStateWithMessage feeds one message through the state machine. Unrelated or malformed messages and
// messages received in a terminal state leave the state unchanged and are not errors. The returned flag tells
// whether the message was consumed.
func (c *Connection) UpdateStateWithMessage(ctx context.Context, p Provider, msg protocol.Message) (bool, error) {
	if isTerminal(c.current) {
		return false, nil
	}

	work := c.rec

	next, action, err := c.current.ExecuteInbound(msg, c.execContext(ctx, p, &work))
	if err != nil {
		return false, err
	}

	if next == nil {
		logger.Debugf("connection %s ignored %s in state %s", c.rec.SourceID, msg.Type(), c.current.Name())

		return false, nil
	}

	if err := c.transition(next, &work, action); err != nil {
		return false, err
	}

	return true, nil
}

// UpdateState polls the inbox of my pairwise key and feeds pending connection messages through the state machine.
// Consumed messages are marked reviewed.
func (c *Connection) UpdateState(ctx context.Context, p Provider) error {
	if isTerminal(c.current) || c.rec.MyVerkey == "" {
		return nil
	}

	msgs, err := p.Transport().PollInbox(ctx, c.rec.MyVerkey)
	if err != nil {
		return vcxerr.Collaborator(err, "poll inbox")
	}

	for _, m := range msgs {
		if !Handles(m.Type) {
			continue
		}

		consumed, err := c.UpdateStateWithMessage(ctx, p, m.Payload)
		if err != nil {
			return err
		}

		if !consumed && !strings.HasPrefix(m.Type, protocol.ConnectionsPID) {
			continue
		}

		if err := p.Transport().UpdateStatus(ctx, c.rec.MyVerkey, transport.StatusReviewed, m.UID); err != nil {
			return vcxerr.Collaborator(err, "mark message %s reviewed", m.UID)
		}

		if isTerminal(c.current) {
			break
		}
	}

	return nil
}

// Delete sends a disconnect when the remote party is known and revokes the connection. A failed send is logged
// and does not keep the connection alive.
func (c *Connection) Delete(ctx context.Context, p Provider) error {
	if c.current.Name() == StateNameRevoked {
		return nil
	}

	work := c.rec

	if c.rec.TheirEndpoint != "" && c.rec.TheirVerkey != "" && c.rec.MyVerkey != "" {
		disconnect := &Disconnect{Header: protocol.NewHeader(protocol.DisconnectMsgType).Threaded(c.rec.RequestID)}

		if err := work.send(c.execContext(ctx, p, &work), disconnect); err != nil {
			logger.Warnf("connection %s: disconnect not delivered: %v", c.rec.SourceID, err)
		}
	}

	logger.Debugf("connection %s: %s -> %s", c.rec.SourceID, c.current.Name(), StateNameRevoked)

	c.current = &revoked{}

	return nil
}

// Info returns both sides of the connection.
func (c *Connection) Info() (string, error) {
	if c.rec.MyDID == "" {
		return "", vcxerr.New(vcxerr.InvalidState, "connection %s has no pairwise DID in state %s", c.rec.SourceID,
			c.current.Name())
	}

	summary := &Summary{
		Current: PairwiseInfo{
			DID:             c.rec.MyDID,
			RecipientKeys:   []string{c.rec.MyVerkey},
			RoutingKeys:     []string{},
			ServiceEndpoint: c.myEndpoint(),
			Protocols:       protocol.SupportedProtocols(),
		},
	}

	if c.rec.TheirVerkey != "" {
		routing := c.rec.TheirRoutingKeys
		if routing == nil {
			routing = []string{}
		}

		summary.Remote = &PairwiseInfo{
			DID:             c.rec.TheirDID,
			RecipientKeys:   []string{c.rec.TheirVerkey},
			RoutingKeys:     routing,
			ServiceEndpoint: c.rec.TheirEndpoint,
			Protocols:       c.rec.TheirProtocols,
		}
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshal connection info: %w", err)
	}

	return string(raw), nil
}

func (c *Connection) myEndpoint() string {
	if c.rec.Role == RoleInviter && c.rec.Invitation != nil {
		return c.rec.Invitation.ServiceEndpoint
	}

	return ""
}
