/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
)

const (
	// StateNameNull is the state of a connection that was never created.
	StateNameNull = "null"
	// StateNameInitialized marks a created connection.
	StateNameInitialized = "initialized"
	// StateNameOfferSent marks an inviter whose invitation is published.
	StateNameOfferSent = "offer-sent"
	// StateNameRequestReceived marks an invitee that sent its connection request.
	StateNameRequestReceived = "request-received"
	// StateNameAccepted marks an established connection.
	StateNameAccepted = "accepted"
	// StateNameUnfulfilled marks a connection that failed.
	StateNameUnfulfilled = "unfulfilled"
	// StateNameExpired marks a connection whose invitation or request expired.
	StateNameExpired = "expired"
	// StateNameRevoked marks a deleted connection.
	StateNameRevoked = "revoked"

	problemCodeInvalidSignature = "response_not_accepted"
)

// state action for network call.
type stateAction func() error

// The connection protocol's state.
type state interface {
	// Name of this state.
	Name() string

	// Code reported to callers.
	Code() protocol.StateCode

	// Whether this state allows transitioning into the next state.
	CanTransitionTo(next state) bool

	// ExecuteInbound handles msg, returning the state to move to and the action to run before the move.
	// A nil state means the message is not for this state and is ignored.
	ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error)
}

type execContext struct {
	ctx context.Context
	p   Provider
	rec *record
	now time.Time
}

// Returns the state representing the name.
func stateFromName(name string) (state, error) {
	switch name {
	case StateNameNull:
		return &null{}, nil
	case StateNameInitialized:
		return &initialized{}, nil
	case StateNameOfferSent:
		return &offerSent{}, nil
	case StateNameRequestReceived:
		return &requestReceived{}, nil
	case StateNameAccepted:
		return &accepted{}, nil
	case StateNameUnfulfilled:
		return &unfulfilled{}, nil
	case StateNameExpired:
		return &expired{}, nil
	case StateNameRevoked:
		return &revoked{}, nil
	default:
		return nil, fmt.Errorf("invalid state name %s", name)
	}
}

func isTerminal(s state) bool {
	switch s.Name() {
	case StateNameUnfulfilled, StateNameExpired, StateNameRevoked:
		return true
	default:
		return false
	}
}

func canFail(next state) bool {
	return next.Name() == StateNameUnfulfilled || next.Name() == StateNameExpired || next.Name() == StateNameRevoked
}

// failure returns the terminal state for a problem report on the connection thread.
func failure(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.Type() != protocol.ProblemReportMsgType || !c.rec.onThread(msg) {
		return nil, nil, nil
	}

	report := &protocol.ProblemReport{}
	if err := msg.Decode(report); err != nil {
		logger.Debugf("ignoring malformed problem report: %v", err)

		return nil, nil, nil
	}

	c.rec.ProblemReport = report

	if protocol.IsExpiry(report.Description.Code) {
		return &expired{}, nil, nil
	}

	return &unfulfilled{}, nil, nil
}

// null state.
type null struct{}

func (s *null) Name() string {
	return StateNameNull
}

func (s *null) Code() protocol.StateCode {
	return protocol.StateNone
}

func (s *null) CanTransitionTo(next state) bool {
	return next.Name() == StateNameInitialized
}

func (s *null) ExecuteInbound(_ protocol.Message, _ *execContext) (state, stateAction, error) {
	return nil, nil, nil
}

// initialized state.
type initialized struct{}

func (s *initialized) Name() string {
	return StateNameInitialized
}

func (s *initialized) Code() protocol.StateCode {
	return protocol.StateInitialized
}

func (s *initialized) CanTransitionTo(next state) bool {
	return next.Name() == StateNameOfferSent || next.Name() == StateNameRequestReceived || canFail(next)
}

func (s *initialized) ExecuteInbound(_ protocol.Message, _ *execContext) (state, stateAction, error) {
	return nil, nil, nil
}

// offerSent state: the inviter waits for a connection request.
type offerSent struct{}

func (s *offerSent) Name() string {
	return StateNameOfferSent
}

func (s *offerSent) Code() protocol.StateCode {
	return protocol.StateOfferSent
}

func (s *offerSent) CanTransitionTo(next state) bool {
	return next.Name() == StateNameAccepted || canFail(next)
}

func (s *offerSent) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.Type() != protocol.ConnectionRequestType {
		return failure(msg, c)
	}

	if pthid := msg.ParentThreadID(); pthid != "" && c.rec.Invitation != nil && pthid != c.rec.Invitation.ID {
		return nil, nil, nil
	}

	req := &Request{}
	if err := msg.Decode(req); err != nil {
		logger.Debugf("ignoring malformed connection request: %v", err)

		return nil, nil, nil
	}

	if req.Connection == nil || req.Connection.DIDDoc == nil || len(req.Connection.DIDDoc.Service) == 0 ||
		len(req.Connection.DIDDoc.Service[0].RecipientKeys) == 0 {
		logger.Debugf("ignoring connection request %s without service", msg.ID())

		return nil, nil, nil
	}

	svc := req.Connection.DIDDoc.Service[0]

	rec := c.rec
	rec.TheirDID = req.Connection.DID
	rec.TheirVerkey = svc.RecipientKeys[0]
	rec.TheirEndpoint = svc.ServiceEndpoint
	rec.TheirRoutingKeys = svc.RoutingKeys
	rec.TheirLabel = req.Label
	rec.RequestID = msg.ThreadID()

	return &accepted{}, func() error {
		info, err := json.Marshal(&Info{DID: rec.MyDID, DIDDoc: newDIDDoc(rec.MyDID, rec.MyVerkey, c.p.ServiceEndpoint())})
		if err != nil {
			return fmt.Errorf("marshal connection info: %w", err)
		}

		sig, err := signPayload(c.ctx, c.p.Wallet(), rec.MyVerkey, info, c.now)
		if err != nil {
			return err
		}

		return rec.send(c, &Response{
			Header:              protocol.NewHeader(protocol.ConnectionResponseType).Threaded(rec.RequestID),
			ConnectionSignature: sig,
		})
	}, nil
}

// requestReceived state: the invitee waits for the signed response.
type requestReceived struct{}

func (s *requestReceived) Name() string {
	return StateNameRequestReceived
}

func (s *requestReceived) Code() protocol.StateCode {
	return protocol.StateRequestReceived
}

func (s *requestReceived) CanTransitionTo(next state) bool {
	return next.Name() == StateNameAccepted || canFail(next)
}

func (s *requestReceived) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.Type() != protocol.ConnectionResponseType {
		return failure(msg, c)
	}

	if msg.ThreadID() != c.rec.RequestID {
		return nil, nil, nil
	}

	rec := c.rec

	resp := &Response{}
	if err := msg.Decode(resp); err != nil {
		logger.Debugf("ignoring malformed connection response: %v", err)

		return nil, nil, nil
	}

	payload, err := verifyPayload(c.ctx, c.p.Wallet(), resp.ConnectionSignature, rec.Invitation.RecipientKeys[0])
	if err != nil && !errors.Is(err, errInvalidSignature) {
		return nil, nil, err
	}

	var info *Info
	if err == nil {
		info, err = parseInfo(payload)
	}

	if err != nil {
		report := protocol.NewProblemReport(protocol.ProblemReportMsgType, rec.RequestID, problemCodeInvalidSignature,
			"connection response signature is not valid")
		rec.ProblemReport = report

		return &unfulfilled{}, func() error { return rec.send(c, report) }, nil
	}

	svc := info.DIDDoc.Service[0]
	rec.TheirDID = info.DID
	rec.TheirVerkey = svc.RecipientKeys[0]
	rec.TheirEndpoint = svc.ServiceEndpoint
	rec.TheirRoutingKeys = svc.RoutingKeys

	return &accepted{}, func() error {
		return rec.send(c, protocol.NewAck(protocol.AckMsgType, rec.RequestID))
	}, nil
}

func parseInfo(payload []byte) (*Info, error) {
	info := &Info{}
	if err := json.Unmarshal(payload, info); err != nil {
		return nil, errInvalidSignature
	}

	if info.DIDDoc == nil || len(info.DIDDoc.Service) == 0 || len(info.DIDDoc.Service[0].RecipientKeys) == 0 {
		return nil, errInvalidSignature
	}

	return info, nil
}

// accepted state: the pairwise channel is established.
type accepted struct{}

func (s *accepted) Name() string {
	return StateNameAccepted
}

func (s *accepted) Code() protocol.StateCode {
	return protocol.StateAccepted
}

func (s *accepted) CanTransitionTo(next state) bool {
	return next.Name() == StateNameAccepted || canFail(next)
}

func (s *accepted) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	rec := c.rec

	switch msg.Type() {
	case protocol.DisconnectMsgType:
		return &revoked{}, nil, nil
	case protocol.AckMsgType, protocol.PingResponseMsgType:
		return s, nil, nil
	case protocol.PingMsgType:
		ping := &Ping{}
		if err := msg.Decode(ping); err != nil || !ping.ResponseRequested {
			return s, nil, nil
		}

		return s, func() error {
			return rec.send(c, &PingResponse{Header: protocol.NewHeader(protocol.PingResponseMsgType).Threaded(msg.ID())})
		}, nil
	case protocol.HandshakeReuseMsgType:
		reuse := &HandshakeReuse{Header: protocol.NewHeader(protocol.HandshakeReuseAcceptedMsgType)}
		reuse.Thread = &protocol.Thread{ID: msg.ID(), PID: msg.ParentThreadID()}

		return s, func() error { return rec.send(c, reuse) }, nil
	case protocol.HandshakeReuseAcceptedMsgType:
		return s, nil, nil
	case protocol.QueryMsgType:
		query := &Query{}
		if err := msg.Decode(query); err != nil {
			return nil, nil, nil
		}

		disclose := &Disclose{Header: protocol.NewHeader(protocol.DiscloseMsgType).Threaded(msg.ID())}
		for _, pid := range protocol.MatchProtocols(query.Query) {
			disclose.Protocols = append(disclose.Protocols, ProtocolDescriptor{PID: pid})
		}

		return s, func() error { return rec.send(c, disclose) }, nil
	case protocol.DiscloseMsgType:
		disclose := &Disclose{}
		if err := msg.Decode(disclose); err != nil {
			return nil, nil, nil
		}

		rec.TheirProtocols = nil
		for _, p := range disclose.Protocols {
			rec.TheirProtocols = append(rec.TheirProtocols, p.PID)
		}

		return s, nil, nil
	default:
		return failure(msg, c)
	}
}

// unfulfilled state.
type unfulfilled struct{}

func (s *unfulfilled) Name() string {
	return StateNameUnfulfilled
}

func (s *unfulfilled) Code() protocol.StateCode {
	return protocol.StateUnfulfilled
}

func (s *unfulfilled) CanTransitionTo(_ state) bool {
	return false
}

func (s *unfulfilled) ExecuteInbound(_ protocol.Message, _ *execContext) (state, stateAction, error) {
	return nil, nil, nil
}

// expired state.
type expired struct{}

func (s *expired) Name() string {
	return StateNameExpired
}

func (s *expired) Code() protocol.StateCode {
	return protocol.StateExpired
}

func (s *expired) CanTransitionTo(_ state) bool {
	return false
}

func (s *expired) ExecuteInbound(_ protocol.Message, _ *execContext) (state, stateAction, error) {
	return nil, nil, nil
}

// revoked state.
type revoked struct{}

func (s *revoked) Name() string {
	return StateNameRevoked
}

func (s *revoked) Code() protocol.StateCode {
	return protocol.StateRevoked
}

func (s *revoked) CanTransitionTo(_ state) bool {
	return false
}

func (s *revoked) ExecuteInbound(_ protocol.Message, _ *execContext) (state, stateAction, error) {
	return nil, nil, nil
}
