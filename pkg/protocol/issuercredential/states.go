/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuercredential

import (
	"context"
	"fmt"

	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credential"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
)

const (
	// StateNameInitialized marks a created issuer credential.
	StateNameInitialized = "initialized"
	// StateNameOfferSent marks an issuer waiting for the request.
	StateNameOfferSent = "offer-sent"
	// StateNameRequestReceived marks an issuer that can send the credential.
	StateNameRequestReceived = "request-received"
	// StateNameCredentialSent marks an issuer waiting for the ack.
	StateNameCredentialSent = "credential-sent"
	// StateNameAccepted marks an acknowledged credential.
	StateNameAccepted = "accepted"
	// StateNameFailed marks a failed exchange.
	StateNameFailed = "failed"

	problemCodeInvalidRequest = "invalid_request"
	problemCodeAbandoned      = "issuance_abandoned"
)

type stateAction func() error

type state interface {
	Name() string
	Code() protocol.StateCode
	CanTransitionTo(next state) bool
	ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error)
}

type execContext struct {
	ctx  context.Context
	p    Provider
	conn Connection
	rec  *record
}

func stateFromName(name string) (state, error) {
	switch name {
	case StateNameInitialized:
		return &initialized{}, nil
	case StateNameOfferSent:
		return &offerSent{}, nil
	case StateNameRequestReceived:
		return &requestReceived{}, nil
	case StateNameCredentialSent:
		return &credentialSent{}, nil
	case StateNameAccepted:
		return &accepted{}, nil
	case StateNameFailed:
		return &failed{}, nil
	default:
		return nil, fmt.Errorf("invalid state name %s", name)
	}
}

func onThread(msg protocol.Message, c *execContext) bool {
	return msg.ThreadID() == c.rec.ThreadID
}

// reported moves to failed on a problem report of the exchange.
func reported(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.Type() != protocol.CredentialProblemReportType && msg.Type() != protocol.ProblemReportMsgType {
		return nil, nil, nil
	}

	if !onThread(msg, c) {
		return nil, nil, nil
	}

	report := &protocol.ProblemReport{}
	if err := msg.Decode(report); err != nil {
		return nil, nil, nil
	}

	c.rec.ProblemReport = report
	c.rec.ReportedByPeer = true

	return &failed{}, nil, nil
}

type initialized struct{}

func (s *initialized) Name() string {
	return StateNameInitialized
}

func (s *initialized) Code() protocol.StateCode {
	return protocol.StateInitialized
}

func (s *initialized) CanTransitionTo(next state) bool {
	return next.Name() == StateNameOfferSent || next.Name() == StateNameFailed
}

func (s *initialized) ExecuteInbound(protocol.Message, *execContext) (state, stateAction, error) {
	return nil, nil, nil
}

type offerSent struct{}

func (s *offerSent) Name() string {
	return StateNameOfferSent
}

func (s *offerSent) Code() protocol.StateCode {
	return protocol.StateOfferSent
}

func (s *offerSent) CanTransitionTo(next state) bool {
	return next.Name() == StateNameRequestReceived || next.Name() == StateNameFailed
}

func (s *offerSent) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.Type() != protocol.RequestCredentialMsgType {
		return reported(msg, c)
	}

	if !onThread(msg, c) {
		return nil, nil, nil
	}

	rec := c.rec
	req := &credential.RequestCredential{}
	attach := &credformat.Request{}

	err := msg.Decode(req)
	if err == nil {
		err = protocol.DecodeAttachment(req.RequestsAttach, credformat.RequestAttachID, attach)
	}

	if err == nil && attach.CredDefID != rec.CredDefID {
		err = fmt.Errorf("request is for cred def %s", attach.CredDefID)
	}

	if err != nil {
		report := protocol.NewProblemReport(protocol.CredentialProblemReportType, rec.ThreadID,
			problemCodeInvalidRequest, err.Error())
		rec.ProblemReport = report

		return &failed{}, func() error { return send(c, report) }, nil
	}

	rec.Request = attach

	return &requestReceived{}, nil, nil
}

type requestReceived struct{}

func (s *requestReceived) Name() string {
	return StateNameRequestReceived
}

func (s *requestReceived) Code() protocol.StateCode {
	return protocol.StateRequestReceived
}

func (s *requestReceived) CanTransitionTo(next state) bool {
	return next.Name() == StateNameCredentialSent || next.Name() == StateNameFailed
}

func (s *requestReceived) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	return reported(msg, c)
}

type credentialSent struct{}

func (s *credentialSent) Name() string {
	return StateNameCredentialSent
}

func (s *credentialSent) Code() protocol.StateCode {
	return protocol.StateAccepted
}

func (s *credentialSent) CanTransitionTo(next state) bool {
	return next.Name() == StateNameAccepted || next.Name() == StateNameFailed
}

func (s *credentialSent) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.Type() != protocol.CredentialAckMsgType && msg.Type() != protocol.AckMsgType {
		return reported(msg, c)
	}

	if !onThread(msg, c) {
		return nil, nil, nil
	}

	return &accepted{}, nil, nil
}

type accepted struct{}

func (s *accepted) Name() string {
	return StateNameAccepted
}

func (s *accepted) Code() protocol.StateCode {
	return protocol.StateAccepted
}

func (s *accepted) CanTransitionTo(state) bool {
	return false
}

func (s *accepted) ExecuteInbound(protocol.Message, *execContext) (state, stateAction, error) {
	return nil, nil, nil
}

type failed struct{}

func (s *failed) Name() string {
	return StateNameFailed
}

func (s *failed) Code() protocol.StateCode {
	return protocol.StateUnfulfilled
}

func (s *failed) CanTransitionTo(state) bool {
	return false
}

func (s *failed) ExecuteInbound(protocol.Message, *execContext) (state, stateAction, error) {
	return nil, nil, nil
}
