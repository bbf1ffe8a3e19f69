/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package disclosedproof

import (
	"context"
	"fmt"

	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/proof"
)

const (
	// StateNameInitialized marks a proposal that was not sent yet.
	StateNameInitialized = "initialized"
	// StateNameRequestReceived marks a received presentation request.
	StateNameRequestReceived = "request-received"
	// StateNameProposalSent marks a prover waiting for a request after proposing a presentation.
	StateNameProposalSent = "proposal-sent"
	// StateNamePresentationSent marks a prover waiting for the verifier's ack.
	StateNamePresentationSent = "presentation-sent"
	// StateNameAccepted marks an acknowledged presentation.
	StateNameAccepted = "accepted"
	// StateNameRejected marks an exchange rejected by either side.
	StateNameRejected = "rejected"
	// StateNameDeclined marks a request the prover declined.
	StateNameDeclined = "declined"
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
	case StateNameRequestReceived:
		return &requestReceived{}, nil
	case StateNameProposalSent:
		return &proposalSent{}, nil
	case StateNamePresentationSent:
		return &presentationSent{}, nil
	case StateNameAccepted:
		return &accepted{}, nil
	case StateNameRejected:
		return &rejected{}, nil
	case StateNameDeclined:
		return &declined{}, nil
	default:
		return nil, fmt.Errorf("invalid state name %s", name)
	}
}

func isTerminal(s state) bool {
	return s.Name() == StateNameRejected || s.Name() == StateNameDeclined || s.Name() == StateNameAccepted
}

// reported handles a problem report on the exchange thread.
func reported(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.Type() != protocol.PresentationProblemReportType && msg.Type() != protocol.ProblemReportMsgType {
		return nil, nil, nil
	}

	report := &protocol.ProblemReport{}
	if err := msg.Decode(report); err != nil {
		return nil, nil, nil
	}

	c.rec.ProblemReport = report
	c.rec.ReportedByPeer = true

	return &rejected{}, nil, nil
}

type initialized struct{}

func (s *initialized) Name() string {
	return StateNameInitialized
}

func (s *initialized) Code() protocol.StateCode {
	return protocol.StateInitialized
}

func (s *initialized) CanTransitionTo(next state) bool {
	return next.Name() == StateNameProposalSent
}

func (s *initialized) ExecuteInbound(protocol.Message, *execContext) (state, stateAction, error) {
	return nil, nil, nil
}

type requestReceived struct{}

func (s *requestReceived) Name() string {
	return StateNameRequestReceived
}

func (s *requestReceived) Code() protocol.StateCode {
	return protocol.StateRequestReceived
}

func (s *requestReceived) CanTransitionTo(next state) bool {
	switch next.Name() {
	case StateNamePresentationSent, StateNameProposalSent, StateNameDeclined, StateNameRejected:
		return true
	default:
		return false
	}
}

func (s *requestReceived) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.ThreadID() != c.rec.ThreadID {
		return nil, nil, nil
	}

	return reported(msg, c)
}

type proposalSent struct{}

func (s *proposalSent) Name() string {
	return StateNameProposalSent
}

func (s *proposalSent) Code() protocol.StateCode {
	return protocol.StateOfferSent
}

func (s *proposalSent) CanTransitionTo(next state) bool {
	return next.Name() == StateNameRequestReceived || next.Name() == StateNameRejected
}

func (s *proposalSent) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.ThreadID() != c.rec.ThreadID {
		return nil, nil, nil
	}

	if msg.Type() != protocol.RequestPresentationMsgType {
		return reported(msg, c)
	}

	_, req, err := proof.ParseRequest(msg)
	if err != nil {
		return nil, nil, err
	}

	c.rec.Request = req
	c.rec.RequestMsg = msg
	c.rec.Presentation = nil

	return &requestReceived{}, nil, nil
}

type presentationSent struct{}

func (s *presentationSent) Name() string {
	return StateNamePresentationSent
}

func (s *presentationSent) Code() protocol.StateCode {
	return protocol.StateOfferSent
}

func (s *presentationSent) CanTransitionTo(next state) bool {
	return next.Name() == StateNameAccepted || next.Name() == StateNameRejected
}

func (s *presentationSent) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.ThreadID() != c.rec.ThreadID {
		return nil, nil, nil
	}

	switch msg.Type() {
	case protocol.PresentationAckMsgType, protocol.AckMsgType:
		return &accepted{}, nil, nil
	default:
		return reported(msg, c)
	}
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

type rejected struct{}

func (s *rejected) Name() string {
	return StateNameRejected
}

func (s *rejected) Code() protocol.StateCode {
	return protocol.StateUnfulfilled
}

func (s *rejected) CanTransitionTo(state) bool {
	return false
}

func (s *rejected) ExecuteInbound(protocol.Message, *execContext) (state, stateAction, error) {
	return nil, nil, nil
}

type declined struct{}

func (s *declined) Name() string {
	return StateNameDeclined
}

func (s *declined) Code() protocol.StateCode {
	return protocol.StateUnfulfilled
}

func (s *declined) CanTransitionTo(state) bool {
	return false
}

func (s *declined) ExecuteInbound(protocol.Message, *execContext) (state, stateAction, error) {
	return nil, nil, nil
}
