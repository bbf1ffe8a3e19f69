/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
)

const (
	// StateNameInitialized marks a created proof request.
	StateNameInitialized = "initialized"
	// StateNameRequestSent marks a verifier waiting for the presentation.
	StateNameRequestSent = "request-sent"
	// StateNameProposalReceived marks a verifier holding a presentation proposal it has not answered yet.
	StateNameProposalReceived = "proposal-received"
	// StateNameAccepted marks a received and verified presentation.
	StateNameAccepted = "accepted"
	// StateNameRejected marks a request the prover rejected.
	StateNameRejected = "rejected"
	// StateNameUnfulfilled marks a failed exchange.
	StateNameUnfulfilled = "unfulfilled"
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
	case StateNameRequestSent:
		return &requestSent{}, nil
	case StateNameProposalReceived:
		return &proposalReceived{}, nil
	case StateNameAccepted:
		return &accepted{}, nil
	case StateNameRejected:
		return &rejected{}, nil
	case StateNameUnfulfilled:
		return &unfulfilled{}, nil
	default:
		return nil, fmt.Errorf("invalid state name %s", name)
	}
}

func isTerminal(s state) bool {
	return s.Name() == StateNameRejected || s.Name() == StateNameUnfulfilled
}

type initialized struct{}

func (s *initialized) Name() string {
	return StateNameInitialized
}

func (s *initialized) Code() protocol.StateCode {
	return protocol.StateInitialized
}

func (s *initialized) CanTransitionTo(next state) bool {
	return next.Name() == StateNameRequestSent
}

func (s *initialized) ExecuteInbound(protocol.Message, *execContext) (state, stateAction, error) {
	return nil, nil, nil
}

type requestSent struct{}

func (s *requestSent) Name() string {
	return StateNameRequestSent
}

func (s *requestSent) Code() protocol.StateCode {
	return protocol.StateOfferSent
}

func (s *requestSent) CanTransitionTo(next state) bool {
	return next.Name() == StateNameAccepted || next.Name() == StateNameProposalReceived || isTerminal(next)
}

func (s *requestSent) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.ThreadID() != c.rec.ThreadID {
		return nil, nil, nil
	}

	rec := c.rec

	switch msg.Type() {
	case protocol.PresentationMsgType:
		_, pres, err := ParsePresentation(msg)
		if err != nil {
			return nil, nil, err
		}

		proverVerkey := ""
		if c.conn != nil {
			proverVerkey = c.conn.TheirVerkey()
		}

		outcome, err := Verify(c.ctx, c.p, rec.Request, pres, proverVerkey)
		if err != nil {
			return nil, nil, err
		}

		rec.Presentation = pres
		rec.ProofState = outcome

		return &accepted{}, func() error {
			return send(c, protocol.NewAck(protocol.PresentationAckMsgType, rec.ThreadID))
		}, nil
	case protocol.ProposePresentationMsgType:
		p, err := ParseProposal(msg)
		if err != nil {
			return nil, nil, err
		}

		req, err := requestFromPreview(rec.Request.Name, p.PresentationProposal)
		if err != nil {
			return nil, nil, err
		}

		rec.Request = req
		rec.RequestID = uuid.New().String()
		rec.Proposal = p.PresentationProposal

		return &proposalReceived{}, nil, nil
	default:
		return reported(msg, rec)
	}
}

// reported handles a problem report on the exchange thread.
func reported(msg protocol.Message, rec *record) (state, stateAction, error) {
	if msg.Type() != protocol.PresentationProblemReportType && msg.Type() != protocol.ProblemReportMsgType {
		return nil, nil, nil
	}

	report := &protocol.ProblemReport{}
	if err := msg.Decode(report); err != nil {
		return nil, nil, nil
	}

	rec.ProblemReport = report
	rec.ReportedByPeer = true

	if protocol.IsRejection(report.Description.Code) {
		return &rejected{}, nil, nil
	}

	return &unfulfilled{}, nil, nil
}

type proposalReceived struct{}

func (s *proposalReceived) Name() string {
	return StateNameProposalReceived
}

func (s *proposalReceived) Code() protocol.StateCode {
	return protocol.StateRequestReceived
}

func (s *proposalReceived) CanTransitionTo(next state) bool {
	return next.Name() == StateNameRequestSent || isTerminal(next)
}

func (s *proposalReceived) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.ThreadID() != c.rec.ThreadID {
		return nil, nil, nil
	}

	return reported(msg, c.rec)
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

type unfulfilled struct{}

func (s *unfulfilled) Name() string {
	return StateNameUnfulfilled
}

func (s *unfulfilled) Code() protocol.StateCode {
	return protocol.StateUnfulfilled
}

func (s *unfulfilled) CanTransitionTo(state) bool {
	return false
}

func (s *unfulfilled) ExecuteInbound(protocol.Message, *execContext) (state, stateAction, error) {
	return nil, nil, nil
}
