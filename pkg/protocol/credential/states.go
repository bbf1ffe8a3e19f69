/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credformat"
)

const (
	// StateNameNull is the state of a credential that was never created.
	StateNameNull = "null"
	// StateNameOfferReceived marks a holder that has an offer.
	StateNameOfferReceived = "offer-received"
	// StateNameRequestSent marks a holder waiting for the credential.
	StateNameRequestSent = "request-sent"
	// StateNameAccepted marks a stored credential.
	StateNameAccepted = "accepted"
	// StateNameRejected marks an exchange rejected by either party.
	StateNameRejected = "rejected"
	// StateNameProblem marks an exchange that failed.
	StateNameProblem = "problem"

	problemCodeInvalidCredential = "invalid_credential"
)

type stateAction func() error

type state interface {
	Name() string
	Code() protocol.StateCode
	CanTransitionTo(next state) bool
	// ExecuteInbound returns the next state and the action to run before moving to it, or a nil state for
	// messages that do not belong to this state.
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
	case StateNameNull:
		return &null{}, nil
	case StateNameOfferReceived:
		return &offerReceived{}, nil
	case StateNameRequestSent:
		return &requestSent{}, nil
	case StateNameAccepted:
		return &accepted{}, nil
	case StateNameRejected:
		return &rejected{}, nil
	case StateNameProblem:
		return &problem{}, nil
	default:
		return nil, fmt.Errorf("invalid state name %s", name)
	}
}

func isTerminal(s state) bool {
	return s.Name() == StateNameRejected || s.Name() == StateNameProblem
}

func isProblemReport(msgType string) bool {
	return msgType == protocol.CredentialProblemReportType || msgType == protocol.ProblemReportMsgType
}

// reported handles a problem report on the exchange thread.
func reported(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if !isProblemReport(msg.Type()) || msg.ThreadID() != c.rec.ThreadID {
		return nil, nil, nil
	}

	report := &protocol.ProblemReport{}
	if err := msg.Decode(report); err != nil {
		logger.Debugf("ignoring malformed problem report: %v", err)

		return nil, nil, nil
	}

	c.rec.ProblemReport = report
	c.rec.ReportedByPeer = true

	if protocol.IsRejection(report.Description.Code) {
		return &rejected{}, nil, nil
	}

	return &problem{}, nil, nil
}

type null struct{}

func (s *null) Name() string {
	return StateNameNull
}

func (s *null) Code() protocol.StateCode {
	return protocol.StateNone
}

func (s *null) CanTransitionTo(next state) bool {
	return next.Name() == StateNameOfferReceived
}

func (s *null) ExecuteInbound(protocol.Message, *execContext) (state, stateAction, error) {
	return nil, nil, nil
}

// offerReceived: the holder decides whether to request the credential.
type offerReceived struct{}

func (s *offerReceived) Name() string {
	return StateNameOfferReceived
}

func (s *offerReceived) Code() protocol.StateCode {
	return protocol.StateRequestReceived
}

func (s *offerReceived) CanTransitionTo(next state) bool {
	return next.Name() == StateNameRequestSent || isTerminal(next)
}

func (s *offerReceived) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	return reported(msg, c)
}

// requestSent: the holder waits for the issued credential.
type requestSent struct{}

func (s *requestSent) Name() string {
	return StateNameRequestSent
}

func (s *requestSent) Code() protocol.StateCode {
	return protocol.StateOfferSent
}

func (s *requestSent) CanTransitionTo(next state) bool {
	return next.Name() == StateNameAccepted || isTerminal(next)
}

func (s *requestSent) ExecuteInbound(msg protocol.Message, c *execContext) (state, stateAction, error) {
	if msg.Type() != protocol.IssueCredentialMsgType {
		return reported(msg, c)
	}

	if msg.ThreadID() != c.rec.ThreadID {
		return nil, nil, nil
	}

	rec := c.rec

	cred, reason, err := verifyIssued(c, msg)
	if err != nil {
		return nil, nil, err
	}

	if reason != "" {
		report := protocol.NewProblemReport(protocol.CredentialProblemReportType, rec.ThreadID,
			problemCodeInvalidCredential, reason)
		rec.ProblemReport = report

		return &problem{}, func() error { return send(c, report) }, nil
	}

	rec.Credential = cred
	rec.Referent = uuid.New().String()

	return &accepted{}, func() error {
		if err := storeCredential(c.ctx, c.p.Wallet(), rec); err != nil {
			return err
		}

		if err := send(c, protocol.NewAck(protocol.CredentialAckMsgType, rec.ThreadID)); err != nil {
			logger.Warnf("credential %s: ack not delivered: %v", rec.SourceID, err)
		}

		return nil
	}, nil
}

// verifyIssued checks the issued credential against the offer and the issuer key on the ledger. A non-empty
// reason means the credential is not acceptable; an error means a collaborator failed.
func verifyIssued(c *execContext, msg protocol.Message) (*credformat.Credential, string, error) {
	issued := &IssueCredential{}
	if err := msg.Decode(issued); err != nil {
		return nil, "issue-credential message cannot be decoded", nil
	}

	cred := &credformat.Credential{}
	if err := protocol.DecodeAttachment(issued.CredentialsAttach, credformat.CredentialAttachID, cred); err != nil {
		return nil, "credential attachment cannot be decoded", nil
	}

	if err := cred.Validate(); err != nil {
		return nil, err.Error(), nil
	}

	if cred.CredDefID != c.rec.OfferAttach.CredDefID || cred.SchemaID != c.rec.OfferAttach.SchemaID {
		return nil, "credential does not match the offer", nil
	}

	credDef, err := c.p.Ledger().ResolveCredDef(c.ctx, cred.CredDefID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, "credential definition is not on the ledger", nil
	}

	if err != nil {
		return nil, "", vcxerr.Collaborator(err, "resolve cred def %s", cred.CredDefID)
	}

	input, err := cred.SigningInput()
	if err != nil {
		return nil, "", fmt.Errorf("credential signing input: %w", err)
	}

	ok, err := c.p.Wallet().Verify(c.ctx, credDef.Verkey, input, cred.Signature)
	if err != nil {
		return nil, "", vcxerr.Collaborator(err, "verify credential signature")
	}

	if !ok {
		return nil, "credential signature is not valid", nil
	}

	return cred, "", nil
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

type problem struct{}

func (s *problem) Name() string {
	return StateNameProblem
}

func (s *problem) Code() protocol.StateCode {
	return protocol.StateExpired
}

func (s *problem) CanTransitionTo(state) bool {
	return false
}

func (s *problem) ExecuteInbound(protocol.Message, *execContext) (state, stateAction, error) {
	return nil, nil, nil
}
