/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walletbackup

import (
	"fmt"

	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
)

const (
	// StateNameInitialized marks a backup that never ran.
	StateNameInitialized = "initialized"
	// StateNameInProgress marks a backup sent to the agency and not acknowledged yet.
	StateNameInProgress = "in-progress"
	// StateNameReady marks a completed backup.
	StateNameReady = "ready"
	// StateNameFailed marks a backup the agency refused.
	StateNameFailed = "failed"
)

type state interface {
	Name() string
	Code() protocol.StateCode
	CanTransitionTo(next state) bool
	ExecuteInbound(msg protocol.Message, rec *record) state
}

func stateFromName(name string) (state, error) {
	switch name {
	case StateNameInitialized:
		return &initialized{}, nil
	case StateNameInProgress:
		return &inProgress{}, nil
	case StateNameReady:
		return &ready{}, nil
	case StateNameFailed:
		return &failed{}, nil
	default:
		return nil, fmt.Errorf("invalid state name %s", name)
	}
}

type initialized struct{}

func (s *initialized) Name() string {
	return StateNameInitialized
}

func (s *initialized) Code() protocol.StateCode {
	return protocol.StateInitialized
}

func (s *initialized) CanTransitionTo(next state) bool {
	return next.Name() == StateNameInProgress || next.Name() == StateNameReady
}

func (s *initialized) ExecuteInbound(protocol.Message, *record) state {
	return nil
}

type inProgress struct{}

func (s *inProgress) Name() string {
	return StateNameInProgress
}

func (s *inProgress) Code() protocol.StateCode {
	return protocol.StateOfferSent
}

func (s *inProgress) CanTransitionTo(next state) bool {
	return next.Name() == StateNameReady || next.Name() == StateNameFailed
}

func (s *inProgress) ExecuteInbound(msg protocol.Message, rec *record) state {
	if msg.ThreadID() != rec.ThreadID {
		return nil
	}

	switch msg.Type() {
	case protocol.BackupAckMsgType:
		return &ready{}
	case protocol.BackupProblemReportMsgType, protocol.ProblemReportMsgType:
		report := &protocol.ProblemReport{}
		if err := msg.Decode(report); err != nil {
			return nil
		}

		rec.ProblemReport = report

		return &failed{}
	default:
		return nil
	}
}

// ready allows another backup run.
type ready struct{}

func (s *ready) Name() string {
	return StateNameReady
}

func (s *ready) Code() protocol.StateCode {
	return protocol.StateAccepted
}

func (s *ready) CanTransitionTo(next state) bool {
	return next.Name() == StateNameInProgress || next.Name() == StateNameReady
}

func (s *ready) ExecuteInbound(protocol.Message, *record) state {
	return nil
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

func (s *failed) ExecuteInbound(protocol.Message, *record) state {
	return nil
}
