/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"encoding/json"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/proof"
)

// ProofResult is the verification outcome of a received presentation.
type ProofResult struct {
	ProofState   protocol.ProofState `json:"proof_state"`
	Presentation json.RawMessage     `json:"presentation,omitempty"`
}

// ProofCreate creates a verifier proof request.
func (e *Engine) ProofCreate(token dispatcher.Token, sourceID, requestedAttrs, requestedPredicates,
	revocationInterval, name string, cb dispatcher.Callback) error {
	pr, err := proof.New(sourceID, requestedAttrs, requestedPredicates, revocationInterval, name)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		return allocate(e.proofs, pr)
	}, cb)
}

// ProofRequestMessage returns the request-presentation message without sending it.
func (e *Engine) ProofRequestMessage(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.proofs, h, func(pr *proof.Proof) (interface{}, error) {
		req, err := pr.RequestMessage()
		if err != nil {
			return nil, err
		}

		return messageJSON(req)
	}, cb)
}

// ProofCreateWithProposal creates a verifier proof answering a received propose-presentation message.
func (e *Engine) ProofCreateWithProposal(token dispatcher.Token, sourceID string, proposal []byte, name string,
	cb dispatcher.Callback) error {
	pr, err := proof.NewWithProposal(sourceID, proposal, name)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		return allocate(e.proofs, pr)
	}, cb)
}

// ProofGetProposal returns the last presentation proposal of the prover.
func (e *Engine) ProofGetProposal(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.proofs, h, func(pr *proof.Proof) (interface{}, error) {
		proposal, err := pr.Proposal()
		if err != nil {
			return nil, err
		}

		return rawJSON(proposal), nil
	}, cb)
}

// ProofSetConnection binds the proof to a connection without sending anything.
func (e *Engine) ProofSetConnection(token dispatcher.Token, h, connHandle handle.Handle, cb dispatcher.Callback) error {
	if connHandle == 0 {
		return vcxerr.New(vcxerr.InvalidHandle, "connection handle is required")
	}

	return submitExchange(e, token, e.proofs, h, connHandle,
		func(pr *proof.Proof, conn peer) (interface{}, error) {
			if conn.PwDID() == "" {
				return nil, vcxerr.New(vcxerr.InvalidState, "connection has no pairwise DID yet")
			}

			return nil, nil
		}, cb)
}

// ProofSendRequest sends the request over a connection. connHandle 0 uses the bound connection.
func (e *Engine) ProofSendRequest(token dispatcher.Token, h, connHandle handle.Handle, cb dispatcher.Callback) error {
	return submitExchange(e, token, e.proofs, h, connHandle,
		func(pr *proof.Proof, conn peer) (interface{}, error) {
			if err := pr.SendRequest(e.ctx, e, conn); err != nil {
				return nil, err
			}

			return pr.State(), nil
		}, cb)
}

// ProofUpdateState polls the connection inbox in poll delivery mode.
func (e *Engine) ProofUpdateState(token dispatcher.Token, h, connHandle handle.Handle, cb dispatcher.Callback) error {
	return submitExchange(e, token, e.proofs, h, connHandle,
		func(pr *proof.Proof, conn peer) (interface{}, error) {
			if !e.pushMode() {
				if err := pr.UpdateState(e.ctx, e, conn); err != nil {
					return nil, err
				}
			}

			return pr.State(), nil
		}, cb)
}

// ProofUpdateStateWithMessage feeds one message to the proof.
func (e *Engine) ProofUpdateStateWithMessage(token dispatcher.Token, h handle.Handle, msg []byte,
	cb dispatcher.Callback) error {
	m, err := protocol.NewMessage(msg)
	if err != nil {
		return err
	}

	return submitExchange(e, token, e.proofs, h, 0,
		func(pr *proof.Proof, conn peer) (interface{}, error) {
			if _, err := pr.UpdateStateWithMessage(e.ctx, e, conn, m); err != nil {
				return nil, err
			}

			return pr.State(), nil
		}, cb)
}

// ProofGetState reports the state.
func (e *Engine) ProofGetState(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitState(e, token, e.proofs, h, cb)
}

// ProofGet returns the verification outcome and the presentation. The result is a ProofResult.
func (e *Engine) ProofGet(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.proofs, h, func(pr *proof.Proof) (interface{}, error) {
		state, presentation, err := pr.Result()
		if err != nil {
			return nil, err
		}

		return &ProofResult{ProofState: state, Presentation: json.RawMessage(presentation)}, nil
	}, cb)
}

// ProofProblemReport returns the last problem report, or an empty object.
func (e *Engine) ProofProblemReport(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.proofs, h, func(pr *proof.Proof) (interface{}, error) {
		return rawJSON(pr.ProblemReport()), nil
	}, cb)
}

// ProofSerialize returns the proof snapshot.
func (e *Engine) ProofSerialize(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitSerialize(e, token, e.proofs, h, cb)
}

// ProofDeserialize restores a verifier proof.
func (e *Engine) ProofDeserialize(token dispatcher.Token, snapshot string, cb dispatcher.Callback) error {
	pr, err := proof.Deserialize(snapshot)

	return submitDeserialize(e, token, e.proofs, pr, err, cb)
}

// ProofRelease invalidates the handle.
func (e *Engine) ProofRelease(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitRelease(e, token, e.proofs, h, cb)
}
