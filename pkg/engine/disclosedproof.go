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
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/connection"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/disclosedproof"
)

// DisclosedProofCreateWithRequest creates a disclosed proof from a received presentation request.
func (e *Engine) DisclosedProofCreateWithRequest(token dispatcher.Token, sourceID string, request []byte,
	cb dispatcher.Callback) error {
	d, err := disclosedproof.NewWithRequest(sourceID, request)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		return allocate(e.disclosedProofs, d)
	}, cb)
}

// DisclosedProofCreateWithMessageID creates a disclosed proof from the pending request msgID of a connection. The
// result is a HandleWithMessage carrying the request.
func (e *Engine) DisclosedProofCreateWithMessageID(token dispatcher.Token, sourceID string,
	connHandle handle.Handle, msgID string, cb dispatcher.Callback) error {
	if msgID == "" {
		return vcxerr.New(vcxerr.MalformedInput, "message id is required")
	}

	return e.submitFromConnection(token, connHandle, func(conn *connection.Connection) (interface{}, error) {
		d, err := disclosedproof.NewWithMessageID(e.ctx, e, conn, sourceID, msgID)
		if err != nil {
			return nil, err
		}

		d.BindConnection(conn.PwDID())

		request, err := d.RequestJSON()
		if err != nil {
			return nil, err
		}

		h, err := e.disclosedProofs.Allocate(d)
		if err != nil {
			return nil, err
		}

		return &HandleWithMessage{Handle: h, Message: json.RawMessage(request)}, nil
	}, cb)
}

// DisclosedProofCreateProposal creates an exchange started by proposing a presentation.
func (e *Engine) DisclosedProofCreateProposal(token dispatcher.Token, sourceID, proposal, comment string,
	cb dispatcher.Callback) error {
	d, err := disclosedproof.NewProposal(sourceID, proposal, comment)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		return allocate(e.disclosedProofs, d)
	}, cb)
}

// DisclosedProofRequests lists the presentation requests pending on a connection.
func (e *Engine) DisclosedProofRequests(token dispatcher.Token, connHandle handle.Handle,
	cb dispatcher.Callback) error {
	return e.submitFromConnection(token, connHandle, func(conn *connection.Connection) (interface{}, error) {
		requests, err := disclosedproof.Requests(e.ctx, e, conn)
		if err != nil {
			return nil, err
		}

		return messagesJSON(requests)
	}, cb)
}

// DisclosedProofRetrieveCredentials lists the wallet credentials able to answer each referent of the request.
func (e *Engine) DisclosedProofRetrieveCredentials(token dispatcher.Token, h handle.Handle,
	cb dispatcher.Callback) error {
	return submitWith(e, token, e.disclosedProofs, h, func(d *disclosedproof.DisclosedProof) (interface{}, error) {
		return d.RetrieveCredentials(e.ctx, e)
	}, cb)
}

// DisclosedProofGenerate builds the presentation. The nonce is signed with the bound connection key when that
// connection is loaded; otherwise sending the proof signs it.
func (e *Engine) DisclosedProofGenerate(token dispatcher.Token, h handle.Handle, selectedCreds,
	selfAttested string, cb dispatcher.Callback) error {
	return submitWith(e, token, e.disclosedProofs, h, func(d *disclosedproof.DisclosedProof) (interface{}, error) {
		ch, ok := e.connectionOf(d.ConnectionDID())
		if !ok {
			return nil, d.GenerateProof(e.ctx, e, nil, selectedCreds, selfAttested)
		}

		return nil, e.connections.With(ch, func(conn *connection.Connection) error {
			return d.GenerateProof(e.ctx, e, conn, selectedCreds, selfAttested)
		})
	}, cb)
}

// DisclosedProofSendProof sends the generated presentation.
func (e *Engine) DisclosedProofSendProof(token dispatcher.Token, h, connHandle handle.Handle,
	cb dispatcher.Callback) error {
	return submitExchange(e, token, e.disclosedProofs, h, connHandle,
		func(d *disclosedproof.DisclosedProof, conn peer) (interface{}, error) {
			if err := d.SendProof(e.ctx, e, conn); err != nil {
				return nil, err
			}

			return d.State(), nil
		}, cb)
}

// DisclosedProofMessage returns the presentation message built by generate.
func (e *Engine) DisclosedProofMessage(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.disclosedProofs, h, func(d *disclosedproof.DisclosedProof) (interface{}, error) {
		msg, err := d.PresentationMessage()
		if err != nil {
			return nil, err
		}

		return messageJSON(msg)
	}, cb)
}

// DisclosedProofRequest returns the presentation request.
func (e *Engine) DisclosedProofRequest(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.disclosedProofs, h, func(d *disclosedproof.DisclosedProof) (interface{}, error) {
		request, err := d.RequestJSON()
		if err != nil {
			return nil, err
		}

		return rawJSON(request), nil
	}, cb)
}

// DisclosedProofDecline declines the request with either a reason or a counter proposal.
func (e *Engine) DisclosedProofDecline(token dispatcher.Token, h, connHandle handle.Handle, reason,
	proposal string, cb dispatcher.Callback) error {
	if (reason == "") == (proposal == "") {
		return vcxerr.New(vcxerr.MalformedInput, "exactly one of reason and proposal is required")
	}

	return submitExchange(e, token, e.disclosedProofs, h, connHandle,
		func(d *disclosedproof.DisclosedProof, conn peer) (interface{}, error) {
			if err := d.Decline(e.ctx, e, conn, reason, proposal); err != nil {
				return nil, err
			}

			return d.State(), nil
		}, cb)
}

// DisclosedProofReject tells the verifier the request is rejected.
func (e *Engine) DisclosedProofReject(token dispatcher.Token, h, connHandle handle.Handle, comment string,
	cb dispatcher.Callback) error {
	return submitExchange(e, token, e.disclosedProofs, h, connHandle,
		func(d *disclosedproof.DisclosedProof, conn peer) (interface{}, error) {
			if err := d.Reject(e.ctx, e, conn, comment); err != nil {
				return nil, err
			}

			return d.State(), nil
		}, cb)
}

// DisclosedProofSendProposal sends the proposal of an exchange created with DisclosedProofCreateProposal.
func (e *Engine) DisclosedProofSendProposal(token dispatcher.Token, h, connHandle handle.Handle,
	cb dispatcher.Callback) error {
	if connHandle == 0 {
		return vcxerr.New(vcxerr.InvalidHandle, "connection handle is required")
	}

	return submitExchange(e, token, e.disclosedProofs, h, connHandle,
		func(d *disclosedproof.DisclosedProof, conn peer) (interface{}, error) {
			if err := d.SendProposal(e.ctx, e, conn); err != nil {
				return nil, err
			}

			return d.State(), nil
		}, cb)
}

// DisclosedProofUpdateState polls the connection inbox in poll delivery mode.
func (e *Engine) DisclosedProofUpdateState(token dispatcher.Token, h, connHandle handle.Handle,
	cb dispatcher.Callback) error {
	return submitExchange(e, token, e.disclosedProofs, h, connHandle,
		func(d *disclosedproof.DisclosedProof, conn peer) (interface{}, error) {
			if !e.pushMode() {
				if err := d.UpdateState(e.ctx, e, conn); err != nil {
					return nil, err
				}
			}

			return d.State(), nil
		}, cb)
}

// DisclosedProofUpdateStateWithMessage feeds one message to the disclosed proof.
func (e *Engine) DisclosedProofUpdateStateWithMessage(token dispatcher.Token, h handle.Handle, msg []byte,
	cb dispatcher.Callback) error {
	m, err := protocol.NewMessage(msg)
	if err != nil {
		return err
	}

	return submitExchange(e, token, e.disclosedProofs, h, 0,
		func(d *disclosedproof.DisclosedProof, conn peer) (interface{}, error) {
			if _, err := d.UpdateStateWithMessage(e.ctx, e, conn, m); err != nil {
				return nil, err
			}

			return d.State(), nil
		}, cb)
}

// DisclosedProofGetState reports the state.
func (e *Engine) DisclosedProofGetState(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitState(e, token, e.disclosedProofs, h, cb)
}

// DisclosedProofProblemReport returns the last problem report, or an empty object.
func (e *Engine) DisclosedProofProblemReport(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.disclosedProofs, h, func(d *disclosedproof.DisclosedProof) (interface{}, error) {
		return rawJSON(d.ProblemReport()), nil
	}, cb)
}

// DisclosedProofSerialize returns the disclosed proof snapshot.
func (e *Engine) DisclosedProofSerialize(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitSerialize(e, token, e.disclosedProofs, h, cb)
}

// DisclosedProofDeserialize restores a disclosed proof.
func (e *Engine) DisclosedProofDeserialize(token dispatcher.Token, snapshot string, cb dispatcher.Callback) error {
	d, err := disclosedproof.Deserialize(snapshot)

	return submitDeserialize(e, token, e.disclosedProofs, d, err, cb)
}

// DisclosedProofRelease invalidates the handle.
func (e *Engine) DisclosedProofRelease(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitRelease(e, token, e.disclosedProofs, h, cb)
}
