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
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credential"
)

// CredentialCreateWithOffer creates a holder credential from an offer message.
func (e *Engine) CredentialCreateWithOffer(token dispatcher.Token, sourceID string, offer []byte,
	cb dispatcher.Callback) error {
	msg, err := protocol.NewMessage(offer)
	if err != nil {
		return err
	}

	c, err := credential.NewWithOffer(sourceID, msg)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		return allocate(e.credentials, c)
	}, cb)
}

// CredentialCreateWithMessageID creates a holder credential from the pending offer msgID of a connection. The result
// is a HandleWithMessage carrying the offer.
func (e *Engine) CredentialCreateWithMessageID(token dispatcher.Token, sourceID string, connHandle handle.Handle,
	msgID string, cb dispatcher.Callback) error {
	if msgID == "" {
		return vcxerr.New(vcxerr.MalformedInput, "message id is required")
	}

	return e.submitFromConnection(token, connHandle, func(conn *connection.Connection) (interface{}, error) {
		c, err := credential.NewWithMessageID(e.ctx, e, conn, sourceID, msgID)
		if err != nil {
			return nil, err
		}

		c.BindConnection(conn.PwDID())

		offer, err := json.Marshal(c.Offer())
		if err != nil {
			return nil, vcxerr.Wrap(vcxerr.Unknown, err, "marshal offer")
		}

		h, err := e.credentials.Allocate(c)
		if err != nil {
			return nil, err
		}

		return &HandleWithMessage{Handle: h, Message: offer}, nil
	}, cb)
}

// CredentialOffers lists the offers pending on a connection.
func (e *Engine) CredentialOffers(token dispatcher.Token, connHandle handle.Handle, cb dispatcher.Callback) error {
	return e.submitFromConnection(token, connHandle, func(conn *connection.Connection) (interface{}, error) {
		offers, err := credential.Offers(e.ctx, e, conn)
		if err != nil {
			return nil, err
		}

		return messagesJSON(offers)
	}, cb)
}

// CredentialSendRequest requests the offered credential.
func (e *Engine) CredentialSendRequest(token dispatcher.Token, h, connHandle handle.Handle,
	cb dispatcher.Callback) error {
	if connHandle == 0 {
		return vcxerr.New(vcxerr.InvalidHandle, "connection handle is required")
	}

	return submitExchange(e, token, e.credentials, h, connHandle,
		func(c *credential.Credential, conn peer) (interface{}, error) {
			if err := c.SendRequest(e.ctx, e, conn); err != nil {
				return nil, err
			}

			return c.State(), nil
		}, cb)
}

// CredentialRequestMessage builds the request message for the given pairwise DID without sending it.
func (e *Engine) CredentialRequestMessage(token dispatcher.Token, h handle.Handle, myPwDID string,
	cb dispatcher.Callback) error {
	return submitWith(e, token, e.credentials, h, func(c *credential.Credential) (interface{}, error) {
		req, _, err := c.RequestMessage(myPwDID)
		if err != nil {
			return nil, err
		}

		return messageJSON(req)
	}, cb)
}

// CredentialUpdateState polls the connection inbox in poll delivery mode. connHandle 0 uses the bound connection.
func (e *Engine) CredentialUpdateState(token dispatcher.Token, h, connHandle handle.Handle,
	cb dispatcher.Callback) error {
	return submitExchange(e, token, e.credentials, h, connHandle,
		func(c *credential.Credential, conn peer) (interface{}, error) {
			if !e.pushMode() {
				if err := c.UpdateState(e.ctx, e, conn); err != nil {
					return nil, err
				}
			}

			return c.State(), nil
		}, cb)
}

// CredentialUpdateStateWithMessage feeds one message to the credential.
func (e *Engine) CredentialUpdateStateWithMessage(token dispatcher.Token, h handle.Handle, msg []byte,
	cb dispatcher.Callback) error {
	m, err := protocol.NewMessage(msg)
	if err != nil {
		return err
	}

	return submitExchange(e, token, e.credentials, h, 0,
		func(c *credential.Credential, conn peer) (interface{}, error) {
			if _, err := c.UpdateStateWithMessage(e.ctx, e, conn, m); err != nil {
				return nil, err
			}

			return c.State(), nil
		}, cb)
}

// CredentialGetState reports the state.
func (e *Engine) CredentialGetState(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitState(e, token, e.credentials, h, cb)
}

// CredentialGet returns the issued credential.
func (e *Engine) CredentialGet(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.credentials, h, func(c *credential.Credential) (interface{}, error) {
		raw, err := c.CredentialJSON()
		if err != nil {
			return nil, err
		}

		return rawJSON(raw), nil
	}, cb)
}

// CredentialInfo describes the stored credential.
func (e *Engine) CredentialInfo(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.credentials, h, func(c *credential.Credential) (interface{}, error) {
		return c.Info()
	}, cb)
}

// CredentialDelete removes the stored credential from the wallet.
func (e *Engine) CredentialDelete(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.credentials, h, func(c *credential.Credential) (interface{}, error) {
		return nil, c.Delete(e.ctx, e)
	}, cb)
}

// CredentialReject tells the issuer the exchange is rejected.
func (e *Engine) CredentialReject(token dispatcher.Token, h, connHandle handle.Handle, comment string,
	cb dispatcher.Callback) error {
	return submitExchange(e, token, e.credentials, h, connHandle,
		func(c *credential.Credential, conn peer) (interface{}, error) {
			if err := c.Reject(e.ctx, e, conn, comment); err != nil {
				return nil, err
			}

			return c.State(), nil
		}, cb)
}

// CredentialProblemReport returns the last problem report, or an empty object.
func (e *Engine) CredentialProblemReport(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.credentials, h, func(c *credential.Credential) (interface{}, error) {
		return rawJSON(c.ProblemReport()), nil
	}, cb)
}

// CredentialSerialize returns the credential snapshot.
func (e *Engine) CredentialSerialize(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitSerialize(e, token, e.credentials, h, cb)
}

// CredentialDeserialize restores a holder credential.
func (e *Engine) CredentialDeserialize(token dispatcher.Token, snapshot string, cb dispatcher.Callback) error {
	c, err := credential.Deserialize(snapshot)

	return submitDeserialize(e, token, e.credentials, c, err, cb)
}

// CredentialRelease invalidates the handle.
func (e *Engine) CredentialRelease(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitRelease(e, token, e.credentials, h, cb)
}
