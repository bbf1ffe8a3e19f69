/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/connection"
)

// ConnectionCreate creates an inviter connection. The result is its handle.
func (e *Engine) ConnectionCreate(token dispatcher.Token, sourceID string, cb dispatcher.Callback) error {
	return e.submit(token, func() (interface{}, error) {
		return allocate(e.connections, connection.New(sourceID))
	}, cb)
}

// ConnectionCreateOutOfBand creates an inviter connection whose invitation carries a goal.
func (e *Engine) ConnectionCreateOutOfBand(token dispatcher.Token, sourceID, goalCode, goal string,
	cb dispatcher.Callback) error {
	return e.submit(token, func() (interface{}, error) {
		return allocate(e.connections, connection.NewOutOfBand(sourceID, goalCode, goal))
	}, cb)
}

// ConnectionCreateWithInvite creates an invitee connection from a received invitation.
func (e *Engine) ConnectionCreateWithInvite(token dispatcher.Token, sourceID string, invite []byte,
	cb dispatcher.Callback) error {
	c, err := connection.NewWithInvite(sourceID, invite)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		return allocate(e.connections, c)
	}, cb)
}

// ConnectionAcceptInvite creates an invitee connection and connects it. No handle is allocated when connecting
// fails.
func (e *Engine) ConnectionAcceptInvite(token dispatcher.Token, sourceID string, invite []byte,
	opts *connection.ConnectOptions, cb dispatcher.Callback) error {
	c, err := connection.NewWithInvite(sourceID, invite)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		if err := c.Connect(e.ctx, e, opts); err != nil {
			return nil, err
		}

		h, err := e.connections.Allocate(c)
		if err != nil {
			return nil, err
		}

		e.remember(c, h)

		return h, nil
	}, cb)
}

// ConnectionConnect creates the pairwise key and starts the handshake. The result is the invitation.
func (e *Engine) ConnectionConnect(token dispatcher.Token, h handle.Handle, opts *connection.ConnectOptions,
	cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		if err := c.Connect(e.ctx, e, opts); err != nil {
			return nil, err
		}

		e.remember(c, h)

		details, err := c.InviteDetails(false)
		if err != nil {
			return nil, err
		}

		return rawJSON(details), nil
	}, cb)
}

// ConnectionInviteDetails returns the invitation of a connected connection.
func (e *Engine) ConnectionInviteDetails(token dispatcher.Token, h handle.Handle, abbreviated bool,
	cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		details, err := c.InviteDetails(abbreviated)
		if err != nil {
			return nil, err
		}

		return rawJSON(details), nil
	}, cb)
}

// ConnectionUpdateState polls the connection inbox in poll delivery mode. The result is the state.
func (e *Engine) ConnectionUpdateState(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		if !e.pushMode() {
			if err := c.UpdateState(e.ctx, e); err != nil {
				return nil, err
			}
		}

		e.remember(c, h)

		return c.State(), nil
	}, cb)
}

// ConnectionUpdateStateWithMessage feeds one message to the connection. The result is the state.
func (e *Engine) ConnectionUpdateStateWithMessage(token dispatcher.Token, h handle.Handle, msg []byte,
	cb dispatcher.Callback) error {
	m, err := protocol.NewMessage(msg)
	if err != nil {
		return err
	}

	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		if _, err := c.UpdateStateWithMessage(e.ctx, e, m); err != nil {
			return nil, err
		}

		e.remember(c, h)

		return c.State(), nil
	}, cb)
}

// ConnectionGetState reports the state.
func (e *Engine) ConnectionGetState(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitState(e, token, e.connections, h, cb)
}

// ConnectionProblemReport returns the last problem report, or an empty object.
func (e *Engine) ConnectionProblemReport(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		return rawJSON(c.ProblemReport()), nil
	}, cb)
}

// ConnectionInfo describes both sides of the connection.
func (e *Engine) ConnectionInfo(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		info, err := c.Info()
		if err != nil {
			return nil, err
		}

		return rawJSON(info), nil
	}, cb)
}

// ConnectionPwDID returns my pairwise DID.
func (e *Engine) ConnectionPwDID(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		return c.PwDID(), nil
	}, cb)
}

// ConnectionTheirPwDID returns their pairwise DID.
func (e *Engine) ConnectionTheirPwDID(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		return c.TheirPwDID()
	}, cb)
}

// ConnectionSendMessage sends a basic message. The result is its id.
func (e *Engine) ConnectionSendMessage(token dispatcher.Token, h handle.Handle, content string,
	opts *connection.SendMessageOptions, cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		return c.SendMessage(e.ctx, e, content, opts)
	}, cb)
}

// ConnectionSignData signs data with my pairwise key.
func (e *Engine) ConnectionSignData(token dispatcher.Token, h handle.Handle, data []byte,
	cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		return c.SignData(e.ctx, e, data)
	}, cb)
}

// ConnectionVerifySignature checks a signature of their pairwise key. The result tells whether it is valid.
func (e *Engine) ConnectionVerifySignature(token dispatcher.Token, h handle.Handle, data, sig []byte,
	cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		return c.VerifySignature(e.ctx, e, data, sig)
	}, cb)
}

// ConnectionSendPing sends a trust ping.
func (e *Engine) ConnectionSendPing(token dispatcher.Token, h handle.Handle, comment string,
	cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		return nil, c.SendPing(e.ctx, e, comment)
	}, cb)
}

// ConnectionSendReuse answers an out-of-band invitation over an existing connection.
func (e *Engine) ConnectionSendReuse(token dispatcher.Token, h handle.Handle, invite []byte,
	cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		return nil, c.SendReuse(e.ctx, e, invite)
	}, cb)
}

// ConnectionSendDiscoveryFeatures asks the remote party which protocols it supports.
func (e *Engine) ConnectionSendDiscoveryFeatures(token dispatcher.Token, h handle.Handle, query, comment string,
	cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		return nil, c.SendDiscoveryFeatures(e.ctx, e, query, comment)
	}, cb)
}

// ConnectionSendAnswer answers a received question.
func (e *Engine) ConnectionSendAnswer(token dispatcher.Token, h handle.Handle, question, answer []byte,
	cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		return nil, c.SendAnswer(e.ctx, e, question, answer)
	}, cb)
}

// ConnectionDelete revokes the connection, telling the remote party when it is known.
func (e *Engine) ConnectionDelete(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return e.submitFromConnection(token, h, func(c *connection.Connection) (interface{}, error) {
		if err := c.Delete(e.ctx, e); err != nil {
			return nil, err
		}

		return c.State(), nil
	}, cb)
}

// ConnectionSerialize returns the connection snapshot.
func (e *Engine) ConnectionSerialize(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitSerialize(e, token, e.connections, h, cb)
}

// ConnectionDeserialize restores a connection. The result is its new handle. Exchanges bound to its pairwise DID
// run over the restored connection from then on.
func (e *Engine) ConnectionDeserialize(token dispatcher.Token, snapshot string, cb dispatcher.Callback) error {
	c, err := connection.Deserialize(snapshot)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		h, err := e.connections.Allocate(c)
		if err != nil {
			return nil, err
		}

		e.remember(c, h)

		return h, nil
	}, cb)
}

// ConnectionRelease invalidates the handle.
func (e *Engine) ConnectionRelease(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	if err := e.connections.Exists(h); err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		var pwDID string

		if err := e.connections.With(h, func(c *connection.Connection) error {
			pwDID = c.PwDID()
			return nil
		}); err != nil {
			return nil, err
		}

		if err := e.connections.Release(h); err != nil {
			return nil, err
		}

		e.forget(pwDID, h)

		return nil, nil
	}, cb)
}
