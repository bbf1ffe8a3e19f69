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
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
)

// HandleWithMessage is the result of creating an object from a pending message.
type HandleWithMessage struct {
	Handle  handle.Handle   `json:"handle"`
	Message json.RawMessage `json:"message"`
}

// HandleWithID is the result of publishing a ledger object.
type HandleWithID struct {
	Handle handle.Handle `json:"handle"`
	ID     string        `json:"id"`
}

// exchange is a protocol object bound to a connection by my pairwise DID.
type exchange interface {
	protocol.Object
	ConnectionDID() string
	BindConnection(pwDID string)
}

// peer is the connection an exchange runs over, nil while the exchange is not bound to one.
type peer interface {
	Accepted() bool
	PwDID() string
	Verkey() string
	TheirVerkey() string
	Destination() (*transport.Destination, error)
}

func (e *Engine) submit(token dispatcher.Token, fn dispatcher.Func, cb dispatcher.Callback) error {
	return e.dispatcher.Submit(token, fn, cb)
}

func allocate[T any](t *handle.Table[T], obj T) (interface{}, error) {
	h, err := t.Allocate(obj)
	if err != nil {
		return nil, err
	}

	return h, nil
}

// submitWith runs fn with exclusive access to the object behind h.
func submitWith[T any](e *Engine, token dispatcher.Token, t *handle.Table[T], h handle.Handle,
	fn func(obj T) (interface{}, error), cb dispatcher.Callback) error {
	if err := t.Exists(h); err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		var out interface{}

		err := t.With(h, func(obj T) error {
			var err error
			out, err = fn(obj)

			return err
		})

		return out, err
	}, cb)
}

// submitExchange runs fn with the exchange behind h locked first and its connection second. connHandle 0 selects the
// loaded connection the exchange is bound to, or none when it is unbound; any other value binds the exchange to it
// once fn succeeds.
func submitExchange[T exchange](e *Engine, token dispatcher.Token, t *handle.Table[T], h, connHandle handle.Handle,
	fn func(obj T, conn peer) (interface{}, error), cb dispatcher.Callback) error {
	if err := t.Exists(h); err != nil {
		return err
	}

	if connHandle != 0 {
		if err := e.connections.Exists(connHandle); err != nil {
			return err
		}
	}

	return e.submit(token, func() (interface{}, error) {
		var out interface{}

		err := t.With(h, func(obj T) error {
			ch := connHandle
			if ch == 0 && obj.ConnectionDID() != "" {
				bound, ok := e.connectionOf(obj.ConnectionDID())
				if !ok {
					return vcxerr.New(vcxerr.InvalidHandle, "connection %s of %s %d is not loaded", obj.ConnectionDID(),
						t.Kind(), h)
				}

				ch = bound
			}

			if ch == 0 {
				var err error
				out, err = fn(obj, nil)

				return err
			}

			return e.connections.With(ch, func(conn *connection.Connection) error {
				var err error
				if out, err = fn(obj, conn); err != nil {
					return err
				}

				if connHandle != 0 && conn.PwDID() != "" {
					obj.BindConnection(conn.PwDID())
				}

				return nil
			})
		})

		return out, err
	}, cb)
}

// submitFromConnection runs fn with the connection behind connHandle locked.
func (e *Engine) submitFromConnection(token dispatcher.Token, connHandle handle.Handle,
	fn func(conn *connection.Connection) (interface{}, error), cb dispatcher.Callback) error {
	return submitWith(e, token, e.connections, connHandle, fn, cb)
}

func submitState[T protocol.Object](e *Engine, token dispatcher.Token, t *handle.Table[T], h handle.Handle,
	cb dispatcher.Callback) error {
	return submitWith(e, token, t, h, func(obj T) (interface{}, error) {
		return obj.State(), nil
	}, cb)
}

func submitSerialize[T protocol.Object](e *Engine, token dispatcher.Token, t *handle.Table[T], h handle.Handle,
	cb dispatcher.Callback) error {
	return submitWith(e, token, t, h, func(obj T) (interface{}, error) {
		return obj.Serialize()
	}, cb)
}

// submitDeserialize allocates the object restored by the caller. Restoring happens before the call is accepted so a
// bad snapshot is rejected synchronously.
func submitDeserialize[T any](e *Engine, token dispatcher.Token, t *handle.Table[T], obj T, err error,
	cb dispatcher.Callback) error {
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		return allocate(t, obj)
	}, cb)
}

func submitRelease[T any](e *Engine, token dispatcher.Token, t *handle.Table[T], h handle.Handle,
	cb dispatcher.Callback) error {
	if err := t.Exists(h); err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		return nil, t.Release(h)
	}, cb)
}

func rawJSON(s string) json.RawMessage {
	return json.RawMessage(s)
}

func messagesJSON(msgs []protocol.Message) (interface{}, error) {
	if msgs == nil {
		msgs = []protocol.Message{}
	}

	raw, err := json.Marshal(msgs)
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.Unknown, err, "marshal messages")
	}

	return json.RawMessage(raw), nil
}

func messageJSON(v interface{}) (interface{}, error) {
	msg, err := protocol.NewMessageFromStruct(v)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(msg.JSON()), nil
}
