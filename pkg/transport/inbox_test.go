/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"context"
	"testing"
	"time"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
)

func newAck(t *testing.T) protocol.Message {
	t.Helper()

	return protocol.MustMessage(protocol.NewAck(protocol.AckMsgType, "thread"))
}

func TestInbox(t *testing.T) {
	inbox, err := NewInbox(mem.NewProvider())
	require.NoError(t, err)

	tick := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	inbox.now = func() time.Time {
		tick = tick.Add(time.Second)

		return tick
	}

	var arrivals int

	inbox.OnArrival(func(*InboxMessage) { arrivals++ })

	first, second, other := newAck(t), newAck(t), newAck(t)

	require.NoError(t, inbox.Add(&Envelope{To: "alice", Msg: first}))
	require.NoError(t, inbox.Add(&Envelope{To: "alice", Msg: second}))
	require.NoError(t, inbox.Add(&Envelope{To: "bob", Msg: other}))
	require.Equal(t, 3, arrivals)

	client := NewClient(inbox)

	t.Run("poll returns pending messages in arrival order", func(t *testing.T) {
		msgs, err := client.PollInbox(context.Background(), "alice")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		require.Equal(t, first.ID(), msgs[0].UID)
		require.Equal(t, second.ID(), msgs[1].UID)
		require.Equal(t, StatusReceived, msgs[0].Status)
	})

	t.Run("reviewed messages leave the poll", func(t *testing.T) {
		require.NoError(t, client.UpdateStatus(context.Background(), "alice", StatusReviewed, first.ID()))

		msgs, err := client.PollInbox(context.Background(), "alice")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.Equal(t, second.ID(), msgs[0].UID)
	})

	t.Run("download across recipients", func(t *testing.T) {
		msgs, err := client.Download(context.Background(), nil, "", nil)
		require.NoError(t, err)
		require.Len(t, msgs, 3)

		msgs, err = client.Download(context.Background(), []string{"alice"}, StatusReviewed, nil)
		require.NoError(t, err)
		require.Len(t, msgs, 1)

		msgs, err = client.Download(context.Background(), []string{"alice", "bob"}, "", []string{other.ID()})
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.Equal(t, "bob", msgs[0].RecipientKey)
	})

	t.Run("update unknown message", func(t *testing.T) {
		require.Error(t, client.UpdateStatus(context.Background(), "alice", StatusReviewed, "missing"))
	})

	t.Run("invalid envelopes", func(t *testing.T) {
		require.Error(t, inbox.Add(nil))
		require.Error(t, inbox.Add(&Envelope{Msg: first}))
		require.Error(t, inbox.Add(&Envelope{To: "did:sov:1", Msg: first}))
		require.Error(t, inbox.Add(&Envelope{To: "alice", Msg: protocol.Message{"@id": "x"}}))
	})
}

func TestClient_Send(t *testing.T) {
	client := NewClient(nil)

	err := client.Send(context.Background(), &Destination{}, newAck(t))
	require.Error(t, err)

	err = client.Send(context.Background(), &Destination{RecipientKeys: []string{"k"}, ServiceEndpoint: "x://y"}, newAck(t))
	require.ErrorIs(t, err, ErrNoOutbound)
}

func TestTakeMessage(t *testing.T) {
	inbox, err := NewInbox(mem.NewProvider())
	require.NoError(t, err)

	client := NewClient(inbox)
	ack := newAck(t)

	require.NoError(t, inbox.Add(&Envelope{To: "key", Msg: ack}))

	t.Run("wrong type", func(t *testing.T) {
		_, err := TakeMessage(context.Background(), client, "key", ack.ID(), protocol.PingMsgType)
		require.ErrorIs(t, err, vcxerr.ErrMalformedInput)
	})

	t.Run("taken once", func(t *testing.T) {
		msg, err := TakeMessage(context.Background(), client, "key", ack.ID(), protocol.AckMsgType)
		require.NoError(t, err)
		require.Equal(t, ack.ID(), msg.ID())

		_, err = TakeMessage(context.Background(), client, "key", ack.ID(), protocol.AckMsgType)
		require.ErrorIs(t, err, vcxerr.ErrNotFound)
	})
}
