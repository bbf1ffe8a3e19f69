/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mem

import (
	"context"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
)

func TestHub(t *testing.T) {
	hub := NewHub()

	inbox, err := transport.NewInbox(mem.NewProvider())
	require.NoError(t, err)

	endpoint := hub.Register("bob", inbox)
	require.Equal(t, "mem://bob", endpoint)

	client := transport.NewClient(nil, hub)
	msg := protocol.MustMessage(&protocol.Ack{Header: protocol.NewHeader(protocol.AckMsgType), Status: "OK"})

	t.Run("delivers to the named inbox", func(t *testing.T) {
		err := client.Send(context.Background(), &transport.Destination{
			RecipientKeys:   []string{"bobkey"},
			ServiceEndpoint: endpoint,
		}, msg)
		require.NoError(t, err)

		pending, err := transport.NewClient(inbox).PollInbox(context.Background(), "bobkey")
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, msg.ID(), pending[0].UID)
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		err := client.Send(context.Background(), &transport.Destination{
			RecipientKeys:   []string{"bobkey"},
			ServiceEndpoint: "mem://carol",
		}, msg)
		require.Error(t, err)
	})

	t.Run("no outbound for scheme", func(t *testing.T) {
		err := client.Send(context.Background(), &transport.Destination{
			RecipientKeys:   []string{"bobkey"},
			ServiceEndpoint: "https://example.com",
		}, msg)
		require.ErrorIs(t, err, transport.ErrNoOutbound)
	})

	t.Run("unregister", func(t *testing.T) {
		hub.Unregister("bob")
		require.Error(t, hub.Send(context.Background(), []byte(`{}`), endpoint))
	})
}
