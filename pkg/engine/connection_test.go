/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/connection"
)

func TestEngine_ConnectionHandshake(t *testing.T) {
	n := newNetwork()
	alice := n.agent(t, "alice", nil)
	bob := n.agent(t, "bob", nil)

	ab, ba := connect(t, alice, bob)

	alicePwDID := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.ConnectionPwDID(tok, ab, cb)
	}).(string)

	bobTheirs := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.ConnectionTheirPwDID(tok, ba, cb)
	}).(string)
	require.Equal(t, alicePwDID, bobTheirs)

	info := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.ConnectionInfo(tok, ab, cb)
	}).(json.RawMessage)

	summary := &connection.Summary{}
	require.NoError(t, json.Unmarshal(info, summary))
	require.Equal(t, alicePwDID, summary.Current.DID)
	require.Equal(t, bob.ServiceEndpoint(), summary.Remote.ServiceEndpoint)

	report := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.ConnectionProblemReport(tok, ab, cb)
	}).(json.RawMessage)
	require.JSONEq(t, "{}", string(report))

	t.Run("abbreviated invitation", func(t *testing.T) {
		details := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.ConnectionInviteDetails(tok, ab, true, cb)
		}).(json.RawMessage)
		require.Contains(t, string(details), `"k":[`)
	})

	t.Run("signatures", func(t *testing.T) {
		sig := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.ConnectionSignData(tok, ab, []byte("payload"), cb)
		}).([]byte)

		valid := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return bob.ConnectionVerifySignature(tok, ba, []byte("payload"), sig, cb)
		})
		require.Equal(t, true, valid)

		valid = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return bob.ConnectionVerifySignature(tok, ba, []byte("tampered"), sig, cb)
		})
		require.Equal(t, false, valid)
	})

	t.Run("basic message", func(t *testing.T) {
		id := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.ConnectionSendMessage(tok, ab, "hello bob", nil, cb)
		}).(string)
		require.NotEmpty(t, id)

		res := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return bob.MessagesDownload(tok, "MS-103", "", "", cb)
		}).([]*ConnectionMessages)
		require.Len(t, res, 1)
		require.Len(t, res[0].Msgs, 1)
		require.Equal(t, protocol.BasicMessageMsgType, res[0].Msgs[0].Type)
	})

	t.Run("ping", func(t *testing.T) {
		mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.ConnectionSendPing(tok, ab, "are you there", cb)
		})

		mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.ConnectionSendDiscoveryFeatures(tok, ab, "*", "", cb)
		})
	})

	t.Run("snapshot", func(t *testing.T) {
		raw := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.ConnectionSerialize(tok, ab, cb)
		}).(string)

		restored := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.ConnectionDeserialize(tok, raw, cb)
		}).(handle.Handle)
		require.NotEqual(t, ab, restored)

		state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.ConnectionGetState(tok, restored, cb)
		})
		require.Equal(t, protocol.StateAccepted, state)
	})

	t.Run("delete", func(t *testing.T) {
		mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return bob.ConnectionDelete(tok, ba, cb)
		})

		_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return bob.ConnectionSendMessage(tok, ba, "still there?", nil, cb)
		})
		require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(err))
	})
}

func TestEngine_ConnectionAcceptInvite(t *testing.T) {
	n := newNetwork()
	alice := n.agent(t, "alice", nil)
	bob := n.agent(t, "bob", nil)

	ab := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.ConnectionCreateOutOfBand(tok, "oob", "issue-vc", "To issue a credential", cb)
	}).(handle.Handle)

	invite := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.ConnectionConnect(tok, ab, nil, cb)
	}).(json.RawMessage)
	require.Contains(t, string(invite), "issue-vc")

	ba := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.ConnectionAcceptInvite(tok, "accept", invite, nil, cb)
	}).(handle.Handle)

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.ConnectionGetState(tok, ba, cb)
	})
	require.Equal(t, protocol.StateRequestReceived, state)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.ConnectionUpdateState(tok, ab, cb)
	})
	require.Equal(t, protocol.StateAccepted, state)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.ConnectionUpdateState(tok, ba, cb)
	})
	require.Equal(t, protocol.StateAccepted, state)
}
