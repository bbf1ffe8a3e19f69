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
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
)

func TestEngine_PushDelivery(t *testing.T) {
	n := newNetwork()
	notifier := &recordingNotifier{}

	alice := n.agent(t, "alice", nil)
	bob := n.agent(t, "bob", &Config{DeliveryMode: DeliveryPush}, WithNotifier(notifier))

	ab := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.ConnectionCreate(tok, "to-bob", cb)
	}).(handle.Handle)

	invite := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.ConnectionConnect(tok, ab, nil, cb)
	}).(json.RawMessage)

	ba := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.ConnectionAcceptInvite(tok, "to-alice", invite, nil, cb)
	}).(handle.Handle)

	bobPwDID := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.ConnectionPwDID(tok, ba, cb)
	}).(string)

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.ConnectionUpdateState(tok, ab, cb)
	})
	require.Equal(t, protocol.StateAccepted, state)

	notices := notifier.topic(InboundMessageTopic)
	require.Len(t, notices, 1)

	notice := &inboundNotice{}
	require.NoError(t, json.Unmarshal(notices[0], notice))
	require.Equal(t, bobPwDID, notice.PairwiseDID)
	require.Equal(t, protocol.ConnectionResponseType, notice.Type)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.ConnectionUpdateState(tok, ba, cb)
	})
	require.Equal(t, protocol.StateRequestReceived, state)

	downloaded := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.MessagesDownload(tok, transport.StatusReceived, "", bobPwDID, cb)
	}).([]*ConnectionMessages)
	require.Len(t, downloaded, 1)
	require.Equal(t, bobPwDID, downloaded[0].PairwiseDID)
	require.Len(t, downloaded[0].Msgs, 1)

	msg := downloaded[0].Msgs[0]
	require.Equal(t, notice.UID, msg.UID)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.ConnectionUpdateStateWithMessage(tok, ba, msg.Payload.JSON(), cb)
	})
	require.Equal(t, protocol.StateAccepted, state)

	updates, err := json.Marshal([]MessageStatusUpdate{{PairwiseDID: bobPwDID, UIDs: []string{msg.UID}}})
	require.NoError(t, err)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.MessagesUpdateStatus(tok, transport.StatusReviewed, string(updates), cb)
	})

	downloaded = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.MessagesDownload(tok, transport.StatusReceived, "", bobPwDID, cb)
	}).([]*ConnectionMessages)
	require.Empty(t, downloaded)

	downloaded = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return bob.MessagesDownload(tok, "", msg.UID, "", cb)
	}).([]*ConnectionMessages)
	require.Len(t, downloaded, 1)
	require.Equal(t, transport.StatusReviewed, downloaded[0].Msgs[0].Status)
}

func TestEngine_MessagesRejects(t *testing.T) {
	e := newNetwork().agent(t, "alice", nil)

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.MessagesDownload(tok, "MS-999", "", "", cb)
	})

	rejected(t, vcxerr.NotFound, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.MessagesDownload(tok, "", "", "did:unknown", cb)
	})

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.MessagesUpdateStatus(tok, "MS-103", "{", cb)
	})

	rejected(t, vcxerr.NotFound, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.MessagesUpdateStatus(tok, "MS-106", `[{"pairwiseDID":"nope","uids":["1"]}]`, cb)
	})

	downloaded := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.MessagesDownload(tok, "", "", "", cb)
	}).([]*ConnectionMessages)
	require.Empty(t, downloaded)
}
