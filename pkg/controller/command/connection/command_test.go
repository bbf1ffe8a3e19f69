/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/internal/enginetest"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
)

func TestNew(t *testing.T) {
	n := enginetest.NewNetwork()
	cmd := New(n.Engine(t, "alice"), enginetest.NewNotifier())
	require.NotNil(t, cmd)

	handlers := cmd.GetHandlers()
	require.Len(t, handlers, 24)

	for _, h := range handlers {
		require.Equal(t, CommandName, h.Name())
		require.NotNil(t, h.Handle())
	}
}

func state(t *testing.T, raw json.RawMessage) protocol.StateCode {
	t.Helper()

	var s protocol.StateCode
	require.NoError(t, json.Unmarshal(raw, &s))

	return s
}

func TestCommand_Handshake(t *testing.T) {
	n := enginetest.NewNetwork()
	alice := New(n.Engine(t, "alice"), enginetest.NewNotifier())
	bob := New(n.Engine(t, "bob"), enginetest.NewNotifier())

	ab := enginetest.Execute(t, alice.Create, `{"wait":true,"source_id":"to-bob"}`)
	invite := enginetest.Execute(t, alice.Connect, fmt.Sprintf(`{"wait":true,"handle":%s}`, ab))
	require.Contains(t, string(invite), "recipientKeys")

	ba := enginetest.Execute(t, bob.AcceptInvite, fmt.Sprintf(
		`{"wait":true,"source_id":"to-alice","invite_details":%s,"options":{"connection_type":"QR"}}`, invite))

	for _, step := range []struct {
		cmd *Command
		h   json.RawMessage
	}{{alice, ab}, {bob, ba}, {alice, ab}} {
		res := enginetest.Execute(t, step.cmd.UpdateState, fmt.Sprintf(`{"wait":true,"handle":%s}`, step.h))
		require.Equal(t, protocol.StateAccepted, state(t, res))
	}

	res := enginetest.Execute(t, bob.GetState, fmt.Sprintf(`{"wait":true,"handle":%s}`, ba))
	require.Equal(t, protocol.StateAccepted, state(t, res))

	t.Run("pairwise DIDs", func(t *testing.T) {
		mine := enginetest.Execute(t, alice.PwDID, fmt.Sprintf(`{"wait":true,"handle":%s}`, ab))
		theirs := enginetest.Execute(t, bob.TheirPwDID, fmt.Sprintf(`{"wait":true,"handle":%s}`, ba))
		require.JSONEq(t, string(mine), string(theirs))

		info := enginetest.Execute(t, alice.Info, fmt.Sprintf(`{"wait":true,"handle":%s}`, ab))
		require.Contains(t, string(info), string(mine))

		details := enginetest.Execute(t, alice.InviteDetails,
			fmt.Sprintf(`{"wait":true,"handle":%s,"abbreviated":true}`, ab))
		require.Contains(t, string(details), `"k":[`)

		report := enginetest.Execute(t, alice.ProblemReport, fmt.Sprintf(`{"wait":true,"handle":%s}`, ab))
		require.JSONEq(t, `{}`, string(report))
	})

	t.Run("signatures", func(t *testing.T) {
		sig := enginetest.Execute(t, alice.SignData,
			fmt.Sprintf(`{"wait":true,"handle":%s,"data":"cGF5bG9hZA=="}`, ab))

		valid := enginetest.Execute(t, bob.VerifySignature,
			fmt.Sprintf(`{"wait":true,"handle":%s,"data":"cGF5bG9hZA==","signature":%s}`, ba, sig))
		require.JSONEq(t, `true`, string(valid))

		valid = enginetest.Execute(t, bob.VerifySignature,
			fmt.Sprintf(`{"wait":true,"handle":%s,"data":"dGFtcGVyZWQ=","signature":%s}`, ba, sig))
		require.JSONEq(t, `false`, string(valid))
	})

	t.Run("messages", func(t *testing.T) {
		id := enginetest.Execute(t, alice.SendMessage, fmt.Sprintf(
			`{"wait":true,"handle":%s,"message":"hello bob","options":{"msg_type":"chat","msg_title":"hi"}}`, ab))
		require.NotEqual(t, `""`, string(id))

		enginetest.Execute(t, alice.SendPing, fmt.Sprintf(`{"wait":true,"handle":%s,"comment":"there?"}`, ab))
		enginetest.Execute(t, alice.SendDiscoveryFeatures,
			fmt.Sprintf(`{"wait":true,"handle":%s,"query":"*"}`, ab))
	})

	t.Run("handshake reuse", func(t *testing.T) {
		oob := enginetest.Execute(t, alice.CreateOutOfBand, `{"wait":true,"source_id":"oob","goal":"reuse"}`)
		oobInvite := enginetest.Execute(t, alice.Connect, fmt.Sprintf(`{"wait":true,"handle":%s}`, oob))

		enginetest.Execute(t, bob.SendReuse,
			fmt.Sprintf(`{"wait":true,"handle":%s,"invite_details":%s}`, ba, oobInvite))

		res := enginetest.Execute(t, alice.UpdateState, fmt.Sprintf(`{"wait":true,"handle":%s}`, ab))
		require.Equal(t, protocol.StateAccepted, state(t, res))

		res = enginetest.Execute(t, bob.UpdateState, fmt.Sprintf(`{"wait":true,"handle":%s}`, ba))
		require.Equal(t, protocol.StateAccepted, state(t, res))
	})

	t.Run("snapshot", func(t *testing.T) {
		snapshot := enginetest.Execute(t, alice.Serialize, fmt.Sprintf(`{"wait":true,"handle":%s}`, ab))

		restored := enginetest.Execute(t, alice.Deserialize, fmt.Sprintf(`{"wait":true,"snapshot":%s}`, snapshot))
		require.NotEqual(t, string(ab), string(restored))

		res := enginetest.Execute(t, alice.GetState, fmt.Sprintf(`{"wait":true,"handle":%s}`, restored))
		require.Equal(t, protocol.StateAccepted, state(t, res))

		enginetest.Execute(t, alice.Release, fmt.Sprintf(`{"wait":true,"handle":%s}`, restored))

		cmdErr := enginetest.ExecuteError(t, alice.GetState, fmt.Sprintf(`{"wait":true,"handle":%s}`, restored))
		require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(cmdErr))
	})

	t.Run("delete", func(t *testing.T) {
		res := enginetest.Execute(t, bob.Delete, fmt.Sprintf(`{"wait":true,"handle":%s}`, ba))
		require.Equal(t, protocol.StateRevoked, state(t, res))

		cmdErr := enginetest.ExecuteError(t, bob.SendMessage,
			fmt.Sprintf(`{"wait":true,"handle":%s,"message":"still there?"}`, ba))
		require.Equal(t, ExecuteErrorCode, cmdErr.Code())
		require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(cmdErr))
	})
}

func TestCommand_UpdateStateWithMessage(t *testing.T) {
	n := enginetest.NewNetwork()
	alice := New(n.Engine(t, "alice"), enginetest.NewNotifier())

	h := enginetest.Execute(t, alice.Create, `{"wait":true,"source_id":"oob"}`)

	cmdErr := enginetest.ExecuteError(t, alice.UpdateStateWithMessage,
		fmt.Sprintf(`{"wait":true,"handle":%s,"message":"not json"}`, h))
	require.Equal(t, command.ValidationError, cmdErr.Type())
	require.Equal(t, RejectedErrorCode, cmdErr.Code())
	require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(cmdErr))
}

func TestCommand_NotifiesCompletion(t *testing.T) {
	n := enginetest.NewNetwork()
	notifier := enginetest.NewNotifier()
	alice := New(n.Engine(t, "alice"), notifier)

	accepted := enginetest.Execute(t, alice.CreateOutOfBand,
		`{"command_handle":42,"source_id":"oob","goal_code":"issue-vc","goal":"To issue a credential"}`)
	require.Nil(t, accepted)

	raw := notifier.WaitFor(t, command.CompletionTopic, 1)[0]

	c := &command.Completion{}
	require.NoError(t, json.Unmarshal(raw, c))
	require.Equal(t, uint32(42), c.CommandHandle)
	require.Zero(t, c.Code)
	require.NotEmpty(t, c.Result)

	invite := enginetest.Execute(t, alice.Connect, fmt.Sprintf(`{"wait":true,"handle":%s}`, c.Result))
	require.Contains(t, string(invite), "issue-vc")
}

func TestCommand_InvalidRequests(t *testing.T) {
	n := enginetest.NewNetwork()
	alice := New(n.Engine(t, "alice"), enginetest.NewNotifier())

	for _, h := range alice.GetHandlers() {
		cmdErr := enginetest.ExecuteError(t, h.Handle(), `{`)
		require.Equal(t, command.ValidationError, cmdErr.Type(), h.Method())
		require.Equal(t, InvalidRequestErrorCode, cmdErr.Code(), h.Method())
	}

	cmdErr := enginetest.ExecuteError(t, alice.CreateWithInvite, `{"wait":true,"source_id":"x","invite_details":"{}"}`)
	require.Equal(t, RejectedErrorCode, cmdErr.Code())
	require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(cmdErr))

	cmdErr = enginetest.ExecuteError(t, alice.Deserialize, `{"wait":true,"snapshot":"garbage"}`)
	require.Equal(t, RejectedErrorCode, cmdErr.Code())
}
