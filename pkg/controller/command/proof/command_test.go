/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/internal/enginetest"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credential"
)

func state(t *testing.T, raw json.RawMessage) protocol.StateCode {
	t.Helper()

	var s protocol.StateCode
	require.NoError(t, json.Unmarshal(raw, &s))

	return s
}

func TestNew(t *testing.T) {
	cmd := New(enginetest.NewNetwork().Engine(t, "bank"), nil)

	handlers := cmd.GetHandlers()
	require.Len(t, handlers, 14)

	for _, h := range handlers {
		require.Equal(t, CommandName, h.Name())
	}
}

func TestCommand_Verify(t *testing.T) {
	n := enginetest.NewNetwork()
	verifier := n.Engine(t, "university")
	prover := n.Engine(t, "alice")
	vp, pv := enginetest.Connect(t, verifier, prover)
	credDef := enginetest.PublishCredDef(t, verifier)

	ch := enginetest.Issue(t, verifier, prover, vp, pv, credDef.Handle)

	info := enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.CredentialInfo(tok, ch, cb)
	}).(*credential.Info)

	cmd := New(verifier, nil)

	ph := enginetest.Execute(t, cmd.Create, fmt.Sprintf(
		`{"wait":true,"source_id":"verify","name":"kyc","requested_attrs":[{"name":"degree","restrictions":[{"cred_def_id":%q}]}],`+
			`"requested_predicates":"[{\"name\":\"age\",\"p_type\":\">=\",\"p_value\":18}]"}`, credDef.ID))

	msg := enginetest.Execute(t, cmd.RequestMessage, fmt.Sprintf(`{"wait":true,"handle":%s}`, ph))
	require.Contains(t, string(msg), protocol.RequestPresentationMsgType)

	cmdErr := enginetest.ExecuteError(t, cmd.GetProof, fmt.Sprintf(`{"wait":true,"handle":%s}`, ph))
	require.Equal(t, ExecuteErrorCode, cmdErr.Code())
	require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(cmdErr))

	res := enginetest.Execute(t, cmd.SendRequest,
		fmt.Sprintf(`{"wait":true,"handle":%s,"connection_handle":%d}`, ph, vp))
	require.Equal(t, protocol.StateOfferSent, state(t, res))

	requests := enginetest.MessageIDs(t, enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofRequests(tok, pv, cb)
	}).(json.RawMessage))
	require.Len(t, requests, 1)

	dh := enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofCreateWithMessageID(tok, "disclose", pv, requests[0], cb)
	}).(*engine.HandleWithMessage).Handle

	selected := fmt.Sprintf(`{"attrs":{"attribute_0":{"credential":{"cred_info":{"referent":%q}}},`+
		`"predicate_0":{"credential":{"cred_info":{"referent":%q}}}}}`, info.Referent, info.Referent)

	enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofGenerate(tok, dh, selected, "", cb)
	})

	enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofSendProof(tok, dh, 0, cb)
	})

	res = enginetest.Execute(t, cmd.UpdateState, fmt.Sprintf(`{"wait":true,"handle":%s}`, ph))
	require.Equal(t, protocol.StateAccepted, state(t, res))

	result := &engine.ProofResult{}
	require.NoError(t, json.Unmarshal(enginetest.Execute(t, cmd.GetProof,
		fmt.Sprintf(`{"wait":true,"handle":%s}`, ph)), result))
	require.Equal(t, protocol.ProofValidated, result.ProofState)
	require.Contains(t, string(result.Presentation), "Maths")

	t.Run("polling a terminal proof keeps its state", func(t *testing.T) {
		res := enginetest.Execute(t, cmd.UpdateState, fmt.Sprintf(`{"wait":true,"handle":%s}`, ph))
		require.Equal(t, protocol.StateAccepted, state(t, res))

		res = enginetest.Execute(t, cmd.UpdateStateWithMessage,
			fmt.Sprintf(`{"wait":true,"handle":%s,"message":{"@id":"x","@type":"unrelated"}}`, ph))
		require.Equal(t, protocol.StateAccepted, state(t, res))
	})

	t.Run("snapshot", func(t *testing.T) {
		snapshot := enginetest.Execute(t, cmd.Serialize, fmt.Sprintf(`{"wait":true,"handle":%s}`, ph))
		restored := enginetest.Execute(t, cmd.Deserialize, fmt.Sprintf(`{"wait":true,"snapshot":%s}`, snapshot))

		again := &engine.ProofResult{}
		require.NoError(t, json.Unmarshal(enginetest.Execute(t, cmd.GetProof,
			fmt.Sprintf(`{"wait":true,"handle":%s}`, restored)), again))
		require.Equal(t, result.ProofState, again.ProofState)

		report := enginetest.Execute(t, cmd.ProblemReport, fmt.Sprintf(`{"wait":true,"handle":%s}`, restored))
		require.JSONEq(t, `{}`, string(report))

		enginetest.Execute(t, cmd.Release, fmt.Sprintf(`{"wait":true,"handle":%s}`, restored))

		var released handle.Handle
		require.NoError(t, json.Unmarshal(restored, &released))

		cmdErr := enginetest.ExecuteError(t, cmd.GetState, fmt.Sprintf(`{"wait":true,"handle":%d}`, released))
		require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(cmdErr))
	})
}

func TestCommand_Proposal(t *testing.T) {
	n := enginetest.NewNetwork()
	verifier := n.Engine(t, "university")
	prover := n.Engine(t, "alice")
	vp, pv := enginetest.Connect(t, verifier, prover)

	cmd := New(verifier, nil)

	proposal := fmt.Sprintf(`{"@id":"proposal-1","@type":%q,"presentation_proposal":{"@type":%q,`+
		`"attributes":[{"name":"degree","cred_def_id":"cd:1"}],"predicates":[]}}`,
		protocol.ProposePresentationMsgType, protocol.PresentationPreviewMsgType)

	cmdErr := enginetest.ExecuteError(t, cmd.CreateWithProposal, `{"wait":true,"source_id":"p","proposal":{"@id":"x"}}`)
	require.Equal(t, RejectedErrorCode, cmdErr.Code())
	require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(cmdErr))

	ph := enginetest.Execute(t, cmd.CreateWithProposal,
		fmt.Sprintf(`{"wait":true,"source_id":"p","name":"degree check","proposal":%q}`, proposal))

	res := enginetest.Execute(t, cmd.GetState, fmt.Sprintf(`{"wait":true,"handle":%s}`, ph))
	require.Equal(t, protocol.StateRequestReceived, state(t, res))

	got := enginetest.Execute(t, cmd.GetProposal, fmt.Sprintf(`{"wait":true,"handle":%s}`, ph))
	require.Contains(t, string(got), "cd:1")

	cmdErr = enginetest.ExecuteError(t, cmd.SendRequest, fmt.Sprintf(`{"wait":true,"handle":%s}`, ph))
	require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(cmdErr))

	cmdErr = enginetest.ExecuteError(t, cmd.SetConnection, fmt.Sprintf(`{"wait":true,"handle":%s}`, ph))
	require.Equal(t, RejectedErrorCode, cmdErr.Code())
	require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(cmdErr))

	enginetest.Execute(t, cmd.SetConnection, fmt.Sprintf(`{"wait":true,"handle":%s,"connection_handle":%d}`, ph, vp))

	res = enginetest.Execute(t, cmd.SendRequest, fmt.Sprintf(`{"wait":true,"handle":%s}`, ph))
	require.Equal(t, protocol.StateOfferSent, state(t, res))

	requests := enginetest.MessageIDs(t, enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofRequests(tok, pv, cb)
	}).(json.RawMessage))
	require.Len(t, requests, 1)
}

func TestCommand_Rejects(t *testing.T) {
	cmd := New(enginetest.NewNetwork().Engine(t, "bank"), nil)

	for _, h := range cmd.GetHandlers() {
		cmdErr := enginetest.ExecuteError(t, h.Handle(), `[]`)
		require.Equal(t, InvalidRequestErrorCode, cmdErr.Code(), h.Method())
	}

	cmdErr := enginetest.ExecuteError(t, cmd.Create, `{"wait":true,"requested_attrs":"not json"}`)
	require.Equal(t, RejectedErrorCode, cmdErr.Code())
	require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(cmdErr))

	ph := enginetest.Execute(t, cmd.Create, `{"wait":true,"source_id":"p","requested_attrs":[{"name":"name"}]}`)

	cmdErr = enginetest.ExecuteError(t, cmd.SendRequest, fmt.Sprintf(`{"wait":true,"handle":%s}`, ph))
	require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(cmdErr))

	cmdErr = enginetest.ExecuteError(t, cmd.UpdateStateWithMessage,
		fmt.Sprintf(`{"wait":true,"handle":%s,"message":"not json"}`, ph))
	require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(cmdErr))
}
