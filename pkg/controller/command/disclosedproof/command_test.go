/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package disclosedproof

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
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/disclosedproof"
)

type fixture struct {
	verifier *engine.Engine
	prover   *Command
	vp, pv   handle.Handle
	cred     handle.Handle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	n := enginetest.NewNetwork()
	verifier := n.Engine(t, "university")
	prover := n.Engine(t, "alice")
	vp, pv := enginetest.Connect(t, verifier, prover)
	credDef := enginetest.PublishCredDef(t, verifier)

	return &fixture{
		verifier: verifier,
		prover:   New(prover, enginetest.NewNotifier()),
		vp:       vp,
		pv:       pv,
		cred:     enginetest.Issue(t, verifier, prover, vp, pv, credDef.Handle),
	}
}

func (f *fixture) request(t *testing.T, attrs string) handle.Handle {
	t.Helper()

	ph := enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.verifier.ProofCreate(tok, "verify", attrs, "", "", "kyc", cb)
	}).(handle.Handle)

	enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.verifier.ProofSendRequest(tok, ph, f.vp, cb)
	})

	return ph
}

func (f *fixture) received(t *testing.T) handle.Handle {
	t.Helper()

	requests := enginetest.MessageIDs(t, enginetest.Execute(t, f.prover.Requests,
		fmt.Sprintf(`{"wait":true,"connection_handle":%d}`, f.pv)))
	require.Len(t, requests, 1)

	created := &engine.HandleWithMessage{}
	require.NoError(t, json.Unmarshal(enginetest.Execute(t, f.prover.CreateWithMessageID, fmt.Sprintf(
		`{"wait":true,"source_id":"disclose","connection_handle":%d,"msg_id":%q}`, f.pv, requests[0])), created))
	require.Contains(t, string(created.Message), protocol.RequestPresentationMsgType)

	return created.Handle
}

func state(t *testing.T, raw json.RawMessage) protocol.StateCode {
	t.Helper()

	var s protocol.StateCode
	require.NoError(t, json.Unmarshal(raw, &s))

	return s
}

func TestNew(t *testing.T) {
	cmd := New(enginetest.NewNetwork().Engine(t, "alice"), nil)

	handlers := cmd.GetHandlers()
	require.Len(t, handlers, 19)

	for _, h := range handlers {
		require.Equal(t, CommandName, h.Name())
	}
}

func TestCommand_Present(t *testing.T) {
	f := newFixture(t)
	ph := f.request(t, `[{"name":"name"},{"name":"phone"}]`)
	dh := f.received(t)

	found := &disclosedproof.RetrievedCredentials{}
	require.NoError(t, json.Unmarshal(enginetest.Execute(t, f.prover.RetrieveCredentials,
		fmt.Sprintf(`{"wait":true,"handle":%d}`, dh)), found))
	require.Len(t, found.Attrs["attribute_0"], 1)
	require.Empty(t, found.Attrs["attribute_1"])

	cmdErr := enginetest.ExecuteError(t, f.prover.SendProof, fmt.Sprintf(`{"wait":true,"handle":%d}`, dh))
	require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(cmdErr))

	cmdErr = enginetest.ExecuteError(t, f.prover.GenerateProof, fmt.Sprintf(
		`{"wait":true,"handle":%d,"selected_credentials":{"attrs":{}}}`, dh))
	require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(cmdErr))

	selected, err := json.Marshal(map[string]interface{}{"attrs": map[string]interface{}{
		"attribute_0": map[string]interface{}{"credential": found.Attrs["attribute_0"][0]},
	}})
	require.NoError(t, err)

	enginetest.Execute(t, f.prover.GenerateProof, fmt.Sprintf(
		`{"wait":true,"handle":%d,"selected_credentials":%s,"self_attested_attrs":{"attribute_1":"555-0100"}}`,
		dh, selected))

	msg := enginetest.Execute(t, f.prover.ProofMessage, fmt.Sprintf(`{"wait":true,"handle":%d}`, dh))
	require.Contains(t, string(msg), protocol.PresentationMsgType)

	request := enginetest.Execute(t, f.prover.Request, fmt.Sprintf(`{"wait":true,"handle":%d}`, dh))
	require.Contains(t, string(request), protocol.RequestPresentationMsgType)

	res := enginetest.Execute(t, f.prover.SendProof, fmt.Sprintf(`{"wait":true,"handle":%d}`, dh))
	require.Equal(t, protocol.StateOfferSent, state(t, res))

	enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.verifier.ProofUpdateState(tok, ph, 0, cb)
	})

	res = enginetest.Execute(t, f.prover.UpdateState, fmt.Sprintf(`{"wait":true,"handle":%d}`, dh))
	require.Equal(t, protocol.StateAccepted, state(t, res))

	snapshot := enginetest.Execute(t, f.prover.Serialize, fmt.Sprintf(`{"wait":true,"handle":%d}`, dh))
	restored := enginetest.Execute(t, f.prover.Deserialize, fmt.Sprintf(`{"wait":true,"snapshot":%s}`, snapshot))

	res = enginetest.Execute(t, f.prover.GetState, fmt.Sprintf(`{"wait":true,"handle":%s}`, restored))
	require.Equal(t, protocol.StateAccepted, state(t, res))

	enginetest.Execute(t, f.prover.Release, fmt.Sprintf(`{"wait":true,"handle":%s}`, restored))
}

func TestCommand_Decline(t *testing.T) {
	f := newFixture(t)
	f.request(t, `[{"name":"name"}]`)

	t.Run("with a reason", func(t *testing.T) {
		dh := f.received(t)

		cmdErr := enginetest.ExecuteError(t, f.prover.Decline, fmt.Sprintf(`{"wait":true,"handle":%d}`, dh))
		require.Equal(t, RejectedErrorCode, cmdErr.Code())
		require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(cmdErr))

		res := enginetest.Execute(t, f.prover.Decline,
			fmt.Sprintf(`{"wait":true,"handle":%d,"connection_handle":%d,"reason":"not today"}`, dh, f.pv))
		require.Equal(t, protocol.StateUnfulfilled, state(t, res))

		report := enginetest.Execute(t, f.prover.ProblemReport, fmt.Sprintf(`{"wait":true,"handle":%d}`, dh))
		require.Contains(t, string(report), "not today")

		res = enginetest.Execute(t, f.prover.UpdateState, fmt.Sprintf(`{"wait":true,"handle":%d}`, dh))
		require.Equal(t, protocol.StateUnfulfilled, state(t, res))
	})

	t.Run("reject", func(t *testing.T) {
		request := enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			ph := enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
				return f.verifier.ProofCreate(tok, "verify", `[{"name":"name"}]`, "", "", "kyc", cb)
			}).(handle.Handle)

			return f.verifier.ProofRequestMessage(tok, ph, cb)
		}).(json.RawMessage)

		dh := enginetest.Execute(t, f.prover.CreateWithRequest,
			fmt.Sprintf(`{"wait":true,"source_id":"disclose","request":%s}`, request))

		res := enginetest.Execute(t, f.prover.Reject,
			fmt.Sprintf(`{"wait":true,"handle":%s,"connection_handle":%d,"comment":"no"}`, dh, f.pv))
		require.Equal(t, protocol.StateUnfulfilled, state(t, res))
	})

	t.Run("proposal", func(t *testing.T) {
		dh := enginetest.Execute(t, f.prover.CreateProposal,
			`{"wait":true,"source_id":"propose","proposal":{"attributes":[{"name":"degree"}]},"comment":"how about"}`)

		res := enginetest.Execute(t, f.prover.SendProposal,
			fmt.Sprintf(`{"wait":true,"handle":%s,"connection_handle":%d}`, dh, f.pv))
		require.Equal(t, protocol.StateOfferSent, state(t, res))
	})
}

func TestCommand_Rejects(t *testing.T) {
	cmd := New(enginetest.NewNetwork().Engine(t, "alice"), nil)

	for _, h := range cmd.GetHandlers() {
		cmdErr := enginetest.ExecuteError(t, h.Handle(), `[]`)
		require.Equal(t, InvalidRequestErrorCode, cmdErr.Code(), h.Method())
	}

	cmdErr := enginetest.ExecuteError(t, cmd.CreateWithRequest, `{"wait":true,"request":{"@type":"other"}}`)
	require.Equal(t, RejectedErrorCode, cmdErr.Code())
	require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(cmdErr))

	cmdErr = enginetest.ExecuteError(t, cmd.CreateWithMessageID, `{"wait":true,"connection_handle":1}`)
	require.Equal(t, RejectedErrorCode, cmdErr.Code())
}
