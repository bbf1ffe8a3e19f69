/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package messages

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
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
)

func download(t *testing.T, cmd *Command, body string) []*engine.ConnectionMessages {
	t.Helper()

	var got []*engine.ConnectionMessages
	require.NoError(t, json.Unmarshal(enginetest.Execute(t, cmd.Download, body), &got))

	return got
}

func TestNew(t *testing.T) {
	cmd := New(enginetest.NewNetwork().Engine(t, "alice"), nil)

	handlers := cmd.GetHandlers()
	require.Len(t, handlers, 2)

	for _, h := range handlers {
		require.Equal(t, CommandName, h.Name())
	}
}

func TestCommand_DownloadAndUpdate(t *testing.T) {
	n := enginetest.NewNetwork()
	issuer := n.Engine(t, "university")
	holder := n.Engine(t, "alice")
	cmd := New(holder, nil)

	ih, hi := enginetest.Connect(t, issuer, holder)
	credDef := enginetest.PublishCredDef(t, issuer)

	ich := enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.IssuerCredentialCreate(tok, "issue", credDef.Handle, "", []byte(enginetest.DegreeAttrs), "", cb)
	}).(handle.Handle)

	enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.IssuerCredentialSendOffer(tok, ich, ih, cb)
	})

	pwDID := enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return holder.ConnectionPwDID(tok, hi, cb)
	}).(string)

	got := download(t, cmd, fmt.Sprintf(`{"wait":true,"status":%q,"pw_dids":%q}`, transport.StatusReceived, pwDID))
	require.Len(t, got, 1)
	require.Equal(t, pwDID, got[0].PairwiseDID)
	require.Len(t, got[0].Msgs, 1)
	require.Equal(t, protocol.OfferCredentialMsgType, got[0].Msgs[0].Payload.Type())

	uid := got[0].Msgs[0].UID

	enginetest.Execute(t, cmd.UpdateStatus, fmt.Sprintf(`{"wait":true,"status":%q,"updates":[{"pairwiseDID":%q,"uids":[%q]}]}`,
		transport.StatusReviewed, pwDID, uid))

	got = download(t, cmd, fmt.Sprintf(`{"wait":true,"status":%q,"pw_dids":%q}`, transport.StatusReceived, pwDID))
	require.Empty(t, got)

	got = download(t, cmd, fmt.Sprintf(`{"wait":true,"uids":%q}`, uid))
	require.Len(t, got, 1)
	require.Equal(t, transport.StatusReviewed, got[0].Msgs[0].Status)
}

func TestCommand_Rejects(t *testing.T) {
	cmd := New(enginetest.NewNetwork().Engine(t, "alice"), nil)

	for _, h := range cmd.GetHandlers() {
		cmdErr := enginetest.ExecuteError(t, h.Handle(), `[]`)
		require.Equal(t, InvalidRequestErrorCode, cmdErr.Code(), h.Method())
	}

	cmdErr := enginetest.ExecuteError(t, cmd.Download, `{"wait":true,"status":"MS-999"}`)
	require.Equal(t, RejectedErrorCode, cmdErr.Code())
	require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(cmdErr))

	cmdErr = enginetest.ExecuteError(t, cmd.UpdateStatus,
		`{"wait":true,"status":"MS-106","updates":[{"pairwiseDID":"nope","uids":["1"]}]}`)
	require.Equal(t, vcxerr.NotFound, vcxerr.KindOf(cmdErr))

	require.Empty(t, download(t, cmd, `{"wait":true}`))
}
