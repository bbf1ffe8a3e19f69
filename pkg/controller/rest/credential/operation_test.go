/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command/credential"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/internal/enginetest"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
)

func TestNew(t *testing.T) {
	op := New(enginetest.NewNetwork().Engine(t, "alice"), nil)

	handlers := op.GetRESTHandlers()
	require.Len(t, handlers, 16)

	for _, h := range handlers {
		require.NotEmpty(t, h.Path())
		require.NotNil(t, h.Handle())
	}
}

func TestOperation_Issuance(t *testing.T) {
	n := enginetest.NewNetwork()
	issuer := n.Engine(t, "university")
	holder := n.Engine(t, "alice")
	ih, hi := enginetest.Connect(t, issuer, holder)
	credDef := enginetest.PublishCredDef(t, issuer)
	router := enginetest.Router(New(holder, nil).GetRESTHandlers())

	ich := enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.IssuerCredentialCreate(tok, "issue", credDef.Handle, "", []byte(enginetest.DegreeAttrs), "", cb)
	}).(handle.Handle)

	enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.IssuerCredentialSendOffer(tok, ich, ih, cb)
	})

	offers := enginetest.MessageIDs(t, enginetest.ServeResult(t, router, http.MethodPost, OffersPath,
		fmt.Sprintf(`{"wait":true,"connection_handle":%d}`, hi)))
	require.Len(t, offers, 1)

	created := &engine.HandleWithMessage{}
	require.NoError(t, json.Unmarshal(enginetest.ServeResult(t, router, http.MethodPost, CreateWithMessageIDPath,
		fmt.Sprintf(`{"wait":true,"source_id":"holder","connection_handle":%d,"msg_id":%q}`, hi, offers[0])), created))

	base := fmt.Sprintf("%s/%d", OperationID, created.Handle)

	enginetest.ServeResult(t, router, http.MethodPost, base+"/send-request",
		fmt.Sprintf(`{"wait":true,"connection_handle":%d}`, hi))

	enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.IssuerCredentialUpdateState(tok, ich, 0, cb)
	})

	enginetest.MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.IssuerCredentialSendCredential(tok, ich, 0, cb)
	})

	var state protocol.StateCode
	require.NoError(t, json.Unmarshal(enginetest.ServeResult(t, router, http.MethodPost, base+"/update-state",
		`{"wait":true}`), &state))
	require.Equal(t, protocol.StateAccepted, state)

	cred := enginetest.ServeResult(t, router, http.MethodPost, base+"/credential", `{"wait":true}`)
	require.Contains(t, string(cred), "Maths")

	enginetest.ServeResult(t, router, http.MethodDelete, base, `{"wait":true}`)

	require.NoError(t, json.Unmarshal(enginetest.ServeResult(t, router, http.MethodPost, base+"/state",
		`{"wait":true}`), &state))
	require.Equal(t, protocol.StateAccepted, state)

	rr := enginetest.Serve(router, http.MethodDelete, base, `{"wait":true}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), fmt.Sprintf(`"code":%d`, credential.ExecuteErrorCode))

	enginetest.ServeResult(t, router, http.MethodPost, base+"/release", `{"wait":true}`)

	rr = enginetest.Serve(router, http.MethodPost, base+"/state", `{"wait":true}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), fmt.Sprintf(`"code":%d`, credential.RejectedErrorCode))
}
