/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package enginetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/rest"
)

// Router registers handlers on a new router.
func Router(handlers []rest.Handler) *mux.Router {
	router := mux.NewRouter()

	for _, h := range handlers {
		router.HandleFunc(h.Path(), h.Handle()).Methods(h.Method())
	}

	return router
}

// Serve sends a request with body to the router.
func Serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))

	return rr
}

// ServeResult is Serve for requests that must succeed. It returns the command result.
func ServeResult(t *testing.T, router http.Handler, method, path, body string) json.RawMessage {
	t.Helper()

	rr := Serve(router, method, path, body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	res := struct {
		CommandHandle uint32          `json:"command_handle"`
		Result        json.RawMessage `json:"result"`
	}{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.NotZero(t, res.CommandHandle)

	return res.Result
}
