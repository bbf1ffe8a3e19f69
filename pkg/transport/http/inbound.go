/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/topcoder-platform/mobilewallet/pkg/transport"
)

// NewInboundHandler will create a new handler to enforce the HTTP transport rules
// then stores every received envelope in inbox.
func NewInboundHandler(inbox *transport.Inbox) (http.Handler, error) {
	if inbox == nil {
		return nil, fmt.Errorf("creating inbound handler: inbox is nil")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processPOSTRequest(w, r, inbox)
	}), nil
}

func processPOSTRequest(w http.ResponseWriter, r *http.Request, inbox *transport.Inbox) {
	if valid := validateHTTPMethod(w, r); !valid {
		return
	}

	if valid := validatePayload(r, w); !valid {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Errorf("reading request body: %s - returning Code: %d", err, http.StatusInternalServerError)
		http.Error(w, "Failed to read payload", http.StatusInternalServerError)

		return
	}

	var env transport.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, "Invalid envelope", http.StatusBadRequest)

		return
	}

	if err := inbox.Add(&env); err != nil {
		logger.Warnf("rejecting inbound envelope: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// validatePayload validate and get the payload from the request.
func validatePayload(r *http.Request, w http.ResponseWriter) bool {
	if r.ContentLength == 0 { // empty payload should not be accepted
		http.Error(w, "Empty payload", http.StatusBadRequest)

		return false
	}

	return true
}

// validateHTTPMethod validate HTTP method and content-type.
func validateHTTPMethod(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "HTTP Method not allowed", http.StatusMethodNotAllowed)

		return false
	}

	ct := r.Header.Get("Content-type")
	if ct != transport.ContentType {
		http.Error(w, fmt.Sprintf("Unsupported Content-type \"%s\"", ct), http.StatusUnsupportedMediaType)

		return false
	}

	return true
}
