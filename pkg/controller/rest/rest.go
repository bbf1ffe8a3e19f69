/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
)

// HandleVar is the route variable carrying an object handle.
const HandleVar = "handle"

var logger = log.New("vcx-agent/rest")

// Handler http handler for each controller API endpoint.
type Handler interface {
	Path() string
	Method() string
	Handle() http.HandlerFunc
}

// genericErrorBody is the body of every failed REST call. ResultCode is the engine error kind, absent when the
// request failed before reaching a command.
type genericErrorBody struct {
	Code       command.Code `json:"code,omitempty"`
	Message    string       `json:"message,omitempty"`
	ResultCode vcxerr.Kind  `json:"result_code,omitempty"`
}

// Execute executes given command with args provided and writes response to the writer.
func Execute(exec command.Exec, rw http.ResponseWriter, req io.Reader) {
	rw.Header().Set("Content-Type", "application/json")

	if err := exec(rw, req); err != nil {
		SendError(rw, err)
	}
}

// ExecuteWithHandle executes the command with the request body extended by the {handle} route variable.
func ExecuteWithHandle(exec command.Exec, rw http.ResponseWriter, req *http.Request) {
	body, err := withHandle(req)
	if err != nil {
		SendHTTPStatusError(rw, http.StatusBadRequest, command.UnknownStatus, err)
		return
	}

	Execute(exec, rw, body)
}

func withHandle(req *http.Request) (io.Reader, error) {
	h, err := strconv.ParseUint(mux.Vars(req)[HandleVar], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid handle in path: %w", err)
	}

	args := map[string]interface{}{}

	if req.Body != nil {
		var buf bytes.Buffer

		if _, err = io.Copy(&buf, req.Body); err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}

		if buf.Len() > 0 {
			if err = json.Unmarshal(buf.Bytes(), &args); err != nil {
				return nil, fmt.Errorf("request body must be a JSON object: %w", err)
			}
		}
	}

	args[HandleVar] = h

	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(raw), nil
}

// SendError sends command error as http response in generic error body format.
func SendError(rw http.ResponseWriter, err command.Error) {
	var status int

	switch err.Type() {
	case command.ValidationError:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	writeError(rw, status, genericErrorBody{Code: err.Code(), Message: err.Error(), ResultCode: err.ResultCode()})
}

// SendHTTPStatusError sends given http status code to response with error body.
func SendHTTPStatusError(rw http.ResponseWriter, httpStatus int, code command.Code, err error) {
	writeError(rw, httpStatus, genericErrorBody{Code: code, Message: err.Error()})
}

func writeError(rw http.ResponseWriter, httpStatus int, body genericErrorBody) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(httpStatus)

	if e := json.NewEncoder(rw).Encode(body); e != nil {
		logger.Errorf("Unable to send error response, %s", e)
	}
}
