/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
)

func TestErrors(t *testing.T) {
	cause := errors.New("boom")

	v := NewValidationError(Code(Connection), cause)
	require.Equal(t, ValidationError, v.Type())
	require.Equal(t, Code(15000), v.Code())
	require.True(t, errors.Is(v, cause))
	require.Equal(t, vcxerr.Unknown, v.ResultCode())

	e := NewExecuteError(Code(VCWallet)+2, cause)
	require.Equal(t, ExecuteError, e.Type())
	require.Equal(t, Code(12002), e.Code())
	require.EqualError(t, e, "boom")

	r := NewValidationError(Code(PresentProof)+101, vcxerr.New(vcxerr.InvalidHandle, "no proof 7"))
	require.Equal(t, vcxerr.InvalidHandle, r.ResultCode())
	require.True(t, errors.Is(r, vcxerr.ErrInvalidHandle))
}

func TestUnquote(t *testing.T) {
	require.Equal(t, `{"a":1}`, string(Unquote(json.RawMessage(`"{\"a\":1}"`))))
	require.Equal(t, `{"a":1}`, string(Unquote(json.RawMessage(`{"a":1}`))))
	require.Equal(t, "", Text(json.RawMessage(`""`)))
	require.Equal(t, "", Text(nil))
}

func TestHeaderDecoding(t *testing.T) {
	args := &HandleArgs{}
	require.NoError(t, json.Unmarshal([]byte(`{"command_handle":4,"wait":true,"handle":9}`), args))

	var r Request = args
	require.Equal(t, uint32(4), r.CommandHeader().CommandHandle)
	require.True(t, r.CommandHeader().Wait)
	require.EqualValues(t, 9, args.Handle)
}

func TestWriteResponse(t *testing.T) {
	var b bytes.Buffer

	WriteResponse(&b, &Response{CommandHandle: 3}, log.New("vcx-agent/test"))
	require.JSONEq(t, `{"command_handle":3}`, b.String())

	b.Reset()
	WriteResponse(&b, &Response{CommandHandle: 3, Result: "ok"}, log.New("vcx-agent/test"))
	require.JSONEq(t, `{"command_handle":3,"result":"ok"}`, b.String())
}
