/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

const timestampSize = 8

var errInvalidSignature = errors.New("invalid signature")

// signPayload signs an 8 byte big-endian timestamp followed by payload.
func signPayload(ctx context.Context, w wallet.Wallet, verkey string, payload []byte,
	now time.Time) (*SignatureDecorator, error) {
	data := make([]byte, timestampSize+len(payload))
	binary.BigEndian.PutUint64(data, uint64(now.Unix()))
	copy(data[timestampSize:], payload)

	sig, err := w.Sign(ctx, verkey, data)
	if err != nil {
		return nil, vcxerr.Collaborator(err, "sign with %s", verkey)
	}

	return &SignatureDecorator{
		Type:       protocol.SignatureSingleAttach,
		Signature:  base64.URLEncoding.EncodeToString(sig),
		SignedData: base64.URLEncoding.EncodeToString(data),
		Signer:     verkey,
	}, nil
}

// verifyPayload checks the decorator was produced by signer and returns the signed payload without the timestamp.
// A wrong signer or signature is errInvalidSignature; a wallet failure is returned as is.
func verifyPayload(ctx context.Context, w wallet.Wallet, d *SignatureDecorator, signer string) ([]byte, error) {
	if d == nil || d.Signer != signer {
		return nil, errInvalidSignature
	}

	sig, err := base64.URLEncoding.DecodeString(d.Signature)
	if err != nil {
		return nil, errInvalidSignature
	}

	data, err := base64.URLEncoding.DecodeString(d.SignedData)
	if err != nil || len(data) < timestampSize {
		return nil, errInvalidSignature
	}

	ok, err := w.Verify(ctx, signer, data, sig)
	if err != nil {
		return nil, vcxerr.Collaborator(err, "verify signature of %s", signer)
	}

	if !ok {
		return nil, errInvalidSignature
	}

	return data[timestampSize:], nil
}
