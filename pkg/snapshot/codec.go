/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package snapshot encodes protocol objects into versioned, self-describing JSON blobs.
package snapshot

import (
	"encoding/json"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
)

// Version is the snapshot format written by this engine.
const Version = "2.0"

// nolint:gochecknoglobals
var supportedVersions = map[string]bool{Version: true}

// Envelope is the outer layout of every snapshot.
type Envelope struct {
	Version string          `json:"version"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

// Marshal wraps v in an envelope of the given kind.
func Marshal(kind string, v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", vcxerr.Wrap(vcxerr.Unknown, err, "marshal %s snapshot", kind)
	}

	raw, err := json.Marshal(&Envelope{Version: Version, Kind: kind, Data: data})
	if err != nil {
		return "", vcxerr.Wrap(vcxerr.Unknown, err, "marshal %s envelope", kind)
	}

	return string(raw), nil
}

// Unmarshal decodes a snapshot of the given kind into v. Any mismatch fails with MalformedSnapshot.
func Unmarshal(raw string, kind string, v interface{}) error {
	var env Envelope

	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return vcxerr.Wrap(vcxerr.MalformedSnapshot, err, "decode %s snapshot", kind)
	}

	if !supportedVersions[env.Version] {
		return vcxerr.New(vcxerr.MalformedSnapshot, "unsupported %s snapshot version %q", kind, env.Version)
	}

	if env.Kind != kind {
		return vcxerr.New(vcxerr.MalformedSnapshot, "snapshot kind %q is not %q", env.Kind, kind)
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return vcxerr.New(vcxerr.MalformedSnapshot, "%s snapshot has no data", kind)
	}

	if err := json.Unmarshal(env.Data, v); err != nil {
		return vcxerr.Wrap(vcxerr.MalformedSnapshot, err, "decode %s snapshot data", kind)
	}

	return nil
}
