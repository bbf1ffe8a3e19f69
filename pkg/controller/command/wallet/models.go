/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"encoding/json"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
)

// RecordArgs model
//
// This is used for the record operations. Tags is an object of string values, TagNames a list of names.
type RecordArgs struct {
	command.Header

	Type     string          `json:"type"`
	ID       string          `json:"id"`
	Value    string          `json:"value,omitempty"`
	Tags     json.RawMessage `json:"tags,omitempty"`
	TagNames json.RawMessage `json:"tag_names,omitempty"`

	// {retrieveType, retrieveValue, retrieveTags}.
	Options json.RawMessage `json:"options,omitempty"`
}

// OpenSearchArgs model
//
// This is used for opening a record search.
type OpenSearchArgs struct {
	command.Header

	Type string `json:"type"`

	// Tag equality filter.
	Query json.RawMessage `json:"query,omitempty"`

	// {retrieveType, retrieveValue, retrieveTags}.
	Options json.RawMessage `json:"options,omitempty"`
}

// SearchNextArgs model
//
// This is used for reading the next records of a search.
type SearchNextArgs struct {
	command.Header

	SearchHandle handle.Handle `json:"search_handle"`
	Count        int           `json:"count"`
}

// CloseSearchArgs model
//
// This is used for closing a search.
type CloseSearchArgs struct {
	command.Header

	SearchHandle handle.Handle `json:"search_handle"`
}

// ExportArgs model
//
// This is used for exporting the wallet to a sealed archive.
type ExportArgs struct {
	command.Header

	Path      string `json:"path"`
	BackupKey string `json:"backup_key"`
}

// ImportArgs model
//
// This is used for importing a sealed archive.
type ImportArgs struct {
	command.Header

	// {"exported_wallet_path":...,"backup_key":...} as an object or a string holding the JSON.
	Config json.RawMessage `json:"config"`
}

func optional(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	return command.Text(raw)
}
