/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walletbackup

import (
	"encoding/json"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
)

// CreateArgs model
//
// This is used for creating a wallet backup.
type CreateArgs struct {
	command.Header

	SourceID  string `json:"source_id"`
	BackupKey string `json:"backup_key"`
}

// BackupArgs model
//
// This is used for writing the backup archive.
type BackupArgs struct {
	command.Header

	Handle handle.Handle `json:"handle"`
	Path   string        `json:"path"`
}

// RestoreArgs model
//
// This is used for restoring a backup into the wallet.
type RestoreArgs struct {
	command.Header

	// {"wallet_key":...,"exported_wallet_path":...,"backup_key":...} as an object or a string holding the JSON.
	Config json.RawMessage `json:"config"`
}

func optional(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	return command.Text(raw)
}
