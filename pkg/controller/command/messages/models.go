/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package messages

import (
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

// DownloadArgs model
//
// This is used for downloading received messages. Every filter is a comma separated list; an empty one matches
// everything.
type DownloadArgs struct {
	command.Header

	Status       string `json:"status"`
	UIDs         string `json:"uids"`
	PairwiseDIDs string `json:"pw_dids"`
}

// UpdateStatusArgs model
//
// This is used for setting the status of received messages.
type UpdateStatusArgs struct {
	command.Header

	Status  string                        `json:"status"`
	Updates []*engine.MessageStatusUpdate `json:"updates"`
}
