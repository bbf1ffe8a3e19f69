/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
)

// ConnectionMessages are the messages received on one pairwise relationship. PairwiseDID is empty for keys that
// belong to no known connection.
type ConnectionMessages struct {
	PairwiseDID  string                    `json:"pairwiseDID"`
	RecipientKey string                    `json:"recipientKey"`
	Msgs         []*transport.InboxMessage `json:"msgs"`
}

// MessageStatusUpdate selects messages of one pairwise relationship.
type MessageStatusUpdate struct {
	PairwiseDID string   `json:"pairwiseDID"`
	UIDs        []string `json:"uids"`
}

func validStatus(status string) bool {
	return status == transport.StatusReceived || status == transport.StatusReviewed
}

func splitList(raw string) []string {
	var out []string

	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	return out
}

// MessagesDownload returns received messages grouped by pairwise DID. status, uids and pwDIDs are comma separated
// filters; an empty filter matches everything. The result is a list of ConnectionMessages.
func (e *Engine) MessagesDownload(token dispatcher.Token, status, uids, pwDIDs string, cb dispatcher.Callback) error {
	statuses := splitList(status)
	for _, s := range statuses {
		if !validStatus(s) {
			return vcxerr.New(vcxerr.MalformedInput, "unknown message status %q", s)
		}
	}

	var keys []string

	for _, did := range splitList(pwDIDs) {
		verkey, ok := e.verkeyOf(did)
		if !ok {
			return vcxerr.New(vcxerr.NotFound, "no connection with pairwise DID %s", did)
		}

		keys = append(keys, verkey)
	}

	uidList := splitList(uids)

	return e.submit(token, func() (interface{}, error) {
		var msgs []*transport.InboxMessage

		if len(statuses) == 0 {
			statuses = []string{""}
		}

		for _, s := range statuses {
			got, err := e.transport.Download(e.ctx, keys, s, uidList)
			if err != nil {
				return nil, vcxerr.Collaborator(err, "download messages")
			}

			msgs = append(msgs, got...)
		}

		return e.groupByConnection(msgs), nil
	}, cb)
}

func (e *Engine) groupByConnection(msgs []*transport.InboxMessage) []*ConnectionMessages {
	groups := map[string]*ConnectionMessages{}

	for _, m := range msgs {
		g, ok := groups[m.RecipientKey]
		if !ok {
			g = &ConnectionMessages{
				PairwiseDID:  e.pairwiseDID(m.RecipientKey),
				RecipientKey: m.RecipientKey,
				Msgs:         []*transport.InboxMessage{},
			}
			groups[m.RecipientKey] = g
		}

		g.Msgs = append(g.Msgs, m)
	}

	out := make([]*ConnectionMessages, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].RecipientKey < out[j].RecipientKey
	})

	return out
}

// MessagesUpdateStatus sets the status of messages. updates is a JSON list of MessageStatusUpdate.
func (e *Engine) MessagesUpdateStatus(token dispatcher.Token, status, updates string, cb dispatcher.Callback) error {
	if !validStatus(status) {
		return vcxerr.New(vcxerr.MalformedInput, "unknown message status %q", status)
	}

	var selected []MessageStatusUpdate
	if err := json.Unmarshal([]byte(updates), &selected); err != nil {
		return vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid message status updates")
	}

	verkeys := make([]string, len(selected))

	for i, u := range selected {
		verkey, ok := e.verkeyOf(u.PairwiseDID)
		if !ok {
			return vcxerr.New(vcxerr.NotFound, "no connection with pairwise DID %s", u.PairwiseDID)
		}

		verkeys[i] = verkey
	}

	return e.submit(token, func() (interface{}, error) {
		for i, u := range selected {
			if err := e.transport.UpdateStatus(e.ctx, verkeys[i], status, u.UIDs...); err != nil {
				return nil, vcxerr.Collaborator(err, "update status of messages for %s", u.PairwiseDID)
			}
		}

		return nil, nil
	}, cb)
}
