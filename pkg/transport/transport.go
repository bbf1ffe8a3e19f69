/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package transport delivers protocol messages to remote agents and keeps the local inbox of received ones.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
)

var logger = log.New("vcx-agent/transport")

// ContentType is the media type of envelopes exchanged between agents.
const ContentType = "application/didcomm-envelope-enc"

// Inbox message statuses.
const (
	StatusReceived = "MS-103"
	StatusReviewed = "MS-106"
)

// ErrNoOutbound is returned when no outbound transport accepts a service endpoint.
var ErrNoOutbound = errors.New("no outbound transport for endpoint")

// Destination provides the recipientKeys, routingKeys, and serviceEndpoint for an outbound message.
type Destination struct {
	RecipientKeys   []string `json:"recipientKeys"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
}

// Envelope is the wire payload between agents.
type Envelope struct {
	To  string           `json:"to"`
	Msg protocol.Message `json:"msg"`
}

// InboxMessage is a received message with its delivery status.
type InboxMessage struct {
	UID          string           `json:"uid"`
	RecipientKey string           `json:"recipient_key"`
	Status       string           `json:"status_code"`
	Type         string           `json:"type"`
	Payload      protocol.Message `json:"payload"`
	ReceivedAt   time.Time        `json:"received_at"`
}

// Transport is the agency contract used by the engine.
type Transport interface {
	// Send delivers msg to the destination's first recipient key.
	Send(ctx context.Context, dest *Destination, msg protocol.Message) error
	// PollInbox returns the messages for recipientKey that have not been reviewed yet.
	PollInbox(ctx context.Context, recipientKey string) ([]*InboxMessage, error)
	// Download returns messages for the given recipient keys, or for every key when none is given, filtered by
	// status and uid when set.
	Download(ctx context.Context, recipientKeys []string, status string, uids []string) ([]*InboxMessage, error)
	// UpdateStatus sets the status of the given messages.
	UpdateStatus(ctx context.Context, recipientKey, status string, uids ...string) error
}

// OutboundTransport sends envelope bytes to a service endpoint.
type OutboundTransport interface {
	Send(ctx context.Context, data []byte, url string) error
	// Accept reports whether the transport handles the endpoint.
	Accept(url string) bool
}

// Client implements Transport on top of outbound transports and a local Inbox.
type Client struct {
	inbox    *Inbox
	outbound []OutboundTransport
}

// NewClient returns a transport client.
func NewClient(inbox *Inbox, outbound ...OutboundTransport) *Client {
	return &Client{inbox: inbox, outbound: outbound}
}

// Inbox returns the local inbox.
func (c *Client) Inbox() *Inbox {
	return c.inbox
}

// Send implements Transport.
func (c *Client) Send(ctx context.Context, dest *Destination, msg protocol.Message) error {
	if dest == nil || len(dest.RecipientKeys) == 0 || dest.RecipientKeys[0] == "" {
		return fmt.Errorf("destination has no recipient key")
	}

	data, err := json.Marshal(&Envelope{To: dest.RecipientKeys[0], Msg: msg})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	for _, ot := range c.outbound {
		if !ot.Accept(dest.ServiceEndpoint) {
			continue
		}

		if err := ot.Send(ctx, data, dest.ServiceEndpoint); err != nil {
			return fmt.Errorf("send %s to %s: %w", msg.Type(), dest.ServiceEndpoint, err)
		}

		logger.Debugf("sent %s to %s", msg.Type(), dest.ServiceEndpoint)

		return nil
	}

	return fmt.Errorf("%w: %q", ErrNoOutbound, dest.ServiceEndpoint)
}

// PollInbox implements Transport.
func (c *Client) PollInbox(_ context.Context, recipientKey string) ([]*InboxMessage, error) {
	return c.inbox.Messages(recipientKey, StatusReceived, nil)
}

// Download implements Transport.
func (c *Client) Download(_ context.Context, recipientKeys []string, status string, uids []string) ([]*InboxMessage, error) {
	if len(recipientKeys) == 0 {
		return c.inbox.Messages("", status, uids)
	}

	var all []*InboxMessage

	for _, key := range recipientKeys {
		msgs, err := c.inbox.Messages(key, status, uids)
		if err != nil {
			return nil, err
		}

		all = append(all, msgs...)
	}

	return all, nil
}

// UpdateStatus implements Transport.
func (c *Client) UpdateStatus(_ context.Context, recipientKey, status string, uids ...string) error {
	return c.inbox.UpdateStatus(recipientKey, status, uids...)
}

// PendingOfType returns the pending messages of recipientKey with the given type, optionally narrowed to one uid.
// An empty msgType matches every type.
func PendingOfType(ctx context.Context, t Transport, recipientKey, msgType, uid string) ([]*InboxMessage, error) {
	msgs, err := t.PollInbox(ctx, recipientKey)
	if err != nil {
		return nil, err
	}

	var out []*InboxMessage

	for _, m := range msgs {
		if (msgType != "" && m.Type != msgType) || (uid != "" && m.UID != uid) {
			continue
		}

		out = append(out, m)
	}

	return out, nil
}

// TakeMessage returns the pending message uid of recipientKey and marks it reviewed. The message must be of
// msgType.
func TakeMessage(ctx context.Context, t Transport, recipientKey, uid, msgType string) (protocol.Message, error) {
	msgs, err := PendingOfType(ctx, t, recipientKey, "", uid)
	if err != nil {
		return nil, vcxerr.Collaborator(err, "poll inbox")
	}

	if len(msgs) == 0 {
		return nil, vcxerr.New(vcxerr.NotFound, "no pending message %s", uid)
	}

	if msgs[0].Type != msgType {
		return nil, vcxerr.New(vcxerr.MalformedInput, "message %s is %s, not %s", uid, msgs[0].Type, msgType)
	}

	if err := t.UpdateStatus(ctx, recipientKey, StatusReviewed, uid); err != nil {
		return nil, vcxerr.Collaborator(err, "mark message %s reviewed", uid)
	}

	return msgs[0].Payload, nil
}
