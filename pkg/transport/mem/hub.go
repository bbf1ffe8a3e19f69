/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mem delivers envelopes between agents living in the same process.
package mem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/topcoder-platform/mobilewallet/pkg/transport"
)

// Scheme is the endpoint scheme served by the hub.
const Scheme = "mem://"

// Hub routes envelopes to registered inboxes by endpoint name.
type Hub struct {
	mu      sync.RWMutex
	inboxes map[string]*transport.Inbox
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{inboxes: map[string]*transport.Inbox{}}
}

// Register attaches inbox to the hub and returns its service endpoint.
func (h *Hub) Register(name string, inbox *transport.Inbox) string {
	h.mu.Lock()
	h.inboxes[name] = inbox
	h.mu.Unlock()

	return Scheme + name
}

// Unregister detaches the inbox registered under name.
func (h *Hub) Unregister(name string) {
	h.mu.Lock()
	delete(h.inboxes, name)
	h.mu.Unlock()
}

// Send implements transport.OutboundTransport.
func (h *Hub) Send(ctx context.Context, data []byte, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := strings.TrimPrefix(url, Scheme)

	h.mu.RLock()
	inbox, ok := h.inboxes[name]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no agent registered at %s", url)
	}

	var env transport.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	return inbox.Add(&env)
}

// Accept implements transport.OutboundTransport.
func (h *Hub) Accept(url string) bool {
	return strings.HasPrefix(url, Scheme)
}
