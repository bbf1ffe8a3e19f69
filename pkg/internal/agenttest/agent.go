/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package agenttest builds in-process agents joined by an in-memory transport hub for protocol tests.
package agenttest

import (
	"context"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger/memledger"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	memtransport "github.com/topcoder-platform/mobilewallet/pkg/transport/mem"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet/local"
)

// Network is a hub and a ledger shared by agents.
type Network struct {
	Hub    *memtransport.Hub
	Ledger *memledger.Ledger
}

// NewNetwork returns an empty network.
func NewNetwork() *Network {
	return &Network{Hub: memtransport.NewHub(), Ledger: memledger.New()}
}

// Agent is one participant. It satisfies the Provider interfaces of the protocol packages.
type Agent struct {
	Name     string
	Endpoint string
	W        *local.Wallet
	Inbox    *transport.Inbox
	Client   *transport.Client
	L        ledger.Client
	T        transport.Transport
}

// NewAgent registers a new agent on the network.
func (n *Network) NewAgent(t *testing.T, name string) *Agent {
	t.Helper()

	provider := mem.NewProvider()

	w, err := local.New(provider, name+"-key", local.WithIterations(10))
	require.NoError(t, err)

	inbox, err := transport.NewInbox(provider)
	require.NoError(t, err)

	client := transport.NewClient(inbox, n.Hub)

	return &Agent{
		Name:     name,
		Endpoint: n.Hub.Register(name, inbox),
		W:        w,
		Inbox:    inbox,
		Client:   client,
		L:        n.Ledger,
		T:        client,
	}
}

// Wallet returns the agent wallet.
func (a *Agent) Wallet() wallet.Wallet {
	return a.W
}

// Transport returns the agent transport. Tests may swap T for a failing one.
func (a *Agent) Transport() transport.Transport {
	return a.T
}

// Ledger returns the shared ledger.
func (a *Agent) Ledger() ledger.Client {
	return a.L
}

// ServiceEndpoint returns the hub endpoint of the agent.
func (a *Agent) ServiceEndpoint() string {
	return a.Endpoint
}

// Label returns the agent name.
func (a *Agent) Label() string {
	return a.Name
}

// Pending returns the messages not yet reviewed for recipientKey.
func (a *Agent) Pending(t *testing.T, recipientKey string) []*transport.InboxMessage {
	t.Helper()

	msgs, err := a.Client.PollInbox(context.Background(), recipientKey)
	require.NoError(t, err)

	return msgs
}
