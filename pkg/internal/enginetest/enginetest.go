/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package enginetest builds engines joined by an in-memory transport hub for controller tests.
package enginetest

import (
	"bytes"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger/memledger"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	memtransport "github.com/topcoder-platform/mobilewallet/pkg/transport/mem"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet/archive"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet/local"
)

// nolint:gochecknoglobals
var tokens uint32 = 1 << 20

// Network is a hub and a ledger shared by engines.
type Network struct {
	Hub    *memtransport.Hub
	Ledger *memledger.Ledger
}

// NewNetwork returns an empty network.
func NewNetwork() *Network {
	return &Network{Hub: memtransport.NewHub(), Ledger: memledger.New()}
}

// Engine starts an engine named name on the network. It is closed when the test ends.
func (n *Network) Engine(t *testing.T, name string, opts ...engine.Option) *engine.Engine {
	t.Helper()

	provider := mem.NewProvider()

	w, err := local.New(provider, name+"-key", local.WithIterations(10))
	require.NoError(t, err)

	inbox, err := transport.NewInbox(provider)
	require.NoError(t, err)

	e, err := engine.New(append([]engine.Option{
		engine.WithConfig(&engine.Config{WalletKey: name + "-key", InstitutionName: name}),
		engine.WithStoreProvider(provider),
		engine.WithWallet(w),
		engine.WithLedger(n.Ledger),
		engine.WithInbox(inbox),
		engine.WithOutboundTransports(n.Hub),
		engine.WithServiceEndpoint(n.Hub.Register(name, inbox)),
		engine.WithArchiveOptions(archive.WithWorkFactor(10)),
	}, opts...)...)
	require.NoError(t, err)

	t.Cleanup(e.Close)

	return e
}

// Call submits an engine operation and waits for its completion.
func Call(t *testing.T, submit func(token dispatcher.Token, cb dispatcher.Callback) error) (interface{}, error) {
	t.Helper()

	done := make(chan *dispatcher.Completion, 1)

	require.NoError(t, submit(dispatcher.Token(atomic.AddUint32(&tokens, 1)), func(c *dispatcher.Completion) {
		done <- c
	}))

	select {
	case c := <-done:
		return c.Result, c.Err
	case <-time.After(10 * time.Second):
		require.FailNow(t, "engine operation did not complete")
	}

	return nil, nil
}

// MustCall is Call that fails the test on error.
func MustCall(t *testing.T, submit func(token dispatcher.Token, cb dispatcher.Callback) error) interface{} {
	t.Helper()

	res, err := Call(t, submit)
	require.NoError(t, err)

	return res
}

// Connect runs the connection handshake and returns the inviter's and the invitee's connection handles.
func Connect(t *testing.T, inviter, invitee *engine.Engine) (handle.Handle, handle.Handle) {
	t.Helper()

	ih := MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return inviter.ConnectionCreate(tok, "to-invitee", cb)
	}).(handle.Handle)

	invite := MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return inviter.ConnectionConnect(tok, ih, nil, cb)
	}).(json.RawMessage)

	eh := MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return invitee.ConnectionAcceptInvite(tok, "to-inviter", invite, nil, cb)
	}).(handle.Handle)

	MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return inviter.ConnectionUpdateState(tok, ih, cb)
	})

	MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return invitee.ConnectionUpdateState(tok, eh, cb)
	})

	MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return inviter.ConnectionUpdateState(tok, ih, cb)
	})

	return ih, eh
}

// PublishCredDef publishes a degree schema and its credential definition on the issuer.
func PublishCredDef(t *testing.T, issuer *engine.Engine) *engine.HandleWithID {
	t.Helper()

	schema := MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.SchemaCreate(tok, "schema", "degree", "1.0", []byte(`["name","degree","age"]`), cb)
	}).(*engine.HandleWithID)

	return MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.CredentialDefCreate(tok, "cred-def", schema.ID, "", cb)
	}).(*engine.HandleWithID)
}

// DegreeAttrs are the attribute values issued by Issue.
const DegreeAttrs = `{"name":"Alice","degree":"Maths","age":"25"}`

// Issue runs a full issuance of DegreeAttrs over the connection ih/hi and returns the holder's credential handle.
func Issue(t *testing.T, issuer, holder *engine.Engine, ih, hi, credDef handle.Handle) handle.Handle {
	t.Helper()

	ich := MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.IssuerCredentialCreate(tok, "issue", credDef, "", []byte(DegreeAttrs), "Degree", cb)
	}).(handle.Handle)

	MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.IssuerCredentialSendOffer(tok, ich, ih, cb)
	})

	offers := MessageIDs(t, MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return holder.CredentialOffers(tok, hi, cb)
	}).(json.RawMessage))
	require.Len(t, offers, 1)

	ch := MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return holder.CredentialCreateWithMessageID(tok, "holder", hi, offers[0], cb)
	}).(*engine.HandleWithMessage).Handle

	MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return holder.CredentialSendRequest(tok, ch, hi, cb)
	})

	MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.IssuerCredentialUpdateState(tok, ich, 0, cb)
	})

	MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return issuer.IssuerCredentialSendCredential(tok, ich, 0, cb)
	})

	MustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return holder.CredentialUpdateState(tok, ch, 0, cb)
	})

	return ch
}

// MessageIDs returns the @id of every message in a JSON message list.
func MessageIDs(t *testing.T, raw json.RawMessage) []string {
	t.Helper()

	var msgs []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &msgs))

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m["@id"].(string))
	}

	return ids
}

// Execute runs a controller command with body and returns the result it wrote.
func Execute(t *testing.T, exec command.Exec, body string) json.RawMessage {
	t.Helper()

	var rw bytes.Buffer

	require.NoError(t, exec(&rw, bytes.NewBufferString(body)))

	res := struct {
		CommandHandle uint32          `json:"command_handle"`
		Result        json.RawMessage `json:"result"`
	}{}
	require.NoError(t, json.Unmarshal(rw.Bytes(), &res))
	require.NotZero(t, res.CommandHandle)

	return res.Result
}

// ExecuteError runs a controller command with body and returns the error it failed with.
func ExecuteError(t *testing.T, exec command.Exec, body string) command.Error {
	t.Helper()

	cmdErr := exec(&bytes.Buffer{}, bytes.NewBufferString(body))
	require.Error(t, cmdErr)

	return cmdErr
}

// Notifier records notifications per topic.
type Notifier struct {
	mu       sync.Mutex
	messages map[string][][]byte
	arrived  chan struct{}
}

// NewNotifier returns an empty recording notifier.
func NewNotifier() *Notifier {
	return &Notifier{messages: map[string][][]byte{}, arrived: make(chan struct{}, 64)}
}

// Notify records message under topic.
func (n *Notifier) Notify(topic string, message []byte) error {
	n.mu.Lock()
	n.messages[topic] = append(n.messages[topic], message)
	n.mu.Unlock()

	select {
	case n.arrived <- struct{}{}:
	default:
	}

	return nil
}

// Topic returns the messages recorded under name.
func (n *Notifier) Topic(name string) [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([][]byte(nil), n.messages[name]...)
}

// WaitFor blocks until count messages were recorded under topic.
func (n *Notifier) WaitFor(t *testing.T, topic string, count int) [][]byte {
	t.Helper()

	deadline := time.After(10 * time.Second)

	for {
		if got := n.Topic(topic); len(got) >= count {
			return got
		}

		select {
		case <-n.arrived:
		case <-deadline:
			require.FailNow(t, "notification did not arrive", "topic %s", topic)
		}
	}
}
