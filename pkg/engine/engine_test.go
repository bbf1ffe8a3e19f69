/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	mockledger "github.com/topcoder-platform/mobilewallet/pkg/internal/gomocks/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger/memledger"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/connection"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	memtransport "github.com/topcoder-platform/mobilewallet/pkg/transport/mem"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet/archive"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet/local"
)

// nolint:gochecknoglobals
var tokens uint32

type op func(token dispatcher.Token, cb dispatcher.Callback) error

type network struct {
	hub    *memtransport.Hub
	ledger *memledger.Ledger
}

func newNetwork() *network {
	return &network{hub: memtransport.NewHub(), ledger: memledger.New()}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (n *recordingNotifier) Notify(topic string, message []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.messages == nil {
		n.messages = map[string][][]byte{}
	}

	n.messages[topic] = append(n.messages[topic], message)

	return nil
}

func (n *recordingNotifier) topic(name string) [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([][]byte(nil), n.messages[name]...)
}

func (n *network) agent(t *testing.T, name string, cfg *Config, opts ...Option) *Engine {
	t.Helper()

	if cfg == nil {
		cfg = &Config{}
	}

	cfg.WalletKey = name + "-key"
	cfg.InstitutionName = name

	provider := mem.NewProvider()

	w, err := local.New(provider, cfg.WalletKey, local.WithIterations(10))
	require.NoError(t, err)

	inbox, err := transport.NewInbox(provider)
	require.NoError(t, err)

	e, err := New(append([]Option{
		WithConfig(cfg),
		WithStoreProvider(provider),
		WithWallet(w),
		WithLedger(n.ledger),
		WithInbox(inbox),
		WithOutboundTransports(n.hub),
		WithServiceEndpoint(n.hub.Register(name, inbox)),
		WithArchiveOptions(archive.WithWorkFactor(10)),
	}, opts...)...)
	require.NoError(t, err)

	t.Cleanup(e.Close)

	return e
}

// call submits a command and waits for its completion.
func call(t *testing.T, submit op) (interface{}, error) {
	t.Helper()

	token := dispatcher.Token(atomic.AddUint32(&tokens, 1))
	done := make(chan *dispatcher.Completion, 1)

	require.NoError(t, submit(token, func(c *dispatcher.Completion) {
		done <- c
	}))

	select {
	case c := <-done:
		require.Equal(t, token, c.Token)

		return c.Result, c.Err
	case <-time.After(10 * time.Second):
		require.FailNow(t, "command did not complete")
	}

	return nil, nil
}

func mustCall(t *testing.T, submit op) interface{} {
	t.Helper()

	res, err := call(t, submit)
	require.NoError(t, err)

	return res
}

// rejected checks that the command is refused before it is accepted.
func rejected(t *testing.T, kind vcxerr.Kind, submit op) {
	t.Helper()

	called := make(chan struct{}, 1)

	err := submit(dispatcher.Token(atomic.AddUint32(&tokens, 1)), func(*dispatcher.Completion) {
		called <- struct{}{}
	})
	require.Error(t, err)
	require.Equal(t, kind, vcxerr.KindOf(err))

	select {
	case <-called:
		require.FailNow(t, "callback invoked for a rejected command")
	case <-time.After(50 * time.Millisecond):
	}
}

func messageIDs(t *testing.T, raw interface{}) []string {
	t.Helper()

	var msgs []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw.(json.RawMessage), &msgs))

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m["@id"].(string))
	}

	return ids
}

// connect runs the handshake between inviter and invitee and returns both connection handles.
func connect(t *testing.T, inviter, invitee *Engine) (handle.Handle, handle.Handle) {
	t.Helper()

	ih := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return inviter.ConnectionCreate(tok, "to-invitee", cb)
	}).(handle.Handle)

	invite := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return inviter.ConnectionConnect(tok, ih, nil, cb)
	}).(json.RawMessage)

	eh := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return invitee.ConnectionCreateWithInvite(tok, "to-inviter", invite, cb)
	}).(handle.Handle)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return invitee.ConnectionConnect(tok, eh, &connection.ConnectOptions{ConnectionType: "QR"}, cb)
	})

	for _, step := range []struct {
		e *Engine
		h handle.Handle
	}{{inviter, ih}, {invitee, eh}, {inviter, ih}} {
		state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return step.e.ConnectionUpdateState(tok, step.h, cb)
		})
		require.Equal(t, protocol.StateAccepted, state)
	}

	return ih, eh
}

func TestNew(t *testing.T) {
	t.Run("default collaborators", func(t *testing.T) {
		e, err := New(WithConfig(&Config{WalletKey: "secret"}), WithWorkers(2), WithQueueSize(8))
		require.NoError(t, err)

		defer e.Close()

		require.NotNil(t, e.Wallet())
		require.NotNil(t, e.Transport())
		require.NotNil(t, e.Ledger())
		require.Equal(t, DeliveryPoll, e.Config().DeliveryMode)
		require.Equal(t, "vcx-agent", e.Label())
		require.Nil(t, e.Agency())
	})

	t.Run("wallet key required", func(t *testing.T) {
		_, err := New()
		require.Error(t, err)
		require.Contains(t, err.Error(), "wallet_key")
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := New(WithWorkers(0))
		require.Error(t, err)

		_, err = New(WithQueueSize(-1))
		require.Error(t, err)

		_, err = New(WithConfig(nil))
		require.Error(t, err)

		_, err = New(WithConfig(&Config{WalletKey: "k", DeliveryMode: "carrier-pigeon"}))
		require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(err))
	})

	t.Run("agency", func(t *testing.T) {
		e, err := New(WithConfig(&Config{
			WalletKey:    "k",
			AgencyURL:    "http://agency.example.com",
			AgencyVerkey: "agency-key",
		}))
		require.NoError(t, err)

		defer e.Close()

		require.Equal(t, &transport.Destination{
			RecipientKeys:   []string{"agency-key"},
			ServiceEndpoint: "http://agency.example.com",
		}, e.Agency())
	})
}

func TestEngine_Provision(t *testing.T) {
	e := newNetwork().agent(t, "issuer", nil)

	cfg, err := e.Provision(e.ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.InstitutionDID)
	require.NotEmpty(t, cfg.InstitutionVerkey)
	require.Equal(t, connection.ProtocolVersion, cfg.ProtocolVersion)

	again, err := e.Provision(e.ctx)
	require.NoError(t, err)
	require.Equal(t, cfg.InstitutionDID, again.InstitutionDID)
	require.Equal(t, cfg.InstitutionDID, e.Config().InstitutionDID)
}

func TestEngine_Rejects(t *testing.T) {
	e := newNetwork().agent(t, "alice", nil)

	rejected(t, vcxerr.InvalidHandle, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.ConnectionGetState(tok, 4242, cb)
	})

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.ConnectionCreateWithInvite(tok, "bad", []byte("{"), cb)
	})

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.CredentialCreateWithOffer(tok, "bad", []byte(`{"@type":"x"}`), cb)
	})

	rejected(t, vcxerr.MalformedSnapshot, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.ProofDeserialize(tok, `{"version":"2.0","kind":"connection","data":{}}`, cb)
	})

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.SchemaCreate(tok, "s", "degree", "1.0", []byte(`"name"`), cb)
	})

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.IssuerCredentialCreate(tok, "ic", 0, "", []byte(`{"name":"Alice"}`), "", cb)
	})

	ch := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.ConnectionCreate(tok, "x", cb)
	}).(handle.Handle)

	rejected(t, vcxerr.InvalidHandle, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.CredentialGetState(tok, ch, cb)
	})

	rejected(t, vcxerr.InvalidHandle, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.ProofSendRequest(tok, 4243, 0, cb)
	})

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.ConnectionUpdateStateWithMessage(tok, ch, []byte("not json"), cb)
	})
}

func TestEngine_Release(t *testing.T) {
	e := newNetwork().agent(t, "alice", nil)

	h := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.ConnectionCreate(tok, "x", cb)
	}).(handle.Handle)

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.ConnectionGetState(tok, h, cb)
	})
	require.Equal(t, protocol.StateInitialized, state)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.ConnectionRelease(tok, h, cb)
	})

	rejected(t, vcxerr.InvalidHandle, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.ConnectionGetState(tok, h, cb)
	})

	rejected(t, vcxerr.InvalidHandle, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.ConnectionRelease(tok, h, cb)
	})
}

func TestEngine_Close(t *testing.T) {
	e := newNetwork().agent(t, "alice", nil)
	e.Close()

	err := e.ConnectionCreate(1, "x", func(*dispatcher.Completion) {})
	require.Equal(t, vcxerr.Busy, vcxerr.KindOf(err))
}

func TestEngine_LedgerObjects(t *testing.T) {
	n := newNetwork()
	e := n.agent(t, "issuer", nil)

	schema := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.SchemaCreate(tok, "s", "degree", "1.0", []byte(`["name","degree"]`), cb)
	}).(*HandleWithID)
	require.Equal(t, ledger.SchemaID(e.Config().InstitutionDID, "degree", "1.0"), schema.ID)

	id := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.SchemaGetID(tok, schema.Handle, cb)
	})
	require.Equal(t, schema.ID, id)

	credDef := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.CredentialDefCreate(tok, "cd", schema.ID, "tag1", cb)
	}).(*HandleWithID)

	resolved, err := n.ledger.ResolveCredDef(e.ctx, credDef.ID)
	require.NoError(t, err)
	require.Equal(t, schema.ID, resolved.SchemaID)

	raw := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.CredentialDefSerialize(tok, credDef.Handle, cb)
	}).(string)

	restored := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.CredentialDefDeserialize(tok, raw, cb)
	}).(handle.Handle)
	require.NotEqual(t, credDef.Handle, restored)

	ich := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.IssuerCredentialCreate(tok, "by-id", 0, credDef.ID, []byte(`{"name":"Alice","degree":"Maths"}`),
			"Degree", cb)
	}).(handle.Handle)

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.IssuerCredentialGetState(tok, ich, cb)
	})
	require.Equal(t, protocol.StateInitialized, state)

	_, err = call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.IssuerCredentialCreate(tok, "missing", 0, "nope", []byte(`{"name":"Alice"}`), "", cb)
	})
	require.Equal(t, vcxerr.NotFound, vcxerr.KindOf(err))

	for _, release := range []op{
		func(tok dispatcher.Token, cb dispatcher.Callback) error { return e.SchemaRelease(tok, schema.Handle, cb) },
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return e.CredentialDefRelease(tok, credDef.Handle, cb)
		},
	} {
		mustCall(t, release)
	}
}

func TestEngine_LedgerUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	l := mockledger.NewMockClient(ctrl)
	l.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(errors.New("pool timeout"))
	l.EXPECT().ResolveCredDef(gomock.Any(), "cd-1").Return(nil, errors.New("pool timeout"))

	e := newNetwork().agent(t, "issuer", nil, WithLedger(l))

	_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.SchemaCreate(tok, "s", "degree", "1.0", []byte(`["name"]`), cb)
	})
	require.Equal(t, vcxerr.CollaboratorFailure, vcxerr.KindOf(err))
	require.Contains(t, err.Error(), "pool timeout")

	_, err = call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.IssuerCredentialCreate(tok, "ic", 0, "cd-1", []byte(`{"name":"Alice"}`), "", cb)
	})
	require.Equal(t, vcxerr.CollaboratorFailure, vcxerr.KindOf(err))
}
