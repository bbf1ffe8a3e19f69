/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package engine is the agent facade. It owns the handle tables of every protocol object, routes each operation
// through the command dispatcher and supplies the wallet, ledger and transport collaborators to the state machines.
//
// Every operation takes a caller chosen token and a callback. A call that fails validation returns the error and
// the callback is never invoked. An accepted call completes exactly once through the callback.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/connection"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credential"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/disclosedproof"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/issuercredential"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/proof"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/walletbackup"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet/archive"
)

var logger = log.New("vcx-agent/engine")

// Notification topics.
const (
	InboundMessageTopic = "inbound_message"
)

// Notifier receives engine notifications.
type Notifier interface {
	Notify(topic string, message []byte) error
}

// Engine is the agent. It satisfies the Provider interfaces of the protocol packages.
type Engine struct {
	cfg     Config
	cfgLock sync.RWMutex

	storeProvider storage.Provider
	wallet        wallet.Wallet
	ledger        ledger.Client
	transport     transport.Transport
	inbox         *transport.Inbox
	outbound      []transport.OutboundTransport
	notifier      Notifier
	archiveOpts   []archive.Option

	workers   int
	queueSize int

	dispatcher *dispatcher.Dispatcher
	ctx        context.Context
	cancel     context.CancelFunc

	// pairwise maps my pairwise DIDs to their verkeys, for message download by DID.
	pairwise sync.Map
	// bound maps my pairwise DIDs to the handle of the loaded connection, for exchanges bound by DID.
	bound sync.Map

	connections       *handle.Table[*connection.Connection]
	credentials       *handle.Table[*credential.Credential]
	issuerCredentials *handle.Table[*issuercredential.IssuerCredential]
	proofs            *handle.Table[*proof.Proof]
	disclosedProofs   *handle.Table[*disclosedproof.DisclosedProof]
	backups           *handle.Table[*walletbackup.WalletBackup]
	searches          *handle.Table[*search]
	schemas           *handle.Table[*issuercredential.Schema]
	credDefs          *handle.Table[*issuercredential.CredentialDef]
}

// Option configures the engine.
type Option func(opts *Engine) error

// New creates an engine. Collaborators that are not given are built from defaults over the store provider.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		connections:       handle.NewTable[*connection.Connection](handle.KindConnection),
		credentials:       handle.NewTable[*credential.Credential](handle.KindCredential),
		issuerCredentials: handle.NewTable[*issuercredential.IssuerCredential](handle.KindIssuerCredential),
		proofs:            handle.NewTable[*proof.Proof](handle.KindProof),
		disclosedProofs:   handle.NewTable[*disclosedproof.DisclosedProof](handle.KindDisclosedProof),
		backups:           handle.NewTable[*walletbackup.WalletBackup](handle.KindWalletBackup),
		searches:          handle.NewTable[*search](handle.KindSearch),
		schemas:           handle.NewTable[*issuercredential.Schema](handle.KindSchema),
		credDefs:          handle.NewTable[*issuercredential.CredentialDef](handle.KindCredentialDef),
	}

	for _, option := range opts {
		if err := option(e); err != nil {
			return nil, fmt.Errorf("error in option passed to New: %w", err)
		}
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	if err := defEngineOpts(e); err != nil {
		return nil, fmt.Errorf("default option initialization failed: %w", err)
	}

	var dispatcherOpts []dispatcher.Option
	if e.workers > 0 {
		dispatcherOpts = append(dispatcherOpts, dispatcher.WithWorkers(e.workers))
	}

	if e.queueSize > 0 {
		dispatcherOpts = append(dispatcherOpts, dispatcher.WithQueueSize(e.queueSize))
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.dispatcher = dispatcher.New(dispatcherOpts...)

	if e.inbox != nil && e.cfg.DeliveryMode == DeliveryPush {
		e.inbox.OnArrival(e.announce)
	}

	logger.Infof("engine started in %s delivery mode", e.cfg.DeliveryMode)

	return e, nil
}

// WithConfig sets the init configuration.
func WithConfig(cfg *Config) Option {
	return func(opts *Engine) error {
		if cfg == nil {
			return fmt.Errorf("nil config")
		}

		opts.cfg = *cfg

		return nil
	}
}

// WithStoreProvider sets the storage used by the default wallet and inbox.
func WithStoreProvider(prov storage.Provider) Option {
	return func(opts *Engine) error {
		opts.storeProvider = prov
		return nil
	}
}

// WithWallet injects the wallet.
func WithWallet(w wallet.Wallet) Option {
	return func(opts *Engine) error {
		opts.wallet = w
		return nil
	}
}

// WithLedger injects the ledger client.
func WithLedger(l ledger.Client) Option {
	return func(opts *Engine) error {
		opts.ledger = l
		return nil
	}
}

// WithTransport injects the transport. Push delivery needs WithInbox as well.
func WithTransport(t transport.Transport) Option {
	return func(opts *Engine) error {
		opts.transport = t
		return nil
	}
}

// WithInbox sets the inbox of the default transport and the one watched in push delivery mode.
func WithInbox(inbox *transport.Inbox) Option {
	return func(opts *Engine) error {
		opts.inbox = inbox
		return nil
	}
}

// WithOutboundTransports adds outbound transports to the default transport.
func WithOutboundTransports(outbound ...transport.OutboundTransport) Option {
	return func(opts *Engine) error {
		opts.outbound = append(opts.outbound, outbound...)
		return nil
	}
}

// WithNotifier sets the receiver of engine notifications.
func WithNotifier(n Notifier) Option {
	return func(opts *Engine) error {
		opts.notifier = n
		return nil
	}
}

// WithWorkers sets the number of dispatcher workers.
func WithWorkers(n int) Option {
	return func(opts *Engine) error {
		if n <= 0 {
			return fmt.Errorf("invalid worker count %d", n)
		}

		opts.workers = n

		return nil
	}
}

// WithQueueSize sets how many accepted commands may wait for a worker.
func WithQueueSize(n int) Option {
	return func(opts *Engine) error {
		if n <= 0 {
			return fmt.Errorf("invalid queue size %d", n)
		}

		opts.queueSize = n

		return nil
	}
}

// WithServiceEndpoint sets where remote agents deliver messages for this agent.
func WithServiceEndpoint(endpoint string) Option {
	return func(opts *Engine) error {
		opts.cfg.ServiceEndpoint = endpoint
		return nil
	}
}

// WithLabel sets the label used in invitations and requests.
func WithLabel(label string) Option {
	return func(opts *Engine) error {
		opts.cfg.InstitutionName = label
		return nil
	}
}

// WithArchiveOptions sets the options used when sealing wallet exports and backups.
func WithArchiveOptions(archiveOpts ...archive.Option) Option {
	return func(opts *Engine) error {
		opts.archiveOpts = append(opts.archiveOpts, archiveOpts...)
		return nil
	}
}

// Close stops accepting commands and waits for running ones.
func (e *Engine) Close() {
	e.dispatcher.Close()
	e.cancel()
}

// Wallet implements the protocol Provider interfaces.
func (e *Engine) Wallet() wallet.Wallet {
	return e.wallet
}

// Transport implements the protocol Provider interfaces.
func (e *Engine) Transport() transport.Transport {
	return e.transport
}

// Ledger implements the protocol Provider interfaces.
func (e *Engine) Ledger() ledger.Client {
	return e.ledger
}

// ServiceEndpoint implements the protocol Provider interfaces.
func (e *Engine) ServiceEndpoint() string {
	e.cfgLock.RLock()
	defer e.cfgLock.RUnlock()

	return e.cfg.ServiceEndpoint
}

// Label implements the protocol Provider interfaces.
func (e *Engine) Label() string {
	e.cfgLock.RLock()
	defer e.cfgLock.RUnlock()

	return e.cfg.label()
}

// Agency implements walletbackup.Provider.
func (e *Engine) Agency() *transport.Destination {
	e.cfgLock.RLock()
	defer e.cfgLock.RUnlock()

	return e.cfg.agency()
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() Config {
	e.cfgLock.RLock()
	defer e.cfgLock.RUnlock()

	return e.cfg
}

// Provision creates the institution key when the configuration has none and returns the completed configuration.
func (e *Engine) Provision(ctx context.Context) (*Config, error) {
	e.cfgLock.Lock()
	defer e.cfgLock.Unlock()

	if e.cfg.InstitutionDID == "" {
		key, err := e.wallet.CreateKey(ctx, nil)
		if err != nil {
			return nil, vcxerr.Collaborator(err, "create institution key")
		}

		e.cfg.InstitutionDID = key.DID
		e.cfg.InstitutionVerkey = key.Verkey

		logger.Infof("provisioned institution DID %s", key.DID)
	}

	if e.cfg.ProtocolVersion == "" {
		e.cfg.ProtocolVersion = connection.ProtocolVersion
	}

	cfg := e.cfg

	return &cfg, nil
}

func (e *Engine) pushMode() bool {
	e.cfgLock.RLock()
	defer e.cfgLock.RUnlock()

	return e.cfg.DeliveryMode == DeliveryPush
}

// inboundNotice is the inbound_message notification body.
type inboundNotice struct {
	UID          string `json:"uid"`
	RecipientKey string `json:"recipient_key"`
	PairwiseDID  string `json:"pairwise_did,omitempty"`
	Type         string `json:"type"`
	ThreadID     string `json:"thread_id,omitempty"`
}

func (e *Engine) announce(msg *transport.InboxMessage) {
	if e.notifier == nil {
		return
	}

	raw, err := json.Marshal(&inboundNotice{
		UID:          msg.UID,
		RecipientKey: msg.RecipientKey,
		PairwiseDID:  e.pairwiseDID(msg.RecipientKey),
		Type:         msg.Type,
		ThreadID:     msg.Payload.ThreadID(),
	})
	if err != nil {
		logger.Errorf("marshal inbound notice: %v", err)
		return
	}

	if err := e.notifier.Notify(InboundMessageTopic, raw); err != nil {
		logger.Warnf("inbound notice for %s not delivered: %v", msg.UID, err)
	}
}

func (e *Engine) remember(c *connection.Connection, h handle.Handle) {
	if c.PwDID() == "" {
		return
	}

	if c.Verkey() != "" {
		e.pairwise.Store(c.PwDID(), c.Verkey())
	}

	e.bound.Store(c.PwDID(), h)
}

func (e *Engine) forget(pwDID string, h handle.Handle) {
	if pwDID != "" {
		e.bound.CompareAndDelete(pwDID, h)
	}
}

func (e *Engine) connectionOf(pwDID string) (handle.Handle, bool) {
	if pwDID == "" {
		return 0, false
	}

	h, ok := e.bound.Load(pwDID)
	if !ok {
		return 0, false
	}

	return h.(handle.Handle), true //nolint:forcetypeassert
}

func (e *Engine) verkeyOf(pwDID string) (string, bool) {
	v, ok := e.pairwise.Load(pwDID)
	if !ok {
		return "", false
	}

	return v.(string), true //nolint:forcetypeassert
}

func (e *Engine) pairwiseDID(verkey string) string {
	did := ""

	e.pairwise.Range(func(k, v interface{}) bool {
		if v.(string) == verkey { //nolint:forcetypeassert
			did = k.(string) //nolint:forcetypeassert
			return false
		}

		return true
	})

	return did
}
