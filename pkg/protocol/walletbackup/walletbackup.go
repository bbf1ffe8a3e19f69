/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package walletbackup exports the wallet into an encrypted archive and optionally hands it to the agency.
package walletbackup

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/snapshot"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet/archive"
)

var logger = log.New("vcx-agent/walletbackup")

// SnapshotKind tags serialized wallet backups.
const SnapshotKind = "wallet_backup"

// ArchiveAttachID is the id of the archive attachment of a backup message.
const ArchiveAttachID = "wallet-backup-0"

// Provider supplies the collaborators of a backup. Agency returns nil when no agency is configured.
type Provider interface {
	Wallet() wallet.Wallet
	Transport() transport.Transport
	ServiceEndpoint() string
	Agency() *transport.Destination
}

// BackupMessage hands an archive to the agency.
type BackupMessage struct {
	protocol.Header `json:",squash"`
	ReplyTo         *transport.Destination `json:"reply_to"`
	BackupAttach    []protocol.Attachment  `json:"backup~attach"`
}

type record struct {
	SourceID      string                  `json:"source_id"`
	BackupKey     string                  `json:"backup_key"`
	ThreadID      string                  `json:"thread_id,omitempty"`
	ReplyKey      string                  `json:"reply_key,omitempty"`
	Path          string                  `json:"path,omitempty"`
	Size          int                     `json:"size,omitempty"`
	ProblemReport *protocol.ProblemReport `json:"problem_report,omitempty"`
}

type snapshotData struct {
	State string `json:"state"`
	record
}

// WalletBackup tracks the backups of the wallet under one backup key.
type WalletBackup struct {
	current state
	rec     record
}

// New creates a wallet backup.
func New(sourceID, backupKey string) (*WalletBackup, error) {
	if backupKey == "" {
		return nil, vcxerr.New(vcxerr.MalformedInput, "backup key must not be empty")
	}

	return &WalletBackup{current: &initialized{}, rec: record{SourceID: sourceID, BackupKey: backupKey}}, nil
}

// Deserialize restores a wallet backup from a snapshot.
func Deserialize(raw string) (*WalletBackup, error) {
	data := &snapshotData{}
	if err := snapshot.Unmarshal(raw, SnapshotKind, data); err != nil {
		return nil, err
	}

	current, err := stateFromName(data.State)
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedSnapshot, err, "restore wallet backup")
	}

	if data.BackupKey == "" {
		return nil, vcxerr.New(vcxerr.MalformedSnapshot, "wallet backup snapshot has no backup key")
	}

	return &WalletBackup{current: current, rec: data.record}, nil
}

// Serialize implements protocol.Object.
func (b *WalletBackup) Serialize() (string, error) {
	return snapshot.Marshal(SnapshotKind, &snapshotData{State: b.current.Name(), record: b.rec})
}

// SourceID implements protocol.Object.
func (b *WalletBackup) SourceID() string {
	return b.rec.SourceID
}

// StateName implements protocol.Object.
func (b *WalletBackup) StateName() string {
	return b.current.Name()
}

// State implements protocol.Object.
func (b *WalletBackup) State() protocol.StateCode {
	return b.current.Code()
}

// Path returns where the last archive was written.
func (b *WalletBackup) Path() string {
	return b.rec.Path
}

func (b *WalletBackup) transition(next state, work *record) error {
	if !b.current.CanTransitionTo(next) {
		return vcxerr.New(vcxerr.InvalidState, "wallet backup %s cannot move from %s to %s", b.rec.SourceID,
			b.current.Name(), next.Name())
	}

	logger.Debugf("wallet backup %s: %s -> %s", b.rec.SourceID, b.current.Name(), next.Name())

	b.current = next
	b.rec = *work

	return nil
}

// Backup exports every wallet record into an archive at path. With an agency configured the archive is also
// sent to it and the backup waits for its ack.
func (b *WalletBackup) Backup(ctx context.Context, p Provider, path string, opts ...archive.Option) error {
	if b.current.Name() == StateNameInProgress || b.current.Name() == StateNameFailed {
		return vcxerr.New(vcxerr.InvalidState, "cannot back up wallet in state %s", b.current.Name())
	}

	if path == "" {
		return vcxerr.New(vcxerr.MalformedInput, "backup path must not be empty")
	}

	records, err := p.Wallet().Export(ctx)
	if err != nil {
		return vcxerr.Collaborator(err, "export wallet")
	}

	data, err := archive.WriteFile(path, records, b.rec.BackupKey, opts...)
	if err != nil {
		return vcxerr.Collaborator(err, "write wallet backup")
	}

	work := b.rec
	work.Path = path
	work.Size = len(data)

	agency := p.Agency()
	if agency == nil {
		return b.transition(&ready{}, &work)
	}

	if work.ReplyKey == "" {
		key, err := p.Wallet().CreateKey(ctx, nil)
		if err != nil {
			return vcxerr.Collaborator(err, "create backup reply key")
		}

		work.ReplyKey = key.Verkey
	}

	msg := &BackupMessage{
		Header:  protocol.NewHeader(protocol.BackupMsgType),
		ReplyTo: &transport.Destination{RecipientKeys: []string{work.ReplyKey}, ServiceEndpoint: p.ServiceEndpoint()},
		BackupAttach: []protocol.Attachment{{
			ID:       ArchiveAttachID,
			MimeType: "application/octet-stream",
			Data:     protocol.AttachmentData{Base64: base64.StdEncoding.EncodeToString(data)},
		}},
	}
	work.ThreadID = msg.ID

	m, err := protocol.NewMessageFromStruct(msg)
	if err != nil {
		return err
	}

	if err := p.Transport().Send(ctx, agency, m); err != nil {
		return vcxerr.Collaborator(err, "send wallet backup")
	}

	return b.transition(&inProgress{}, &work)
}

// UpdateStateWithMessage feeds one message through the state machine and reports whether it was consumed.
func (b *WalletBackup) UpdateStateWithMessage(msg protocol.Message) (bool, error) {
	work := b.rec

	next := b.current.ExecuteInbound(msg, &work)
	if next == nil {
		return false, nil
	}

	if err := b.transition(next, &work); err != nil {
		return false, err
	}

	return true, nil
}

// UpdateState polls the reply key for the agency's answer.
func (b *WalletBackup) UpdateState(ctx context.Context, p Provider) error {
	if b.current.Name() != StateNameInProgress {
		return nil
	}

	msgs, err := p.Transport().PollInbox(ctx, b.rec.ReplyKey)
	if err != nil {
		return vcxerr.Collaborator(err, "poll inbox")
	}

	for _, m := range msgs {
		consumed, err := b.UpdateStateWithMessage(m.Payload)
		if err != nil {
			return err
		}

		if !consumed {
			continue
		}

		if err := p.Transport().UpdateStatus(ctx, b.rec.ReplyKey, transport.StatusReviewed, m.UID); err != nil {
			return vcxerr.Collaborator(err, "mark message %s reviewed", m.UID)
		}

		break
	}

	return nil
}

// ProblemReport returns the agency's problem report as JSON, or {}.
func (b *WalletBackup) ProblemReport() string {
	if b.rec.ProblemReport == nil {
		return "{}"
	}

	raw, err := json.Marshal(b.rec.ProblemReport)
	if err != nil {
		return "{}"
	}

	return string(raw)
}

// RestoreConfig locates a backup archive. WalletKey is only used by callers opening a fresh wallet.
type RestoreConfig struct {
	WalletKey          string `json:"wallet_key,omitempty"`
	ExportedWalletPath string `json:"exported_wallet_path"`
	BackupKey          string `json:"backup_key"`
}

// ParseRestoreConfig decodes and validates a restore configuration.
func ParseRestoreConfig(raw string) (*RestoreConfig, error) {
	cfg := &RestoreConfig{}
	if err := json.Unmarshal([]byte(raw), cfg); err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid restore config")
	}

	if cfg.ExportedWalletPath == "" || cfg.BackupKey == "" {
		return nil, vcxerr.New(vcxerr.MalformedInput, "restore config needs exported_wallet_path and backup_key")
	}

	return cfg, nil
}

// Restore imports the records of the archive described by cfg into w.
func Restore(ctx context.Context, w wallet.Wallet, cfg *RestoreConfig) error {
	if _, err := os.Stat(cfg.ExportedWalletPath); errors.Is(err, os.ErrNotExist) {
		return vcxerr.New(vcxerr.NotFound, "no wallet backup at %s", cfg.ExportedWalletPath)
	}

	records, err := archive.ReadFile(cfg.ExportedWalletPath, cfg.BackupKey)
	if err != nil {
		return vcxerr.Wrap(vcxerr.MalformedInput, err, "open wallet backup")
	}

	if err := w.Import(ctx, records); err != nil {
		return vcxerr.Collaborator(err, "import wallet backup")
	}

	logger.Infof("restored %d wallet records from %s", len(records), cfg.ExportedWalletPath)

	return nil
}
