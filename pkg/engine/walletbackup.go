/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/walletbackup"
)

// WalletBackupCreate creates a wallet backup sealed under backupKey.
func (e *Engine) WalletBackupCreate(token dispatcher.Token, sourceID, backupKey string, cb dispatcher.Callback) error {
	b, err := walletbackup.New(sourceID, backupKey)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		return allocate(e.backups, b)
	}, cb)
}

// WalletBackupBackup writes the wallet archive to path and hands it to the agency when one is configured. The
// result is the state.
func (e *Engine) WalletBackupBackup(token dispatcher.Token, h handle.Handle, path string,
	cb dispatcher.Callback) error {
	return submitWith(e, token, e.backups, h, func(b *walletbackup.WalletBackup) (interface{}, error) {
		if err := b.Backup(e.ctx, e, path, e.archiveOpts...); err != nil {
			return nil, err
		}

		return b.State(), nil
	}, cb)
}

// WalletBackupUpdateState polls for the agency's answer in poll delivery mode.
func (e *Engine) WalletBackupUpdateState(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.backups, h, func(b *walletbackup.WalletBackup) (interface{}, error) {
		if !e.pushMode() {
			if err := b.UpdateState(e.ctx, e); err != nil {
				return nil, err
			}
		}

		return b.State(), nil
	}, cb)
}

// WalletBackupUpdateStateWithMessage feeds one agency message to the backup.
func (e *Engine) WalletBackupUpdateStateWithMessage(token dispatcher.Token, h handle.Handle, msg []byte,
	cb dispatcher.Callback) error {
	m, err := protocol.NewMessage(msg)
	if err != nil {
		return err
	}

	return submitWith(e, token, e.backups, h, func(b *walletbackup.WalletBackup) (interface{}, error) {
		if _, err := b.UpdateStateWithMessage(m); err != nil {
			return nil, err
		}

		return b.State(), nil
	}, cb)
}

// WalletBackupGetState reports the state.
func (e *Engine) WalletBackupGetState(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitState(e, token, e.backups, h, cb)
}

// WalletBackupProblemReport returns the agency's problem report, or an empty object.
func (e *Engine) WalletBackupProblemReport(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.backups, h, func(b *walletbackup.WalletBackup) (interface{}, error) {
		return rawJSON(b.ProblemReport()), nil
	}, cb)
}

// WalletBackupSerialize returns the backup snapshot.
func (e *Engine) WalletBackupSerialize(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitSerialize(e, token, e.backups, h, cb)
}

// WalletBackupDeserialize restores a wallet backup.
func (e *Engine) WalletBackupDeserialize(token dispatcher.Token, snapshot string, cb dispatcher.Callback) error {
	b, err := walletbackup.Deserialize(snapshot)

	return submitDeserialize(e, token, e.backups, b, err, cb)
}

// WalletBackupRelease invalidates the handle.
func (e *Engine) WalletBackupRelease(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitRelease(e, token, e.backups, h, cb)
}

// WalletBackupRestore imports a backup archive into the wallet. config is
// {"wallet_key":...,"exported_wallet_path":...,"backup_key":...}.
func (e *Engine) WalletBackupRestore(token dispatcher.Token, config string, cb dispatcher.Callback) error {
	return e.WalletImport(token, config, cb)
}
