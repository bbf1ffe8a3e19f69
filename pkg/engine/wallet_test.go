/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	mocktransport "github.com/topcoder-platform/mobilewallet/pkg/internal/gomocks/transport"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

func TestEngine_WalletRecords(t *testing.T) {
	e := newNetwork().agent(t, "alice", nil)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletAddRecord(tok, "pet", "tom", "grey cat", `{"kind":"cat"}`, cb)
	})

	_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletAddRecord(tok, "pet", "tom", "another", "", cb)
	})
	require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(err))

	rec := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletGetRecord(tok, "pet", "tom", "", cb)
	}).(*wallet.Record)
	require.Equal(t, &wallet.Record{ID: "tom", Value: "grey cat"}, rec)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletUpdateRecordValue(tok, "pet", "tom", "black cat", cb)
	})

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletAddRecordTags(tok, "pet", "tom", `{"owner":"alice"}`, cb)
	})

	rec = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletGetRecord(tok, "pet", "tom", `{"retrieveType":true,"retrieveValue":true,"retrieveTags":true}`, cb)
	}).(*wallet.Record)
	require.Equal(t, &wallet.Record{
		Type:  "pet",
		ID:    "tom",
		Value: "black cat",
		Tags:  map[string]string{"kind": "cat", "owner": "alice"},
	}, rec)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletDeleteRecordTags(tok, "pet", "tom", `["owner"]`, cb)
	})

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletUpdateRecordTags(tok, "pet", "tom", `{"kind":"tomcat"}`, cb)
	})

	rec = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletGetRecord(tok, "pet", "tom", `{"retrieveValue":false,"retrieveTags":true}`, cb)
	}).(*wallet.Record)
	require.Equal(t, map[string]string{"kind": "tomcat"}, rec.Tags)
	require.Empty(t, rec.Value)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletDeleteRecord(tok, "pet", "tom", cb)
	})

	_, err = call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletGetRecord(tok, "pet", "tom", "", cb)
	})
	require.Equal(t, vcxerr.NotFound, vcxerr.KindOf(err))

	t.Run("rejects", func(t *testing.T) {
		rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return e.WalletAddRecord(tok, "", "id", "v", "", cb)
		})

		rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return e.WalletAddRecord(tok, "pet", "id", "v", `{"age":3}`, cb)
		})

		rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return e.WalletDeleteRecordTags(tok, "pet", "id", `"owner"`, cb)
		})

		rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return e.WalletGetRecord(tok, "pet", "id", `{"retrieveTags":"yes"}`, cb)
		})
	})
}

func TestEngine_WalletSearch(t *testing.T) {
	e := newNetwork().agent(t, "alice", nil)

	for id, kind := range map[string]string{"tom": "cat", "felix": "cat", "rex": "dog"} {
		id, kind := id, kind

		mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return e.WalletAddRecord(tok, "pet", id, id+" the "+kind, `{"kind":"`+kind+`"}`, cb)
		})
	}

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletOpenSearch(tok, "pet", `{"kind":{"$in":["cat"]}}`, "", cb)
	})

	sh := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletOpenSearch(tok, "pet", `{"kind":"cat"}`, `{"retrieveTags":true}`, cb)
	}).(handle.Handle)

	page := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletSearchNextRecords(tok, sh, 1, cb)
	}).(*SearchRecords)
	require.Len(t, page.Records, 1)
	require.Equal(t, "cat", page.Records[0].Tags["kind"])
	require.Contains(t, page.Records[0].Value, "the cat")

	page = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletSearchNextRecords(tok, sh, 10, cb)
	}).(*SearchRecords)
	require.Len(t, page.Records, 1)

	page = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletSearchNextRecords(tok, sh, 10, cb)
	}).(*SearchRecords)

	raw, err := json.Marshal(page)
	require.NoError(t, err)
	require.JSONEq(t, `{"records":null}`, string(raw))

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletSearchNextRecords(tok, sh, 0, cb)
	})

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletCloseSearch(tok, sh, cb)
	})

	rejected(t, vcxerr.InvalidHandle, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.WalletSearchNextRecords(tok, sh, 1, cb)
	})
}

func TestEngine_WalletExportImport(t *testing.T) {
	n := newNetwork()
	alice := n.agent(t, "alice", nil)
	path := filepath.Join(t.TempDir(), "wallet.vcxb")

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.WalletAddRecord(tok, "note", "n1", "remember the milk", "", cb)
	})

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.WalletExport(tok, path, "export-key", cb)
	})

	restored := n.agent(t, "alice-restored", nil)

	_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return restored.WalletImport(tok, `{"exported_wallet_path":"`+path+`","backup_key":"wrong"}`, cb)
	})
	require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(err))

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return restored.WalletImport(tok, `{"exported_wallet_path":"`+path+`","backup_key":"export-key"}`, cb)
	})

	rec := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return restored.WalletGetRecord(tok, "note", "n1", "", cb)
	}).(*wallet.Record)
	require.Equal(t, "remember the milk", rec.Value)

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return restored.WalletImport(tok, `{"backup_key":"export-key"}`, cb)
	})

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return alice.WalletExport(tok, path, "", cb)
	})
}

func TestEngine_WalletBackup(t *testing.T) {
	t.Run("local backup and restore", func(t *testing.T) {
		n := newNetwork()
		alice := n.agent(t, "alice", nil)
		path := filepath.Join(t.TempDir(), "backup.vcxb")

		mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletAddRecord(tok, "note", "n1", "backed up", "", cb)
		})

		rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupCreate(tok, "backup", "", cb)
		})

		bh := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupCreate(tok, "backup", "backup-key", cb)
		}).(handle.Handle)

		state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupBackup(tok, bh, path, cb)
		})
		require.Equal(t, protocol.StateAccepted, state)

		raw := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupSerialize(tok, bh, cb)
		}).(string)

		restoredHandle := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupDeserialize(tok, raw, cb)
		}).(handle.Handle)

		state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupGetState(tok, restoredHandle, cb)
		})
		require.Equal(t, protocol.StateAccepted, state)

		other := n.agent(t, "alice-new-device", nil)

		mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return other.WalletBackupRestore(tok, `{"wallet_key":"k","exported_wallet_path":"`+path+
				`","backup_key":"backup-key"}`, cb)
		})

		rec := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return other.WalletGetRecord(tok, "note", "n1", "", cb)
		}).(*wallet.Record)
		require.Equal(t, "backed up", rec.Value)

		mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupRelease(tok, bh, cb)
		})
	})

	t.Run("agency backup", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		n := newNetwork()
		tr := mocktransport.NewMockTransport(ctrl)

		var sent protocol.Message

		tr.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, dest *transport.Destination, msg protocol.Message) error {
				require.Equal(t, []string{"agency-key"}, dest.RecipientKeys)
				sent = msg

				return nil
			})

		alice := n.agent(t, "alice", &Config{AgencyURL: "mem://agency", AgencyVerkey: "agency-key"},
			WithTransport(tr))

		bh := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupCreate(tok, "backup", "backup-key", cb)
		}).(handle.Handle)

		state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupBackup(tok, bh, filepath.Join(t.TempDir(), "backup.vcxb"), cb)
		})
		require.Equal(t, protocol.StateOfferSent, state)
		require.Equal(t, protocol.BackupMsgType, sent.Type())

		ack := protocol.MustMessage(protocol.NewAck(protocol.BackupAckMsgType, sent.ID()))

		state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupUpdateStateWithMessage(tok, bh, ack.JSON(), cb)
		})
		require.Equal(t, protocol.StateAccepted, state)

		report := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupProblemReport(tok, bh, cb)
		}).(json.RawMessage)
		require.JSONEq(t, "{}", string(report))
	})

	t.Run("restore of a missing archive", func(t *testing.T) {
		alice := newNetwork().agent(t, "alice", nil)

		_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return alice.WalletBackupRestore(tok, `{"exported_wallet_path":"`+
				filepath.Join(t.TempDir(), "none")+`","backup_key":"k"}`, cb)
		})
		require.Equal(t, vcxerr.NotFound, vcxerr.KindOf(err))
		require.ErrorIs(t, err, vcxerr.ErrNotFound)
	})
}
