/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package local

import (
	"bytes"
	"context"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

func newWallet(t *testing.T) *Wallet {
	t.Helper()

	w, err := New(mem.NewProvider(), "secret", WithIterations(10))
	require.NoError(t, err)

	return w
}

func TestNew(t *testing.T) {
	provider := mem.NewProvider()

	_, err := New(provider, "secret", WithIterations(10))
	require.NoError(t, err)

	t.Run("reopen with the same key", func(t *testing.T) {
		_, err := New(provider, "secret", WithIterations(10))
		require.NoError(t, err)
	})

	t.Run("reopen with another key", func(t *testing.T) {
		_, err := New(provider, "other", WithIterations(10))
		require.ErrorIs(t, err, wallet.ErrInvalidKey)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := New(mem.NewProvider(), "")
		require.Error(t, err)
	})
}

func TestKeys(t *testing.T) {
	w := newWallet(t)
	ctx := context.Background()

	t.Run("seeded keys are deterministic", func(t *testing.T) {
		seed := bytes.Repeat([]byte("0"), seedSize)

		k1, err := w.CreateKey(ctx, seed)
		require.NoError(t, err)

		k2, err := w.CreateKey(ctx, seed)
		require.NoError(t, err)
		require.Equal(t, k1, k2)
		require.NotEqual(t, k1.DID, k1.Verkey)
	})

	t.Run("bad seed", func(t *testing.T) {
		_, err := w.CreateKey(ctx, []byte("short"))
		require.Error(t, err)
	})

	t.Run("sign and verify", func(t *testing.T) {
		key, err := w.CreateKey(ctx, nil)
		require.NoError(t, err)

		sig, err := w.Sign(ctx, key.Verkey, []byte("hello"))
		require.NoError(t, err)

		ok, err := w.Verify(ctx, key.Verkey, []byte("hello"), sig)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = w.Verify(ctx, key.Verkey, []byte("tampered"), sig)
		require.NoError(t, err)
		require.False(t, ok)

		_, err = w.Verify(ctx, "bad", []byte("hello"), sig)
		require.Error(t, err)

		_, err = w.Sign(ctx, "unknown", []byte("hello"))
		require.ErrorIs(t, err, wallet.ErrNotFound)
	})
}

func TestRecords(t *testing.T) {
	w := newWallet(t)
	ctx := context.Background()

	rec := &wallet.Record{Type: "credential", ID: "c1", Value: `{"a":1}`, Tags: map[string]string{"schema_id": "s:1"}}
	require.NoError(t, w.AddRecord(ctx, rec))
	require.NoError(t, w.AddRecord(ctx, &wallet.Record{Type: "credential", ID: "c2", Value: "{}"}))
	require.NoError(t, w.AddRecord(ctx, &wallet.Record{Type: "other", ID: "o1", Value: "x"}))

	t.Run("duplicate", func(t *testing.T) {
		require.ErrorIs(t, w.AddRecord(ctx, rec), wallet.ErrDuplicate)
	})

	t.Run("invalid", func(t *testing.T) {
		require.Error(t, w.AddRecord(ctx, &wallet.Record{Type: "x"}))
		require.Error(t, w.AddRecord(ctx, &wallet.Record{Type: wallet.KeyRecordType, ID: "k"}))
	})

	t.Run("get", func(t *testing.T) {
		got, err := w.GetRecord(ctx, "credential", "c1")
		require.NoError(t, err)
		require.Equal(t, rec, got)

		_, err = w.GetRecord(ctx, "credential", "missing")
		require.ErrorIs(t, err, wallet.ErrNotFound)
	})

	t.Run("query", func(t *testing.T) {
		recs, err := w.Query(ctx, "credential", nil)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		require.Equal(t, "c1", recs[0].ID)

		recs, err = w.Query(ctx, "credential", wallet.Filter{"schema_id": "s:1"})
		require.NoError(t, err)
		require.Len(t, recs, 1)

		recs, err = w.Query(ctx, "none", nil)
		require.NoError(t, err)
		require.Empty(t, recs)
	})

	t.Run("update value and tags", func(t *testing.T) {
		require.NoError(t, w.UpdateRecordValue(ctx, "credential", "c2", "new"))
		require.NoError(t, w.AddRecordTags(ctx, "credential", "c2", map[string]string{"a": "1", "b": "2"}))
		require.NoError(t, w.DeleteRecordTags(ctx, "credential", "c2", []string{"a"}))

		got, err := w.GetRecord(ctx, "credential", "c2")
		require.NoError(t, err)
		require.Equal(t, "new", got.Value)
		require.Equal(t, map[string]string{"b": "2"}, got.Tags)

		require.NoError(t, w.UpdateRecordTags(ctx, "credential", "c2", map[string]string{"c": "3"}))

		got, err = w.GetRecord(ctx, "credential", "c2")
		require.NoError(t, err)
		require.Equal(t, map[string]string{"c": "3"}, got.Tags)

		require.ErrorIs(t, w.UpdateRecordValue(ctx, "credential", "missing", "v"), wallet.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, w.DeleteRecord(ctx, "other", "o1"))
		require.ErrorIs(t, w.DeleteRecord(ctx, "other", "o1"), wallet.ErrNotFound)
	})
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newWallet(t)

	key, err := src.CreateKey(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, src.AddRecord(ctx, &wallet.Record{Type: "credential", ID: "c1", Value: "v"}))

	records, err := src.Export(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	dst, err := New(mem.NewProvider(), "another", WithIterations(10))
	require.NoError(t, err)
	require.NoError(t, dst.Import(ctx, records))

	got, err := dst.GetRecord(ctx, "credential", "c1")
	require.NoError(t, err)
	require.Equal(t, "v", got.Value)

	sig, err := dst.Sign(ctx, key.Verkey, []byte("data"))
	require.NoError(t, err)

	ok, err := src.Verify(ctx, key.Verkey, []byte("data"), sig)
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("mismatched key record", func(t *testing.T) {
		bad := []*wallet.Record{{Type: wallet.KeyRecordType, ID: "wrong", Value: records[1].Value}}
		if records[0].Type == wallet.KeyRecordType {
			bad[0].Value = records[0].Value
		}

		require.Error(t, dst.Import(ctx, bad))
	})
}
