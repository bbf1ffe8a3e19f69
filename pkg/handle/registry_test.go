/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package handle

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
)

type counterObj struct {
	n int
}

func TestTable_Allocate(t *testing.T) {
	t.Run("handles are unique across kinds", func(t *testing.T) {
		conns := NewTable[*counterObj](KindConnection)
		proofs := NewTable[*counterObj](KindProof)

		h1, err := conns.Allocate(&counterObj{})
		require.NoError(t, err)
		h2, err := proofs.Allocate(&counterObj{})
		require.NoError(t, err)

		require.NotEqual(t, h1, h2)
		require.NotZero(t, h1)

		require.True(t, errors.Is(proofs.Exists(h1), vcxerr.ErrInvalidHandle))
		require.NoError(t, conns.Exists(h1))
		require.Equal(t, KindConnection, conns.Kind())
	})

	t.Run("released handles are not reused", func(t *testing.T) {
		table := NewTable[*counterObj](KindCredential)

		h1, err := table.Allocate(&counterObj{})
		require.NoError(t, err)
		require.NoError(t, table.Release(h1))

		h2, err := table.Allocate(&counterObj{})
		require.NoError(t, err)
		require.NotEqual(t, h1, h2)
	})
}

func TestTable_Release(t *testing.T) {
	table := NewTable[*counterObj](KindConnection)

	h, err := table.Allocate(&counterObj{n: 1})
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	require.NoError(t, table.Release(h))
	require.Equal(t, 0, table.Len())

	err = table.With(h, func(*counterObj) error { return nil })
	require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(err))

	err = table.Release(h)
	require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(err))

	err = table.Release(Handle(0))
	require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(err))
}

func TestTable_ReleaseWaitsForCommand(t *testing.T) {
	table := NewTable[*counterObj](KindConnection)

	h, err := table.Allocate(&counterObj{})
	require.NoError(t, err)

	started := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- table.With(h, func(obj *counterObj) error {
			close(started)
			<-finish
			obj.n++

			return nil
		})
	}()

	<-started

	released := make(chan error)

	go func() {
		released <- table.Release(h)
	}()

	close(finish)
	require.NoError(t, <-done)
	require.NoError(t, <-released)
}

func TestTable_With(t *testing.T) {
	t.Run("concurrent commands are linearized", func(t *testing.T) {
		table := NewTable[*counterObj](KindConnection)

		h, err := table.Allocate(&counterObj{})
		require.NoError(t, err)

		const workers = 50

		var wg sync.WaitGroup

		wg.Add(workers)

		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()

				require.NoError(t, table.With(h, func(obj *counterObj) error {
					before := obj.n
					obj.n = before + 1

					return nil
				}))
			}()
		}

		wg.Wait()

		require.NoError(t, table.With(h, func(obj *counterObj) error {
			require.Equal(t, workers, obj.n)

			return nil
		}))
	})

	t.Run("error from fn is returned", func(t *testing.T) {
		table := NewTable[*counterObj](KindConnection)

		h, err := table.Allocate(&counterObj{})
		require.NoError(t, err)

		err = table.With(h, func(*counterObj) error {
			return vcxerr.New(vcxerr.InvalidState, "nope")
		})
		require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(err))
	})
}
