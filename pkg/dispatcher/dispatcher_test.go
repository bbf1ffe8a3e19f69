/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
)

func TestDispatcher_Submit(t *testing.T) {
	d := New(WithWorkers(2))
	defer d.Close()

	done := make(chan *Completion, 2)

	require.NoError(t, d.Submit(1, func() (interface{}, error) { return "ok", nil }, func(c *Completion) { done <- c }))
	require.NoError(t, d.Submit(2, func() (interface{}, error) {
		return nil, vcxerr.New(vcxerr.InvalidState, "nope")
	}, func(c *Completion) { done <- c }))

	got := map[Token]*Completion{}

	for i := 0; i < 2; i++ {
		select {
		case c := <-done:
			got[c.Token] = c
		case <-time.After(5 * time.Second):
			t.Fatal("completion not delivered")
		}
	}

	require.Equal(t, "ok", got[1].Result)
	require.Equal(t, uint32(0), got[1].Code())
	require.Equal(t, uint32(vcxerr.InvalidState), got[2].Code())
	require.Equal(t, uint32(1003), got[2].Code())
}

func TestDispatcher_Rejects(t *testing.T) {
	t.Run("missing callback or function", func(t *testing.T) {
		d := New()
		defer d.Close()

		err := d.Submit(1, func() (interface{}, error) { return nil, nil }, nil)
		require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(err))

		err = d.Submit(1, nil, func(*Completion) {})
		require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(err))
	})

	t.Run("token in flight", func(t *testing.T) {
		d := New(WithWorkers(1))
		defer d.Close()

		release := make(chan struct{})
		done := make(chan struct{})

		require.NoError(t, d.Submit(7, func() (interface{}, error) {
			<-release

			return nil, nil
		}, func(*Completion) { close(done) }))

		err := d.Submit(7, func() (interface{}, error) { return nil, nil }, func(*Completion) {
			t.Error("rejected command must not complete")
		})
		require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(err))

		close(release)
		<-done
	})

	t.Run("queue full", func(t *testing.T) {
		d := New(WithWorkers(1), WithQueueSize(1))
		defer d.Close()

		release := make(chan struct{})
		started := make(chan struct{})

		var wg sync.WaitGroup

		wg.Add(2)

		require.NoError(t, d.Submit(1, func() (interface{}, error) {
			close(started)
			<-release

			return nil, nil
		}, func(*Completion) { wg.Done() }))

		<-started

		require.NoError(t, d.Submit(2, func() (interface{}, error) { return nil, nil }, func(*Completion) { wg.Done() }))

		err := d.Submit(3, func() (interface{}, error) { return nil, nil }, func(*Completion) {})
		require.Equal(t, vcxerr.Busy, vcxerr.KindOf(err))

		close(release)
		wg.Wait()
	})

	t.Run("closed", func(t *testing.T) {
		d := New()
		d.Close()
		d.Close()

		err := d.Submit(1, func() (interface{}, error) { return nil, nil }, func(*Completion) {})
		require.Equal(t, vcxerr.Busy, vcxerr.KindOf(err))
	})
}

func TestDispatcher_CloseDrains(t *testing.T) {
	d := New(WithWorkers(1))

	var (
		mu    sync.Mutex
		count int
	)

	for i := 1; i <= 10; i++ {
		require.NoError(t, d.Submit(Token(i), func() (interface{}, error) { return nil, nil }, func(*Completion) {
			mu.Lock()
			count++
			mu.Unlock()
		}))
	}

	d.Close()
	require.Equal(t, 10, count)
}

func TestDispatcher_Panic(t *testing.T) {
	d := New()
	defer d.Close()

	done := make(chan *Completion, 1)

	require.NoError(t, d.Submit(1, func() (interface{}, error) {
		panic(errors.New("boom"))
	}, func(c *Completion) { done <- c }))

	c := <-done
	require.Error(t, c.Err)
	require.Equal(t, vcxerr.Unknown, vcxerr.KindOf(c.Err))
}
