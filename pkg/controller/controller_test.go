/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/internal/enginetest"
)

func TestGetCommandHandlers(t *testing.T) {
	e := enginetest.NewNetwork().Engine(t, "alice")

	handlers := GetCommandHandlers(e, WithNotifier(enginetest.NewNotifier()), WithWaitTimeout(time.Second))
	require.Len(t, handlers, 24+16+23+14+19+12+10+2)

	seen := map[string]bool{}

	for _, h := range handlers {
		key := h.Name() + "." + h.Method()
		require.False(t, seen[key], key)
		seen[key] = true
	}
}

func TestGetRESTHandlers(t *testing.T) {
	e := enginetest.NewNetwork().Engine(t, "alice")

	t.Run("with the default notifier", func(t *testing.T) {
		handlers := GetRESTHandlers(e, WithWebhookURLs("http://localhost:8080/webhook"))

		var ws bool

		seen := map[string]bool{}

		for _, h := range handlers {
			key := h.Method() + " " + h.Path()
			require.False(t, seen[key], key)
			seen[key] = true

			if h.Path() == wsPath && h.Method() == http.MethodGet {
				ws = true
			}
		}

		require.True(t, ws)
	})

	t.Run("with a custom notifier", func(t *testing.T) {
		handlers := GetRESTHandlers(e, WithNotifier(enginetest.NewNotifier()))
		require.Len(t, handlers, 24+16+23+14+19+12+10+2)
	})
}
