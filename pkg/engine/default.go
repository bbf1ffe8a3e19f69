/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"fmt"
	"net/http"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"

	"github.com/topcoder-platform/mobilewallet/pkg/ledger/memledger"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	httptransport "github.com/topcoder-platform/mobilewallet/pkg/transport/http"
	"github.com/topcoder-platform/mobilewallet/pkg/transport/ws"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet/local"
)

// defEngineOpts fills the collaborators that were not injected.
func defEngineOpts(e *Engine) error {
	if e.storeProvider == nil {
		e.storeProvider = mem.NewProvider()
	}

	if e.wallet == nil {
		if e.cfg.WalletKey == "" {
			return fmt.Errorf("wallet_key is required to open the default wallet")
		}

		w, err := local.New(e.storeProvider, e.cfg.WalletKey)
		if err != nil {
			return fmt.Errorf("open wallet %q: %w", e.cfg.WalletName, err)
		}

		e.wallet = w
	}

	if e.inbox == nil && e.transport == nil {
		inbox, err := transport.NewInbox(e.storeProvider)
		if err != nil {
			return err
		}

		e.inbox = inbox
	}

	if e.transport == nil {
		if len(e.outbound) == 0 {
			outbound, err := httptransport.NewOutbound(httptransport.WithOutboundHTTPClient(&http.Client{}))
			if err != nil {
				return fmt.Errorf("http outbound transport initialization failed: %w", err)
			}

			e.outbound = append(e.outbound, outbound, ws.NewOutbound())
		}

		e.transport = transport.NewClient(e.inbox, e.outbound...)
	}

	if e.ledger == nil {
		logger.Warnf("no ledger configured, using an in-memory ledger")

		e.ledger = memledger.New()
	}

	return nil
}
