/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"nhooyr.io/websocket"

	"github.com/topcoder-platform/mobilewallet/pkg/transport"
)

// NewInboundHandler returns a handler that accepts websocket connections and stores every text frame,
// decoded as an envelope, in inbox.
func NewInboundHandler(inbox *transport.Inbox) (http.Handler, error) {
	if inbox == nil {
		return nil, fmt.Errorf("creating inbound handler: inbox is nil")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			logger.Errorf("failed to upgrade the connection : %v", err)

			return
		}

		listener(r.Context(), conn, inbox)
	}), nil
}

func listener(ctx context.Context, conn *websocket.Conn, inbox *transport.Inbox) {
	defer func() {
		if err := conn.Close(websocket.StatusNormalClosure, "closing the connection"); err != nil &&
			websocket.CloseStatus(err) != websocket.StatusNormalClosure {
			logger.Debugf("closing inbound connection: %v", err)
		}
	}()

	for {
		msgType, message, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				logger.Infof("reading inbound websocket message failed: %v", err)
			}

			return
		}

		if msgType != websocket.MessageText {
			logger.Warnf("dropping non text websocket frame")

			continue
		}

		var env transport.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			logger.Warnf("dropping undecodable envelope: %v", err)

			continue
		}

		if err := inbox.Add(&env); err != nil {
			logger.Warnf("dropping inbound envelope: %v", err)
		}
	}
}
