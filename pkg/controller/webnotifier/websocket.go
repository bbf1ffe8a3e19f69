/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/rest"
)

// TopicParam is the query parameter a websocket client repeats to receive only the named topics, for example
// /ws?topic=completion&topic=inbound_message. A client that names none receives every topic.
const TopicParam = "topic"

type topics map[string]struct{}

func (t topics) wants(topic string) bool {
	if len(t) == 0 {
		return true
	}

	_, ok := t[topic]

	return ok
}

// WSNotifier pushes notifications to the websocket clients connected on its path.
type WSNotifier struct {
	conns     map[*websocket.Conn]topics
	connsLock sync.RWMutex
	handlers  []rest.Handler
}

// NewWSNotifier returns a notifier whose clients connect on path.
func NewWSNotifier(path string) *WSNotifier {
	n := &WSNotifier{conns: map[*websocket.Conn]topics{}}

	n.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(path, http.MethodGet, n.handleWS),
	}

	return n
}

// Notify sends the message to the clients subscribed to topic. Delivery failures are logged; a client that cannot
// be written to is dropped by its reader.
func (n *WSNotifier) Notify(topic string, message []byte) error {
	if topic == "" {
		return fmt.Errorf(emptyTopicErrMsg)
	}

	if len(message) == 0 {
		return fmt.Errorf(emptyMessageErrMsg)
	}

	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return fmt.Errorf(failedToCreateErrMsg, err)
	}

	for _, conn := range n.subscribers(topic) {
		if err := notifyWS(context.Background(), conn, topicMsg); err != nil {
			logger.Warnf("websocket notification for topic %s not delivered: %v", topic, err)
		}
	}

	return nil
}

func (n *WSNotifier) subscribers(topic string) []*websocket.Conn {
	n.connsLock.RLock()
	defer n.connsLock.RUnlock()

	var conns []*websocket.Conn

	for conn, sub := range n.conns {
		if sub.wants(topic) {
			conns = append(conns, conn)
		}
	}

	return conns
}

func notifyWS(parent context.Context, conn *websocket.Conn, message []byte) error {
	ctx, cancel := context.WithTimeout(parent, notificationSendTimeout)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, message)
}

func (n *WSNotifier) handleWS(w http.ResponseWriter, r *http.Request) {
	sub := topics{}
	for _, name := range r.URL.Query()[TopicParam] {
		sub[name] = struct{}{}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logger.Infof("failed to upgrade the websocket notification connection : %v", err)
		return
	}

	logger.Debugf("websocket notification client connected for %d topics", len(sub))

	n.connsLock.Lock()
	n.conns[conn] = sub
	n.connsLock.Unlock()

	n.monitorWSConn(context.Background(), conn)
}

// monitorWSConn blocks until the client goes away. Clients only listen, so any message they send ends the
// connection.
func (n *WSNotifier) monitorWSConn(ctx context.Context, conn *websocket.Conn) {
	_, _, err := conn.Reader(ctx)
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		logger.Infof("reading from websocket notification client failed: %v", err)
	}

	if err := conn.Close(websocket.StatusPolicyViolation, "unexpected message"); err != nil {
		logger.Debugf("closing websocket notification client: %v", err)
	}

	n.connsLock.Lock()
	delete(n.conns, conn)
	n.connsLock.Unlock()

	logger.Debugf("websocket notification client dropped")
}

// GetRESTHandlers returns the websocket upgrade route.
func (n *WSNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}
