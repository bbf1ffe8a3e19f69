/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/spi/storage"
)

const (
	inboxStoreName    = "vcx_inbox"
	recipientTagName  = "recipient"
	inboxKeySeparator = "/"
)

// ArrivalHook is called after a message has been stored in the inbox.
type ArrivalHook func(msg *InboxMessage)

// Inbox stores received messages per recipient key.
type Inbox struct {
	store storage.Store
	mu    sync.RWMutex
	hooks []ArrivalHook
	now   func() time.Time
}

// NewInbox opens the inbox store of the given provider.
func NewInbox(provider storage.Provider) (*Inbox, error) {
	store, err := provider.OpenStore(inboxStoreName)
	if err != nil {
		return nil, fmt.Errorf("open inbox store: %w", err)
	}

	err = provider.SetStoreConfig(inboxStoreName, storage.StoreConfiguration{TagNames: []string{recipientTagName}})
	if err != nil {
		return nil, fmt.Errorf("set inbox store config: %w", err)
	}

	return &Inbox{store: store, now: time.Now}, nil
}

// OnArrival registers a hook run for every stored message.
func (i *Inbox) OnArrival(hook ArrivalHook) {
	i.mu.Lock()
	i.hooks = append(i.hooks, hook)
	i.mu.Unlock()
}

// Add stores the envelope's message for its recipient.
func (i *Inbox) Add(env *Envelope) error {
	if env == nil || env.To == "" {
		return errors.New("envelope has no recipient")
	}

	if strings.Contains(env.To, ":") {
		return fmt.Errorf("invalid recipient key %q", env.To)
	}

	if env.Msg.Type() == "" {
		return errors.New("envelope message has no @type")
	}

	uid := env.Msg.ID()
	if uid == "" {
		uid = uuid.New().String()
	}

	msg := &InboxMessage{
		UID:          uid,
		RecipientKey: env.To,
		Status:       StatusReceived,
		Type:         env.Msg.Type(),
		Payload:      env.Msg,
		ReceivedAt:   i.now().UTC(),
	}

	if err := i.put(msg); err != nil {
		return err
	}

	i.mu.RLock()
	hooks := append([]ArrivalHook(nil), i.hooks...)
	i.mu.RUnlock()

	for _, hook := range hooks {
		hook(msg)
	}

	return nil
}

func (i *Inbox) put(msg *InboxMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal inbox message: %w", err)
	}

	err = i.store.Put(inboxKey(msg.RecipientKey, msg.UID), raw, storage.Tag{Name: recipientTagName, Value: msg.RecipientKey})
	if err != nil {
		return fmt.Errorf("store inbox message: %w", err)
	}

	return nil
}

// Messages returns the messages of recipientKey, or of every recipient when it is empty, optionally
// filtered by status and uid. Messages are ordered by arrival.
func (i *Inbox) Messages(recipientKey, status string, uids []string) ([]*InboxMessage, error) {
	expression := recipientTagName
	if recipientKey != "" {
		expression += ":" + recipientKey
	}

	iter, err := i.store.Query(expression)
	if err != nil {
		return nil, fmt.Errorf("query inbox: %w", err)
	}

	defer storage.Close(iter, logger)

	wanted := map[string]bool{}
	for _, uid := range uids {
		wanted[uid] = true
	}

	var msgs []*InboxMessage

	for {
		ok, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("iterate inbox: %w", err)
		}

		if !ok {
			break
		}

		raw, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read inbox entry: %w", err)
		}

		var msg InboxMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("decode inbox entry: %w", err)
		}

		if status != "" && msg.Status != status {
			continue
		}

		if len(wanted) > 0 && !wanted[msg.UID] {
			continue
		}

		msgs = append(msgs, &msg)
	}

	sort.SliceStable(msgs, func(a, b int) bool {
		if msgs[a].ReceivedAt.Equal(msgs[b].ReceivedAt) {
			return msgs[a].UID < msgs[b].UID
		}

		return msgs[a].ReceivedAt.Before(msgs[b].ReceivedAt)
	})

	return msgs, nil
}

// UpdateStatus sets the status of the given messages of recipientKey.
func (i *Inbox) UpdateStatus(recipientKey, status string, uids ...string) error {
	for _, uid := range uids {
		raw, err := i.store.Get(inboxKey(recipientKey, uid))
		if err != nil {
			return fmt.Errorf("get inbox message %s: %w", uid, err)
		}

		var msg InboxMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("decode inbox message %s: %w", uid, err)
		}

		msg.Status = status

		if err := i.put(&msg); err != nil {
			return err
		}
	}

	return nil
}

func inboxKey(recipientKey, uid string) string {
	return recipientKey + inboxKeySeparator + uid
}
