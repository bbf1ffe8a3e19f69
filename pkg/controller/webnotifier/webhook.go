/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	webhookRetries       = 2
	webhookRetryInterval = 100 * time.Millisecond
)

// HTTPNotifier posts notifications to webhook subscribers. A delivery that fails on the network or with a 5xx
// status is retried; a 4xx status is final.
type HTTPNotifier struct {
	urls    []string
	client  *http.Client
	retries uint64
}

// NewHTTPNotifier returns a notifier posting to webhookURLs.
func NewHTTPNotifier(webhookURLs []string) *HTTPNotifier {
	return &HTTPNotifier{
		urls:    webhookURLs,
		client:  &http.Client{Timeout: notificationSendTimeout},
		retries: webhookRetries,
	}
}

// Notify posts the topic message to every webhook URL. Completions and inbound message notices are posted
// to the URL as is; the topic travels inside the body.
// If multiple errors are encountered, then the first one is returned.
func (n *HTTPNotifier) Notify(topic string, message []byte) error {
	if topic == "" {
		return fmt.Errorf(emptyTopicErrMsg)
	}

	if len(message) == 0 {
		return fmt.Errorf(emptyMessageErrMsg)
	}

	if len(n.urls) == 0 {
		return nil
	}

	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return fmt.Errorf(failedToCreateErrMsg, err)
	}

	var allErrs error

	for _, webhookURL := range n.urls {
		allErrs = appendError(allErrs, n.deliver(webhookURL, topicMsg))
	}

	return allErrs
}

func (n *HTTPNotifier) deliver(destination string, message []byte) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = webhookRetryInterval

	return backoff.RetryNotify(
		func() error {
			return n.post(destination, message)
		},
		backoff.WithMaxRetries(b, n.retries),
		func(err error, wait time.Duration) {
			logger.Debugf("retrying webhook %s in %s: %v", destination, wait, err)
		},
	)
}

func (n *HTTPNotifier) post(destination string, message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), notificationSendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewBuffer(message))
	if err != nil {
		return fmt.Errorf("failed to create new http post request for %s: %w", destination, err)
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification to %s: %w", destination, err)
	}

	defer closeResponse(resp.Body)

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		logger.Debugf("notification sent to %s", destination)
		return nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("notification was sent to %s, but %s was received", destination, resp.Status)
	default:
		return backoff.Permanent(
			fmt.Errorf("notification was sent to %s, but %s was received", destination, resp.Status))
	}
}

func closeResponse(c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Errorf("Failed to close response body: %v", err)
	}
}
