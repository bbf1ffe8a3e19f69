/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmdutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperledger/aries-framework-go/spi/log"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/internal/logutil"
)

const (
	defaultWaitTimeout = time.Minute

	// controller picked command handles start here so they stay clear of small caller picked ones.
	autoHandleBase = 1 << 31
)

var errEmptyRequest = errors.New("request body is empty")

// Submit hands one engine operation to the dispatcher.
type Submit func(token dispatcher.Token, cb dispatcher.Callback) error

// Codes are the error codes a command package reports.
type Codes struct {
	// Invalid is used when the request cannot be decoded.
	Invalid command.Code
	// Rejected is used when the engine refuses the operation before accepting it.
	Rejected command.Code
	// Failed is used when an awaited operation completes with an error.
	Failed command.Code
}

// RunnerOpt configures a Runner.
type RunnerOpt func(r *Runner)

// WithWaitTimeout bounds how long a waiting command blocks.
func WithWaitTimeout(d time.Duration) RunnerOpt {
	return func(r *Runner) {
		r.timeout = d
	}
}

// Runner executes engine operations on behalf of controller commands. Results of commands that are not waited on
// are published to the notifier on command.CompletionTopic.
type Runner struct {
	codes    Codes
	notifier command.Notifier
	logger   log.Logger
	log      *logutil.CommandLogger
	timeout  time.Duration
	next     uint32
}

// NewRunner returns a runner for the named command.
func NewRunner(name string, codes Codes, notifier command.Notifier, logger log.Logger, opts ...RunnerOpt) *Runner {
	r := &Runner{
		codes:    codes,
		notifier: notifier,
		logger:   logger,
		log:      logutil.NewCommandLogger(logger, name),
		timeout:  defaultWaitTimeout,
		next:     autoHandleBase,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run decodes req into request and then runs submit, which reads its arguments from request.
func (r *Runner) Run(rw io.Writer, req io.Reader, method string, request command.Request, submit Submit) command.Error {
	if req == nil {
		r.log.Rejected(method, 0, errEmptyRequest)
		return command.NewValidationError(r.codes.Invalid, errEmptyRequest)
	}

	if err := json.NewDecoder(req).Decode(request); err != nil {
		r.log.Rejected(method, 0, err)
		return command.NewValidationError(r.codes.Invalid, fmt.Errorf("failed request decode : %w", err))
	}

	return r.Submit(rw, method, request.CommandHeader(), submit)
}

// Submit runs an operation whose arguments are already decoded.
func (r *Runner) Submit(rw io.Writer, method string, hdr *command.Header, submit Submit) command.Error {
	if hdr.CommandHandle == 0 {
		hdr.CommandHandle = atomic.AddUint32(&r.next, 1)
	}

	w := &waiter{wait: hdr.Wait, done: make(chan *dispatcher.Completion, 1)}

	err := submit(dispatcher.Token(hdr.CommandHandle), func(c *dispatcher.Completion) {
		if !w.deliver(c) {
			r.notify(method, c)
		}
	})
	if err != nil {
		r.log.Rejected(method, hdr.CommandHandle, err)
		return command.NewValidationError(r.codes.Rejected, err)
	}

	if !hdr.Wait {
		command.WriteResponse(rw, &command.Response{CommandHandle: hdr.CommandHandle}, r.logger)
		r.log.Accepted(method, hdr.CommandHandle)

		return nil
	}

	c, ok := w.await(r.timeout)
	if !ok {
		r.log.Failed(method, hdr.CommandHandle, "no completion within %s", r.timeout)

		return command.NewExecuteError(r.codes.Failed,
			fmt.Errorf("command %d did not complete within %s", hdr.CommandHandle, r.timeout))
	}

	if c.Err != nil {
		r.log.Failed(method, hdr.CommandHandle, "%v", c.Err)
		return command.NewExecuteError(r.codes.Failed, c.Err)
	}

	command.WriteResponse(rw, &command.Response{CommandHandle: hdr.CommandHandle, Result: c.Result}, r.logger)
	r.log.Completed(method, hdr.CommandHandle)

	return nil
}

func (r *Runner) notify(method string, c *dispatcher.Completion) {
	if r.notifier == nil {
		return
	}

	n := &command.Completion{CommandHandle: uint32(c.Token), Code: c.Code()}

	if c.Err != nil {
		n.Error = c.Err.Error()
	}

	if c.Result != nil {
		raw, err := json.Marshal(c.Result)
		if err != nil {
			r.log.Failed(method, n.CommandHandle, "marshal result: %v", err)
			return
		}

		n.Result = raw
	}

	msg, err := json.Marshal(n)
	if err != nil {
		r.log.Failed(method, n.CommandHandle, "marshal completion: %v", err)
		return
	}

	if err := r.notifier.Notify(command.CompletionTopic, msg); err != nil {
		r.log.Failed(method, n.CommandHandle, "completion not delivered: %v", err)
	}
}

type waiter struct {
	mu        sync.Mutex
	wait      bool
	abandoned bool
	done      chan *dispatcher.Completion
}

// deliver hands c to a waiting command and reports whether it was taken.
func (w *waiter) deliver(c *dispatcher.Completion) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.wait || w.abandoned {
		return false
	}

	w.done <- c

	return true
}

func (w *waiter) await(timeout time.Duration) (*dispatcher.Completion, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c := <-w.done:
		return c, true
	case <-timer.C:
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case c := <-w.done:
		return c, true
	default:
		w.abandoned = true

		return nil, false
	}
}
