/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dispatcher runs engine commands on a bounded worker pool and reports each outcome to the caller's
// callback under the caller's correlation token.
package dispatcher

import (
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
)

var logger = log.New("vcx-agent/dispatcher")

const (
	defaultWorkers   = 4
	defaultQueueSize = 128
)

// Token correlates a submitted command with its completion.
type Token uint32

// Completion is the outcome of one command.
type Completion struct {
	Token  Token
	Result interface{}
	Err    error
}

// Code returns the numeric result code of the completion, 0 on success.
func (c *Completion) Code() uint32 {
	if c.Err == nil {
		return 0
	}

	return uint32(vcxerr.KindOf(c.Err))
}

// Callback receives the completion of a command. It is called exactly once per accepted command.
type Callback func(c *Completion)

// Func is the body of a command.
type Func func() (interface{}, error)

type job struct {
	token Token
	fn    Func
	cb    Callback
}

type options struct {
	workers   int
	queueSize int
}

// Option configures a Dispatcher.
type Option func(o *options)

// WithWorkers sets the number of workers.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithQueueSize sets how many accepted commands may wait for a worker.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// Dispatcher is a worker pool for commands.
type Dispatcher struct {
	input    chan *job
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	inFlight map[Token]struct{}
}

// New starts a dispatcher.
func New(opts ...Option) *Dispatcher {
	o := &options{workers: defaultWorkers, queueSize: defaultQueueSize}
	for _, opt := range opts {
		opt(o)
	}

	d := &Dispatcher{
		input:    make(chan *job, o.queueSize),
		inFlight: map[Token]struct{}{},
	}

	for w := 0; w < o.workers; w++ {
		d.wg.Add(1)

		go d.worker()
	}

	return d
}

// Submit queues fn. It returns an error, and never calls cb, when the command is not accepted.
func (d *Dispatcher) Submit(token Token, fn Func, cb Callback) error {
	if fn == nil || cb == nil {
		return vcxerr.New(vcxerr.MalformedInput, "command %d needs a function and a callback", token)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return vcxerr.New(vcxerr.Busy, "dispatcher is closed")
	}

	if _, ok := d.inFlight[token]; ok {
		return vcxerr.New(vcxerr.MalformedInput, "command handle %d is already in flight", token)
	}

	select {
	case d.input <- &job{token: token, fn: fn, cb: cb}:
		d.inFlight[token] = struct{}{}

		return nil
	default:
		return vcxerr.New(vcxerr.Busy, "command queue is full")
	}
}

// Close stops accepting commands, runs the queued ones and waits for the workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()

		return
	}

	d.closed = true
	close(d.input)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for j := range d.input {
		c := run(j)

		d.mu.Lock()
		delete(d.inFlight, j.token)
		d.mu.Unlock()

		j.cb(c)
	}
}

func run(j *job) (c *Completion) {
	c = &Completion{Token: j.token}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("command %d panicked: %v", j.token, r)

			c.Result, c.Err = nil, vcxerr.New(vcxerr.Unknown, "command %d panicked: %v", j.token, r)
		}
	}()

	c.Result, c.Err = j.fn()

	if c.Err != nil {
		logger.Debugf("command %d failed: %v", j.token, c.Err)
	}

	return c
}
