/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"time"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	connectioncmd "github.com/topcoder-platform/mobilewallet/pkg/controller/command/connection"
	credentialcmd "github.com/topcoder-platform/mobilewallet/pkg/controller/command/credential"
	disclosedproofcmd "github.com/topcoder-platform/mobilewallet/pkg/controller/command/disclosedproof"
	issuercredentialcmd "github.com/topcoder-platform/mobilewallet/pkg/controller/command/issuercredential"
	messagescmd "github.com/topcoder-platform/mobilewallet/pkg/controller/command/messages"
	proofcmd "github.com/topcoder-platform/mobilewallet/pkg/controller/command/proof"
	walletcmd "github.com/topcoder-platform/mobilewallet/pkg/controller/command/wallet"
	walletbackupcmd "github.com/topcoder-platform/mobilewallet/pkg/controller/command/walletbackup"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/rest"
	connectionrest "github.com/topcoder-platform/mobilewallet/pkg/controller/rest/connection"
	credentialrest "github.com/topcoder-platform/mobilewallet/pkg/controller/rest/credential"
	disclosedproofrest "github.com/topcoder-platform/mobilewallet/pkg/controller/rest/disclosedproof"
	issuercredentialrest "github.com/topcoder-platform/mobilewallet/pkg/controller/rest/issuercredential"
	messagesrest "github.com/topcoder-platform/mobilewallet/pkg/controller/rest/messages"
	proofrest "github.com/topcoder-platform/mobilewallet/pkg/controller/rest/proof"
	walletrest "github.com/topcoder-platform/mobilewallet/pkg/controller/rest/wallet"
	walletbackuprest "github.com/topcoder-platform/mobilewallet/pkg/controller/rest/walletbackup"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/webnotifier"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

type allOpts struct {
	webhookURLs []string
	notifier    command.Notifier
	waitTimeout time.Duration
}

const wsPath = "/ws"

// Opt represents a controller option.
type Opt func(opts *allOpts)

// WithWebhookURLs is an option for setting up a webhook dispatcher which will notify clients of events
func WithWebhookURLs(webhookURLs ...string) Opt {
	return func(opts *allOpts) {
		opts.webhookURLs = webhookURLs
	}
}

// WithNotifier is an option for setting up a notifier which will notify clients of events
func WithNotifier(notifier command.Notifier) Opt {
	return func(opts *allOpts) {
		opts.notifier = notifier
	}
}

// WithWaitTimeout bounds how long a command that waits for its completion may block.
func WithWaitTimeout(d time.Duration) Opt {
	return func(opts *allOpts) {
		opts.waitTimeout = d
	}
}

func (o *allOpts) runnerOpts() []cmdutil.RunnerOpt {
	if o.waitTimeout <= 0 {
		return nil
	}

	return []cmdutil.RunnerOpt{cmdutil.WithWaitTimeout(o.waitTimeout)}
}

func applyOpts(opts []Opt) *allOpts {
	o := &allOpts{}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// GetRESTHandlers returns all REST handlers provided by controller.
func GetRESTHandlers(e *engine.Engine, opts ...Opt) []rest.Handler {
	o := applyOpts(opts)

	notifier := o.notifier
	if notifier == nil {
		notifier = webnotifier.New(wsPath, o.webhookURLs)
	}

	runnerOpts := o.runnerOpts()

	operations := []interface{ GetRESTHandlers() []rest.Handler }{
		connectionrest.New(e, notifier, runnerOpts...),
		credentialrest.New(e, notifier, runnerOpts...),
		issuercredentialrest.New(e, notifier, runnerOpts...),
		proofrest.New(e, notifier, runnerOpts...),
		disclosedproofrest.New(e, notifier, runnerOpts...),
		walletrest.New(e, notifier, runnerOpts...),
		walletbackuprest.New(e, notifier, runnerOpts...),
		messagesrest.New(e, notifier, runnerOpts...),
	}

	var allHandlers []rest.Handler
	for _, op := range operations {
		allHandlers = append(allHandlers, op.GetRESTHandlers()...)
	}

	nhp, ok := notifier.(handlerProvider)
	if ok {
		allHandlers = append(allHandlers, nhp.GetRESTHandlers()...)
	}

	return allHandlers
}

type handlerProvider interface {
	GetRESTHandlers() []rest.Handler
}

// GetCommandHandlers returns all command handlers provided by controller.
func GetCommandHandlers(e *engine.Engine, opts ...Opt) []command.Handler {
	o := applyOpts(opts)

	notifier := o.notifier
	if notifier == nil {
		notifier = webnotifier.New(wsPath, o.webhookURLs)
	}

	runnerOpts := o.runnerOpts()

	commands := []interface{ GetHandlers() []command.Handler }{
		connectioncmd.New(e, notifier, runnerOpts...),
		credentialcmd.New(e, notifier, runnerOpts...),
		issuercredentialcmd.New(e, notifier, runnerOpts...),
		proofcmd.New(e, notifier, runnerOpts...),
		disclosedproofcmd.New(e, notifier, runnerOpts...),
		walletcmd.New(e, notifier, runnerOpts...),
		walletbackupcmd.New(e, notifier, runnerOpts...),
		messagescmd.New(e, notifier, runnerOpts...),
	}

	var allHandlers []command.Handler
	for _, cmd := range commands {
		allHandlers = append(allHandlers, cmd.GetHandlers()...)
	}

	return allHandlers
}
