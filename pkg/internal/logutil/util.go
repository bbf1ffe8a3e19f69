/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logutil formats the log lines of controller commands.
package logutil

import (
	"fmt"
	"strings"

	"github.com/hyperledger/aries-framework-go/spi/log"
)

// CommandLogger logs the outcome of the operations of one controller command. Every line names the command, the
// method and, when one was assigned, the command handle.
type CommandLogger struct {
	logger log.Logger
	name   string
}

// NewCommandLogger returns a logger for the named command.
func NewCommandLogger(logger log.Logger, name string) *CommandLogger {
	return &CommandLogger{logger: logger, name: name}
}

// Rejected logs a request refused before it reached the engine.
func (c *CommandLogger) Rejected(method string, commandHandle uint32, err error) {
	c.logger.Infof("%s rejected: %v", c.prefix(method, commandHandle), err)
}

// Accepted logs a command handed to the engine without waiting for it.
func (c *CommandLogger) Accepted(method string, commandHandle uint32) {
	c.logger.Debugf("%s accepted", c.prefix(method, commandHandle))
}

// Completed logs a waited command that succeeded.
func (c *CommandLogger) Completed(method string, commandHandle uint32) {
	c.logger.Debugf("%s completed", c.prefix(method, commandHandle))
}

// Failed logs a command that did not complete, or whose completion could not be delivered.
func (c *CommandLogger) Failed(method string, commandHandle uint32, format string, args ...interface{}) {
	c.logger.Errorf("%s failed: %s", c.prefix(method, commandHandle), fmt.Sprintf(format, args...))
}

func (c *CommandLogger) prefix(method string, commandHandle uint32) string {
	fields := []string{KeyValue("command", c.name), KeyValue("method", method)}
	if commandHandle != 0 {
		fields = append(fields, KeyValue("commandHandle", fmt.Sprint(commandHandle)))
	}

	return strings.Join(fields, " ")
}

// KeyValue renders one key=[value] field.
func KeyValue(key, val string) string {
	return fmt.Sprintf("%s=[%s]", key, val)
}
