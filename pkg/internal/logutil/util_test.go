/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) add(level, msg string, args ...interface{}) {
	r.lines = append(r.lines, level+" "+fmt.Sprintf(msg, args...))
}

func (r *recordingLogger) Fatalf(msg string, args ...interface{}) { r.add("FATAL", msg, args...) }
func (r *recordingLogger) Panicf(msg string, args ...interface{}) { r.add("PANIC", msg, args...) }
func (r *recordingLogger) Debugf(msg string, args ...interface{}) { r.add("DEBUG", msg, args...) }
func (r *recordingLogger) Infof(msg string, args ...interface{})  { r.add("INFO", msg, args...) }
func (r *recordingLogger) Warnf(msg string, args ...interface{})  { r.add("WARN", msg, args...) }
func (r *recordingLogger) Errorf(msg string, args ...interface{}) { r.add("ERROR", msg, args...) }

func TestCommandLogger(t *testing.T) {
	l := &recordingLogger{}
	c := NewCommandLogger(l, "connection")

	c.Accepted("Create", 7)
	c.Completed("Connect", 8)
	c.Rejected("GetState", 9, errors.New("invalid handle"))
	c.Rejected("Create", 0, errors.New("request body is empty"))
	c.Failed("SendMessage", 10, "marshal completion: %s", "bad value")

	require.Equal(t, []string{
		"DEBUG command=[connection] method=[Create] commandHandle=[7] accepted",
		"DEBUG command=[connection] method=[Connect] commandHandle=[8] completed",
		"INFO command=[connection] method=[GetState] commandHandle=[9] rejected: invalid handle",
		"INFO command=[connection] method=[Create] rejected: request body is empty",
		"ERROR command=[connection] method=[SendMessage] commandHandle=[10] failed: marshal completion: bad value",
	}, l.lines)
}

func TestKeyValue(t *testing.T) {
	require.Equal(t, "handle=[3]", KeyValue("handle", "3"))
}
