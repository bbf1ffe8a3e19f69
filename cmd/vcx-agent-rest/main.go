/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main is the vcx agent REST server. It exposes the connection, credential, proof, wallet and wallet backup
// operations of the engine over HTTP and delivers command completions to webhooks and websocket clients.
package main

import (
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/spf13/cobra"

	"github.com/topcoder-platform/mobilewallet/cmd/vcx-agent-rest/startcmd"
)

// This is an application which starts the vcx agent controller API on given port.
func main() {
	rootCmd := &cobra.Command{
		Use: "vcx-agent-rest",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	logger := log.New("vcx-agent/agent-rest")

	startCmd, err := startcmd.Cmd(&startcmd.HTTPServer{})
	if err != nil {
		logger.Fatalf(err.Error())
	}

	rootCmd.AddCommand(startCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run vcx-agent-rest: %s", err)
	}
}
