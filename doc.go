/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mobilewallet is a handle based DIDComm agent for connections, credential issuance and proof exchange.
//
// Packages for end developer usage
//
// pkg/engine: The agent facade. Every connection, credential, issuer credential, proof, disclosed proof and wallet
// backup is addressed by a handle and driven through asynchronous operations that complete exactly once.
//
// pkg/controller: Controller commands and REST operations over the engine, with webhook and websocket notifiers
// for command completions.
//
// pkg/protocol: The state machines of the connection, issue-credential, present-proof and wallet backup protocols,
// and their message formats.
//
// pkg/wallet: The key store and record store, with a local implementation over any spi/storage provider and an
// encrypted archive format used by wallet export and backup.
//
// Supporting packages
//
// pkg/handle: Handle tables shared by every object kind.
//
// pkg/snapshot: The versioned serialization envelope of protocol objects.
//
// pkg/dispatcher: Bounded worker pool that runs accepted operations and delivers their completions.
//
// pkg/ledger: Schema and credential definition lookup, over HTTP or in memory.
//
// pkg/transport: Message delivery between agents over HTTP, WebSocket or in memory, and the inbox that stores
// inbound messages until they are downloaded.
//
// cmd/vcx-agent-rest: The REST agent binary.
package mobilewallet
