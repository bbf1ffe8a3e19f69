/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

var logger = log.New("vcx-agent/command/wallet")

// constants for wallet record commands.
const (
	CommandName = "wallet"

	AddRecordCommandMethod         = "AddRecord"
	GetRecordCommandMethod         = "GetRecord"
	UpdateRecordValueCommandMethod = "UpdateRecordValue"
	UpdateRecordTagsCommandMethod  = "UpdateRecordTags"
	AddRecordTagsCommandMethod     = "AddRecordTags"
	DeleteRecordTagsCommandMethod  = "DeleteRecordTags"
	DeleteRecordCommandMethod      = "DeleteRecord"
	OpenSearchCommandMethod        = "OpenSearch"
	SearchNextRecordsCommandMethod = "SearchNextRecords"
	CloseSearchCommandMethod       = "CloseSearch"
	ExportCommandMethod            = "Export"
	ImportCommandMethod            = "Import"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.VCWallet)

	// RejectedErrorCode is for operations the engine refused to start.
	RejectedErrorCode

	// ExecuteErrorCode is for awaited operations that completed with an error.
	ExecuteErrorCode
)

// Command is the controller command for wallet records.
type Command struct {
	engine *engine.Engine
	runner *cmdutil.Runner
}

// New returns a new wallet controller command.
func New(e *engine.Engine, notifier command.Notifier, opts ...cmdutil.RunnerOpt) *Command {
	return &Command{
		engine: e,
		runner: cmdutil.NewRunner(CommandName, cmdutil.Codes{
			Invalid:  InvalidRequestErrorCode,
			Rejected: RejectedErrorCode,
			Failed:   ExecuteErrorCode,
		}, notifier, logger, opts...),
	}
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, AddRecordCommandMethod, c.AddRecord),
		cmdutil.NewCommandHandler(CommandName, GetRecordCommandMethod, c.GetRecord),
		cmdutil.NewCommandHandler(CommandName, UpdateRecordValueCommandMethod, c.UpdateRecordValue),
		cmdutil.NewCommandHandler(CommandName, UpdateRecordTagsCommandMethod, c.UpdateRecordTags),
		cmdutil.NewCommandHandler(CommandName, AddRecordTagsCommandMethod, c.AddRecordTags),
		cmdutil.NewCommandHandler(CommandName, DeleteRecordTagsCommandMethod, c.DeleteRecordTags),
		cmdutil.NewCommandHandler(CommandName, DeleteRecordCommandMethod, c.DeleteRecord),
		cmdutil.NewCommandHandler(CommandName, OpenSearchCommandMethod, c.OpenSearch),
		cmdutil.NewCommandHandler(CommandName, SearchNextRecordsCommandMethod, c.SearchNextRecords),
		cmdutil.NewCommandHandler(CommandName, CloseSearchCommandMethod, c.CloseSearch),
		cmdutil.NewCommandHandler(CommandName, ExportCommandMethod, c.Export),
		cmdutil.NewCommandHandler(CommandName, ImportCommandMethod, c.Import),
	}
}

// AddRecord stores a record.
func (c *Command) AddRecord(rw io.Writer, req io.Reader) command.Error {
	var request RecordArgs

	return c.runner.Run(rw, req, AddRecordCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.WalletAddRecord(tok, request.Type, request.ID, request.Value, optional(request.Tags), cb)
	})
}

// GetRecord reads a record.
func (c *Command) GetRecord(rw io.Writer, req io.Reader) command.Error {
	var request RecordArgs

	return c.runner.Run(rw, req, GetRecordCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.WalletGetRecord(tok, request.Type, request.ID, optional(request.Options), cb)
	})
}

// UpdateRecordValue replaces the value of a record.
func (c *Command) UpdateRecordValue(rw io.Writer, req io.Reader) command.Error {
	var request RecordArgs

	return c.runner.Run(rw, req, UpdateRecordValueCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.WalletUpdateRecordValue(tok, request.Type, request.ID, request.Value, cb)
		})
}

// UpdateRecordTags replaces the tags of a record.
func (c *Command) UpdateRecordTags(rw io.Writer, req io.Reader) command.Error {
	var request RecordArgs

	return c.runner.Run(rw, req, UpdateRecordTagsCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.WalletUpdateRecordTags(tok, request.Type, request.ID, optional(request.Tags), cb)
		})
}

// AddRecordTags adds tags to a record.
func (c *Command) AddRecordTags(rw io.Writer, req io.Reader) command.Error {
	var request RecordArgs

	return c.runner.Run(rw, req, AddRecordTagsCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.WalletAddRecordTags(tok, request.Type, request.ID, optional(request.Tags), cb)
		})
}

// DeleteRecordTags removes tags of a record by name.
func (c *Command) DeleteRecordTags(rw io.Writer, req io.Reader) command.Error {
	var request RecordArgs

	return c.runner.Run(rw, req, DeleteRecordTagsCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.WalletDeleteRecordTags(tok, request.Type, request.ID, optional(request.TagNames), cb)
		})
}

// DeleteRecord removes a record.
func (c *Command) DeleteRecord(rw io.Writer, req io.Reader) command.Error {
	var request RecordArgs

	return c.runner.Run(rw, req, DeleteRecordCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.WalletDeleteRecord(tok, request.Type, request.ID, cb)
		})
}

// OpenSearch opens a record search. The result is the search handle.
func (c *Command) OpenSearch(rw io.Writer, req io.Reader) command.Error {
	var request OpenSearchArgs

	return c.runner.Run(rw, req, OpenSearchCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.WalletOpenSearch(tok, request.Type, optional(request.Query), optional(request.Options), cb)
		})
}

// SearchNextRecords returns the next records of a search.
func (c *Command) SearchNextRecords(rw io.Writer, req io.Reader) command.Error {
	var request SearchNextArgs

	return c.runner.Run(rw, req, SearchNextRecordsCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.WalletSearchNextRecords(tok, request.SearchHandle, request.Count, cb)
		})
}

// CloseSearch releases a search handle.
func (c *Command) CloseSearch(rw io.Writer, req io.Reader) command.Error {
	var request CloseSearchArgs

	return c.runner.Run(rw, req, CloseSearchCommandMethod, &request,
		func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return c.engine.WalletCloseSearch(tok, request.SearchHandle, cb)
		})
}

// Export writes the wallet to a sealed archive.
func (c *Command) Export(rw io.Writer, req io.Reader) command.Error {
	var request ExportArgs

	return c.runner.Run(rw, req, ExportCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.WalletExport(tok, request.Path, request.BackupKey, cb)
	})
}

// Import reads a sealed archive into the wallet.
func (c *Command) Import(rw io.Writer, req io.Reader) command.Error {
	var request ImportArgs

	return c.runner.Run(rw, req, ImportCommandMethod, &request, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return c.engine.WalletImport(tok, optional(request.Config), cb)
	})
}
