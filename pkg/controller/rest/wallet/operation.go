/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"net/http"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command/wallet"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/rest"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

// constants for wallet endpoints.
const (
	OperationID           = "/wallet"
	recordsPath           = OperationID + "/records"
	AddRecordPath         = recordsPath + "/add"
	GetRecordPath         = recordsPath + "/get"
	UpdateRecordValuePath = recordsPath + "/update-value"
	UpdateRecordTagsPath  = recordsPath + "/update-tags"
	AddRecordTagsPath     = recordsPath + "/add-tags"
	DeleteRecordTagsPath  = recordsPath + "/delete-tags"
	DeleteRecordPath      = recordsPath + "/delete"
	searchPath            = OperationID + "/search"
	OpenSearchPath        = searchPath + "/open"
	SearchNextRecordsPath = searchPath + "/next"
	CloseSearchPath       = searchPath + "/close"
	ExportPath            = OperationID + "/export"
	ImportPath            = OperationID + "/import"
)

// Operation is the REST controller for wallet records.
type Operation struct {
	command  *wallet.Command
	handlers []rest.Handler
}

// New returns new wallet rest controller.
func New(e *engine.Engine, notifier command.Notifier, opts ...cmdutil.RunnerOpt) *Operation {
	op := &Operation{command: wallet.New(e, notifier, opts...)}
	op.registerHandler()

	return op
}

// GetRESTHandlers get all controller API handlers available for this service.
func (c *Operation) GetRESTHandlers() []rest.Handler {
	return c.handlers
}

// registerHandler register handlers to be exposed from this service as REST API endpoints.
func (c *Operation) registerHandler() {
	c.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(AddRecordPath, http.MethodPost, c.AddRecord),
		cmdutil.NewHTTPHandler(GetRecordPath, http.MethodPost, c.GetRecord),
		cmdutil.NewHTTPHandler(UpdateRecordValuePath, http.MethodPost, c.UpdateRecordValue),
		cmdutil.NewHTTPHandler(UpdateRecordTagsPath, http.MethodPost, c.UpdateRecordTags),
		cmdutil.NewHTTPHandler(AddRecordTagsPath, http.MethodPost, c.AddRecordTags),
		cmdutil.NewHTTPHandler(DeleteRecordTagsPath, http.MethodPost, c.DeleteRecordTags),
		cmdutil.NewHTTPHandler(DeleteRecordPath, http.MethodPost, c.DeleteRecord),
		cmdutil.NewHTTPHandler(OpenSearchPath, http.MethodPost, c.OpenSearch),
		cmdutil.NewHTTPHandler(SearchNextRecordsPath, http.MethodPost, c.SearchNextRecords),
		cmdutil.NewHTTPHandler(CloseSearchPath, http.MethodPost, c.CloseSearch),
		cmdutil.NewHTTPHandler(ExportPath, http.MethodPost, c.Export),
		cmdutil.NewHTTPHandler(ImportPath, http.MethodPost, c.Import),
	}
}

// AddRecord swagger:route POST /wallet/records/add wallet addRecord
//
// Stores a record.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) AddRecord(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.AddRecord, rw, req.Body)
}

// GetRecord swagger:route POST /wallet/records/get wallet getRecord
//
// Reads a record.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) GetRecord(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.GetRecord, rw, req.Body)
}

// UpdateRecordValue replaces the value of a record.
func (c *Operation) UpdateRecordValue(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.UpdateRecordValue, rw, req.Body)
}

// UpdateRecordTags replaces the tags of a record.
func (c *Operation) UpdateRecordTags(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.UpdateRecordTags, rw, req.Body)
}

// AddRecordTags adds tags to a record.
func (c *Operation) AddRecordTags(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.AddRecordTags, rw, req.Body)
}

// DeleteRecordTags removes tags of a record.
func (c *Operation) DeleteRecordTags(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.DeleteRecordTags, rw, req.Body)
}

// DeleteRecord removes a record.
func (c *Operation) DeleteRecord(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.DeleteRecord, rw, req.Body)
}

// OpenSearch swagger:route POST /wallet/search/open wallet openSearch
//
// Opens a search over records of one type.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) OpenSearch(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.OpenSearch, rw, req.Body)
}

// SearchNextRecords returns the next records of a search.
func (c *Operation) SearchNextRecords(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SearchNextRecords, rw, req.Body)
}

// CloseSearch releases a search handle.
func (c *Operation) CloseSearch(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CloseSearch, rw, req.Body)
}

// Export writes the wallet to a sealed archive.
func (c *Operation) Export(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Export, rw, req.Body)
}

// Import reads a sealed archive into the wallet.
func (c *Operation) Import(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Import, rw, req.Body)
}
