/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walletbackup

import (
	"net/http"

	"github.com/topcoder-platform/mobilewallet/pkg/controller/command"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/command/walletbackup"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/internal/cmdutil"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/rest"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
)

// constants for wallet backup endpoints.
const (
	OperationID                = "/wallet-backups"
	RestorePath                = OperationID + "/restore"
	DeserializePath            = OperationID + "/deserialize"
	backupPath                 = OperationID + "/{" + rest.HandleVar + "}"
	BackupPath                 = backupPath + "/backup"
	UpdateStatePath            = backupPath + "/update-state"
	UpdateStateWithMessagePath = backupPath + "/update-state-with-message"
	StatePath                  = backupPath + "/state"
	ProblemReportPath          = backupPath + "/problem-report"
	SerializePath              = backupPath + "/serialize"
	ReleasePath                = backupPath + "/release"
)

// Operation is the REST controller for wallet backups.
type Operation struct {
	command  *walletbackup.Command
	handlers []rest.Handler
}

// New returns new wallet backup rest controller.
func New(e *engine.Engine, notifier command.Notifier, opts ...cmdutil.RunnerOpt) *Operation {
	op := &Operation{command: walletbackup.New(e, notifier, opts...)}
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
		cmdutil.NewHTTPHandler(OperationID, http.MethodPost, c.Create),
		cmdutil.NewHTTPHandler(RestorePath, http.MethodPost, c.Restore),
		cmdutil.NewHTTPHandler(DeserializePath, http.MethodPost, c.Deserialize),
		cmdutil.NewHTTPHandler(BackupPath, http.MethodPost, c.Backup),
		cmdutil.NewHTTPHandler(UpdateStatePath, http.MethodPost, c.UpdateState),
		cmdutil.NewHTTPHandler(UpdateStateWithMessagePath, http.MethodPost, c.UpdateStateWithMessage),
		cmdutil.NewHTTPHandler(StatePath, http.MethodPost, c.GetState),
		cmdutil.NewHTTPHandler(ProblemReportPath, http.MethodPost, c.ProblemReport),
		cmdutil.NewHTTPHandler(SerializePath, http.MethodPost, c.Serialize),
		cmdutil.NewHTTPHandler(ReleasePath, http.MethodPost, c.Release),
	}
}

// Create swagger:route POST /wallet-backups wallet-backups createBackup
//
// Creates a wallet backup sealed under a backup key.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Create(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Create, rw, req.Body)
}

// Restore swagger:route POST /wallet-backups/restore wallet-backups restoreBackup
//
// Imports a backup archive into the wallet.
//
// Responses:
//    default: genericError
//        200: commandResponse
func (c *Operation) Restore(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Restore, rw, req.Body)
}

// Deserialize restores a wallet backup from its snapshot.
func (c *Operation) Deserialize(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Deserialize, rw, req.Body)
}

// Backup writes the archive and hands it to the agency when one is configured.
func (c *Operation) Backup(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Backup, rw, req)
}

// UpdateState polls for the agency's answer.
func (c *Operation) UpdateState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateState, rw, req)
}

// UpdateStateWithMessage feeds one agency message to the backup.
func (c *Operation) UpdateStateWithMessage(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.UpdateStateWithMessage, rw, req)
}

// GetState reports the backup state.
func (c *Operation) GetState(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.GetState, rw, req)
}

// ProblemReport returns the agency's problem report.
func (c *Operation) ProblemReport(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.ProblemReport, rw, req)
}

// Serialize returns the backup snapshot.
func (c *Operation) Serialize(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Serialize, rw, req)
}

// Release invalidates the backup handle.
func (c *Operation) Release(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithHandle(c.command.Release, rw, req)
}
