/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"encoding/json"
	"errors"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/walletbackup"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
	"github.com/topcoder-platform/mobilewallet/pkg/wallet/archive"
)

// SearchOptions selects the record fields returned by a search.
type SearchOptions struct {
	RetrieveType  bool `json:"retrieveType"`
	RetrieveValue bool `json:"retrieveValue"`
	RetrieveTags  bool `json:"retrieveTags"`
}

// SearchRecords is one page of search results. Records is nil once the search is exhausted.
type SearchRecords struct {
	Records []*wallet.Record `json:"records"`
}

// search is an open record search. The matching records are captured when it is opened.
type search struct {
	records []*wallet.Record
	opts    SearchOptions
}

func (s *search) next(count int) *SearchRecords {
	if len(s.records) == 0 {
		return &SearchRecords{}
	}

	if count > len(s.records) {
		count = len(s.records)
	}

	page := make([]*wallet.Record, 0, count)

	for _, r := range s.records[:count] {
		out := &wallet.Record{ID: r.ID}

		if s.opts.RetrieveType {
			out.Type = r.Type
		}

		if s.opts.RetrieveValue {
			out.Value = r.Value
		}

		if s.opts.RetrieveTags {
			out.Tags = r.Tags
		}

		page = append(page, out)
	}

	s.records = s.records[count:]

	return &SearchRecords{Records: page}
}

func parseTags(raw string) (map[string]string, error) {
	if raw == "" {
		return map[string]string{}, nil
	}

	tags := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "tags must be an object of string values")
	}

	return tags, nil
}

func parseSearchOptions(raw string) (SearchOptions, error) {
	opts := SearchOptions{RetrieveValue: true}

	if raw == "" {
		return opts, nil
	}

	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return opts, vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid search options")
	}

	return opts, nil
}

func requireRecordID(recordType, id string) error {
	if recordType == "" || id == "" {
		return vcxerr.New(vcxerr.MalformedInput, "record type and id are required")
	}

	return nil
}

func walletErr(err error, format string, args ...interface{}) error {
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		return vcxerr.Wrap(vcxerr.NotFound, err, format, args...)
	case errors.Is(err, wallet.ErrDuplicate):
		return vcxerr.Wrap(vcxerr.MalformedInput, err, format, args...)
	default:
		return vcxerr.Collaborator(err, format, args...)
	}
}

// WalletAddRecord stores a record. tags is a JSON object of string values.
func (e *Engine) WalletAddRecord(token dispatcher.Token, recordType, id, value, tags string,
	cb dispatcher.Callback) error {
	if err := requireRecordID(recordType, id); err != nil {
		return err
	}

	t, err := parseTags(tags)
	if err != nil {
		return err
	}

	rec := &wallet.Record{Type: recordType, ID: id, Value: value, Tags: t}

	return e.submit(token, func() (interface{}, error) {
		if err := e.wallet.AddRecord(e.ctx, rec); err != nil {
			return nil, walletErr(err, "add record %s", id)
		}

		return nil, nil
	}, cb)
}

// WalletGetRecord reads a record. optionsJSON selects the returned fields as for searches.
func (e *Engine) WalletGetRecord(token dispatcher.Token, recordType, id, optionsJSON string,
	cb dispatcher.Callback) error {
	if err := requireRecordID(recordType, id); err != nil {
		return err
	}

	opts, err := parseSearchOptions(optionsJSON)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		rec, err := e.wallet.GetRecord(e.ctx, recordType, id)
		if err != nil {
			return nil, walletErr(err, "get record %s", id)
		}

		return (&search{records: []*wallet.Record{rec}, opts: opts}).next(1).Records[0], nil
	}, cb)
}

// WalletUpdateRecordValue replaces the value of a record.
func (e *Engine) WalletUpdateRecordValue(token dispatcher.Token, recordType, id, value string,
	cb dispatcher.Callback) error {
	if err := requireRecordID(recordType, id); err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		if err := e.wallet.UpdateRecordValue(e.ctx, recordType, id, value); err != nil {
			return nil, walletErr(err, "update record %s", id)
		}

		return nil, nil
	}, cb)
}

// WalletUpdateRecordTags replaces every tag of a record.
func (e *Engine) WalletUpdateRecordTags(token dispatcher.Token, recordType, id, tags string,
	cb dispatcher.Callback) error {
	if err := requireRecordID(recordType, id); err != nil {
		return err
	}

	t, err := parseTags(tags)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		if err := e.wallet.UpdateRecordTags(e.ctx, recordType, id, t); err != nil {
			return nil, walletErr(err, "update tags of record %s", id)
		}

		return nil, nil
	}, cb)
}

// WalletAddRecordTags adds tags to a record, overwriting tags of the same name.
func (e *Engine) WalletAddRecordTags(token dispatcher.Token, recordType, id, tags string,
	cb dispatcher.Callback) error {
	if err := requireRecordID(recordType, id); err != nil {
		return err
	}

	t, err := parseTags(tags)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		if err := e.wallet.AddRecordTags(e.ctx, recordType, id, t); err != nil {
			return nil, walletErr(err, "add tags to record %s", id)
		}

		return nil, nil
	}, cb)
}

// WalletDeleteRecordTags removes the named tags. names is a JSON list.
func (e *Engine) WalletDeleteRecordTags(token dispatcher.Token, recordType, id, names string,
	cb dispatcher.Callback) error {
	if err := requireRecordID(recordType, id); err != nil {
		return err
	}

	var n []string
	if err := json.Unmarshal([]byte(names), &n); err != nil {
		return vcxerr.Wrap(vcxerr.MalformedInput, err, "tag names must be a list")
	}

	return e.submit(token, func() (interface{}, error) {
		if err := e.wallet.DeleteRecordTags(e.ctx, recordType, id, n); err != nil {
			return nil, walletErr(err, "delete tags of record %s", id)
		}

		return nil, nil
	}, cb)
}

// WalletDeleteRecord removes a record.
func (e *Engine) WalletDeleteRecord(token dispatcher.Token, recordType, id string, cb dispatcher.Callback) error {
	if err := requireRecordID(recordType, id); err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		if err := e.wallet.DeleteRecord(e.ctx, recordType, id); err != nil {
			return nil, walletErr(err, "delete record %s", id)
		}

		return nil, nil
	}, cb)
}

// WalletOpenSearch opens a search over records of recordType. queryJSON is a tag equality filter with string
// values only. The result is the search handle.
func (e *Engine) WalletOpenSearch(token dispatcher.Token, recordType, queryJSON, optionsJSON string,
	cb dispatcher.Callback) error {
	if recordType == "" {
		return vcxerr.New(vcxerr.MalformedInput, "record type is required")
	}

	filter := wallet.Filter{}

	if queryJSON != "" {
		if err := json.Unmarshal([]byte(queryJSON), &filter); err != nil {
			return vcxerr.Wrap(vcxerr.MalformedInput, err, "query must be an object of string values")
		}
	}

	opts, err := parseSearchOptions(optionsJSON)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		records, err := e.wallet.Query(e.ctx, recordType, filter)
		if err != nil {
			return nil, walletErr(err, "search %s records", recordType)
		}

		return allocate(e.searches, &search{records: records, opts: opts})
	}, cb)
}

// WalletSearchNextRecords returns up to count records of an open search. The result is a SearchRecords.
func (e *Engine) WalletSearchNextRecords(token dispatcher.Token, sh handle.Handle, count int,
	cb dispatcher.Callback) error {
	if count <= 0 {
		return vcxerr.New(vcxerr.MalformedInput, "count must be positive")
	}

	return submitWith(e, token, e.searches, sh, func(s *search) (interface{}, error) {
		return s.next(count), nil
	}, cb)
}

// WalletCloseSearch releases a search handle.
func (e *Engine) WalletCloseSearch(token dispatcher.Token, sh handle.Handle, cb dispatcher.Callback) error {
	return submitRelease(e, token, e.searches, sh, cb)
}

// WalletExport writes every wallet record to an archive at path sealed with backupKey.
func (e *Engine) WalletExport(token dispatcher.Token, path, backupKey string, cb dispatcher.Callback) error {
	if path == "" || backupKey == "" {
		return vcxerr.New(vcxerr.MalformedInput, "export needs a path and a backup key")
	}

	return e.submit(token, func() (interface{}, error) {
		records, err := e.wallet.Export(e.ctx)
		if err != nil {
			return nil, vcxerr.Collaborator(err, "export wallet")
		}

		if _, err := archive.WriteFile(path, records, backupKey, e.archiveOpts...); err != nil {
			return nil, vcxerr.Wrap(vcxerr.Unknown, err, "write wallet export")
		}

		logger.Infof("exported %d wallet records to %s", len(records), path)

		return nil, nil
	}, cb)
}

// WalletImport imports an archive written by WalletExport or a wallet backup. config is
// {"exported_wallet_path":...,"backup_key":...}.
func (e *Engine) WalletImport(token dispatcher.Token, config string, cb dispatcher.Callback) error {
	cfg, err := walletbackup.ParseRestoreConfig(config)
	if err != nil {
		return err
	}

	return e.submit(token, func() (interface{}, error) {
		return nil, walletbackup.Restore(e.ctx, e.wallet, cfg)
	}, cb)
}
