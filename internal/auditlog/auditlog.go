// Package auditlog appends rule edits and their propagation to
// logs/audit-log.csv.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Actions recorded in the log.
const (
	ActionRuleCreated    = "rule_created"
	ActionRuleSuperseded = "rule_superseded"
	ActionRulePropagated = "rule_propagated"
	ActionPropagationErr = "propagation_failed"
	ActionIngest         = "ingest"
)

// Entry is one row in the audit log.
type Entry struct {
	Timestamp       time.Time
	User            string
	Action          string
	RuleID          string
	AccountCode     string
	AffectedRecords int
	AffectedReports int
	Reason          string
}

// Header is the CSV header for audit-log.csv.
const Header = "timestamp,user,action,rule_id,account_code,affected_records,affected_reports,reason"

const (
	numFields      = 8
	logDir         = "logs"
	logFile        = "logs/audit-log.csv"
	colTimestamp   = 0
	colUser        = 1
	colAction      = 2
	colRuleID      = 3
	colAccountCode = 4
	colRecords     = 5
	colReports     = 6
	colReason      = 7
)

// appendMu serializes writers within the process.
var appendMu sync.Mutex

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colUser] = e.User
	row[colAction] = e.Action
	row[colRuleID] = e.RuleID
	row[colAccountCode] = e.AccountCode
	row[colRecords] = strconv.Itoa(e.AffectedRecords)
	row[colReports] = strconv.Itoa(e.AffectedReports)
	row[colReason] = e.Reason
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	records, err := strconv.Atoi(record[colRecords])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing affected_records %q: %w", record[colRecords], err)
	}
	reports, err := strconv.Atoi(record[colReports])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing affected_reports %q: %w", record[colReports], err)
	}

	return Entry{
		Timestamp:       ts,
		User:            record[colUser],
		Action:          record[colAction],
		RuleID:          record[colRuleID],
		AccountCode:     record[colAccountCode],
		AffectedRecords: records,
		AffectedReports: reports,
		Reason:          record[colReason],
	}, nil
}

// Append writes entries to <repoRoot>/logs/audit-log.csv, creating the file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	appendMu.Lock()
	defer appendMu.Unlock()

	if err := os.MkdirAll(filepath.Join(repoRoot, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/audit-log.csv.
// Returns an empty slice if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(repoRoot, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
