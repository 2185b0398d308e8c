package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cleared-dev/acctree/internal/id"
	"github.com/cleared-dev/acctree/internal/model"
)

const (
	reportsDir   = "reports"
	accountsFile = "accounts.csv"
)

// FSStore keeps each report in <root>/reports/<reportId>/accounts.csv.
type FSStore struct {
	root string
	mu   sync.Mutex // serializes multi-file rewrites

	// rename and writeFile are os.Rename and os.WriteFile outside tests.
	rename    func(oldpath, newpath string) error
	writeFile func(name string, data []byte, perm os.FileMode) error
}

// NewFSStore creates a store rooted at a repository directory.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root, rename: os.Rename, writeFile: os.WriteFile}
}

// ListReports returns every report directory that holds an accounts.csv.
func (s *FSStore) ListReports(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, reportsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !id.ValidReportID(e.Name()) {
			continue
		}
		if _, err := os.Stat(s.reportPath(e.Name())); err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ReadReport reads all records of a report.
func (s *FSStore) ReadReport(ctx context.Context, reportID string) ([]model.AccountRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !id.ValidReportID(reportID) {
		return nil, &model.ErrValidation{Field: "reportId", Message: fmt.Sprintf("invalid report ID %q", reportID)}
	}

	path := s.reportPath(reportID)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &model.ErrNotFound{Resource: "report", ID: reportID}
	}
	if err != nil {
		return nil, fmt.Errorf("opening report %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	for i := range records {
		if records[i].ReportID == "" {
			records[i].ReportID = reportID
		}
	}
	return records, nil
}

// WriteReport replaces a report's accounts.csv through a temp file.
func (s *FSStore) WriteReport(ctx context.Context, reportID string, records []model.AccountRecord) error {
	if !id.ValidReportID(reportID) {
		return &model.ErrValidation{Field: "reportId", Message: fmt.Sprintf("invalid report ID %q", reportID)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := s.stage(reportID, records)
	if err != nil {
		return err
	}
	if err := s.rename(tmp, s.reportPath(reportID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing report %s: %w", reportID, err)
	}
	return nil
}

// ApplyTag stages every affected report first and only then swaps the files
// in. A failed swap restores the reports already replaced; records of a
// report that cannot be restored are returned in PropagationError.Updated.
func (s *FSStore) ApplyTag(ctx context.Context, code model.AccountCode, tag model.Tag) ([]model.RecordRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := s.ListReports(ctx)
	if err != nil {
		return nil, &model.PropagationError{Code: code, Err: err}
	}

	type staged struct {
		reportID string
		original []byte
		tmp      string
		refs     []model.RecordRef
	}
	var plan []staged
	var all []model.RecordRef
	cleanup := func() {
		for _, p := range plan {
			os.Remove(p.tmp)
		}
	}

	for _, reportID := range reports {
		if err := ctx.Err(); err != nil {
			cleanup()
			return nil, &model.PropagationError{Code: code, NotUpdated: all, Err: err}
		}
		original, err := os.ReadFile(s.reportPath(reportID))
		if err != nil {
			cleanup()
			return nil, &model.PropagationError{Code: code, NotUpdated: all, Err: fmt.Errorf("reading report %s: %w", reportID, err)}
		}
		records, err := ReadRecords(bytes.NewReader(original))
		if err != nil {
			cleanup()
			return nil, &model.PropagationError{Code: code, NotUpdated: all, Err: fmt.Errorf("reading report %s: %w", reportID, err)}
		}
		for i := range records {
			if records[i].ReportID == "" {
				records[i].ReportID = reportID
			}
		}
		refs := retag(records, code, tag)
		if len(refs) == 0 {
			continue
		}
		all = append(all, refs...)
		tmp, err := s.stage(reportID, records)
		if err != nil {
			cleanup()
			return nil, &model.PropagationError{Code: code, NotUpdated: all, Err: err}
		}
		plan = append(plan, staged{reportID: reportID, original: original, tmp: tmp, refs: refs})
	}

	for i, p := range plan {
		if err := s.rename(p.tmp, s.reportPath(p.reportID)); err != nil {
			errs := []error{fmt.Errorf("replacing report %s: %w", p.reportID, err)}
			stranded := make(map[string]bool)
			var updated []model.RecordRef
			for _, done := range plan[:i] {
				if werr := s.writeFile(s.reportPath(done.reportID), done.original, 0o644); werr != nil {
					errs = append(errs, fmt.Errorf("restoring report %s: %w", done.reportID, werr))
					stranded[done.reportID] = true
					updated = append(updated, done.refs...)
				}
			}
			cleanup()

			var notUpdated []model.RecordRef
			for _, ref := range all {
				if !stranded[ref.ReportID] {
					notUpdated = append(notUpdated, ref)
				}
			}
			return nil, &model.PropagationError{
				Code:       code,
				NotUpdated: notUpdated,
				Updated:    updated,
				Err:        errors.Join(errs...),
			}
		}
	}
	return all, nil
}

// stage writes records to a temp file next to the report and returns its path.
func (s *FSStore) stage(reportID string, records []model.AccountRecord) (string, error) {
	dir := filepath.Dir(s.reportPath(reportID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}

	f, err := os.CreateTemp(dir, accountsFile+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if err := WriteRecords(f, records); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing report %s: %w", reportID, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return f.Name(), nil
}

func (s *FSStore) reportPath(reportID string) string {
	return filepath.Join(s.root, reportsDir, reportID, accountsFile)
}
