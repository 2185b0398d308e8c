// Package importer turns ledger exports dropped in import/ into stored
// reports, tagging each record from the active classification rules.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cleared-dev/acctree/internal/auditlog"
	"github.com/cleared-dev/acctree/internal/id"
	"github.com/cleared-dev/acctree/internal/ledger"
	"github.com/cleared-dev/acctree/internal/model"
	"github.com/cleared-dev/acctree/internal/rules"
)

// Parser converts a ledger export into AccountRecords.
type Parser interface {
	Parse(r io.Reader) ([]model.AccountRecord, error)
	Format() string
	// Matches reports whether header is this format's first row.
	Matches(header []string) bool
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
	order   []Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
	r.order = append(r.order, p)
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Detect returns the first registered parser whose header matches, or nil.
func (r *Registry) Detect(header []string) Parser {
	for _, p := range r.order {
		if p.Matches(header) {
			return p
		}
	}
	return nil
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&AccountsParser{})
	r.Register(&BalanzaParser{})
	return r
}

// importDir is the subdirectory for import CSVs.
const importDir = "import"

// processedDir is the subdirectory for processed CSVs.
const processedDir = "import/processed"

// Scan returns CSV files in <repoRoot>/import/.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// ReportIDFromFile derives the report ID from an export's file name,
// e.g. "2025-03-planta-norte.csv" -> "2025-03-planta-norte".
func ReportIDFromFile(name string) (string, error) {
	reportID := strings.TrimSuffix(name, filepath.Ext(name))
	if !id.ValidReportID(reportID) {
		return "", fmt.Errorf("file %s: name must be a report ID like 2025-03.csv", name)
	}
	return reportID, nil
}

// Result describes one ingested file.
type Result struct {
	File       string
	ReportID   string
	Format     string
	Records    int
	RuleTagged int
}

// Importer ingests exports into a ledger.
type Importer struct {
	Store    ledger.Store
	Rules    rules.Repository
	Registry *Registry
	Now      func() time.Time
}

// New creates an Importer with the built-in parsers.
func New(store ledger.Store, repo rules.Repository) *Importer {
	return &Importer{
		Store:    store,
		Rules:    repo,
		Registry: DefaultRegistry(),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ingest stores every export in <repoRoot>/import/ as a report, replacing a
// stored report with the same ID, and moves the file to import/processed/.
// Each file is written to the audit log under user.
func (im *Importer) Ingest(ctx context.Context, repoRoot, user string) ([]Result, error) {
	files, err := Scan(repoRoot)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	all, err := im.Rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	now := im.Now()
	active := rules.Active(all, now)

	var results []Result
	for _, f := range files {
		res, err := im.ingestFile(ctx, f, active)
		if err != nil {
			return results, err
		}
		if err := MarkProcessed(repoRoot, f.Name); err != nil {
			return results, err
		}
		if err := auditlog.Append(repoRoot, []auditlog.Entry{{
			Timestamp:       now,
			User:            user,
			Action:          auditlog.ActionIngest,
			AffectedRecords: res.Records,
			AffectedReports: 1,
			Reason:          fmt.Sprintf("%s (%s) -> %s", f.Name, res.Format, res.ReportID),
		}}); err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (im *Importer) ingestFile(ctx context.Context, f FileInfo, active map[model.AccountCode]model.ClassificationRule) (Result, error) {
	reportID, err := ReportIDFromFile(f.Name)
	if err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", f.Name, err)
	}

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return Result{}, fmt.Errorf("reading header of %s: %w", f.Name, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	p := im.Registry.Detect(header)
	if p == nil {
		return Result{}, fmt.Errorf("file %s: unrecognized export header %q", f.Name, strings.Join(header, ","))
	}

	records, err := p.Parse(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("parsing %s: %w", f.Name, err)
	}

	res := Result{File: f.Name, ReportID: reportID, Format: p.Format(), Records: len(records)}
	for i := range records {
		records[i].ReportID = reportID
		if rule, ok := active[records[i].Code]; ok {
			records[i].Tag = rule.Tag
			res.RuleTagged++
		}
	}
	if err := im.Store.WriteReport(ctx, reportID, records); err != nil {
		return Result{}, fmt.Errorf("storing %s: %w", reportID, err)
	}
	return res, nil
}

// AccountsParser reads exports already in the accounts.csv layout.
type AccountsParser struct{}

// Format returns the parser name.
func (p *AccountsParser) Format() string { return "accounts" }

// Matches reports whether header is the accounts.csv header.
func (p *AccountsParser) Matches(header []string) bool {
	return strings.Join(header, ",") == ledger.Header
}

// Parse reads accounts.csv rows.
func (p *AccountsParser) Parse(r io.Reader) ([]model.AccountRecord, error) {
	return ledger.ReadRecords(r)
}
