// Package ledger stores AccountRecord rows, one record set per report.
package ledger

import (
	"context"

	"github.com/cleared-dev/acctree/internal/model"
)

// Store is the storage port the service and the rule propagator depend on.
type Store interface {
	// ListReports returns every report ID in ascending order.
	ListReports(ctx context.Context) ([]string, error)
	// ReadReport returns a report's records, or *model.ErrNotFound.
	ReadReport(ctx context.Context, reportID string) ([]model.AccountRecord, error)
	// WriteReport replaces a report's records.
	WriteReport(ctx context.Context, reportID string, records []model.AccountRecord) error
	// ApplyTag sets tag on every record with code across all reports. Either
	// every matching record is updated or none is; on failure the error is a
	// *model.PropagationError listing the records left untouched.
	ApplyTag(ctx context.Context, code model.AccountCode, tag model.Tag) ([]model.RecordRef, error)
}

// retag rewrites the tag of every record with code and returns their refs.
// records is modified in place.
func retag(records []model.AccountRecord, code model.AccountCode, tag model.Tag) []model.RecordRef {
	var refs []model.RecordRef
	for i := range records {
		if records[i].Code != code {
			continue
		}
		records[i].Tag = tag
		refs = append(refs, records[i].Ref())
	}
	return refs
}

// Reports counts the distinct reports among refs.
func Reports(refs []model.RecordRef) int {
	seen := make(map[string]bool)
	for _, r := range refs {
		seen[r.ReportID] = true
	}
	return len(seen)
}
