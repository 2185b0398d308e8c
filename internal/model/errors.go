package model

import (
	"fmt"
	"strings"
)

// ErrValidation rejects a request before any domain logic runs.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrNotFound indicates a missing report, record or rule.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// PropagationError reports a retroactive update that was rolled back.
// NotUpdated lists every record that still carries its previous tag. Updated
// lists records left with the new tag because their report could not be
// restored; it is empty when the rollback succeeded.
type PropagationError struct {
	Code       AccountCode
	NotUpdated []RecordRef
	Updated    []RecordRef
	Err        error
}

func (e *PropagationError) Error() string {
	reports := reportIDs(e.NotUpdated)
	msg := fmt.Sprintf("propagating %s: %d records not updated (reports %s)",
		e.Code, len(e.NotUpdated), strings.Join(reports, ","))
	if len(e.Updated) > 0 {
		msg += fmt.Sprintf(", %d records left updated (reports %s)", len(e.Updated), strings.Join(reportIDs(e.Updated), ","))
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *PropagationError) Unwrap() error { return e.Err }

// reportIDs returns the distinct report IDs of refs in first-seen order.
func reportIDs(refs []RecordRef) []string {
	out := make([]string, 0, len(refs))
	seen := make(map[string]bool)
	for _, ref := range refs {
		if !seen[ref.ReportID] {
			seen[ref.ReportID] = true
			out = append(out, ref.ReportID)
		}
	}
	return out
}
