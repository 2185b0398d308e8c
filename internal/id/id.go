package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatReportID returns a report ID like "2025-03" for a reporting period.
func FormatReportID(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ReportIDFor returns the report ID of the period containing t.
func ReportIDFor(t time.Time) string {
	return FormatReportID(t.Year(), int(t.Month()))
}

// ParseReportID parses "2025-03" or "2025-03-planta-norte" into year, month
// and the optional suffix.
func ParseReportID(id string) (year, month int, suffix string, err error) {
	parts := strings.SplitN(id, "-", 3)
	if len(parts) < 2 {
		return 0, 0, "", fmt.Errorf("invalid report ID format: %q", id)
	}

	if len(parts[0]) != 4 {
		return 0, 0, "", fmt.Errorf("invalid year in report ID %q", id)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, "", fmt.Errorf("invalid year in report ID %q: %w", id, err)
	}

	if len(parts[1]) != 2 {
		return 0, 0, "", fmt.Errorf("invalid month in report ID %q", id)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, "", fmt.Errorf("invalid month in report ID %q: %w", id, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, "", fmt.Errorf("month %d out of range in report ID %q", month, id)
	}

	if len(parts) == 3 {
		suffix = parts[2]
		if suffix == "" || strings.ContainsAny(suffix, `/\.`) {
			return 0, 0, "", fmt.Errorf("invalid suffix in report ID %q", id)
		}
	}
	return year, month, suffix, nil
}

// ValidReportID reports whether id parses.
func ValidReportID(id string) bool {
	_, _, _, err := ParseReportID(id)
	return err == nil
}

// Period strips the suffix from a report ID.
// "2025-03-planta-norte" -> "2025-03"
func Period(reportID string) string {
	if len(reportID) < 7 {
		return reportID
	}
	return reportID[:7]
}
