package model

import "github.com/shopspring/decimal"

// ErrorType names a structural classification conflict.
type ErrorType string

const (
	OverClassification  ErrorType = "OVER_CLASSIFICATION"
	MixedLevel3Siblings ErrorType = "MIXED_LEVEL3_SIBLINGS"
	MixedLevel4Siblings ErrorType = "MIXED_LEVEL4_SIBLINGS"
	UnderClassification ErrorType = "UNDER_CLASSIFICATION"
)

// ErrorTypes lists every issue type in reporting order.
var ErrorTypes = []ErrorType{OverClassification, MixedLevel4Siblings, MixedLevel3Siblings, UnderClassification}

// Severity ranks an issue for remediation.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Issue is a conflict finding. Issues are regenerated on every pass.
type Issue struct {
	ErrorType       ErrorType       `json:"errorType"`
	Severity        Severity        `json:"severity"`
	FinancialImpact decimal.Decimal `json:"financialImpact"`
	AffectedCodes   []AccountCode   `json:"affectedCodes"`
	FamilyCode      string          `json:"familyCode"`
	Message         string          `json:"message"`
}

// WarningKind names a non-fatal data-quality finding.
type WarningKind string

const (
	WarnMalformedCode    WarningKind = "MALFORMED_CODE"
	WarnMissingParent    WarningKind = "MISSING_PARENT"
	WarnInconsistentTags WarningKind = "INCONSISTENT_TAGS"
)

// Warning is attached to a code when its data could not be fully trusted.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Code    AccountCode `json:"codigo"`
	Message string      `json:"message"`
}
