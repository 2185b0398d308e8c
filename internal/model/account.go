package model

import "github.com/shopspring/decimal"

// AccountCode is a dash-separated 4-4-3-3 digit ledger account identifier,
// e.g. "5000-2001-017-000".
type AccountCode string

// String returns the code as written in the ledger export.
func (c AccountCode) String() string { return string(c) }

// AccountRecord is one row of a reporting period's ledger export.
type AccountRecord struct {
	ReportID string          `json:"reportId"`
	Code     AccountCode     `json:"codigo"`
	Concept  string          `json:"concepto"`
	Plant    string          `json:"planta"`
	Amount   decimal.Decimal `json:"monto"` // signed; negative = credit balance
	Tag      Tag             `json:"clasificacion"`
}

// RecordRef identifies a stored record without its payload.
type RecordRef struct {
	ReportID string      `json:"reportId"`
	Code     AccountCode `json:"codigo"`
	Plant    string      `json:"planta,omitempty"`
}

// Ref returns the record's storage key.
func (r AccountRecord) Ref() RecordRef {
	return RecordRef{ReportID: r.ReportID, Code: r.Code, Plant: r.Plant}
}
