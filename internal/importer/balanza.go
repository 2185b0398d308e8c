package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/acctree/internal/model"
)

// BalanzaParser parses trial-balance exports from the ERP: one row per
// account with its closing balance and no classification.
//
//	Cuenta,Nombre,Planta,Saldo Final
//	50002001000001,Refacciones,Norte,"(1,250.00)"
type BalanzaParser struct{}

const (
	balanzaColCode    = "cuenta"
	balanzaColConcept = "nombre"
	balanzaColPlant   = "planta"
	balanzaColAmount  = "saldo final"
)

// Format returns the parser name.
func (p *BalanzaParser) Format() string { return "balanza" }

// Matches reports whether header carries the account and balance columns.
func (p *BalanzaParser) Matches(header []string) bool {
	cols := balanzaColumns(header)
	_, code := cols[balanzaColCode]
	_, amount := cols[balanzaColAmount]
	return code && amount
}

// Parse reads a trial balance.
func (p *BalanzaParser) Parse(r io.Reader) ([]model.AccountRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading balanza CSV: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	cols := balanzaColumns(rows[0])
	var records []model.AccountRecord
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec, err := parseBalanzaRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseBalanzaRow(row []string, cols map[string]int) (model.AccountRecord, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	code := normalizeCode(field(balanzaColCode))
	if code == "" {
		return model.AccountRecord{}, fmt.Errorf("missing cuenta")
	}
	amount, err := parseBalance(field(balanzaColAmount))
	if err != nil {
		return model.AccountRecord{}, err
	}
	return model.AccountRecord{
		Code:    model.AccountCode(code),
		Concept: field(balanzaColConcept),
		Plant:   field(balanzaColPlant),
		Amount:  amount,
	}, nil
}

func balanzaColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

// normalizeCode dashes a bare 14-digit account number into 4-4-3-3.
// Anything else is returned as written.
func normalizeCode(s string) string {
	if len(s) != 14 || strings.Trim(s, "0123456789") != "" {
		return s
	}
	return s[:4] + "-" + s[4:8] + "-" + s[8:11] + "-" + s[11:]
}

// parseBalance reads "1,250.00", "-1250", "$1,250.00" or "(1,250.00)".
// An empty balance is zero.
func parseBalance(s string) (decimal.Decimal, error) {
	raw := s
	if s == "" {
		return decimal.Zero, nil
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing saldo %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
