package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/acctree/internal/model"
)

// Header is the CSV header for accounts.csv.
const Header = "report_id,code,concept,plant,amount,tipo,categoria_1,sub_categoria,clasificacion"

const (
	numFields      = 9
	colReportID    = 0
	colCode        = 1
	colConcept     = 2
	colPlant       = 3
	colAmount      = 4
	colTipo        = 5
	colCategoria   = 6
	colSubcategory = 7
	colClasif      = 8
)

// ReadRecords reads all records from an accounts.csv reader.
func ReadRecords(r io.Reader) ([]model.AccountRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	// Skip header row.
	var records []model.AccountRecord
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteRecords writes records to an accounts.csv writer (including header).
func WriteRecords(w io.Writer, records []model.AccountRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rec := range records {
		if err := cw.Write(MarshalRecord(rec)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRecord converts a record to a CSV row. Unset tag fields are written
// as the export sentinels.
func MarshalRecord(rec model.AccountRecord) []string {
	w := rec.Tag.Wire()
	row := make([]string, numFields)
	row[colReportID] = rec.ReportID
	row[colCode] = string(rec.Code)
	row[colConcept] = rec.Concept
	row[colPlant] = rec.Plant
	row[colAmount] = rec.Amount.StringFixed(2)
	row[colTipo] = w.Tipo
	row[colCategoria] = w.Categoria
	row[colSubcategory] = w.Subcategoria
	row[colClasif] = w.Clasificacion
	return row
}

// UnmarshalRecord converts a CSV row to a record. The code is kept verbatim;
// malformed codes are a data-quality finding, not a parse error.
func UnmarshalRecord(row []string) (model.AccountRecord, error) {
	if len(row) != numFields {
		return model.AccountRecord{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}

	amount := decimal.Zero
	if s := strings.TrimSpace(row[colAmount]); s != "" {
		var err error
		amount, err = decimal.NewFromString(s)
		if err != nil {
			return model.AccountRecord{}, fmt.Errorf("parsing amount %q: %w", row[colAmount], err)
		}
	}

	code := strings.TrimSpace(row[colCode])
	if code == "" {
		return model.AccountRecord{}, fmt.Errorf("missing code")
	}

	return model.AccountRecord{
		ReportID: row[colReportID],
		Code:     model.AccountCode(code),
		Concept:  row[colConcept],
		Plant:    row[colPlant],
		Amount:   amount,
		Tag:      model.NewTag(row[colTipo], row[colCategoria], row[colSubcategory], row[colClasif]),
	}, nil
}
