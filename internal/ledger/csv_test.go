package ledger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/acctree/internal/model"
)

func TestReadRecords(t *testing.T) {
	input := Header + "\n" +
		"2025-03,5000-2001-000-001,Refacciones,Planta Norte,-165672.00,Egresos,Mantenimiento,Sin Subcategoría,Refacciones\n" +
		"2025-03,5000-2001-000-002,Fletes,,10.5,Indefinido,Sin Categoría,Sin Subcategoría,Sin Clasificación\n" +
		"2025-03,50002001,Código roto,,,,,,\n"

	records, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	r := records[0]
	assert.Equal(t, model.AccountCode("5000-2001-000-001"), r.Code)
	assert.Equal(t, "Planta Norte", r.Plant)
	assert.True(t, r.Amount.Equal(decimal.RequireFromString("-165672")))
	assert.True(t, r.Tag.Complete())
	assert.False(t, r.Tag.Subcategoria.IsSet())

	assert.False(t, records[1].Tag.Tipo.IsSet())
	assert.False(t, records[1].Tag.Categoria.IsSet())
	assert.False(t, records[1].Tag.Clasificacion.IsSet())

	assert.Equal(t, model.AccountCode("50002001"), records[2].Code, "malformed codes are kept verbatim")
	assert.True(t, records[2].Amount.IsZero())
}

func TestReadRecords_Empty(t *testing.T) {
	records, err := ReadRecords(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadRecords_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"bad amount", "2025-03,5000-2001-000-001,X,,abc,,,,"},
		{"missing code", "2025-03,,X,,1,,,,"},
		{"short row", "2025-03,5000-2001-000-001"},
	}
	for _, tt := range tests {
		_, err := ReadRecords(strings.NewReader(Header + "\n" + tt.row + "\n"))
		assert.Error(t, err, tt.name)
	}
}

func TestWriteRecords_SentinelsWrittenBack(t *testing.T) {
	records := []model.AccountRecord{{
		ReportID: "2025-03",
		Code:     "5000-2001-000-001",
		Concept:  "Refacciones, varias",
		Amount:   decimal.RequireFromString("12.5"),
		Tag:      model.NewTag("Egresos", "", "", ""),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, records))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, `2025-03,5000-2001-000-001,"Refacciones, varias",,12.50,Egresos,Sin Categoría,Sin Subcategoría,Sin Clasificación`, lines[1])

	back, err := ReadRecords(&buf)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, records[0].Tag, back[0].Tag)
}
