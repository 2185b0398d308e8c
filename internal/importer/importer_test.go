package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/acctree/internal/auditlog"
	"github.com/cleared-dev/acctree/internal/ledger"
	"github.com/cleared-dev/acctree/internal/model"
	"github.com/cleared-dev/acctree/internal/rules"
)

const balanza = "\ufeffCuenta,Nombre,Planta,Saldo Final\n" +
	"50000000000000,Egresos,,\"(1,250.00)\"\n" +
	"5000-2001-000-000,Mantenimiento,Norte,\"$1,000.50\"\n" +
	"50002001000001,Refacciones,Norte,-249.50\n" +
	",,,\n"

func TestBalanzaParser_Parse(t *testing.T) {
	p := &BalanzaParser{}
	records, err := p.Parse(strings.NewReader(balanza))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, model.AccountCode("5000-0000-000-000"), records[0].Code)
	assert.Equal(t, "-1250.00", records[0].Amount.StringFixed(2))
	assert.Equal(t, "Mantenimiento", records[1].Concept)
	assert.Equal(t, "Norte", records[1].Plant)
	assert.Equal(t, "1000.50", records[1].Amount.StringFixed(2))
	assert.Equal(t, model.AccountCode("5000-2001-000-001"), records[2].Code)
	assert.False(t, records[2].Tag.Tipo.IsSet())
}

func TestBalanzaParser_BadBalance(t *testing.T) {
	p := &BalanzaParser{}
	_, err := p.Parse(strings.NewReader("Cuenta,Nombre,Saldo Final\n5000-2001-000-000,x,mil\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing saldo")
	assert.Contains(t, err.Error(), "row 2")
}

func TestBalanzaParser_EmptyFile(t *testing.T) {
	p := &BalanzaParser{}
	records, err := p.Parse(strings.NewReader("Cuenta,Nombre,Saldo Final\n"))
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestRegistry_Detect(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, "accounts", r.Detect(strings.Split(ledger.Header, ",")).Format())
	assert.Equal(t, "balanza", r.Detect([]string{"Cuenta", "Nombre", "Saldo Final"}).Format())
	assert.Nil(t, r.Detect([]string{"Date", "Amount"}))
	assert.NotNil(t, r.Get("BALANZA"))
	assert.Panics(t, func() { r.Register(&BalanzaParser{}) })
}

func TestReportIDFromFile(t *testing.T) {
	got, err := ReportIDFromFile("2025-03-planta-norte.csv")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-planta-norte", got)

	_, err = ReportIDFromFile("marzo.csv")
	assert.Error(t, err)
}

func TestScanAndMarkProcessed(t *testing.T) {
	root := t.TempDir()
	files, err := Scan(root)
	require.NoError(t, err)
	assert.Empty(t, files, "missing import dir is not an error")

	dir := filepath.Join(root, importDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-03.csv"), []byte(balanza), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	files, err = Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "2025-03.csv", files[0].Name)

	require.NoError(t, MarkProcessed(root, "2025-03.csv"))
	_, err = os.Stat(filepath.Join(root, processedDir, "2025-03.csv"))
	assert.NoError(t, err)
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, importDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-03.csv"), []byte(balanza), 0o644))

	store := ledger.NewMemoryStore()
	repo := rules.NewYAMLStore(root)
	tag := model.NewTag("Egresos", "Mantenimiento", "", "Refacciones")
	prop := rules.NewPropagator(repo, store)
	_, err := prop.Create(ctx, rules.CreateRequest{AccountCode: "5000-2001-000-001", Tag: tag, UserID: "ana"})
	require.NoError(t, err)

	im := New(store, repo)
	im.Now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	results, err := im.Ingest(ctx, root, "ana")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2025-03", results[0].ReportID)
	assert.Equal(t, "balanza", results[0].Format)
	assert.Equal(t, 3, results[0].Records)
	assert.Equal(t, 1, results[0].RuleTagged)

	records, err := store.ReadReport(ctx, "2025-03")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "2025-03", r.ReportID)
		if r.Code == "5000-2001-000-001" {
			assert.Equal(t, tag, r.Tag)
		}
	}

	files, err := Scan(root)
	require.NoError(t, err)
	assert.Empty(t, files, "ingested file moved to processed")

	entries, err := auditlog.Read(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, auditlog.ActionIngest, entries[0].Action)
	assert.Equal(t, 3, entries[0].AffectedRecords)
}

func TestIngest_UnknownFormat(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, importDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-03.csv"), []byte("Date,Amount\n01/02/2025,3\n"), 0o644))

	_, err := New(ledger.NewMemoryStore(), rules.NewYAMLStore(root)).Ingest(context.Background(), root, "ana")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized export header")

	files, err := Scan(root)
	require.NoError(t, err)
	assert.Len(t, files, 1, "failed file stays in import/")
}
