package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/acctree/internal/model"
)

var oldTag = model.NewTag("Egresos", "Mantenimiento", "", "Refacciones")
var newTag = model.NewTag("Egresos", "Operación", "Planta", "Servicios")

func seed(t *testing.T, s Store, reports ...string) {
	t.Helper()
	for _, reportID := range reports {
		require.NoError(t, s.WriteReport(context.Background(), reportID, []model.AccountRecord{
			{ReportID: reportID, Code: "5000-2001-000-000", Concept: "Mantenimiento", Amount: decimal.NewFromInt(100), Tag: oldTag},
			{ReportID: reportID, Code: "5000-2001-000-001", Concept: "Refacciones", Amount: decimal.NewFromInt(40)},
		}))
	}
}

func tagOf(t *testing.T, s Store, reportID string, code model.AccountCode) model.Tag {
	t.Helper()
	records, err := s.ReadReport(context.Background(), reportID)
	require.NoError(t, err)
	for _, r := range records {
		if r.Code == code {
			return r.Tag
		}
	}
	t.Fatalf("%s not in %s", code, reportID)
	return model.Tag{}
}

func TestFSStore_WriteReadList(t *testing.T) {
	dir := t.TempDir()
	s := NewFSStore(dir)
	ctx := context.Background()

	ids, err := s.ListReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	seed(t, s, "2025-02", "2025-01")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "reports", "notes"), 0o755))

	ids, err = s.ListReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01", "2025-02"}, ids)

	records, err := s.ReadReport(ctx, "2025-01")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, oldTag, records[0].Tag)
	assert.True(t, records[1].Amount.Equal(decimal.NewFromInt(40)))

	_, err = os.Stat(filepath.Join(dir, "reports", "2025-01", "accounts.csv"))
	assert.NoError(t, err)
}

func TestFSStore_ReadErrors(t *testing.T) {
	s := NewFSStore(t.TempDir())

	_, err := s.ReadReport(context.Background(), "2025-04")
	var nf *model.ErrNotFound
	assert.ErrorAs(t, err, &nf)

	_, err = s.ReadReport(context.Background(), "../secrets")
	var ve *model.ErrValidation
	assert.ErrorAs(t, err, &ve)
}

func TestFSStore_ApplyTag(t *testing.T) {
	s := NewFSStore(t.TempDir())
	seed(t, s, "2025-01", "2025-02", "2025-03")

	refs, err := s.ApplyTag(context.Background(), "5000-2001-000-000", newTag)
	require.NoError(t, err)
	assert.Len(t, refs, 3)
	assert.Equal(t, 3, Reports(refs))

	for _, reportID := range []string{"2025-01", "2025-02", "2025-03"} {
		assert.Equal(t, newTag, tagOf(t, s, reportID, "5000-2001-000-000"))
		assert.Equal(t, model.Tag{}, tagOf(t, s, reportID, "5000-2001-000-001"))
	}
}

func TestFSStore_ApplyTagRollsBack(t *testing.T) {
	dir := t.TempDir()
	s := NewFSStore(dir)
	seed(t, s, "2025-01", "2025-02", "2025-03")

	calls := 0
	s.rename = func(oldpath, newpath string) error {
		calls++
		if calls == 3 {
			return errors.New("disk full")
		}
		return os.Rename(oldpath, newpath)
	}

	_, err := s.ApplyTag(context.Background(), "5000-2001-000-000", newTag)
	var pe *model.PropagationError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, model.AccountCode("5000-2001-000-000"), pe.Code)
	assert.Len(t, pe.NotUpdated, 3)
	assert.Contains(t, err.Error(), "disk full")

	for _, reportID := range []string{"2025-01", "2025-02", "2025-03"} {
		assert.Equal(t, oldTag, tagOf(t, s, reportID, "5000-2001-000-000"), reportID)
		leftovers, _ := filepath.Glob(filepath.Join(dir, "reports", reportID, "*.tmp"))
		assert.Empty(t, leftovers)
	}
}

func TestFSStore_ApplyTagReportsFailedRestore(t *testing.T) {
	dir := t.TempDir()
	s := NewFSStore(dir)
	seed(t, s, "2025-01", "2025-02", "2025-03")

	calls := 0
	s.rename = func(oldpath, newpath string) error {
		calls++
		if calls == 3 {
			return errors.New("disk full")
		}
		return os.Rename(oldpath, newpath)
	}
	s.writeFile = func(name string, data []byte, perm os.FileMode) error {
		if filepath.Base(filepath.Dir(name)) == "2025-02" {
			return errors.New("read-only file system")
		}
		return os.WriteFile(name, data, perm)
	}

	_, err := s.ApplyTag(context.Background(), "5000-2001-000-000", newTag)
	var pe *model.PropagationError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "restoring report 2025-02")

	require.Len(t, pe.Updated, 1)
	assert.Equal(t, "2025-02", pe.Updated[0].ReportID)
	var notUpdated []string
	for _, ref := range pe.NotUpdated {
		notUpdated = append(notUpdated, ref.ReportID)
	}
	assert.Equal(t, []string{"2025-01", "2025-03"}, notUpdated)

	assert.Equal(t, oldTag, tagOf(t, s, "2025-01", "5000-2001-000-000"))
	assert.Equal(t, newTag, tagOf(t, s, "2025-02", "5000-2001-000-000"), "the unrestored report is reported, not hidden")
	assert.Equal(t, oldTag, tagOf(t, s, "2025-03", "5000-2001-000-000"))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "2025-02", "2025-01")

	ids, err := s.ListReports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01", "2025-02"}, ids)

	refs, err := s.ApplyTag(context.Background(), "5000-2001-000-000", newTag)
	require.NoError(t, err)
	assert.Equal(t, []model.RecordRef{
		{ReportID: "2025-01", Code: "5000-2001-000-000"},
		{ReportID: "2025-02", Code: "5000-2001-000-000"},
	}, refs)
	assert.Equal(t, newTag, tagOf(t, s, "2025-02", "5000-2001-000-000"))

	_, err = s.ReadReport(context.Background(), "2030-01")
	var nf *model.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}
