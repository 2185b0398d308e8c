package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 4, 10, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:       testTime,
		User:            "ana",
		Action:          ActionRulePropagated,
		RuleID:          "5b0f6c8e-2f55-4a57-9d8c-1f7f0e1e2a10",
		AccountCode:     "5000-2001-000-000",
		AffectedRecords: 3,
		AffectedReports: 3,
		Reason:          "reclassified, per controller",
	}
}

func TestAppend_NewAndExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Action = ActionRuleSuperseded
	e2.AffectedRecords, e2.AffectedReports = 0, 0
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, testEntry(), entries[0])
	assert.Equal(t, ActionRuleSuperseded, entries[1].Action)

	data, err := os.ReadFile(filepath.Join(dir, "logs", "audit-log.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header), "header written once")
}

func TestAppend_Nothing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, nil))
	_, err := os.Stat(filepath.Join(dir, "logs"))
	assert.True(t, os.IsNotExist(err))
}

func TestRead_NoFile(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRead_BadRow(t *testing.T) {
	_, err := readEntries(strings.NewReader(Header + "\nyesterday,ana,x,,,1,1,\n"))
	assert.ErrorContains(t, err, "row 2")
}
