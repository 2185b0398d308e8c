package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cleared-dev/acctree/internal/model"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordIssues([]model.Issue{
		{ErrorType: model.OverClassification},
		{ErrorType: model.OverClassification},
		{ErrorType: model.UnderClassification},
	})
	m.IncrRecommendation("sibling_pattern")
	m.AddPropagated(3)
	m.IncrPropagationFailure()
	m.RecordPass("families", 20*time.Millisecond)
	m.RecordWarnings([]model.Warning{{Kind: model.WarnMissingParent}})

	s := m.Snapshot()
	assert.Equal(t, 2.0, s.IssuesByType["OVER_CLASSIFICATION"])
	assert.Equal(t, 1.0, s.IssuesByType["UNDER_CLASSIFICATION"])
	assert.Equal(t, 0.0, s.IssuesByType["MIXED_LEVEL3_SIBLINGS"])
	assert.Equal(t, 1.0, s.Recommendations["sibling_pattern"])
	assert.Equal(t, 3.0, s.PropagatedRecords)
	assert.Equal(t, 1.0, s.PropagationFailures)

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["acctree_pass_duration_seconds"])
	assert.True(t, names["acctree_data_warnings_total"])
}

func TestNewMetrics_Independent(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.AddPropagated(5)
	assert.Equal(t, 0.0, b.Snapshot().PropagatedRecords)
}

func TestZapLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	h := middleware.RequestID(ZapLoggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(404), entries[1].ContextMap()["status"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}

func TestNewLogger(t *testing.T) {
	assert.True(t, NewLogger("debug").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, NewLogger("warn").Core().Enabled(zapcore.InfoLevel))
	assert.True(t, NewLogger("").Core().Enabled(zapcore.InfoLevel))
	assert.True(t, NewLogger("nonsense").Core().Enabled(zapcore.InfoLevel))
}
