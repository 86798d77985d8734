package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/metrics"
	"go.trai.ch/kiln/internal/core/domain"
)

func TestRecorder_RecordCompilation(t *testing.T) {
	r := metrics.NewRecorder()

	r.RecordCompilation("lib", domain.ExecutionInProcess, domain.OutcomeSuccess, 120*time.Millisecond)
	r.RecordCompilation("lib", domain.ExecutionInProcess, domain.OutcomeSuccess, 80*time.Millisecond)
	r.RecordCompilation("app", domain.ExecutionWorker, domain.OutcomeCancelled, time.Second)

	expected := `
# HELP kiln_compiler_compilations_total Module compilations by module, execution mode and outcome
# TYPE kiln_compiler_compilations_total counter
kiln_compiler_compilations_total{mode="in-process",module="lib",outcome="success"} 2
kiln_compiler_compilations_total{mode="worker",module="app",outcome="cancelled"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "kiln_compiler_compilations_total"))
	count, err := testutil.GatherAndCount(r.Registry(), "kiln_compiler_compilation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecorder_RecordCancellation(t *testing.T) {
	r := metrics.NewRecorder()

	r.RecordCancellation(domain.CancelHonored)
	r.RecordCancellation(domain.CancelTooLate)
	r.RecordCancellation(domain.CancelHonored)

	expected := `
# HELP kiln_cancel_total Cancellation requests by terminal state
# TYPE kiln_cancel_total counter
kiln_cancel_total{state="honored"} 2
kiln_cancel_total{state="too-late"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "kiln_cancel_total"))
}

func TestRecorder_RecordBuild(t *testing.T) {
	r := metrics.NewRecorder()

	r.RecordBuild("all", true, time.Second)
	r.RecordBuild("subset", false, time.Second)

	expected := `
# HELP kiln_build_total Orchestrated builds by kind and result
# TYPE kiln_build_total counter
kiln_build_total{kind="all",succeeded="true"} 1
kiln_build_total{kind="subset",succeeded="false"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "kiln_build_total"))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := metrics.NewRecorder()
	r.RecordBuild("all", true, time.Second)

	path := filepath.Join(t.TempDir(), "kiln.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `kiln_build_total{kind="all",succeeded="true"} 1`)
}

func TestRecorder_WriteTextfileMissingDir(t *testing.T) {
	r := metrics.NewRecorder()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "kiln.prom"))
	require.ErrorContains(t, err, "failed to write metrics textfile")
}
