package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Transition("proceed", "ok")
	m.Transition("proceed", "ok")
	m.Commit("sold_out", 20*time.Millisecond)
	m.Payment("sandbox", "succeeded")
	m.CapturedUnbooked()
	m.SetActiveSessions(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"checkout_transitions_total",
		"checkout_commits_total",
		"checkout_commit_duration_seconds",
		"checkout_payments_total",
		"checkout_captured_unbooked_total",
		"checkout_active_sessions",
	} {
		assert.True(t, names[want], want)
	}

	expected := `
# HELP checkout_transitions_total Checkout state machine transitions by name and outcome
# TYPE checkout_transitions_total counter
checkout_transitions_total{outcome="ok",transition="proceed"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "checkout_transitions_total"))

	count, err := testutil.GatherAndCount(reg, "checkout_payments_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.Transition("back", "ok")
		m.Commit("ok", time.Second)
		m.Payment("sandbox", "failed")
		m.CapturedUnbooked()
		m.SetActiveSessions(1)
	})
}
