package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveBackendCall("ListCourses", "ok", 20*time.Millisecond)
	m.ObserveBackendCall("ListCourses", "ok", 10*time.Millisecond)
	m.ObserveBackendCall("ListCourses", "error", time.Millisecond)
	m.ObserveGuardDecision("/admin", "redirect")
	m.ObserveLogin("success")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BackendCalls.WithLabelValues("ListCourses", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendCalls.WithLabelValues("ListCourses", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisions.WithLabelValues("/admin", "redirect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("success")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBackendCall("Login", "ok", time.Second)
		m.ObserveGuardDecision("/admin", "allow")
		m.ObserveLogin("failure")
	})
}
