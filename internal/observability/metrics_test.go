package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/login", "POST", 302, time.Millisecond)
	m.RecordRequest("/login", "POST", 302, time.Millisecond)
	m.RecordError("/login", "POST", "AUTHENTICATION_FAILED")
	m.RecordSignIn("success")
	m.RecordGuard("/finance", "redirect_unauthorized")
	m.RecordChannel("opened")
	m.RecordChannel("opened")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap["requests"]["/login|POST|302"])
	assert.Equal(t, int64(1), snap["errors"]["/login|POST|AUTHENTICATION_FAILED"])
	assert.Equal(t, int64(1), snap["sign_ins"]["success"])
	assert.Equal(t, int64(1), snap["guard"]["/finance|redirect_unauthorized"])
	assert.Equal(t, int64(2), m.ChannelCount("opened"))
	assert.Equal(t, []string{"/login|POST|302"}, Keys(snap["requests"]))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordSignIn("success")
	m.RecordChannel("opened")
	assert.Zero(t, m.ChannelCount("opened"))
	assert.Empty(t, m.Snapshot())
}
