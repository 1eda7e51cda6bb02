package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/pad-bridge/internal/syncengine"
)

func TestAppMetricsRecorder(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)

	m.ObserveFrame(syncengine.KindCommand, syncengine.ResultAck, 3*time.Millisecond)
	m.ObserveFrame(syncengine.KindNeutral, syncengine.ResultTimeout, time.Second)
	m.ObserveResync(true)
	m.ObserveResync(false)
	m.ObserveResync(false)
	m.SetSyncState(syncengine.StateSynchronized)
	m.ObserveDatagram(DatagramMalformed)
	m.SetDegraded(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("command", "ack")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("neutral", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResyncTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResyncTotal.WithLabelValues("fail")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SyncState))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatagramsTotal.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Degraded))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)
	m.UDPBytesReceived.Add(8)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "padbridge_udp_bytes_received_total 8"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
