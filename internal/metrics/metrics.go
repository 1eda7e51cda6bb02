package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taoyao-code/pad-bridge/internal/syncengine"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// 数据报处理结果
const (
	DatagramForwarded   = "forwarded"
	DatagramMalformed   = "malformed"
	DatagramRateLimited = "rate_limited"
	DatagramUnsynced    = "dropped_unsynced"
	DatagramFailed      = "send_failed"
	// 释放帧与随后的重新同步均失败，设备上的输入可能仍处于按下状态
	DatagramReleaseFailed = "release_failed"
)

// AppMetrics 转发业务指标
type AppMetrics struct {
	DatagramsTotal      *prometheus.CounterVec // labels: result
	UDPBytesReceived    prometheus.Counter
	SerialBytesReceived prometheus.Counter
	FramesTotal         *prometheus.CounterVec // labels: kind=command|neutral, result=ack|nack|timeout|unexpected
	ResyncTotal         *prometheus.CounterVec // labels: result=ok|fail
	SyncState           prometheus.Gauge       // syncengine.State 数值
	Degraded            prometheus.Gauge       // 1 表示降级运行
	AckLatency          prometheus.Histogram
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		DatagramsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "padbridge_datagrams_total",
			Help: "Inbound controller datagrams by handling result.",
		}, []string{"result"}),
		UDPBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "padbridge_udp_bytes_received_total",
			Help: "Total bytes received over UDP.",
		}),
		SerialBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "padbridge_serial_bytes_received_total",
			Help: "Total bytes received from the serial device.",
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "padbridge_frames_total",
			Help: "Frames written to the serial device by kind and acknowledgement result.",
		}, []string{"kind", "result"}),
		ResyncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "padbridge_resync_total",
			Help: "Forced resynchronisation attempts by result.",
		}, []string{"result"}),
		SyncState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "padbridge_sync_state",
			Help: "Current sync state (0=out_of_sync .. 4=synchronized).",
		}),
		Degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "padbridge_degraded",
			Help: "1 while the bridge runs without a confirmed synchronised link.",
		}),
		AckLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "padbridge_ack_latency_seconds",
			Help:    "Time from frame write to the device reply.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}
	reg.MustRegister(m.DatagramsTotal, m.UDPBytesReceived, m.SerialBytesReceived, m.FramesTotal,
		m.ResyncTotal, m.SyncState, m.Degraded, m.AckLatency)
	return m
}

// ObserveDatagram 记录一次数据报处理结果
func (m *AppMetrics) ObserveDatagram(result string) {
	m.DatagramsTotal.WithLabelValues(result).Inc()
}

// SetDegraded 更新降级标志
func (m *AppMetrics) SetDegraded(degraded bool) {
	if degraded {
		m.Degraded.Set(1)
		return
	}
	m.Degraded.Set(0)
}

// ObserveFrame 实现 syncengine.Recorder
func (m *AppMetrics) ObserveFrame(kind, result string, latency time.Duration) {
	m.FramesTotal.WithLabelValues(kind, result).Inc()
	if result != syncengine.ResultTimeout {
		m.AckLatency.Observe(latency.Seconds())
	}
}

// ObserveResync 实现 syncengine.Recorder
func (m *AppMetrics) ObserveResync(ok bool) {
	if ok {
		m.ResyncTotal.WithLabelValues("ok").Inc()
		return
	}
	m.ResyncTotal.WithLabelValues("fail").Inc()
}

// SetSyncState 实现 syncengine.Recorder
func (m *AppMetrics) SetSyncState(s syncengine.State) {
	m.SyncState.Set(float64(s))
}

var _ syncengine.Recorder = (*AppMetrics)(nil)
