package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

// AppMetrics 自定义业务指标
type AppMetrics struct {
	FramesTotal        *prometheus.CounterVec // labels: command, result=ok|error
	BytesWritten       prometheus.Counter
	ValidationErrors   *prometheus.CounterVec // labels: field
	ThrottleRejected   prometheus.Counter
	ThrottleWait       prometheus.Histogram
	RecorderErrors     *prometheus.CounterVec // labels: recorder
	LastBrightness     prometheus.Gauge
	LastPattern        prometheus.Gauge
	APIRequestsTotal   *prometheus.CounterVec // labels: route, code
	TransportConnected prometheus.Gauge
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "novastar_frames_total",
			Help: "Command frames handed to the transport.",
		}, []string{"command", "result"}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "novastar_bytes_written_total",
			Help: "Total bytes written to the serial transport.",
		}),
		ValidationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "novastar_validation_errors_total",
			Help: "Commands rejected before frame construction.",
		}, []string{"field"}),
		ThrottleRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "novastar_throttle_rejected_total",
			Help: "Commands abandoned while waiting for the frame rate limiter.",
		}),
		ThrottleWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "novastar_throttle_wait_seconds",
			Help:    "Time commands spent waiting for the frame rate limiter.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		RecorderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "novastar_recorder_errors_total",
			Help: "Failures persisting command records.",
		}, []string{"recorder"}),
		LastBrightness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "novastar_brightness_level",
			Help: "Last brightness level written successfully.",
		}),
		LastPattern: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "novastar_test_pattern_code",
			Help: "Last test pattern code written successfully.",
		}),
		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "novastar_api_requests_total",
			Help: "Control API requests by route and status code.",
		}, []string{"route", "code"}),
		TransportConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "novastar_transport_connected",
			Help: "1 while the serial port is open.",
		}),
	}
	reg.MustRegister(
		m.FramesTotal, m.BytesWritten, m.ValidationErrors, m.ThrottleRejected, m.ThrottleWait, m.RecorderErrors,
		m.LastBrightness, m.LastPattern, m.APIRequestsTotal, m.TransportConnected,
	)
	return m
}
