package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chat and index Prometheus metrics.
var (
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "chat_requests_total",
			Help:      "Total number of chat requests",
		},
		[]string{"mode", "status"}, // mode: "stream" / "sync"
	)

	ChatStreamFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "chat_stream_frames_total",
			Help:      "Total streaming frames emitted by frame type",
		},
		[]string{"type"}, // "sources" / "chunk" / "done" / "error"
	)

	IndexRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "index_rebuilds_total",
			Help:      "Total retrieval index rebuilds",
		},
		[]string{"status"}, // "success" / "error"
	)

	IndexChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "portfolio",
			Name:      "index_chunks",
			Help:      "Number of embedded chunks in the current retrieval index",
		},
	)
)

var chatMetricsRegistered bool

// RegisterChatMetrics registers Prometheus chat/index metrics. Must be called once from main.
func RegisterChatMetrics() {
	if chatMetricsRegistered {
		return
	}
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatStreamFramesTotal)
	prometheus.MustRegister(IndexRebuildsTotal)
	prometheus.MustRegister(IndexChunks)
	chatMetricsRegistered = true
}
