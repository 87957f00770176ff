package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paynotify"

// Recorder 回调处理指标
type Recorder struct {
	gatherer         prometheus.Gatherer
	notifyTotal      *prometheus.CounterVec
	notifyDuration   *prometheus.HistogramVec
	dispatchTotal    *prometheus.CounterVec
	relayTotal       *prometheus.CounterVec
	rateLimitedTotal prometheus.Counter
}

// NewRecorder 使用独立 Registry 创建指标，测试中每个用例互不影响
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewRecorderWithRegistry(reg, reg)
}

// NewRecorderWithRegistry 在指定 Registry 上注册指标
func NewRecorderWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	r := &Recorder{
		gatherer: gatherer,
		notifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_total",
			Help:      "Asynchronous payment notifications by payload kind and outcome",
		}, []string{"source", "kind", "result"}),
		notifyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notify_duration_seconds",
			Help:      "Time spent decoding, decrypting and verifying a notification",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"source"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Verified notifications handed to the dispatch queue",
		}, []string{"result"}),
		relayTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_total",
			Help:      "Relay attempts of verified notifications to the downstream service",
		}, []string{"result"}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_rate_limited_total",
			Help:      "Callback requests rejected by the rate limiter",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.notifyTotal, r.notifyDuration, r.dispatchTotal, r.relayTotal, r.rateLimitedTotal)
	}
	return r
}

// ObserveNotify 记录一次回调处理结果，result 取 jdpay.ErrorReason
func (r *Recorder) ObserveNotify(source, kind, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	r.notifyTotal.WithLabelValues(source, kind, result).Inc()
	r.notifyDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveDispatch 记录入队结果：enqueued / duplicate / skipped / failed
func (r *Recorder) ObserveDispatch(result string) {
	if r == nil {
		return
	}
	r.dispatchTotal.WithLabelValues(result).Inc()
}

// ObserveRelay 记录下游转发结果
func (r *Recorder) ObserveRelay(success bool) {
	if r == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	r.relayTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimited 记录被限流的回调请求
func (r *Recorder) ObserveRateLimited() {
	if r == nil {
		return
	}
	r.rateLimitedTotal.Inc()
}

// Handler /metrics 输出
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
