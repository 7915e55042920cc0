package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
//
// 使用独立注册表，避免多实例（测试）重复注册 panic
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 公文流程指标
	LettersCreated     prometheus.Counter
	LettersSubmitted   prometheus.Counter
	LettersApproved    prometheus.Counter
	LettersRejected    prometheus.Counter
	LettersSigned      prometheus.Counter
	TransitionConflict prometheus.Counter

	// 魔法链接指标
	LinksIssued   *prometheus.CounterVec
	LinksConsumed *prometheus.CounterVec
	LinksExpired  prometheus.Counter

	// 通知指标
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter

	// 盖章服务指标
	StampDuration prometheus.Histogram
	StampFailures prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esurat_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esurat_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		LettersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "esurat_letters_created_total",
			Help: "Total number of letters created",
		}),
		LettersSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "esurat_letters_submitted_total",
			Help: "Total number of letters submitted for approval",
		}),
		LettersApproved: factory.NewCounter(prometheus.CounterOpts{
			Name: "esurat_letters_approved_total",
			Help: "Total number of approval actions applied",
		}),
		LettersRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "esurat_letters_rejected_total",
			Help: "Total number of letters rejected",
		}),
		LettersSigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "esurat_letters_signed_total",
			Help: "Total number of letters signed",
		}),
		TransitionConflict: factory.NewCounter(prometheus.CounterOpts{
			Name: "esurat_transition_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts",
		}),

		LinksIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esurat_magic_links_issued_total",
				Help: "Total number of magic links issued",
			},
			[]string{"action"},
		),
		LinksConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esurat_magic_links_consumed_total",
				Help: "Total number of magic links consumed",
			},
			[]string{"action"},
		),
		LinksExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "esurat_magic_links_expired_total",
			Help: "Total number of expired magic links purged",
		}),

		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "esurat_notifications_sent_total",
			Help: "Total number of WhatsApp notifications sent",
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "esurat_notifications_failed_total",
			Help: "Total number of failed notification deliveries",
		}),

		StampDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "esurat_stamp_duration_seconds",
			Help:    "PDF stamping duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		StampFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "esurat_stamp_failures_total",
			Help: "Total number of failed stamping calls",
		}),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esurat_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),
		PanicsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "esurat_panics_total",
			Help: "Total number of panics",
		}),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordLinkIssued 记录链接签发
func (m *Metrics) RecordLinkIssued(action string) {
	m.LinksIssued.WithLabelValues(action).Inc()
}

// RecordLinkConsumed 记录链接消费
func (m *Metrics) RecordLinkConsumed(action string) {
	m.LinksConsumed.WithLabelValues(action).Inc()
}

// RecordLinksPurged 记录清理的过期链接数
func (m *Metrics) RecordLinksPurged(count int) {
	m.LinksExpired.Add(float64(count))
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
