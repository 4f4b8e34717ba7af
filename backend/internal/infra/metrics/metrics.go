package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce           sync.Once
	gameDataOperations     *prometheus.CounterVec
	authAttempts           *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	defaultDurationBuckets = prometheus.DefBuckets
)

const (
	namespaceMetrics = "sphere"
)

// 结果标签的取值。
const (
	ResultSuccess   = "success"
	ResultInvalid   = "invalid"
	ResultNotFound  = "not_found"
	ResultError     = "error"
	ResultRejected  = "rejected"
	ResultReused    = "reused"
)

// MustRegister 初始化 Prometheus 指标并注册 Go 运行时采样器，需在应用启动阶段调用一次。
func MustRegister() {
	registerOnce.Do(func() {
		gameDataOperations = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "gamedata",
					Name:      "operations_total",
					Help:      "遥测记录的增删改查次数，按操作与结果统计。",
				},
				[]string{"operation", "result"},
			),
		)
		authAttempts = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "auth",
					Name:      "attempts_total",
					Help:      "登录、登出与令牌校验次数，按结果统计。",
				},
				[]string{"operation", "result"},
			),
		)
		httpRequestDuration = registerHistogramVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespaceMetrics,
					Subsystem: "http",
					Name:      "request_duration_seconds",
					Help:      "HTTP 请求耗时，按方法、路由模板与状态码区分。",
					Buckets:   defaultDurationBuckets,
				},
				[]string{"method", "route", "status"},
			),
		)

		registerRuntimeCollectors()
	})
}

// RecordGameDataOperation 记录一次遥测记录操作的结果。
func RecordGameDataOperation(operation, result string) {
	if gameDataOperations == nil {
		return
	}
	gameDataOperations.WithLabelValues(normalizeLabel(operation, "unknown"), normalizeLabel(result, "unknown")).Inc()
}

// RecordAuthAttempt 记录一次认证相关操作的结果。
func RecordAuthAttempt(operation, result string) {
	if authAttempts == nil {
		return
	}
	authAttempts.WithLabelValues(normalizeLabel(operation, "unknown"), normalizeLabel(result, "unknown")).Inc()
}

// ObserveHTTPRequest 记录 HTTP 请求耗时；route 为空时归入 unmatched，避免路径参数撑爆标签基数。
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if httpRequestDuration == nil {
		return
	}
	httpRequestDuration.
		WithLabelValues(normalizeLabel(method, "UNKNOWN"), normalizeLabel(route, "unmatched"), strconv.Itoa(status)).
		Observe(duration.Seconds())
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredCounterVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerHistogramVec(vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredHistogramVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerRuntimeCollectors() {
	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
}

func alreadyRegisteredCounterVec(err error) *prometheus.CounterVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
	}
	return nil
}

func alreadyRegisteredHistogramVec(err error) *prometheus.HistogramVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
			return existing
		}
	}
	return nil
}

func isAlreadyRegistered(err error) bool {
	_, ok := err.(prometheus.AlreadyRegisteredError)
	return ok
}
