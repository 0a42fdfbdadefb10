// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 結果ラベルの値
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultInvalid = "invalid"
	ResultRevoked = "revoked"
)

// MetricsCollector はメトリクス収集のインターフェース。
// セッション管理・認証・面接生成から利用する。
type MetricsCollector interface {
	RecordSessionIssued(result string)
	RecordSessionVerification(result string)
	RecordSignIn(result string)
	RecordUserProvisioned()
	RecordGenerationLatency(duration time.Duration)
	RecordGenerationFailure(reason string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	sessionIssued       *prometheus.CounterVec
	sessionVerification *prometheus.CounterVec
	signIn              *prometheus.CounterVec
	usersProvisioned    prometheus.Counter
	generationLatency   prometheus.Histogram
	generationFail      *prometheus.CounterVec
	httpStatus          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewprep_session_issued_total",
			Help: "セッションCookie発行の結果別件数",
		}, []string{"result"}),
		sessionVerification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewprep_session_verification_total",
			Help: "セッションCookie検証の結果別件数",
		}, []string{"result"}),
		signIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewprep_sign_in_total",
			Help: "サインインの結果別件数",
		}, []string{"result"}),
		usersProvisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interviewprep_users_provisioned_total",
			Help: "新規作成されたユーザープロフィールの合計数",
		}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "interviewprep_generation_latency_seconds",
			Help:    "面接質問生成のレイテンシ（秒）",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		generationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewprep_generation_fail_total",
			Help: "面接質問生成の失敗理由別件数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewprep_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.sessionIssued,
		c.sessionVerification,
		c.signIn,
		c.usersProvisioned,
		c.generationLatency,
		c.generationFail,
		c.httpStatus,
	)

	return c
}

// RecordSessionIssued はセッションCookie発行の結果を記録する。
func (c *Collector) RecordSessionIssued(result string) {
	c.sessionIssued.WithLabelValues(result).Inc()
}

// RecordSessionVerification はセッションCookie検証の結果を記録する。
func (c *Collector) RecordSessionVerification(result string) {
	c.sessionVerification.WithLabelValues(result).Inc()
}

// RecordSignIn はサインインの結果を記録する。
func (c *Collector) RecordSignIn(result string) {
	c.signIn.WithLabelValues(result).Inc()
}

// RecordUserProvisioned はプロフィールの遅延作成を記録する。
func (c *Collector) RecordUserProvisioned() {
	c.usersProvisioned.Inc()
}

// RecordGenerationLatency は面接質問生成のレイテンシを記録する。
func (c *Collector) RecordGenerationLatency(duration time.Duration) {
	c.generationLatency.Observe(duration.Seconds())
}

// RecordGenerationFailure は面接質問生成の失敗を記録する。
func (c *Collector) RecordGenerationFailure(reason string) {
	c.generationFail.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordSessionIssued(string)            {}
func (Nop) RecordSessionVerification(string)      {}
func (Nop) RecordSignIn(string)                   {}
func (Nop) RecordUserProvisioned()                {}
func (Nop) RecordGenerationLatency(time.Duration) {}
func (Nop) RecordGenerationFailure(string)        {}
func (Nop) RecordHTTPStatus(int)                  {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
