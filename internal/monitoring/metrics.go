package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 抓取指标
	CrawlRunsTotal     *prometheus.CounterVec
	CrawlAccountErrors prometheus.Counter
	CrawlEmailsFound   prometheus.Counter
	CrawlDuration      prometheus.Histogram

	// 客户写入指标
	CustomersInserted prometheus.Counter
	CustomersSkipped  prometheus.Counter

	// 认证指标
	LoginFailures    prometheus.Counter
	LoginRateBlocked prometheus.Counter

	// 外发邮件指标
	MailSent       prometheus.Counter
	MailSendErrors prometheus.Counter

	// 错误指标
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amzsaas_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "amzsaas_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		CrawlRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amzsaas_crawl_runs_total",
				Help: "Total number of crawl runs by result",
			},
			[]string{"trigger", "result"},
		),

		CrawlAccountErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "amzsaas_crawl_account_errors_total",
				Help: "Total number of account-level crawl failures",
			},
		),

		CrawlEmailsFound: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "amzsaas_crawl_emails_found_total",
				Help: "Total number of sender addresses extracted",
			},
		),

		CrawlDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "amzsaas_crawl_duration_seconds",
				Help:    "Crawl run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),

		CustomersInserted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "amzsaas_customers_inserted_total",
				Help: "Total number of customers inserted by bulk upsert",
			},
		),

		CustomersSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "amzsaas_customers_skipped_total",
				Help: "Total number of duplicate customers skipped by bulk upsert",
			},
		),

		LoginFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "amzsaas_login_failures_total",
				Help: "Total number of failed login attempts",
			},
		),

		LoginRateBlocked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "amzsaas_login_rate_blocked_total",
				Help: "Total number of logins rejected by rate limiting",
			},
		),

		MailSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "amzsaas_mail_sent_total",
				Help: "Total number of outbound mails sent",
			},
		),

		MailSendErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "amzsaas_mail_send_errors_total",
				Help: "Total number of outbound mail failures",
			},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "amzsaas_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCrawlRun 记录一次抓取运行
func (m *Metrics) RecordCrawlRun(trigger, result string, duration time.Duration, emailsFound int) {
	m.CrawlRunsTotal.WithLabelValues(trigger, result).Inc()
	m.CrawlDuration.Observe(duration.Seconds())
	m.CrawlEmailsFound.Add(float64(emailsFound))
}

// RecordCrawlAccountError 记录账户级抓取失败
func (m *Metrics) RecordCrawlAccountError() {
	m.CrawlAccountErrors.Inc()
}

// RecordUpsert 记录批量写入结果
func (m *Metrics) RecordUpsert(inserted, skipped int) {
	m.CustomersInserted.Add(float64(inserted))
	m.CustomersSkipped.Add(float64(skipped))
}

// RecordLoginFailure 记录登录失败
func (m *Metrics) RecordLoginFailure() {
	m.LoginFailures.Inc()
}

// RecordLoginBlocked 记录被限流拒绝的登录
func (m *Metrics) RecordLoginBlocked() {
	m.LoginRateBlocked.Inc()
}

// RecordMailSent 记录外发邮件
func (m *Metrics) RecordMailSent(err error) {
	if err != nil {
		m.MailSendErrors.Inc()
		return
	}
	m.MailSent.Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
