// Package mailer 通过发件人所在邮箱服务商的 SMTP 服务器外发纯文本邮件
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrMalformedAddress 发件地址缺少域名部分
	ErrMalformedAddress = errors.New("mailer: malformed sender address")
	// ErrSend 投递阶段失败
	ErrSend = errors.New("mailer: send failed")
	// ErrAuth SMTP 认证被服务器拒绝
	ErrAuth = errors.New("mailer: authentication failed")
)

// Server 描述一个 SMTP 服务器端点
type Server struct {
	Host string
	Port int
	// StartTLS 为 true 时走 587 明文连接后升级，否则 465 直接 TLS
	StartTLS bool
}

// Addr 返回 host:port 形式的地址
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// 常见服务商的 SMTP 端点，outlook 系只提供 STARTTLS 提交端口
var servers = map[string]Server{
	"aol.com":     {Host: "smtp.aol.com", Port: 465},
	"gmail.com":   {Host: "smtp.gmail.com", Port: 465},
	"outlook.com": {Host: "smtp-mail.outlook.com", Port: 587, StartTLS: true},
	"hotmail.com": {Host: "smtp-mail.outlook.com", Port: 587, StartTLS: true},
	"yahoo.com":   {Host: "smtp.mail.yahoo.com", Port: 465},
	"163.com":     {Host: "smtp.163.com", Port: 465},
	"qq.com":      {Host: "smtp.qq.com", Port: 465},
}

// Message 一封待发送的纯文本邮件
type Message struct {
	From     string
	AuthCode string
	To       []string
	Subject  string
	Body     string
}

// Mailer 按发件域名路由的 SMTP 发送器，内置全局速率限制
type Mailer struct {
	overrides map[string]Server
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// Option 配置 Mailer 的可选项
type Option func(*Mailer)

// WithOverrides 以 domain -> host:port 的映射覆盖内置服务器表
func WithOverrides(raw map[string]string) Option {
	return func(m *Mailer) {
		for domain, addr := range raw {
			host, portStr, err := net.SplitHostPort(addr)
			if err != nil {
				continue
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				continue
			}
			m.overrides[strings.ToLower(domain)] = Server{
				Host:     host,
				Port:     port,
				StartTLS: port == 587,
			}
		}
	}
}

// WithTimeout 设置建连与单条命令的超时
func WithTimeout(d time.Duration) Option {
	return func(m *Mailer) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithRateLimit 设置发送速率，interval 为相邻两封之间的最小间隔
func WithRateLimit(interval time.Duration, burst int) Option {
	return func(m *Mailer) {
		if interval > 0 && burst > 0 {
			m.limiter = rate.NewLimiter(rate.Every(interval), burst)
		}
	}
}

// New 创建发送器
func New(logger *zap.Logger, opts ...Option) *Mailer {
	m := &Mailer{
		overrides: make(map[string]Server),
		timeout:   30 * time.Second,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 3),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ResolveServer 根据发件地址的域名选择 SMTP 服务器，
// 覆盖表优先于内置表，未知域名回退到 smtp.<domain>:465
func (m *Mailer) ResolveServer(from string) (Server, error) {
	at := strings.LastIndex(from, "@")
	if at <= 0 || at == len(from)-1 {
		return Server{}, fmt.Errorf("%w: %q", ErrMalformedAddress, from)
	}
	domain := strings.ToLower(from[at+1:])
	if srv, ok := m.overrides[domain]; ok {
		return srv, nil
	}
	if srv, ok := servers[domain]; ok {
		return srv, nil
	}
	return Server{Host: "smtp." + domain, Port: 465}, nil
}

// Send 发送一封邮件，阻塞直到投递完成或 ctx 结束
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrSend)
	}
	srv, err := m.ResolveServer(msg.From)
	if err != nil {
		return err
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}

	dialer := &net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", srv.Addr())
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrSend, srv.Addr(), err)
	}

	tlsConfig := &tls.Config{ServerName: srv.Host}
	var cl *smtp.Client
	if srv.StartTLS {
		cl, err = smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			conn.Close()
			return fmt.Errorf("%w: starttls: %v", ErrSend, err)
		}
	} else {
		cl = smtp.NewClient(tls.Client(conn, tlsConfig))
	}
	defer cl.Close()
	cl.CommandTimeout = m.timeout
	cl.SubmissionTimeout = m.timeout

	if err := cl.Auth(sasl.NewPlainClient("", msg.From, msg.AuthCode)); err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	raw := BuildPlainText(msg)
	if err := cl.SendMail(msg.From, msg.To, strings.NewReader(raw)); err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}

	m.logger.Info("邮件发送成功",
		zap.String("from", msg.From),
		zap.Int("recipients", len(msg.To)),
		zap.String("server", srv.Addr()),
	)
	return cl.Quit()
}

// BuildPlainText 组装 RFC 5322 纯文本邮件，主题按 RFC 2047 编码
func BuildPlainText(msg Message) string {
	var b strings.Builder
	b.WriteString("From: " + msg.From + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}
