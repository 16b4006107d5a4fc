package crawler

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"
)

// Account IMAP 登录凭证
type Account struct {
	Email    string
	AuthCode string
}

// Window IMAP 搜索时间窗口
//
// SINCE 含当天，BEFORE 不含当天，因此 Before 应为结束日期的次日。
type Window struct {
	Since  time.Time
	Before time.Time
}

// NewWindow 按起止日期（含两端）构造搜索窗口，零值日期表示该端不设边界
func NewWindow(startDate, endDate time.Time) Window {
	w := Window{Since: startDate}
	if !endDate.IsZero() {
		w.Before = endDate.AddDate(0, 0, 1)
	}
	return w
}

// RawMessage 单封邮件的原始头块
type RawMessage struct {
	UID    uint32
	Header []byte
}

// HeaderStream 邮件头的流式读取器，Next 返回 false 后用 Err 区分正常结束与失败
type HeaderStream interface {
	Next() bool
	Message() RawMessage
	Err() error
	// Received 已收到的邮件数，与派发数比对形成文件夹完成屏障
	Received() int
}

// Conn 一个已登录的 IMAP 会话
type Conn interface {
	// SelectFolder 以只读方式选择文件夹，失败返回 ErrFolderUnavailable
	SelectFolder(name string) error
	// Search 在当前文件夹执行 UID 搜索
	Search(window Window) ([]uint32, error)
	// FetchHeaders 流式拉取邮件头，只取 BODY.PEEK[HEADER]，不置已读
	FetchHeaders(ctx context.Context, uids []uint32) HeaderStream
	// Close 发送 LOGOUT 正常关闭
	Close() error
	// Terminate 强制断开底层连接，截止时间到达时唤醒阻塞的读取
	Terminate() error
}

// Dialer 建立 IMAP 会话
type Dialer interface {
	Dial(ctx context.Context, account Account) (Conn, error)
}

// TLSDialer 按邮箱域名解析服务商并建立 TLS IMAP 连接
type TLSDialer struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	// 部分服务商的证书链在老系统上无法校验，沿用线上部署的放宽策略；
	// 凭证只发往由邮箱域名推导出的服务器。
	InsecureSkipVerify bool
	Logger             *zap.Logger
}

var _ Dialer = (*TLSDialer)(nil)

// Dial 解析服务商、建连并登录
func (d *TLSDialer) Dial(_ context.Context, account Account) (Conn, error) {
	provider, err := ResolveProvider(account.Email)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		ServerName:         provider.Host,
		InsecureSkipVerify: d.InsecureSkipVerify,
	}
	dialer := &net.Dialer{Timeout: d.ConnectTimeout}

	cl, err := client.DialWithDialerTLS(dialer, provider.Addr(), tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, provider.Addr(), err)
	}
	cl.Timeout = d.CommandTimeout

	if err := cl.Login(account.Email, account.AuthCode); err != nil {
		_ = cl.Logout()
		return nil, fmt.Errorf("%w: %s: %v", ErrAuth, account.Email, err)
	}

	if d.Logger != nil {
		d.Logger.Debug("IMAP 登录成功",
			zap.String("email", account.Email),
			zap.String("server", provider.Addr()),
		)
	}

	return &imapConn{cl: cl}, nil
}

type imapConn struct {
	cl *client.Client
}

func (c *imapConn) SelectFolder(name string) error {
	if _, err := c.cl.Select(name, true); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFolderUnavailable, name, err)
	}
	return nil
}

func (c *imapConn) Search(window Window) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	if !window.Since.IsZero() {
		criteria.Since = window.Since
	}
	if !window.Before.IsZero() {
		criteria.Before = window.Before
	}

	uids, err := c.cl.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	return uids, nil
}

func (c *imapConn) FetchHeaders(ctx context.Context, uids []uint32) HeaderStream {
	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.HeaderSpecifier},
		Peek:         true,
	}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)

	if len(uids) == 0 {
		close(messages)
		done <- nil
		return &fetchStream{ctx: ctx, messages: messages, done: done, section: section}
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	go func() {
		done <- c.cl.UidFetch(seqset, items, messages)
	}()

	return &fetchStream{ctx: ctx, messages: messages, done: done, section: section}
}

func (c *imapConn) Close() error {
	return c.cl.Logout()
}

func (c *imapConn) Terminate() error {
	return c.cl.Terminate()
}

// fetchStream 包装 UidFetch 的消息通道
type fetchStream struct {
	ctx      context.Context
	messages chan *imap.Message
	done     chan error
	section  *imap.BodySectionName

	current  RawMessage
	received int
	err      error
}

func (s *fetchStream) Next() bool {
	for {
		select {
		case <-s.ctx.Done():
			s.err = s.ctx.Err()
			// 连接被强制断开后服务端命令会出错返回，
			// 排空通道让拉取协程退出
			go func() {
				for range s.messages {
				}
			}()
			return false
		case msg, ok := <-s.messages:
			if !ok {
				if err := <-s.done; err != nil {
					s.err = fmt.Errorf("%w: %v", ErrFetch, err)
				}
				return false
			}

			body := msg.GetBody(s.section)
			if body == nil {
				continue
			}
			raw, err := io.ReadAll(body)
			if err != nil {
				continue
			}
			s.current = RawMessage{UID: msg.Uid, Header: raw}
			s.received++
			return true
		}
	}
}

func (s *fetchStream) Message() RawMessage { return s.current }
func (s *fetchStream) Err() error          { return s.err }
func (s *fetchStream) Received() int       { return s.received }
