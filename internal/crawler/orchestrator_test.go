package crawler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func header(from, subject string) []byte {
	return []byte(fmt.Sprintf("From: %s\r\nSubject: %s\r\n\r\n", from, subject))
}

// fakeStream 从内存切片回放邮件头
type fakeStream struct {
	ctx      context.Context
	msgs     []RawMessage
	idx      int
	received int
	err      error
	// blockCh 非 nil 时在回放完 msgs 后阻塞，直到连接被强制断开，
	// 模拟卡在网络读上的慢服务器
	blockCh <-chan struct{}
}

func (s *fakeStream) Next() bool {
	if s.idx < len(s.msgs) {
		s.idx++
		s.received++
		return true
	}
	if s.blockCh != nil {
		<-s.blockCh
		s.err = s.ctx.Err()
	}
	return false
}

func (s *fakeStream) Message() RawMessage { return s.msgs[s.idx-1] }
func (s *fakeStream) Err() error          { return s.err }
func (s *fakeStream) Received() int       { return s.received }

// fakeConn 以 map 模拟按文件夹存放的邮箱
type fakeConn struct {
	mu         sync.Mutex
	folders    map[string][]RawMessage
	searchErrs map[string]error
	fetchBlock map[string]bool

	termOnce sync.Once
	termCh   chan struct{}

	selected   string
	closed     bool
	terminated bool
}

func newFakeConn(folders map[string][]RawMessage) *fakeConn {
	return &fakeConn{folders: folders, termCh: make(chan struct{})}
}

func (c *fakeConn) SelectFolder(name string) error {
	if _, ok := c.folders[name]; !ok {
		return fmt.Errorf("%w: %s", ErrFolderUnavailable, name)
	}
	c.selected = name
	return nil
}

func (c *fakeConn) Search(_ Window) ([]uint32, error) {
	if err := c.searchErrs[c.selected]; err != nil {
		return nil, err
	}
	uids := make([]uint32, len(c.folders[c.selected]))
	for i, m := range c.folders[c.selected] {
		uids[i] = m.UID
	}
	return uids, nil
}

func (c *fakeConn) FetchHeaders(ctx context.Context, uids []uint32) HeaderStream {
	s := &fakeStream{ctx: ctx, msgs: c.folders[c.selected]}
	if c.fetchBlock[c.selected] {
		s.blockCh = c.termCh
	}
	return s
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Terminate() error {
	c.mu.Lock()
	c.terminated = true
	c.mu.Unlock()
	c.termOnce.Do(func() { close(c.termCh) })
	return nil
}

type fakeDialer struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Dial(_ context.Context, _ Account) (Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func testWindow() Window {
	return NewWindow(
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC),
	)
}

func TestNewWindow_BeforeIsExclusive(t *testing.T) {
	w := testWindow()
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), w.Since)
	// BEFORE 不含当天，结束日期需加一天才能覆盖整个 6 月 7 日
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), w.Before)
}

func TestNewWindow_ZeroDatesUnbounded(t *testing.T) {
	w := NewWindow(time.Time{}, time.Time{})
	assert.True(t, w.Since.IsZero())
	assert.True(t, w.Before.IsZero())
}

func TestCrawl_FromHeaderModeDedup(t *testing.T) {
	conn := newFakeConn(map[string][]RawMessage{
		"INBOX": {
			{UID: 1, Header: header("Buyer <Foo@Bar.com>", "velolink order 1")},
			{UID: 2, Header: header("Other <other@example.com>", "unrelated topic")},
		},
		"Junk": {
			{UID: 3, Header: header("Buyer <foo@bar.com>", "Velolink order 2")},
			{UID: 4, Header: header("Second <second@example.com>", "VELOLINK promo")},
		},
	})
	o := NewOrchestrator(&fakeDialer{conn: conn}, nil, zap.NewNop())

	result, err := o.Crawl(context.Background(), Request{
		Account: Account{Email: "crawl@aol.com", AuthCode: "code"},
		Keyword: "velolink",
		Window:  testWindow(),
		Folders: []string{"INBOX", "Junk"},
		Mode:    ModeFromHeader,
	})
	require.NoError(t, err)

	// 大小写折叠去重，保持首次出现顺序
	assert.Equal(t, []string{"foo@bar.com", "second@example.com"}, result.Emails)
	assert.False(t, result.Partial)
	assert.True(t, conn.closed)

	require.Len(t, result.Folders, 2)
	assert.Equal(t, 2, result.Folders[0].Dispatched)
	assert.Equal(t, 2, result.Folders[0].Processed)
	assert.Equal(t, 1, result.Folders[0].Matched)
}

func TestCrawl_SubjectMode(t *testing.T) {
	conn := newFakeConn(map[string][]RawMessage{
		"INBOX": {
			{UID: 1, Header: header("amazon@marketplace.com", "Velolink - Order ID:6859126-8354657_by_matmorgen@aol.com")},
			{UID: 2, Header: header("amazon@marketplace.com", "Velolink Order By jane.doe@example.com")},
		},
	})
	o := NewOrchestrator(&fakeDialer{conn: conn}, nil, zap.NewNop())

	result, err := o.Crawl(context.Background(), Request{
		Account: Account{Email: "crawl@aol.com", AuthCode: "code"},
		Keyword: "velolink",
		Window:  testWindow(),
		Folders: []string{"INBOX"},
		Mode:    ModeSubject,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"matmorgen@aol.com", "jane.doe@example.com"}, result.Emails)
}

func TestCrawl_FolderUnavailableSkipped(t *testing.T) {
	conn := newFakeConn(map[string][]RawMessage{
		"INBOX": {{UID: 1, Header: header("a@b.com", "velolink hit")}},
	})
	o := NewOrchestrator(&fakeDialer{conn: conn}, nil, zap.NewNop())

	result, err := o.Crawl(context.Background(), Request{
		Account: Account{Email: "crawl@aol.com"},
		Keyword: "velolink",
		Window:  testWindow(),
		Folders: []string{"NoSuchFolder", "INBOX"},
	})
	require.NoError(t, err)

	require.Len(t, result.Folders, 2)
	assert.True(t, result.Folders[0].Skipped)
	assert.Equal(t, []string{"a@b.com"}, result.Emails)
}

func TestCrawl_SearchErrorIsFolderGranular(t *testing.T) {
	conn := newFakeConn(map[string][]RawMessage{
		"INBOX": {{UID: 1, Header: header("a@b.com", "velolink hit")}},
		"Junk":  {{UID: 2, Header: header("c@d.com", "velolink hit")}},
	})
	conn.searchErrs = map[string]error{"INBOX": fmt.Errorf("%w: boom", ErrSearch)}
	o := NewOrchestrator(&fakeDialer{conn: conn}, nil, zap.NewNop())

	result, err := o.Crawl(context.Background(), Request{
		Account: Account{Email: "crawl@aol.com"},
		Keyword: "velolink",
		Window:  testWindow(),
		Folders: []string{"INBOX", "Junk"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Folders[0].Error)
	assert.Equal(t, []string{"c@d.com"}, result.Emails)
}

func TestCrawl_AuthErrorIsFatal(t *testing.T) {
	o := NewOrchestrator(&fakeDialer{err: fmt.Errorf("%w: bad credentials", ErrAuth)}, nil, zap.NewNop())

	_, err := o.Crawl(context.Background(), Request{
		Account: Account{Email: "crawl@aol.com"},
		Keyword: "velolink",
		Window:  testWindow(),
	})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestCrawl_DeadlineReturnsPartialResult(t *testing.T) {
	conn := newFakeConn(map[string][]RawMessage{
		"INBOX": {{UID: 1, Header: header("early@bird.com", "velolink hit")}},
		"Junk":  {},
	})
	conn.fetchBlock = map[string]bool{"Junk": true}
	o := NewOrchestrator(&fakeDialer{conn: conn}, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := o.Crawl(ctx, Request{
		Account: Account{Email: "crawl@aol.com"},
		Keyword: "velolink",
		Window:  testWindow(),
		Folders: []string{"INBOX", "Junk", "Trash"},
	})
	require.NoError(t, err)

	// 第一个文件夹的结果保留，后续文件夹不再访问
	assert.True(t, result.Partial)
	assert.Equal(t, []string{"early@bird.com"}, result.Emails)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.True(t, conn.terminated)
	assert.True(t, conn.closed)
}
