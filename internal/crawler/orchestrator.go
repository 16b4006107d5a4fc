package crawler

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultFolders 默认的文件夹候选列表。发件箱命名各服务商不一，
// 列出常见变体；垃圾箱里也常有被误判的订单通知
var DefaultFolders = []string{
	"INBOX",
	"Sent", "Sent Messages", "Sent Items",
	"Junk", "Spam", "Bulk Mail", "Deleted", "Trash",
}

// Request 单个账户的一次抓取请求
type Request struct {
	Account Account
	Keyword string // 主题关键词，大小写不敏感的子串匹配
	Window  Window
	Folders []string    // 为空时使用 DefaultFolders
	Mode    ExtractMode // 为空时默认 ModeFromHeader
}

// FolderStats 单个文件夹的抓取统计
type FolderStats struct {
	Folder      string `json:"folder"`
	Skipped     bool   `json:"skipped"`           // 文件夹不可用被跳过
	Dispatched  int    `json:"dispatched"`        // 搜索命中的邮件数
	Processed   int    `json:"processed"`         // 实际处理的邮件数
	Matched     int    `json:"matched"`           // 关键词匹配且提取到地址的邮件数
	ParseErrors int    `json:"parseErrors"`       // 单封解析失败数
	Error       string `json:"error,omitempty"`   // 文件夹级错误
}

// Result 一次抓取的结果
type Result struct {
	Emails  []string      // 去重后的小写地址，按首次出现顺序
	Folders []FolderStats // 逐文件夹统计
	Partial bool          // 截止时间到达，返回的是部分结果
	Elapsed time.Duration
}

// Orchestrator 多文件夹抓取编排器
//
// 连接与认证失败对账户致命；文件夹不可用跳过；搜索与拉取失败只影响
// 当前文件夹。整轮共享一个截止时间，超时强制断开连接并把已累计的
// 结果作为部分成功返回。
type Orchestrator struct {
	dialer  Dialer
	subject SubjectExtractor
	logger  *zap.Logger
}

// NewOrchestrator 创建编排器，subject 为 nil 时使用订单通知默认策略
func NewOrchestrator(dialer Dialer, subject SubjectExtractor, logger *zap.Logger) *Orchestrator {
	if subject == nil {
		subject = OrderSubjectExtractor{}
	}
	return &Orchestrator{
		dialer:  dialer,
		subject: subject,
		logger:  logger,
	}
}

// Crawl 执行一次抓取
//
// ctx 携带整轮的截止时间。返回错误仅发生在连接或认证失败；
// 截止时间触发时返回 Partial=true 的成功结果。
func (o *Orchestrator) Crawl(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	folders := req.Folders
	if len(folders) == 0 {
		folders = DefaultFolders
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeFromHeader
	}
	keyword := strings.ToLower(strings.TrimSpace(req.Keyword))

	conn, err := o.dialer.Dial(ctx, req.Account)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// 截止时间到达时强制断开，唤醒阻塞在网络读上的拉取
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Terminate()
		case <-watchDone:
		}
	}()

	result := &Result{}
	seen := make(map[string]bool)

	for _, folder := range folders {
		if ctx.Err() != nil {
			result.Partial = true
			break
		}

		stats := FolderStats{Folder: folder}

		if err := conn.SelectFolder(folder); err != nil {
			stats.Skipped = true
			result.Folders = append(result.Folders, stats)
			o.logger.Debug("文件夹不可用，跳过",
				zap.String("email", req.Account.Email),
				zap.String("folder", folder),
			)
			continue
		}

		uids, err := conn.Search(req.Window)
		if err != nil {
			if ctx.Err() != nil {
				result.Partial = true
				result.Folders = append(result.Folders, stats)
				break
			}
			stats.Error = err.Error()
			result.Folders = append(result.Folders, stats)
			o.logger.Warn("搜索失败",
				zap.String("email", req.Account.Email),
				zap.String("folder", folder),
				zap.Error(err),
			)
			continue
		}
		stats.Dispatched = len(uids)

		stream := conn.FetchHeaders(ctx, uids)
		for stream.Next() {
			msg := stream.Message()
			header, err := ParseHeader(msg.Header)
			if err != nil {
				stats.ParseErrors++
				stats.Processed++
				continue
			}
			stats.Processed++

			if keyword != "" && !strings.Contains(strings.ToLower(header.Subject), keyword) {
				continue
			}

			sender, ok := o.extractSender(header, mode)
			if !ok {
				o.logger.Debug("未提取到地址",
					zap.Uint32("uid", msg.UID),
					zap.String("folder", folder),
				)
				continue
			}
			stats.Matched++
			if !seen[sender] {
				seen[sender] = true
				result.Emails = append(result.Emails, sender)
			}
		}

		if err := stream.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				result.Partial = true
				result.Folders = append(result.Folders, stats)
				o.logger.Warn("截止时间到达，返回部分结果",
					zap.String("email", req.Account.Email),
					zap.String("folder", folder),
					zap.Int("collected", len(result.Emails)),
				)
				break
			}
			stats.Error = err.Error()
			result.Folders = append(result.Folders, stats)
			o.logger.Warn("拉取失败",
				zap.String("email", req.Account.Email),
				zap.String("folder", folder),
				zap.Error(err),
			)
			continue
		}

		// 完成屏障：处理数与派发数一致后才进入下一个文件夹
		if stream.Received() != stats.Dispatched {
			o.logger.Warn("文件夹处理数与派发数不一致",
				zap.String("folder", folder),
				zap.Int("dispatched", stats.Dispatched),
				zap.Int("received", stream.Received()),
			)
		}
		result.Folders = append(result.Folders, stats)

		o.logger.Info("文件夹抓取完成",
			zap.String("email", req.Account.Email),
			zap.String("folder", folder),
			zap.Int("dispatched", stats.Dispatched),
			zap.Int("matched", stats.Matched),
		)
	}

	result.Elapsed = time.Since(started)
	return result, nil
}

func (o *Orchestrator) extractSender(header Header, mode ExtractMode) (string, bool) {
	switch mode {
	case ModeSubject:
		return o.subject.ExtractSender(header.Subject)
	default:
		return ExtractFromAddress(header.From)
	}
}
