package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gambey/amz-saas-svr/internal/crawler"
	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/monitoring"
)

var ErrKeywordRequired = errors.New("keyword is required")

// Crawler 抽象单账户抓取，由 crawler.Orchestrator 实现。
type Crawler interface {
	Crawl(ctx context.Context, req crawler.Request) (*crawler.Result, error)
}

// CrawlService 封装交互式抓取操作。
type CrawlService struct {
	crawler    Crawler
	folders    []string
	runTimeout time.Duration
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// NewCrawlService 创建抓取业务服务。
func NewCrawlService(c Crawler, folders []string, runTimeout time.Duration, metrics *monitoring.Metrics, logger *zap.Logger) *CrawlService {
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &CrawlService{
		crawler:    c,
		folders:    folders,
		runTimeout: runTimeout,
		metrics:    metrics,
		logger:     logger,
	}
}

// SearchInput 定义交互式抓取所需的输入。
type SearchInput struct {
	Email       string
	AuthCode    string
	Keyword     string
	StartDate   string // YYYY-MM-DD
	EndDate     string // YYYY-MM-DD
	Folders     []string
	ExtractMode string // "from" 或 "subject"，默认 "from"
}

// SearchParams 回显本次查询的参数。
type SearchParams struct {
	Email       string `json:"email"`
	Keyword     string `json:"keyword"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	ExtractMode string `json:"extractMode"`
}

// SearchOutput 定义交互式抓取的返回数据。
type SearchOutput struct {
	EmailList    []string              `json:"emailList"`
	Count        int                   `json:"count"`
	Duration     string                `json:"duration"`
	Partial      bool                  `json:"partial"`
	Folders      []crawler.FolderStats `json:"folders"`
	SearchParams SearchParams          `json:"searchParams"`
}

// Search 执行一次交互式抓取。参数校验全部发生在建立网络连接之前。
func (s *CrawlService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	email := domain.NormalizeEmail(input.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	keyword := strings.TrimSpace(input.Keyword)
	if keyword == "" {
		return nil, ErrKeywordRequired
	}
	start, end, err := domain.ValidateDateRange(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	mode := crawler.ModeFromHeader
	if input.ExtractMode == string(crawler.ModeSubject) {
		mode = crawler.ModeSubject
	}
	folders := input.Folders
	if len(folders) == 0 {
		folders = s.folders
	}

	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	result, err := s.crawler.Crawl(ctx, crawler.Request{
		Account: crawler.Account{Email: email, AuthCode: input.AuthCode},
		Keyword: keyword,
		Window:  crawler.NewWindow(start, end),
		Folders: folders,
		Mode:    mode,
	})
	if err != nil {
		s.metrics.RecordCrawlRun("interactive", "error", 0, 0)
		s.logger.Warn("交互式抓取失败",
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, err
	}

	label := "success"
	if result.Partial {
		label = "partial"
	}
	s.metrics.RecordCrawlRun("interactive", label, result.Elapsed, len(result.Emails))

	emails := result.Emails
	if emails == nil {
		emails = []string{}
	}
	return &SearchOutput{
		EmailList: emails,
		Count:     len(emails),
		Duration:  fmt.Sprintf("%.2f秒", result.Elapsed.Seconds()),
		Partial:   result.Partial,
		Folders:   result.Folders,
		SearchParams: SearchParams{
			Email:       email,
			Keyword:     keyword,
			StartDate:   input.StartDate,
			EndDate:     input.EndDate,
			ExtractMode: string(mode),
		},
	}, nil
}
