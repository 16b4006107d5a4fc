package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gambey/amz-saas-svr/internal/crawler"
	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/monitoring"
	"github.com/gambey/amz-saas-svr/internal/storage"
)

var ErrRunInProgress = errors.New("crawl task already running")

// SchedulerConfig 定义定时抓取任务的参数。
type SchedulerConfig struct {
	CronExpr    string
	Timezone    string
	Keyword     string
	Brand       string
	Tag         string
	Remarks     string
	ExtractMode string // "from"（默认）或 "subject"
	DaysBack    int
	RunTimeout  time.Duration // 单个账户的抓取截止时间
}

// AccountError 记录单个账户的失败原因。
type AccountError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// TaskReport 一次定时抓取任务的执行报告。
type TaskReport struct {
	StartedAt     time.Time      `json:"startedAt"`
	FinishedAt    time.Time      `json:"finishedAt"`
	Accounts      int            `json:"accounts"`
	Succeeded     int            `json:"succeeded"`
	Partial       int            `json:"partial"`
	AccountErrors []AccountError `json:"accountErrors,omitempty"`
	EmailsFound   int            `json:"emailsFound"`
	InsertedCount int            `json:"insertedCount"`
	SkippedCount  int            `json:"skippedCount"`
}

// SchedulerService 定时遍历全部邮箱账户抓取发件人并入库为客户。
//
// 单个账户的抓取失败只记录不中断整轮；跨账户结果合并去重后
// 批量写入客户表，已存在的邮箱跳过。
type SchedulerService struct {
	cfg       SchedulerConfig
	accounts  storage.EmailAccountRepository
	customers storage.CustomerRepository
	crawler   Crawler
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	location  *time.Location

	cron *cron.Cron

	mu         sync.Mutex
	running    bool
	lastReport *TaskReport
}

// NewSchedulerService 创建定时任务服务。时区无法加载时退回 UTC。
func NewSchedulerService(
	cfg SchedulerConfig,
	accounts storage.EmailAccountRepository,
	customers storage.CustomerRepository,
	c Crawler,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *SchedulerService {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("时区加载失败，使用 UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = 7
	}
	return &SchedulerService{
		cfg:       cfg,
		accounts:  accounts,
		customers: customers,
		crawler:   c,
		metrics:   metrics,
		logger:    logger,
		location:  loc,
	}
}

// Start 注册 cron 任务并启动调度。
func (s *SchedulerService) Start() error {
	s.cron = cron.New(cron.WithLocation(s.location))
	_, err := s.cron.AddFunc(s.cfg.CronExpr, func() {
		if _, err := s.Run(context.Background(), "scheduled"); err != nil && !errors.Is(err, ErrRunInProgress) {
			s.logger.Error("定时抓取任务失败", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.cfg.CronExpr, err)
	}
	s.cron.Start()
	s.logger.Info("定时抓取任务已启动",
		zap.String("cron", s.cfg.CronExpr),
		zap.String("timezone", s.location.String()),
		zap.Int("daysBack", s.cfg.DaysBack),
	)
	return nil
}

// Stop 停止调度，等待进行中的任务结束。
func (s *SchedulerService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// LastReport 返回最近一次任务的执行报告，尚未运行过时为 nil。
func (s *SchedulerService) LastReport() *TaskReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return nil
	}
	report := *s.lastReport
	return &report
}

// Running 返回当前是否有任务在执行。
func (s *SchedulerService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run 执行一轮抓取任务。同一时间只允许一轮在执行。
func (s *SchedulerService) Run(ctx context.Context, trigger string) (*TaskReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	started := time.Now().In(s.location)
	report := &TaskReport{StartedAt: started}

	accounts, err := s.accounts.ListEmailAccounts()
	if err != nil {
		s.metrics.RecordCrawlRun(trigger, "error", 0, 0)
		return nil, fmt.Errorf("list email accounts: %w", err)
	}
	report.Accounts = len(accounts)

	today := time.Date(started.Year(), started.Month(), started.Day(), 0, 0, 0, 0, time.UTC)
	window := crawler.NewWindow(today.AddDate(0, 0, -s.cfg.DaysBack), today)

	mode := crawler.ModeFromHeader
	if s.cfg.ExtractMode == string(crawler.ModeSubject) {
		mode = crawler.ModeSubject
	}

	seen := make(map[string]bool)
	var merged []string

	for _, account := range accounts {
		accCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
		result, err := s.crawler.Crawl(accCtx, crawler.Request{
			Account: crawler.Account{Email: account.Email, AuthCode: account.AuthCode},
			Keyword: s.cfg.Keyword,
			Window:  window,
			Mode:    mode,
		})
		cancel()
		if err != nil {
			report.AccountErrors = append(report.AccountErrors, AccountError{
				Email: account.Email,
				Error: err.Error(),
			})
			s.metrics.RecordCrawlAccountError()
			s.logger.Warn("账户抓取失败，继续下一个",
				zap.String("email", account.Email),
				zap.Error(err),
			)
			continue
		}
		if result.Partial {
			report.Partial++
		} else {
			report.Succeeded++
		}
		for _, email := range result.Emails {
			if !seen[email] {
				seen[email] = true
				merged = append(merged, email)
			}
		}
	}
	report.EmailsFound = len(merged)

	if len(merged) > 0 {
		remarks := fmt.Sprintf("%s [%s]", s.cfg.Remarks, started.Format("2006-01-02 15:04"))
		addDate := started.Format(domain.DateLayout)
		customers := make([]*domain.Customer, 0, len(merged))
		for _, email := range merged {
			customers = append(customers, &domain.Customer{
				ID:      uuid.New().String(),
				Email:   email,
				Brand:   s.cfg.Brand,
				Tag:     s.cfg.Tag,
				AddDate: addDate,
				Remarks: remarks,
			})
		}
		upsert, err := s.customers.BatchUpsertCustomers(customers)
		if err != nil {
			s.metrics.RecordCrawlRun(trigger, "error", time.Since(started), len(merged))
			return nil, fmt.Errorf("batch upsert customers: %w", err)
		}
		report.InsertedCount = upsert.InsertedCount
		report.SkippedCount = upsert.SkippedCount
		s.metrics.RecordUpsert(upsert.InsertedCount, upsert.SkippedCount)
	}

	report.FinishedAt = time.Now().In(s.location)

	label := "success"
	if len(report.AccountErrors) > 0 || report.Partial > 0 {
		label = "partial"
	}
	s.metrics.RecordCrawlRun(trigger, label, report.FinishedAt.Sub(started), report.EmailsFound)

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	s.logger.Info("抓取任务完成",
		zap.Int("accounts", report.Accounts),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("partial", report.Partial),
		zap.Int("failed", len(report.AccountErrors)),
		zap.Int("emailsFound", report.EmailsFound),
		zap.Int("inserted", report.InsertedCount),
		zap.Int("skipped", report.SkippedCount),
	)
	return report, nil
}
