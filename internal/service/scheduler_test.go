package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gambey/amz-saas-svr/internal/crawler"
	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage/memory"
)

func schedulerFixture(t *testing.T, fake *fakeCrawler) (*SchedulerService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewSchedulerService(SchedulerConfig{
		CronExpr:    "0 7 * * *",
		Timezone:    "Asia/Shanghai",
		Keyword:     "velolink",
		Brand:       "velolink",
		Tag:         "抓取",
		Remarks:     "定时任务",
		ExtractMode: "subject",
		DaysBack:    7,
		RunTimeout:  time.Minute,
	}, store, store, fake, testMetrics, zap.NewNop())
	return svc, store
}

func seedAccount(t *testing.T, store *memory.Store, email string) {
	t.Helper()
	require.NoError(t, store.CreateEmailAccount(&domain.EmailAccount{
		ID:       email,
		Email:    email,
		AuthCode: "code1234",
	}))
}

func TestSchedulerRun_MergesAndUpserts(t *testing.T) {
	fake := &fakeCrawler{
		perAccount: map[string]*crawler.Result{
			"one@aol.com": {Emails: []string{"buyer@x.com", "shared@y.com"}},
			"two@aol.com": {Emails: []string{"shared@y.com", "fresh@z.com"}},
		},
	}
	svc, store := schedulerFixture(t, fake)
	seedAccount(t, store, "one@aol.com")
	seedAccount(t, store, "two@aol.com")

	// 已存在的客户在入库时被跳过
	require.NoError(t, store.CreateCustomer(&domain.Customer{
		ID: "c1", Email: "buyer@x.com", AddDate: "2025-01-01",
	}))

	report, err := svc.Run(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Accounts)
	assert.Equal(t, 2, report.Succeeded)
	assert.Empty(t, report.AccountErrors)
	// 跨账户合并去重
	assert.Equal(t, 3, report.EmailsFound)
	assert.Equal(t, 2, report.InsertedCount)
	assert.Equal(t, 1, report.SkippedCount)

	fresh, err := store.GetCustomerByEmail("fresh@z.com")
	require.NoError(t, err)
	assert.Equal(t, "velolink", fresh.Brand)
	assert.Contains(t, fresh.Remarks, "定时任务")

	// 抓取窗口按天数回溯，主题提取模式
	assert.Equal(t, crawler.ModeSubject, fake.lastReq.Mode)
	assert.Equal(t, 8*24*time.Hour, fake.lastReq.Window.Before.Sub(fake.lastReq.Window.Since))

	last := svc.LastReport()
	require.NotNil(t, last)
	assert.Equal(t, report.InsertedCount, last.InsertedCount)
}

func TestSchedulerRun_DefaultExtractMode(t *testing.T) {
	fake := &fakeCrawler{result: &crawler.Result{}}
	store := memory.NewStore()
	svc := NewSchedulerService(SchedulerConfig{
		CronExpr: "0 7 * * *",
		Timezone: "Asia/Shanghai",
		Keyword:  "velolink",
	}, store, store, fake, testMetrics, zap.NewNop())
	seedAccount(t, store, "one@aol.com")

	_, err := svc.Run(context.Background(), "manual")
	require.NoError(t, err)

	// 未配置提取方式时默认取 From 头
	assert.Equal(t, crawler.ModeFromHeader, fake.lastReq.Mode)
}

func TestSchedulerRun_AccountErrorDoesNotAbort(t *testing.T) {
	fake := &fakeCrawler{
		perAccount: map[string]*crawler.Result{
			"good@aol.com": {Emails: []string{"buyer@x.com"}},
		},
		perErr: map[string]error{
			"bad@aol.com": fmt.Errorf("%w: login rejected", crawler.ErrAuth),
		},
	}
	svc, store := schedulerFixture(t, fake)
	seedAccount(t, store, "bad@aol.com")
	seedAccount(t, store, "good@aol.com")

	report, err := svc.Run(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.AccountErrors, 1)
	assert.Equal(t, "bad@aol.com", report.AccountErrors[0].Email)
	assert.Equal(t, 1, report.InsertedCount)
}

func TestSchedulerRun_NoAccounts(t *testing.T) {
	svc, _ := schedulerFixture(t, &fakeCrawler{})

	report, err := svc.Run(context.Background(), "manual")
	require.NoError(t, err)
	assert.Zero(t, report.Accounts)
	assert.Zero(t, report.InsertedCount)
}

func TestSchedulerRun_ConcurrentGuard(t *testing.T) {
	svc, _ := schedulerFixture(t, &fakeCrawler{})

	svc.mu.Lock()
	svc.running = true
	svc.mu.Unlock()

	_, err := svc.Run(context.Background(), "manual")
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestSchedulerStart_InvalidCron(t *testing.T) {
	store := memory.NewStore()
	svc := NewSchedulerService(SchedulerConfig{
		CronExpr: "not a cron",
		Timezone: "Asia/Shanghai",
		Keyword:  "velolink",
	}, store, store, &fakeCrawler{}, testMetrics, zap.NewNop())

	assert.Error(t, svc.Start())
}
