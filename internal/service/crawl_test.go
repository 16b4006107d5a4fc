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
	"github.com/gambey/amz-saas-svr/internal/monitoring"
)

// fakeCrawler 记录请求并返回预设结果
type fakeCrawler struct {
	lastReq crawler.Request
	result  *crawler.Result
	err     error
	// perAccount 非空时按账户邮箱返回不同结果
	perAccount map[string]*crawler.Result
	perErr     map[string]error
}

func (f *fakeCrawler) Crawl(_ context.Context, req crawler.Request) (*crawler.Result, error) {
	f.lastReq = req
	if f.perAccount != nil || f.perErr != nil {
		if err, ok := f.perErr[req.Account.Email]; ok {
			return nil, err
		}
		if res, ok := f.perAccount[req.Account.Email]; ok {
			return res, nil
		}
		return &crawler.Result{}, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

var testMetrics = monitoring.NewMetrics()

func TestCrawlService_Search(t *testing.T) {
	fake := &fakeCrawler{result: &crawler.Result{
		Emails:  []string{"buyer1@aol.com", "buyer2@gmail.com"},
		Elapsed: 1500 * time.Millisecond,
	}}
	svc := NewCrawlService(fake, crawler.DefaultFolders, time.Minute, testMetrics, zap.NewNop())

	out, err := svc.Search(context.Background(), SearchInput{
		Email:     "Crawl@AOL.com",
		AuthCode:  "abcd1234",
		Keyword:   " velolink ",
		StartDate: "2025-06-01",
		EndDate:   "2025-06-07",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"buyer1@aol.com", "buyer2@gmail.com"}, out.EmailList)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "1.50秒", out.Duration)
	assert.False(t, out.Partial)
	assert.Equal(t, "crawl@aol.com", out.SearchParams.Email)
	assert.Equal(t, "velolink", out.SearchParams.Keyword)
	assert.Equal(t, "from", out.SearchParams.ExtractMode)

	// 请求参数已规范化后下发
	assert.Equal(t, "crawl@aol.com", fake.lastReq.Account.Email)
	assert.Equal(t, "velolink", fake.lastReq.Keyword)
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), fake.lastReq.Window.Before)
}

func TestCrawlService_SearchWithoutDates(t *testing.T) {
	fake := &fakeCrawler{result: &crawler.Result{Elapsed: time.Second}}
	svc := NewCrawlService(fake, nil, time.Minute, testMetrics, zap.NewNop())

	_, err := svc.Search(context.Background(), SearchInput{
		Email:    "crawl@aol.com",
		AuthCode: "abcd1234",
		Keyword:  "velolink",
	})
	require.NoError(t, err)

	// 未给日期时窗口两端均不设边界，搜索覆盖全部邮件
	assert.True(t, fake.lastReq.Window.Since.IsZero())
	assert.True(t, fake.lastReq.Window.Before.IsZero())
}

func TestCrawlService_SearchValidation(t *testing.T) {
	fake := &fakeCrawler{err: fmt.Errorf("should not be called")}
	svc := NewCrawlService(fake, nil, time.Minute, testMetrics, zap.NewNop())

	base := SearchInput{
		Email:     "crawl@aol.com",
		AuthCode:  "abcd1234",
		Keyword:   "velolink",
		StartDate: "2025-06-01",
		EndDate:   "2025-06-07",
	}

	tests := []struct {
		name   string
		mutate func(*SearchInput)
	}{
		{"非法邮箱", func(in *SearchInput) { in.Email = "broken" }},
		{"关键词为空", func(in *SearchInput) { in.Keyword = "  " }},
		{"非法开始日期", func(in *SearchInput) { in.StartDate = "2025-13-01" }},
		{"非法结束日期", func(in *SearchInput) { in.EndDate = "07/06/2025" }},
		{"开始晚于结束", func(in *SearchInput) { in.StartDate = "2025-06-08" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := base
			tt.mutate(&input)
			_, err := svc.Search(context.Background(), input)
			assert.Error(t, err)
			// 校验失败时不应触达网络
			assert.Empty(t, fake.lastReq.Account.Email)
		})
	}
}

func TestCrawlService_SearchSubjectMode(t *testing.T) {
	fake := &fakeCrawler{result: &crawler.Result{Partial: true, Elapsed: time.Second}}
	svc := NewCrawlService(fake, nil, time.Minute, testMetrics, zap.NewNop())

	out, err := svc.Search(context.Background(), SearchInput{
		Email:       "crawl@aol.com",
		AuthCode:    "abcd1234",
		Keyword:     "velolink",
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-07",
		ExtractMode: "subject",
	})
	require.NoError(t, err)

	assert.Equal(t, crawler.ModeSubject, fake.lastReq.Mode)
	assert.True(t, out.Partial)
	assert.Equal(t, []string{}, out.EmailList)
	assert.Equal(t, 0, out.Count)
}

func TestCrawlService_SearchCrawlError(t *testing.T) {
	fake := &fakeCrawler{err: fmt.Errorf("%w: bad credentials", crawler.ErrAuth)}
	svc := NewCrawlService(fake, nil, time.Minute, testMetrics, zap.NewNop())

	_, err := svc.Search(context.Background(), SearchInput{
		Email:     "crawl@aol.com",
		AuthCode:  "wrong",
		Keyword:   "velolink",
		StartDate: "2025-06-01",
		EndDate:   "2025-06-07",
	})
	assert.ErrorIs(t, err, crawler.ErrAuth)
}
