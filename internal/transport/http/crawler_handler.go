package httptransport

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gambey/amz-saas-svr/internal/crawler"
	"github.com/gambey/amz-saas-svr/internal/service"
)

// CrawlerHandler 处理邮箱抓取相关的 HTTP 请求
type CrawlerHandler struct {
	crawl     *service.CrawlService
	scheduler *service.SchedulerService
	log       *zap.Logger
}

// NewCrawlerHandler 创建抓取处理器
func NewCrawlerHandler(crawl *service.CrawlService, scheduler *service.SchedulerService, log *zap.Logger) *CrawlerHandler {
	return &CrawlerHandler{crawl: crawl, scheduler: scheduler, log: log}
}

type searchRequest struct {
	Email       string   `json:"email" binding:"required"`
	AuthCode    string   `json:"authCode" binding:"required"`
	Keyword     string   `json:"keyword" binding:"required"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Folders     []string `json:"folders"`
	ExtractMode string   `json:"extractMode"`
}

// Search 交互式抓取
// @Summary 按关键词抓取邮箱中的发件人
// @Description 在指定日期范围内搜索各文件夹，主题匹配关键词的邮件提取发件人并去重
// @Tags 邮箱抓取
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body searchRequest true "抓取参数"
// @Success 200 {object} Response{data=service.SearchOutput} "抓取结果"
// @Failure 400 {object} Response "参数校验失败"
// @Failure 502 {object} Response "邮箱连接或认证失败"
// @Router /api/email-crawler/search [post]
func (h *CrawlerHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	out, err := h.crawl.Search(c.Request.Context(), service.SearchInput{
		Email:       req.Email,
		AuthCode:    req.AuthCode,
		Keyword:     req.Keyword,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Folders:     req.Folders,
		ExtractMode: req.ExtractMode,
	})
	if err != nil {
		switch {
		case errors.Is(err, crawler.ErrAuth), errors.Is(err, crawler.ErrConnection):
			Error(c, 502, GetErrorMessage(err))
		default:
			BadRequest(c, GetErrorMessage(err))
		}
		return
	}

	Success(c, out)
}

// Run 手动触发定时抓取任务
// @Summary 手动触发抓取任务
// @Description 后台执行一轮全账户抓取，结果通过状态接口查询
// @Tags 邮箱抓取
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "任务已触发"
// @Failure 409 {object} Response "任务正在执行中"
// @Router /api/email-crawler/run [post]
func (h *CrawlerHandler) Run(c *gin.Context) {
	if h.scheduler.Running() {
		Conflict(c, GetErrorMessage(service.ErrRunInProgress))
		return
	}

	go func() {
		if _, err := h.scheduler.Run(context.Background(), "manual"); err != nil &&
			!errors.Is(err, service.ErrRunInProgress) {
			h.log.Error("手动抓取任务失败", zap.Error(err))
		}
	}()

	SuccessWithMsg(c, "抓取任务已触发", nil)
}

// Status 查询任务状态
// @Summary 查询抓取任务状态
// @Description 返回是否在执行中和最近一次任务的执行报告
// @Tags 邮箱抓取
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "任务状态"
// @Router /api/email-crawler/status [get]
func (h *CrawlerHandler) Status(c *gin.Context) {
	Success(c, gin.H{
		"running":    h.scheduler.Running(),
		"lastReport": h.scheduler.LastReport(),
	})
}
