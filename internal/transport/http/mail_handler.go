package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gambey/amz-saas-svr/internal/mailer"
	"github.com/gambey/amz-saas-svr/internal/monitoring"
)

// MailHandler 处理外发邮件的 HTTP 请求
type MailHandler struct {
	mailer  *mailer.Mailer
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewMailHandler 创建外发邮件处理器
func NewMailHandler(m *mailer.Mailer, metrics *monitoring.Metrics, log *zap.Logger) *MailHandler {
	return &MailHandler{mailer: m, metrics: metrics, log: log}
}

type sendMailRequest struct {
	From     string   `json:"from" binding:"required"`
	AuthCode string   `json:"authCode" binding:"required"`
	To       []string `json:"to" binding:"required,min=1"`
	Subject  string   `json:"subject" binding:"required"`
	Body     string   `json:"body" binding:"required"`
}

// Send 发送邮件
// @Summary 发送纯文本邮件
// @Description 按发件人域名选择 SMTP 服务器，授权码认证后发送
// @Tags 外发邮件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body sendMailRequest true "邮件内容"
// @Success 200 {object} Response "发送成功"
// @Failure 400 {object} Response "参数错误"
// @Failure 502 {object} Response "发送失败"
// @Router /api/email/send [post]
func (h *MailHandler) Send(c *gin.Context) {
	var req sendMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	err := h.mailer.Send(c.Request.Context(), mailer.Message{
		From:     req.From,
		AuthCode: req.AuthCode,
		To:       req.To,
		Subject:  req.Subject,
		Body:     req.Body,
	})
	h.metrics.RecordMailSent(err)
	if err != nil {
		switch {
		case errors.Is(err, mailer.ErrMalformedAddress):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, mailer.ErrAuth):
			Error(c, 502, GetErrorMessage(err))
		default:
			h.log.Warn("邮件发送失败",
				zap.String("from", req.From),
				zap.Error(err),
			)
			Error(c, 502, GetErrorMessage(err))
		}
		return
	}

	SuccessWithMsg(c, "发送成功", gin.H{"recipients": len(req.To)})
}
