package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/service"
)

// EmailAccountHandler 处理可抓取邮箱账户的 HTTP 请求
type EmailAccountHandler struct {
	accounts *service.EmailAccountService
	log      *zap.Logger
}

// NewEmailAccountHandler 创建邮箱账户处理器
func NewEmailAccountHandler(accounts *service.EmailAccountService, log *zap.Logger) *EmailAccountHandler {
	return &EmailAccountHandler{accounts: accounts, log: log}
}

type emailAccountRequest struct {
	Email    string `json:"email" binding:"required"`
	AuthCode string `json:"authCode" binding:"required"`
}

type updateAuthCodeRequest struct {
	AuthCode string `json:"authCode" binding:"required"`
}

type emailAccountResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	AuthCode string `json:"authCode"` // 脱敏后的授权码
}

func toAccountResponse(account domain.EmailAccount) emailAccountResponse {
	return emailAccountResponse{
		ID:       account.ID,
		Email:    account.Email,
		AuthCode: account.MaskedAuthCode(),
	}
}

// List 邮箱账户列表
// @Summary 邮箱账户列表
// @Description 授权码脱敏返回
// @Tags 邮箱账户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "账户列表"
// @Router /api/email-accounts [get]
func (h *EmailAccountHandler) List(c *gin.Context) {
	accounts, err := h.accounts.List()
	if err != nil {
		h.log.Error("查询邮箱账户失败", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	items := make([]emailAccountResponse, 0, len(accounts))
	for _, account := range accounts {
		items = append(items, toAccountResponse(account))
	}
	Success(c, gin.H{"accounts": items, "total": len(items)})
}

// Create 录入邮箱账户
// @Summary 录入邮箱账户
// @Tags 邮箱账户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body emailAccountRequest true "邮箱和授权码"
// @Success 201 {object} Response "录入成功"
// @Failure 409 {object} Response "邮箱账户已存在"
// @Router /api/email-accounts [post]
func (h *EmailAccountHandler) Create(c *gin.Context) {
	var req emailAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.accounts.Create(service.EmailAccountInput{
		Email:    req.Email,
		AuthCode: req.AuthCode,
	})
	if err != nil {
		if errors.Is(err, service.ErrAccountExists) {
			Conflict(c, GetErrorMessage(err))
			return
		}
		BadRequest(c, GetErrorMessage(err))
		return
	}

	Created(c, toAccountResponse(*account))
}

// UpdateAuthCode 更新授权码
// @Summary 更新邮箱账户授权码
// @Tags 邮箱账户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "账户ID"
// @Param request body updateAuthCodeRequest true "新授权码"
// @Success 200 {object} Response "更新成功"
// @Failure 404 {object} Response "邮箱账户不存在"
// @Router /api/email-accounts/{id} [put]
func (h *EmailAccountHandler) UpdateAuthCode(c *gin.Context) {
	var req updateAuthCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.accounts.UpdateAuthCode(c.Param("id"), req.AuthCode)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		BadRequest(c, GetErrorMessage(err))
		return
	}

	Success(c, toAccountResponse(*account))
}

// Delete 删除邮箱账户
// @Summary 删除邮箱账户
// @Tags 邮箱账户
// @Produce json
// @Security BearerAuth
// @Param id path string true "账户ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "邮箱账户不存在"
// @Router /api/email-accounts/{id} [delete]
func (h *EmailAccountHandler) Delete(c *gin.Context) {
	if err := h.accounts.Delete(c.Param("id")); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		h.log.Error("删除邮箱账户失败", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}
	SuccessWithMsg(c, "删除成功", nil)
}
