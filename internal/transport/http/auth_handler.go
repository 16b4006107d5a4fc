package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gambey/amz-saas-svr/internal/auth"
	jwtpkg "github.com/gambey/amz-saas-svr/internal/auth/jwt"
	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/middleware"
	"github.com/gambey/amz-saas-svr/internal/security"
)

// AuthHandler 处理认证相关的 HTTP 请求
type AuthHandler struct {
	authService *auth.Service
	jwtManager  *jwtpkg.Manager
	keys        *security.KeyManager
	log         *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service, jwtManager *jwtpkg.Manager, keys *security.KeyManager, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtManager:  jwtManager,
		keys:        keys,
		log:         log,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type adminResponse struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	IsSuperAdmin bool   `json:"isSuperAdmin"`
	LastLoginAt  string `json:"lastLoginAt,omitempty"`
}

type loginResponse struct {
	Admin        adminResponse `json:"admin"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresIn    int64         `json:"expiresIn"`
}

func toAdminResponse(admin *domain.Admin) adminResponse {
	resp := adminResponse{
		ID:           admin.ID,
		Username:     admin.Username,
		IsSuperAdmin: admin.IsSuperAdmin,
	}
	if admin.LastLoginAt != nil {
		resp.LastLoginAt = admin.LastLoginAt.Format("2006-01-02 15:04:05")
	}
	return resp
}

// Login 管理员登录
// @Summary 管理员登录
// @Description 用户名密码登录，密码可用公钥加密传输，返回 JWT 令牌对
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} Response{data=loginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "用户名或密码错误"
// @Failure 429 {object} Response "登录失败次数过多"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	admin, err := h.authService.Login(auth.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			Unauthorized(c, GetErrorMessage(err))
			return
		}
		h.log.Error("登录处理失败", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	tokens, err := h.jwtManager.GenerateTokenPair(admin.ID, admin.Username, admin.IsSuperAdmin)
	if err != nil {
		h.log.Error("生成令牌失败", zap.Error(err))
		InternalError(c, "生成令牌失败")
		return
	}

	h.log.Info("管理员登录成功",
		zap.String("admin_id", admin.ID),
		zap.String("username", admin.Username),
		zap.String("ip", c.ClientIP()),
	)

	Success(c, loginResponse{
		Admin:        toAdminResponse(admin),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// Refresh 刷新访问令牌
// @Summary 刷新访问令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body refreshRequest true "刷新令牌"
// @Success 200 {object} Response "刷新成功"
// @Failure 401 {object} Response "刷新令牌无效或已过期"
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	accessToken, err := h.jwtManager.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		Unauthorized(c, "刷新令牌无效或已过期")
		return
	}

	Success(c, gin.H{"accessToken": accessToken})
}

// Profile 获取当前管理员信息
// @Summary 获取当前管理员信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=adminResponse} "管理员信息"
// @Failure 401 {object} Response "未登录"
// @Router /api/auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	adminID := c.GetString(middleware.CtxAdminID)
	admin, err := h.authService.GetAdminByID(adminID)
	if err != nil {
		Unauthorized(c, GetErrorMessage(err))
		return
	}
	Success(c, toAdminResponse(admin))
}

// ChangePassword 修改密码
// @Summary 修改当前管理员密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body changePasswordRequest true "新旧密码"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "原密码错误或新密码不符合要求"
// @Router /api/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	adminID := c.GetString(middleware.CtxAdminID)
	if err := h.authService.ChangePassword(adminID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrWrongOldPassword):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, auth.ErrAdminNotFound):
			Unauthorized(c, GetErrorMessage(err))
		default:
			BadRequest(c, GetErrorMessage(err))
		}
		return
	}

	h.log.Info("管理员修改密码", zap.String("admin_id", adminID))
	SuccessWithMsg(c, "密码修改成功", nil)
}

// PublicKey 获取密码传输公钥
// @Summary 获取密码加密公钥
// @Description 前端用该 PEM 公钥加密密码后再提交登录
// @Tags 认证
// @Produce json
// @Success 200 {object} Response "PEM 格式公钥"
// @Router /api/auth/public-key [get]
func (h *AuthHandler) PublicKey(c *gin.Context) {
	Success(c, gin.H{"publicKey": h.keys.PublicKeyPEM()})
}
