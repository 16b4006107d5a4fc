package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gambey/amz-saas-svr/internal/monitoring"
	"github.com/gambey/amz-saas-svr/internal/ratelimit"
)

// LoginRateLimit 登录限流中间件，维度为 ip:username。
//
// 封禁期内直接拒绝请求；处理器返回 401 时记一次失败，
// 返回 200 时清除该维度的失败计数。
func LoginRateLimit(limiter ratelimit.LoginLimiter, metrics *monitoring.Metrics, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := peekUsername(c)
		if username == "" {
			c.Next()
			return
		}
		key := c.ClientIP() + ":" + username

		blocked, retryAfter, err := limiter.Check(c.Request.Context(), key)
		if err != nil {
			// 限流存储故障时放行，登录本身仍有密码校验兜底
			log.Error("登录限流检查失败", zap.Error(err))
			c.Next()
			return
		}
		if blocked {
			metrics.RecordLoginBlocked()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":       http.StatusTooManyRequests,
				"msg":        "登录失败次数过多，请稍后再试",
				"retryAfter": int(retryAfter.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			metrics.RecordLoginFailure()
			if err := limiter.RecordFailure(c.Request.Context(), key); err != nil {
				log.Error("记录登录失败次数出错", zap.Error(err))
			}
		case http.StatusOK:
			if err := limiter.Reset(c.Request.Context(), key); err != nil {
				log.Error("清除登录失败次数出错", zap.Error(err))
			}
		}
	}
}

// peekUsername 读取请求体中的 username 字段并还原请求体
func peekUsername(c *gin.Context) string {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Username
}
