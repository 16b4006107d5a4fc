package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireSuperAdmin 要求超级管理员权限，必须在 RequireAuth 之后使用
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		isSuper, exists := c.Get(CtxIsSuperAdmin)
		if !exists || isSuper != true {
			c.JSON(http.StatusForbidden, gin.H{
				"code": http.StatusForbidden,
				"msg":  "需要超级管理员权限",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
