package middleware

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gambey/amz-saas-svr/internal/security"
)

// DecryptPassword 透明解密请求体中 RSA 加密的密码字段。
//
// 前端用公钥加密 password 和 oldPassword 后以 base64 传输；
// 解密失败时保留原值，兼容明文调用方。
func DecryptPassword(keys *security.KeyManager, log *zap.Logger, fields ...string) gin.HandlerFunc {
	if len(fields) == 0 {
		fields = []string{"password"}
	}
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Request.Body = io.NopCloser(bytes.NewReader(nil))
			c.Next()
			return
		}

		var payload map[string]json.RawMessage
		if err := json.Unmarshal(body, &payload); err != nil {
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
			c.Next()
			return
		}

		changed := false
		for _, field := range fields {
			raw, ok := payload[field]
			if !ok {
				continue
			}
			var value string
			if err := json.Unmarshal(raw, &value); err != nil {
				continue
			}
			plain, err := keys.DecryptBase64(value)
			if err != nil {
				log.Debug("密码字段非密文，按明文处理", zap.String("field", field))
				continue
			}
			encoded, err := json.Marshal(plain)
			if err != nil {
				continue
			}
			payload[field] = encoded
			changed = true
		}

		if changed {
			if rebuilt, err := json.Marshal(payload); err == nil {
				body = rebuilt
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Request.ContentLength = int64(len(body))
		c.Next()
	}
}
