package domain

import (
	"strings"
	"time"
)

// EmailAccount 表示可抓取的 IMAP 邮箱账户
type EmailAccount struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	AuthCode  string    `json:"-" gorm:"type:varchar(255);not null"` // IMAP 授权码，不返回给前端
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定邮箱账户表名
func (EmailAccount) TableName() string {
	return "email_accounts"
}

// MaskedAuthCode 返回打码后的授权码，仅保留前后各两位
func (a *EmailAccount) MaskedAuthCode() string {
	code := a.AuthCode
	if len(code) <= 4 {
		return strings.Repeat("*", len(code))
	}
	return code[:2] + strings.Repeat("*", len(code)-4) + code[len(code)-2:]
}
