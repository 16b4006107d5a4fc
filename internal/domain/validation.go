package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"
)

// 验证相关的错误定义
var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrEmailTooLong       = errors.New("email address too long")
	ErrInvalidDate        = errors.New("invalid date, want YYYY-MM-DD")
	ErrDateRangeInvalid   = errors.New("start date must not be after end date")
	ErrPasswordTooShort   = errors.New("password too short (min 8 chars)")
	ErrPasswordTooLong    = errors.New("password too long (max 128 chars)")
	ErrPasswordTooSimple  = errors.New("password needs at least two character classes")
	ErrPasswordWellKnown  = errors.New("password is too common")
	ErrUsernameTooShort   = errors.New("username too short (min 3 chars)")
	ErrUsernameTooLong    = errors.New("username too long (max 32 chars)")
)

// 验证常量
const (
	// RFC 5322 邮箱地址最大长度
	MaxEmailLength = 254

	MinPasswordLength = 8
	MaxPasswordLength = 128

	MinUsernameLength = 3
	MaxUsernameLength = 32

	// DateLayout 前端交互统一使用的日期格式
	DateLayout = "2006-01-02"
)

// commonPasswords 常见弱密码片段，出现即拒绝
var commonPasswords = []string{
	"password", "12345678", "123456789", "qwerty", "abc123",
	"admin123", "letmein", "welcome", "iloveyou", "11111111",
}

// ValidateEmail 验证邮箱地址格式
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// ParseDate 验证并解析 YYYY-MM-DD 日期，拒绝 2 月 30 日这类不存在的日期
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ValidateDateRange 验证日期区间，startDate 不得晚于 endDate。
// 任一端为空表示该端不设边界，返回对应的零值时间。
func ValidateDateRange(startDate, endDate string) (start, end time.Time, err error) {
	if startDate != "" {
		if start, err = ParseDate(startDate); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if endDate != "" {
		if end, err = ParseDate(endDate); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return time.Time{}, time.Time{}, ErrDateRangeInvalid
	}
	return start, end, nil
}

// ValidatePassword 验证密码强度
//
// 规则：长度 8-128，至少包含两类字符（小写/大写/数字/符号），
// 且不得包含常见弱密码片段。
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	var hasLower, hasUpper, hasDigit, hasOther bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasOther = true
		}
	}
	classes := 0
	for _, ok := range []bool{hasLower, hasUpper, hasDigit, hasOther} {
		if ok {
			classes++
		}
	}
	if classes < 2 {
		return ErrPasswordTooSimple
	}

	lowered := strings.ToLower(password)
	for _, common := range commonPasswords {
		if strings.Contains(lowered, common) {
			return ErrPasswordWellKnown
		}
	}
	return nil
}

// ValidateUsername 验证用户名长度
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) < MinUsernameLength {
		return ErrUsernameTooShort
	}
	if len(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	return nil
}

// NormalizeEmail 统一邮箱大小写，去重与落库前都按小写处理
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
