package httptransport

import (
	"errors"

	"github.com/gambey/amz-saas-svr/internal/auth"
	"github.com/gambey/amz-saas-svr/internal/crawler"
	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/mailer"
	"github.com/gambey/amz-saas-svr/internal/service"
)

// 错误消息映射表（业务错误 -> 中文消息），按 errors.Is 匹配
var errorMessages = []struct {
	err error
	msg string
}{
	// 认证错误
	{auth.ErrInvalidCredentials, "用户名或密码错误"},
	{auth.ErrAdminNotFound, "管理员不存在"},
	{auth.ErrAdminExists, "用户名已存在"},
	{auth.ErrWrongOldPassword, "原密码错误"},

	// 校验错误
	{domain.ErrInvalidEmail, "邮箱格式无效"},
	{domain.ErrInvalidDate, "日期格式无效，应为 YYYY-MM-DD"},
	{domain.ErrDateRangeInvalid, "开始日期不能晚于结束日期"},
	{domain.ErrPasswordTooShort, "密码长度不能少于8位"},
	{domain.ErrPasswordTooLong, "密码长度不能超过128位"},
	{domain.ErrPasswordTooSimple, "密码至少包含两种字符类型"},
	{domain.ErrPasswordWellKnown, "密码过于常见，请更换"},
	{domain.ErrUsernameTooShort, "用户名长度不能少于3位"},
	{domain.ErrUsernameTooLong, "用户名长度不能超过64位"},

	// 客户错误
	{service.ErrCustomerNotFound, "客户不存在"},
	{service.ErrCustomerExists, "客户邮箱已存在"},

	// 邮箱账户错误
	{service.ErrAccountNotFound, "邮箱账户不存在"},
	{service.ErrAccountExists, "邮箱账户已存在"},
	{service.ErrAuthCodeEmpty, "授权码不能为空"},

	// 抓取错误
	{service.ErrKeywordRequired, "搜索关键词不能为空"},
	{service.ErrRunInProgress, "抓取任务正在执行中"},
	{crawler.ErrMalformedAddress, "邮箱地址格式错误"},
	{crawler.ErrAuth, "邮箱认证失败，请检查授权码"},
	{crawler.ErrConnection, "邮箱服务器连接失败"},

	// 外发邮件错误
	{mailer.ErrMalformedAddress, "发件地址格式错误"},
	{mailer.ErrAuth, "邮箱认证失败，请检查授权码"},
	{mailer.ErrSend, "邮件发送失败"},
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	for _, entry := range errorMessages {
		if errors.Is(err, entry.err) {
			return entry.msg
		}
	}
	return err.Error()
}

// 通用错误消息
const (
	MsgInvalidRequest   = "请求参数格式错误"
	MsgInternalError    = "服务器内部错误，请稍后重试"
	MsgAuthRequired     = "需要登录认证"
	MsgPermissionDenied = "权限不足"
)
