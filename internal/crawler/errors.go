package crawler

import "errors"

// 抓取错误分级：连接与认证错误对整个账户致命，
// 文件夹不可用是预期情况，搜索与拉取错误只影响单个文件夹。
var (
	// ErrMalformedAddress 邮箱地址缺少域名部分，发起任何网络请求前返回
	ErrMalformedAddress = errors.New("malformed email address")
	// ErrConnection IMAP 服务器建连失败
	ErrConnection = errors.New("imap connection failed")
	// ErrAuth IMAP 登录失败
	ErrAuth = errors.New("imap authentication failed")
	// ErrFolderUnavailable 文件夹不存在或不可选择，跳过继续
	ErrFolderUnavailable = errors.New("imap folder unavailable")
	// ErrSearch 搜索命令失败
	ErrSearch = errors.New("imap search failed")
	// ErrFetch 拉取邮件头失败
	ErrFetch = errors.New("imap fetch failed")
)
