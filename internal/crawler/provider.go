package crawler

import (
	"fmt"
	"strings"
)

// Provider IMAP 服务器连接参数，始终走 TLS
type Provider struct {
	Host string
	Port int
}

// Addr 返回 host:port 形式的连接地址
func (p Provider) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// 内置主流邮箱服务商的 IMAP 配置，键为小写域名
var providers = map[string]Provider{
	"aol.com":     {Host: "imap.aol.com", Port: 993},
	"gmail.com":   {Host: "imap.gmail.com", Port: 993},
	"outlook.com": {Host: "outlook.office365.com", Port: 993},
	"hotmail.com": {Host: "outlook.office365.com", Port: 993},
	"yahoo.com":   {Host: "imap.mail.yahoo.com", Port: 993},
	"163.com":     {Host: "imap.163.com", Port: 993},
	"qq.com":      {Host: "imap.qq.com", Port: 993},
}

// ResolveProvider 根据邮箱地址的域名解析 IMAP 服务器配置
//
// 域名取最后一个 @ 之后的部分，大小写不敏感。未知域名按
// imap.<domain>:993 约定回退。缺少域名时返回 ErrMalformedAddress。
func ResolveProvider(email string) (Provider, error) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return Provider{}, fmt.Errorf("%w: %q", ErrMalformedAddress, email)
	}
	domain := strings.ToLower(email[at+1:])

	if p, ok := providers[domain]; ok {
		return p, nil
	}
	return Provider{Host: "imap." + domain, Port: 993}, nil
}
