package crawler

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/emersion/go-message/charset" // 注册非 UTF-8 字符集解码
	"github.com/emersion/go-message/mail"
)

// ExtractMode 发件人提取模式
type ExtractMode string

const (
	// ModeFromHeader 从 From 头提取真实发件人
	ModeFromHeader ExtractMode = "from"
	// ModeSubject 从主题中提取嵌入的邮箱地址（电商订单通知场景）
	ModeSubject ExtractMode = "subject"
)

// Header 解析后的邮件头，主题已完成 RFC 2047 解码与续行展开
type Header struct {
	From    string
	Subject string
}

// ParseHeader 解析原始邮件头块
func ParseHeader(raw []byte) (Header, error) {
	// 未知字符集等可恢复错误仍会返回可用的 reader
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if mr == nil {
		return Header{}, fmt.Errorf("parse header: %w", err)
	}

	var h Header
	h.From = mr.Header.Get("From")
	if subject, err := mr.Header.Subject(); err == nil {
		h.Subject = subject
	} else {
		h.Subject = mr.Header.Get("Subject")
	}
	return h, nil
}

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	angleRe = regexp.MustCompile(`<\s*([^<>\s]+@[^<>\s]+)\s*>`)

	// 主题中 "By jane@example.com" / "By:jane@example.com" 形式，地址须以字母开头
	subjectByRe = regexp.MustCompile(`(?i)\bby[:\s]*([A-Za-z][A-Za-z0-9._%+\-]*@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)
	// 主题中 "_by_jane@example.com" 形式，地址须以字母开头
	subjectUnderscoreByRe = regexp.MustCompile(`(?i)_by_([A-Za-z][A-Za-z0-9._%+\-]*@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)
)

// ExtractFromAddress 从 From 头提取邮箱地址
//
// 优先取尖括号内的地址，否则取第一个形似邮箱的片段。
func ExtractFromAddress(from string) (string, bool) {
	if m := angleRe.FindStringSubmatch(from); m != nil {
		return strings.ToLower(m[1]), true
	}
	if m := emailRe.FindString(from); m != "" {
		return strings.ToLower(m), true
	}
	return "", false
}

// SubjectExtractor 主题内嵌发件人的提取策略，不同通知格式可替换实现
type SubjectExtractor interface {
	ExtractSender(subject string) (string, bool)
}

// OrderSubjectExtractor 电商订单通知的默认提取策略
//
// 依次尝试：
//  1. "By jane@example.com"（含 "By:"），地址以字母开头；
//  2. "_by_jane@example.com"，地址以字母开头；
//  3. 扫描主题中所有形似邮箱的片段，剔除本地部分以「数字串+分隔符」
//     开头的（通常是订单号残片）以及紧跟在 "_by_" 之后的，取最后一个。
type OrderSubjectExtractor struct{}

var _ SubjectExtractor = OrderSubjectExtractor{}

// ExtractSender 从主题中提取买家邮箱
func (OrderSubjectExtractor) ExtractSender(subject string) (string, bool) {
	if m := subjectByRe.FindStringSubmatch(subject); m != nil {
		return strings.ToLower(m[1]), true
	}
	if m := subjectUnderscoreByRe.FindStringSubmatch(subject); m != nil {
		return strings.ToLower(m[1]), true
	}

	matches := emailRe.FindAllStringIndex(subject, -1)
	lowered := strings.ToLower(subject)
	var last string
	for _, loc := range matches {
		candidate := subject[loc[0]:loc[1]]
		if looksLikeOrderFragment(candidate) {
			continue
		}
		// 紧跟 _by_ 的候选已由上面的模式处理过
		if loc[0] >= 4 && lowered[loc[0]-4:loc[0]] == "_by_" {
			continue
		}
		last = candidate
	}
	if last == "" {
		return "", false
	}
	return strings.ToLower(last), true
}

// looksLikeOrderFragment 判断本地部分是否以「数字串+分隔符」开头，
// 这类候选多为订单号残片（如 112-8372919@marketplace）
func looksLikeOrderFragment(candidate string) bool {
	i := 0
	for i < len(candidate) && candidate[i] >= '0' && candidate[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(candidate) {
		return false
	}
	switch candidate[i] {
	case '-', '_', '.':
		return true
	}
	return false
}
