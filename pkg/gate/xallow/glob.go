package xallow

import (
	"fmt"
	"regexp"
	"strings"
)

// CompileDomainGlob 将域名 glob 编译为锚定的正则表达式。
//
// * 是唯一的通配符，匹配任意（含空）字符序列；其余字符全部字面
// 匹配，域名里的点不会被当作正则元字符。整个模式锚定到完整域名，
// "*.partner.com" 不会命中 "partner.com.evil.net"。匹配不区分
// 大小写。
func CompileDomainGlob(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("xallow: empty domain glob")
	}

	var sb strings.Builder
	sb.WriteString("(?i)^")
	for i, segment := range strings.Split(pattern, "*") {
		if i > 0 {
			sb.WriteString(".*")
		}
		sb.WriteString(regexp.QuoteMeta(segment))
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("xallow: compile domain glob %q: %w", pattern, err)
	}
	return re, nil
}
