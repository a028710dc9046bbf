package xallow

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"go4.org/netipx"
)

// Matcher 白名单匹配器。构造后只读，并发安全。
type Matcher struct {
	entries  []Entry
	compiled []compiledEntry
}

// compiledEntry 预编译的条目匹配器，三个字段按类型互斥填充。
type compiledEntry struct {
	email  string
	domain *regexp.Regexp
	ipset  *netipx.IPSet
}

// New 编译白名单条目。
// 非法的 glob、CIDR 或未知类型在这里报错，不会进入请求路径。
func New(entries []Entry) (*Matcher, error) {
	m := &Matcher{
		entries:  make([]Entry, len(entries)),
		compiled: make([]compiledEntry, len(entries)),
	}
	copy(m.entries, entries)

	for i, e := range entries {
		ce, err := compile(e)
		if err != nil {
			return nil, fmt.Errorf("xallow: entry %d (%s %q): %w", i, e.Type, e.Pattern, err)
		}
		m.compiled[i] = ce
	}
	return m, nil
}

func compile(e Entry) (compiledEntry, error) {
	switch e.Type {
	case MatchEmail:
		if e.Pattern == "" || !strings.Contains(e.Pattern, "@") {
			return compiledEntry{}, fmt.Errorf("invalid email pattern")
		}
		return compiledEntry{email: strings.ToLower(e.Pattern)}, nil

	case MatchDomain:
		re, err := CompileDomainGlob(e.Pattern)
		if err != nil {
			return compiledEntry{}, err
		}
		return compiledEntry{domain: re}, nil

	case MatchNetwork:
		ipset, err := compileNetwork(e.Pattern)
		if err != nil {
			return compiledEntry{}, err
		}
		return compiledEntry{ipset: ipset}, nil

	default:
		return compiledEntry{}, fmt.Errorf("unknown match type %q", e.Type)
	}
}

// compileNetwork 解析网段模式。
// 支持 CIDR（"10.0.0.0/8"）、单个地址和地址区间（"10.0.0.1-10.0.0.9"）。
func compileNetwork(pattern string) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder

	switch {
	case strings.Contains(pattern, "/"):
		prefix, err := netip.ParsePrefix(pattern)
		if err != nil {
			return nil, err
		}
		b.AddPrefix(prefix)

	case strings.Contains(pattern, "-"):
		r, err := netipx.ParseIPRange(pattern)
		if err != nil {
			return nil, err
		}
		b.AddRange(r)

	default:
		addr, err := netip.ParseAddr(pattern)
		if err != nil {
			return nil, err
		}
		b.Add(addr)
	}

	return b.IPSet()
}

// Match 按条目顺序匹配，返回第一个命中的启用条目授予的权益。
// networkAddress 解析失败时网段条目视为不命中，不影响其他类型。
func (m *Matcher) Match(email, networkAddress string) (Grant, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	domain := ""
	if at := strings.LastIndexByte(email, '@'); at >= 0 {
		domain = email[at+1:]
	}

	var addr netip.Addr
	addrOK := false
	if networkAddress != "" {
		if a, err := netip.ParseAddr(networkAddress); err == nil {
			addr, addrOK = a.Unmap(), true
		}
	}

	for i, e := range m.entries {
		if !e.Active {
			continue
		}
		ce := m.compiled[i]

		hit := false
		switch {
		case ce.email != "":
			hit = ce.email == email
		case ce.domain != nil:
			hit = domain != "" && ce.domain.MatchString(domain)
		case ce.ipset != nil:
			hit = addrOK && ce.ipset.Contains(addr)
		}

		if hit {
			return Grant{
				Type:            e.Type,
				Pattern:         e.Pattern,
				FreeLimit:       e.FreeLimit,
				DiscountPercent: e.DiscountPercent,
				AccountClass:    e.AccountClass,
			}, true
		}
	}
	return Grant{}, false
}

// ActiveCount 返回启用条目数量。
func (m *Matcher) ActiveCount() int {
	n := 0
	for _, e := range m.entries {
		if e.Active {
			n++
		}
	}
	return n
}

// Entries 返回条目副本，调用方修改不影响匹配器。
func (m *Matcher) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
