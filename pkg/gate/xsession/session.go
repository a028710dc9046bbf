package xsession

import (
	"strings"
	"time"
)

// AccountClass 账户类别。
type AccountClass string

// 账户类别常量。
const (
	// AccountRegular 普通账户，受免费额度限制
	AccountRegular AccountClass = "regular"

	// AccountWhitelisted 白名单账户，额度由命中条目决定
	AccountWhitelisted AccountClass = "whitelisted"
)

// Session 单个身份的会话记录。
type Session struct {
	// ID 会话标识，创建时生成
	ID string

	// Email 规范化后的身份邮箱
	Email string

	// FullName 最近一次到访提供的姓名
	FullName string

	// NetworkAddress 最近一次到访的网络地址
	NetworkAddress string

	// UserAgent 最近一次到访的原始 UA
	UserAgent string

	// Device 按 UA 归类的设备类型：desktop / mobile / tablet
	Device string

	// Browser 按 UA 归类的浏览器：chrome / edge / firefox / safari / other
	Browser string

	// Referrer 首次到访的来源页
	Referrer string

	// Class 账户类别
	Class AccountClass

	// WhitelistPattern 命中的白名单条目模式，普通账户为空
	WhitelistPattern string

	// FreeLimit 免费额度，白名单条目可授予 -1（不限）
	FreeLimit int

	// DiscountPercent 付费折扣百分比
	DiscountPercent int

	// ResourcesGenerated 累计生成的资源数，只增不减
	ResourcesGenerated int

	// FreeResourcesConsumed 累计消耗的免费额度，只增不减
	FreeResourcesConsumed int

	// Flagged 滥用标记，粘性：置位后不会被后续写入清除
	Flagged bool

	// FlagReason 标记理由，多条用分号连接
	FlagReason string

	// CreatedAt 首次到访时刻
	CreatedAt time.Time

	// LastActivity 最近活跃时刻，只向前推进
	LastActivity time.Time
}

// Metadata 一次到访携带的元数据。
type Metadata struct {
	FullName       string
	NetworkAddress string
	UserAgent      string
	Referrer       string
}

// NormalizeEmail 规范化身份邮箱：去首尾空白并转小写。
// 所有以邮箱为 key 的入口都必须先经过这里。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
