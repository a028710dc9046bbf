package xallow

// Unlimited 免费额度不设上限。
const Unlimited = -1

// MatchType 条目匹配类型。
type MatchType string

// 匹配类型常量。
const (
	// MatchEmail 精确邮箱，不区分大小写
	MatchEmail MatchType = "email"

	// MatchDomain 域名 glob，* 是唯一通配符
	MatchDomain MatchType = "domain"

	// MatchNetwork 网段 CIDR
	MatchNetwork MatchType = "network"
)

// Entry 白名单条目。
type Entry struct {
	// Type 匹配类型
	Type MatchType `koanf:"type"`

	// Pattern 匹配模式：邮箱、域名 glob 或 CIDR
	Pattern string `koanf:"pattern"`

	// FreeLimit 免费额度，Unlimited(-1) 表示不限
	FreeLimit int `koanf:"free_limit"`

	// DiscountPercent 付费折扣百分比，0 表示无折扣
	DiscountPercent int `koanf:"discount_percent"`

	// AccountClass 命中后授予的账户类别
	AccountClass string `koanf:"account_class"`

	// Active 条目开关，关闭的条目不参与匹配
	Active bool `koanf:"active"`

	// Note 运营备注，不参与匹配
	Note string `koanf:"note"`
}

// Grant 命中条目授予的权益。
type Grant struct {
	// Type 命中的条目类型
	Type MatchType

	// Pattern 命中的条目模式
	Pattern string

	// FreeLimit 免费额度，Unlimited(-1) 表示不限
	FreeLimit int

	// DiscountPercent 付费折扣百分比
	DiscountPercent int

	// AccountClass 授予的账户类别
	AccountClass string
}

// Unmetered 判断额度是否不设上限。
func (g Grant) Unmetered() bool {
	return g.FreeLimit == Unlimited
}
