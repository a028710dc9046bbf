package xfraud

import (
	"fmt"
	"strings"
	"time"
)

// 默认启发式阈值。
const (
	defaultFanOutThreshold   = 3
	defaultVelocityThreshold = 5
	defaultVelocityWindow    = time.Hour
)

// defaultDisposableDomains 已知一次性邮箱服务的域名特征子串。
var defaultDisposableDomains = []string{
	"mailinator",
	"guerrillamail",
	"10minutemail",
	"tempmail",
	"temp-mail",
	"throwaway",
	"trashmail",
	"yopmail",
	"sharklasers",
	"getnada",
	"dispostable",
	"maildrop",
}

// Config 检测规则配置。
type Config struct {
	// FanOutThreshold 同一网络地址触发多账号判定的不同身份数
	FanOutThreshold int `koanf:"fan_out_threshold"`

	// VelocityThreshold 窗口内触发高频判定的活跃会话数（超过才触发）
	VelocityThreshold int `koanf:"velocity_threshold"`

	// VelocityWindow 高频判定的时间窗口
	VelocityWindow time.Duration `koanf:"velocity_window"`

	// DisposableDomains 一次性邮箱域名特征子串，空则使用内置列表
	DisposableDomains []string `koanf:"disposable_domains"`
}

// DefaultConfig 返回默认检测配置。
func DefaultConfig() Config {
	return Config{
		FanOutThreshold:   defaultFanOutThreshold,
		VelocityThreshold: defaultVelocityThreshold,
		VelocityWindow:    defaultVelocityWindow,
		DisposableDomains: defaultDisposableDomains,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.FanOutThreshold <= 0 {
		c.FanOutThreshold = def.FanOutThreshold
	}
	if c.VelocityThreshold <= 0 {
		c.VelocityThreshold = def.VelocityThreshold
	}
	if c.VelocityWindow <= 0 {
		c.VelocityWindow = def.VelocityWindow
	}
	if len(c.DisposableDomains) == 0 {
		c.DisposableDomains = def.DisposableDomains
	}
	return c
}

// History 检测所需的会话历史视图，由会话存储实现。
type History interface {
	// DistinctEmails 返回该网络地址出现过的不同身份数
	DistinctEmails(networkAddress string) int

	// ActiveSince 返回共享该网络地址或该身份的会话自 since 起的活跃次数
	ActiveSince(networkAddress, email string, since time.Time) int
}

// Detector 滥用检测器。构造后只读，并发安全。
type Detector struct {
	cfg     Config
	history History
	clock   func() time.Time
}

// Option 检测器配置选项。
type Option func(*Detector)

// WithClock 注入时钟，测试用。
func WithClock(clock func() time.Time) Option {
	return func(d *Detector) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// New 创建检测器。history 提供会话历史视图。
func New(cfg Config, history History, opts ...Option) *Detector {
	d := &Detector{
		cfg:     cfg.normalize(),
		history: history,
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Detect 对一次请求执行全部规则，返回命中的理由列表。
// 空列表表示未发现滥用迹象。email 应已做规范化。
func (d *Detector) Detect(email, networkAddress string) []string {
	var reasons []string

	if networkAddress != "" {
		if n := d.history.DistinctEmails(networkAddress); n >= d.cfg.FanOutThreshold {
			reasons = append(reasons,
				fmt.Sprintf("Multiple accounts (%d) created from network address %s", n, networkAddress))
		}
	}

	if domain := emailDomain(email); domain != "" {
		for _, marker := range d.cfg.DisposableDomains {
			if strings.Contains(domain, marker) {
				reasons = append(reasons,
					fmt.Sprintf("Disposable email domain: %s", domain))
				break
			}
		}
	}

	if networkAddress != "" || email != "" {
		since := d.clock().Add(-d.cfg.VelocityWindow)
		if n := d.history.ActiveSince(networkAddress, email, since); n > d.cfg.VelocityThreshold {
			reasons = append(reasons,
				fmt.Sprintf("High signup velocity: %d sessions within %s", n, d.cfg.VelocityWindow))
		}
	}

	return reasons
}

func emailDomain(email string) string {
	if at := strings.LastIndexByte(email, '@'); at >= 0 {
		return strings.ToLower(email[at+1:])
	}
	return ""
}
