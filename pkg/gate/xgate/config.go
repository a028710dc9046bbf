package xgate

import (
	"fmt"

	"github.com/resumely/gatekit/pkg/config/xconf"
	"github.com/resumely/gatekit/pkg/gate/xallow"
	"github.com/resumely/gatekit/pkg/gate/xfraud"
	"github.com/resumely/gatekit/pkg/resilience/xadmit"
	"github.com/resumely/gatekit/pkg/resilience/xguard"
)

// DefaultRegularFreeLimit 普通账户的默认免费额度。
const DefaultRegularFreeLimit = 1

// Config 资格判定策略，通常从策略文件加载。
type Config struct {
	// RegularFreeLimit 普通账户每个身份的免费额度
	RegularFreeLimit int `koanf:"regular_free_limit"`

	// Whitelist 白名单条目，顺序即优先级
	Whitelist []xallow.Entry `koanf:"whitelist"`

	// Fraud 滥用检测阈值
	Fraud xfraud.Config `koanf:"fraud"`

	// Admission 按入口划分的准入窗口（如 "optimize"、"export"）
	Admission map[string]xadmit.Config `koanf:"admission"`

	// Guards 按外部依赖划分的防护配置（如 "inference"、"payment"）
	Guards map[string]xguard.Config `koanf:"guards"`
}

// DefaultConfig 返回默认策略：1 份免费额度，无白名单，内置检测阈值。
func DefaultConfig() Config {
	return Config{
		RegularFreeLimit: DefaultRegularFreeLimit,
		Fraud:            xfraud.DefaultConfig(),
	}
}

func (c Config) normalize() Config {
	if c.RegularFreeLimit == 0 {
		c.RegularFreeLimit = DefaultRegularFreeLimit
	}
	return c
}

// Load 从配置实例解析策略并校验白名单可编译。
func Load(src xconf.Config) (Config, error) {
	var cfg Config
	if err := src.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("xgate: load policy: %w", err)
	}
	cfg = cfg.normalize()

	// 白名单必须在加载期可编译，问题条目不能等到请求路径才暴露
	if _, err := xallow.New(cfg.Whitelist); err != nil {
		return Config{}, fmt.Errorf("xgate: load policy: %w", err)
	}
	return cfg, nil
}
