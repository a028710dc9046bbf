package xguard

import (
	"sort"
)

// Registry 按依赖名称管理 Guard 集合。
// 构造后只读，所有方法并发安全。
type Registry struct {
	guards map[string]*Guard
}

// NewRegistry 为每个配置项创建 Guard。
// 缺失的字段按 DefaultConfig 补齐。
func NewRegistry(configs map[string]Config, opts ...Option) *Registry {
	guards := make(map[string]*Guard, len(configs))
	for name, cfg := range configs {
		guards[name] = New(name, cfg, opts...)
	}
	return &Registry{guards: guards}
}

// Get 按名称查询 Guard。
func (r *Registry) Get(name string) (*Guard, bool) {
	g, ok := r.guards[name]
	return g, ok
}

// Names 返回所有依赖名称，按字典序排列。
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.guards))
	for name := range r.guards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StatusAll 返回所有依赖的熔断器状态快照，供运维端点使用。
func (r *Registry) StatusAll() map[string]Status {
	out := make(map[string]Status, len(r.guards))
	for name, g := range r.guards {
		out[name] = g.Status()
	}
	return out
}
