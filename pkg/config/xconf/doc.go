// Package xconf 提供基于 koanf 的策略配置加载。
//
// 支持 YAML/JSON，来源可以是文件或原始字节（容器环境下的 ConfigMap 注入）。
// 从文件创建的 Config 支持 Reload 和基于 fsnotify 的变更监视：
//
//	cfg, err := xconf.New("/etc/gatekit/policy.yaml")
//	w, err := xconf.Watch(cfg, func(c xconf.Config, err error) {
//	    if err != nil {
//	        logger.Error(ctx, "policy reload failed", slog.Any("error", err))
//	        return
//	    }
//	    engine.ApplyPolicy(c)
//	})
//	w.StartAsync()
//	defer w.Stop()
//
// 结构体反序列化使用 koanf 标签。
package xconf
