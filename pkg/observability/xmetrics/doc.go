// Package xmetrics 提供网关核心的 OpenTelemetry 指标采集。
//
// Observer 接口覆盖三类事件：准入判定、资格裁决、熔断器状态变化。
// 默认实现为 no-op，组件通过选项注入真实 Observer：
//
//	meter := otel.Meter("gatekit")
//	obs, err := xmetrics.New(meter)
//	limiter, err := xadmit.New(cfg, xadmit.WithObserver(obs))
//
// 指标命名遵循 gatekit.<component>.<event> 约定。
package xmetrics
