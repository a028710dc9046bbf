package xmetrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Observer 指标采集接口。
// 实现必须是并发安全的，且不得阻塞调用方。
type Observer interface {
	// RecordAdmission 记录一次准入判定
	RecordAdmission(ctx context.Context, backend string, allowed bool)

	// RecordVerdict 记录一次资格裁决
	RecordVerdict(ctx context.Context, allowed bool)

	// RecordBreakerTransition 记录一次熔断器状态变化
	RecordBreakerTransition(ctx context.Context, name, from, to string)
}

// Nop 返回丢弃所有指标的 Observer，用于默认值和测试。
func Nop() Observer {
	return nopObserver{}
}

type nopObserver struct{}

func (nopObserver) RecordAdmission(context.Context, string, bool)         {}
func (nopObserver) RecordVerdict(context.Context, bool)                   {}
func (nopObserver) RecordBreakerTransition(context.Context, string, string, string) {}

// otelObserver 基于 OpenTelemetry Meter 的实现。
type otelObserver struct {
	admissions  metric.Int64Counter
	verdicts    metric.Int64Counter
	transitions metric.Int64Counter
}

// New 基于给定 Meter 创建 Observer。
func New(meter metric.Meter) (Observer, error) {
	admissions, err := meter.Int64Counter("gatekit.admission.requests",
		metric.WithDescription("Admission limiter decisions"),
	)
	if err != nil {
		return nil, fmt.Errorf("xmetrics: create admission counter: %w", err)
	}

	verdicts, err := meter.Int64Counter("gatekit.eligibility.verdicts",
		metric.WithDescription("Eligibility engine verdicts"),
	)
	if err != nil {
		return nil, fmt.Errorf("xmetrics: create verdict counter: %w", err)
	}

	transitions, err := meter.Int64Counter("gatekit.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("xmetrics: create transition counter: %w", err)
	}

	return &otelObserver{
		admissions:  admissions,
		verdicts:    verdicts,
		transitions: transitions,
	}, nil
}

func (o *otelObserver) RecordAdmission(ctx context.Context, backend string, allowed bool) {
	o.admissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.Bool("allowed", allowed),
	))
}

func (o *otelObserver) RecordVerdict(ctx context.Context, allowed bool) {
	o.verdicts.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("allowed", allowed),
	))
}

func (o *otelObserver) RecordBreakerTransition(ctx context.Context, name, from, to string) {
	o.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// 编译时接口检查
var (
	_ Observer = nopObserver{}
	_ Observer = (*otelObserver)(nil)
)
