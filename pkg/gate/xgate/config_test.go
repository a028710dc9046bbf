package xgate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumely/gatekit/pkg/config/xconf"
	"github.com/resumely/gatekit/pkg/gate/xallow"
)

const samplePolicy = `
regular_free_limit: 1

whitelist:
  - type: email
    pattern: bob@sales.partner.com
    free_limit: 10
    account_class: vip
    active: true
  - type: domain
    pattern: "*.partner.com"
    free_limit: -1
    discount_percent: 20
    active: true
  - type: network
    pattern: 10.1.0.0/16
    free_limit: 5
    active: false
    note: office range, disabled during audit

fraud:
  fan_out_threshold: 4
  velocity_threshold: 8
  velocity_window: 30m

admission:
  optimize:
    max_requests: 5
    window: 1m
  export:
    max_requests: 20
    window: 1h

guards:
  inference:
    failure_threshold: 3
    reset_timeout: 45s
    max_attempts: 4
  payment: {}
`

func TestLoad(t *testing.T) {
	src, err := xconf.NewFromBytes([]byte(samplePolicy), xconf.FormatYAML)
	require.NoError(t, err)

	cfg, err := Load(src)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.RegularFreeLimit)

	require.Len(t, cfg.Whitelist, 3)
	assert.Equal(t, xallow.MatchEmail, cfg.Whitelist[0].Type)
	assert.Equal(t, 10, cfg.Whitelist[0].FreeLimit)
	assert.Equal(t, xallow.Unlimited, cfg.Whitelist[1].FreeLimit)
	assert.Equal(t, 20, cfg.Whitelist[1].DiscountPercent)
	assert.False(t, cfg.Whitelist[2].Active)

	assert.Equal(t, 4, cfg.Fraud.FanOutThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Fraud.VelocityWindow)

	require.Contains(t, cfg.Admission, "optimize")
	assert.Equal(t, 5, cfg.Admission["optimize"].MaxRequests)
	assert.Equal(t, time.Minute, cfg.Admission["optimize"].Window)

	require.Contains(t, cfg.Guards, "inference")
	assert.Equal(t, uint32(3), cfg.Guards["inference"].FailureThreshold)
	assert.Equal(t, 45*time.Second, cfg.Guards["inference"].ResetTimeout)
}

func TestLoad_RejectsBadWhitelist(t *testing.T) {
	src, err := xconf.NewFromBytes([]byte(`
whitelist:
  - type: network
    pattern: 10.0.0.0/99
    active: true
`), xconf.FormatYAML)
	require.NoError(t, err)

	_, err = Load(src)
	assert.Error(t, err)
}

func TestLoad_EmptyPolicyGetsDefaults(t *testing.T) {
	src, err := xconf.NewFromBytes(nil, xconf.FormatYAML)
	require.NoError(t, err)

	cfg, err := Load(src)
	require.NoError(t, err)
	assert.Equal(t, DefaultRegularFreeLimit, cfg.RegularFreeLimit)
	assert.Empty(t, cfg.Whitelist)
}

func TestEngineFromLoadedPolicy(t *testing.T) {
	src, err := xconf.NewFromBytes([]byte(samplePolicy), xconf.FormatYAML)
	require.NoError(t, err)
	cfg, err := Load(src)
	require.NoError(t, err)

	e := newEngine(t, cfg)
	v, err := e.Evaluate(context.Background(), evalReq("bob@sales.partner.com"))
	require.NoError(t, err)
	assert.True(t, v.Allowed)
	assert.Equal(t, 10, v.FreeLimit)
}
