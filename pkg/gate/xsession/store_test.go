package xsession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClock(start time.Time) (*time.Time, func() time.Time) {
	now := start
	return &now, func() time.Time { return now }
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestUpsert_CreatesAndNormalizes(t *testing.T) {
	_, clock := testClock(t0)
	s := NewStore(WithClock(clock))

	sess := s.Upsert("  Alice@Example.COM ", Metadata{
		FullName:       "Alice",
		NetworkAddress: "203.0.113.7",
		UserAgent:      "Mozilla/5.0 (iPhone) Safari/604.1",
		Referrer:       "https://news.example/post",
	})

	assert.Equal(t, "alice@example.com", sess.Email)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, AccountRegular, sess.Class)
	assert.Equal(t, DeviceMobile, sess.Device)
	assert.Equal(t, BrowserSafari, sess.Browser)
	assert.Equal(t, t0, sess.CreatedAt)
	assert.Equal(t, t0, sess.LastActivity)

	// 大小写和空白不同的写法命中同一条记录
	got, ok := s.Get("ALICE@example.com")
	require.True(t, ok)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, 1, s.Len())
}

func TestUpsert_RefreshesMetadata(t *testing.T) {
	nowPtr, clock := testClock(t0)
	s := NewStore(WithClock(clock))

	first := s.Upsert("a@b.com", Metadata{
		NetworkAddress: "203.0.113.7",
		Referrer:       "https://first.example",
	})

	*nowPtr = t0.Add(time.Hour)
	second := s.Upsert("a@b.com", Metadata{
		FullName:       "Alice",
		NetworkAddress: "198.51.100.9",
		UserAgent:      "Mozilla/5.0 Chrome/120 Safari/537",
		Referrer:       "https://second.example",
	})

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Alice", second.FullName)
	assert.Equal(t, "198.51.100.9", second.NetworkAddress)
	assert.Equal(t, BrowserChrome, second.Browser)
	// Referrer 保留首次到访的值
	assert.Equal(t, "https://first.example", second.Referrer)
	assert.Equal(t, t0, second.CreatedAt)
	assert.Equal(t, t0.Add(time.Hour), second.LastActivity)

	// 空字段不覆盖已有值
	third := s.Upsert("a@b.com", Metadata{})
	assert.Equal(t, "Alice", third.FullName)
	assert.Equal(t, "198.51.100.9", third.NetworkAddress)
}

func TestUpdate_EnforcesInvariants(t *testing.T) {
	_, clock := testClock(t0)
	s := NewStore(WithClock(clock))
	s.Upsert("a@b.com", Metadata{})

	// 标记后无法清除
	sess, ok := s.Update("a@b.com", func(sess *Session) {
		sess.Flagged = true
		sess.FlagReason = "Multiple accounts (3) created from network address 203.0.113.7"
	})
	require.True(t, ok)
	require.True(t, sess.Flagged)

	sess, ok = s.Update("a@b.com", func(sess *Session) {
		sess.Flagged = false
		sess.FlagReason = ""
	})
	require.True(t, ok)
	assert.True(t, sess.Flagged)
	assert.Contains(t, sess.FlagReason, "Multiple accounts")

	// 计数器不可回退
	s.RecordUsage("a@b.com", true)
	sess, _ = s.Update("a@b.com", func(sess *Session) {
		sess.ResourcesGenerated = 0
		sess.FreeResourcesConsumed = 0
	})
	assert.Equal(t, 1, sess.ResourcesGenerated)
	assert.Equal(t, 1, sess.FreeResourcesConsumed)

	// 不存在的记录：fn 不执行
	_, ok = s.Update("missing@b.com", func(sess *Session) {
		t.Fatal("fn must not run for missing record")
	})
	assert.False(t, ok)
}

func TestRecordUsage(t *testing.T) {
	_, clock := testClock(t0)
	s := NewStore(WithClock(clock))

	// 记录不存在时先创建
	sess := s.RecordUsage("a@b.com", true)
	assert.Equal(t, 1, sess.ResourcesGenerated)
	assert.Equal(t, 1, sess.FreeResourcesConsumed)

	sess = s.RecordUsage("a@b.com", false)
	assert.Equal(t, 2, sess.ResourcesGenerated)
	assert.Equal(t, 1, sess.FreeResourcesConsumed)
}

func TestHistoryViews(t *testing.T) {
	nowPtr, clock := testClock(t0)
	s := NewStore(WithClock(clock))

	s.Upsert("a@b.com", Metadata{NetworkAddress: "203.0.113.7"})
	s.Upsert("b@b.com", Metadata{NetworkAddress: "203.0.113.7"})
	s.Upsert("c@b.com", Metadata{NetworkAddress: "198.51.100.1"})

	assert.Equal(t, 2, s.DistinctEmails("203.0.113.7"))
	assert.Equal(t, 1, s.DistinctEmails("198.51.100.1"))
	assert.Zero(t, s.DistinctEmails(""))

	// 重复到访只推进活跃时间，不增加会话数
	*nowPtr = t0.Add(time.Minute)
	s.Upsert("a@b.com", Metadata{NetworkAddress: "203.0.113.7"})

	// 地址或身份任一匹配即计入：a@b.com 自己 + 同地址的 b@b.com
	assert.Equal(t, 2, s.ActiveSince("203.0.113.7", "a@b.com", t0.Add(-time.Hour)))
	// 严格晚于 since：b@b.com 最后活跃在 t0 当刻，不计
	assert.Equal(t, 1, s.ActiveSince("203.0.113.7", "a@b.com", t0))
	// 地址不匹配时只计该身份自己
	assert.Equal(t, 1, s.ActiveSince("", "a@b.com", t0.Add(-time.Hour)))
	assert.Zero(t, s.ActiveSince("", "missing@b.com", t0.Add(-time.Hour)))
}

func TestStats(t *testing.T) {
	nowPtr, clock := testClock(t0)
	s := NewStore(WithClock(clock))

	// 昨天活跃的身份
	*nowPtr = t0.Add(-36 * time.Hour)
	s.Upsert("old@b.com", Metadata{})
	s.RecordUsage("old@b.com", true)

	// 今天活跃的身份
	*nowPtr = t0
	s.Upsert("a@b.com", Metadata{})
	s.RecordUsage("a@b.com", true)
	s.RecordUsage("a@b.com", true)

	s.Upsert("b@b.com", Metadata{})
	s.Update("b@b.com", func(sess *Session) {
		sess.Flagged = true
		sess.FlagReason = "Disposable email domain: mailinator.com"
	})
	s.Update("b@b.com", func(sess *Session) {
		sess.Class = AccountWhitelisted
	})

	st := s.Stats()
	assert.Equal(t, 3, st.TotalIdentities)
	assert.Equal(t, 2, st.ActiveToday)
	assert.Equal(t, 2, st.FreeResourcesToday) // old@b.com 的消耗不计入今日
	assert.Equal(t, 1, st.FlaggedCount)
	assert.Equal(t, 1, st.WhitelistedCount)
}

func TestList_SortedByCreation(t *testing.T) {
	nowPtr, clock := testClock(t0)
	s := NewStore(WithClock(clock))

	s.Upsert("z@b.com", Metadata{})
	*nowPtr = t0.Add(time.Minute)
	s.Upsert("a@b.com", Metadata{})

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "z@b.com", list[0].Email)
	assert.Equal(t, "a@b.com", list[1].Email)
}

func TestClassifyAgent(t *testing.T) {
	cases := []struct {
		ua      string
		device  string
		browser string
	}{
		{"Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36", DeviceDesktop, BrowserChrome},
		{"Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36 Edg/120.0", DeviceDesktop, BrowserEdge},
		{"Mozilla/5.0 (Macintosh) Version/17.0 Safari/605.1.15", DeviceDesktop, BrowserSafari},
		{"Mozilla/5.0 (X11; Linux) Gecko/20100101 Firefox/121.0", DeviceDesktop, BrowserFirefox},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0) Mobile/15E148 Safari/604.1", DeviceMobile, BrowserSafari},
		{"Mozilla/5.0 (iPad; CPU OS 17_0) Mobile/15E148 Safari/604.1", DeviceTablet, BrowserSafari},
		{"Mozilla/5.0 (Linux; Android 14) Chrome/120.0 Mobile Safari/537.36", DeviceMobile, BrowserChrome},
		{"curl/8.4.0", DeviceDesktop, BrowserOther},
		{"", DeviceDesktop, BrowserOther},
	}
	for _, tc := range cases {
		device, browser := ClassifyAgent(tc.ua)
		assert.Equal(t, tc.device, device, tc.ua)
		assert.Equal(t, tc.browser, browser, tc.ua)
	}
}
