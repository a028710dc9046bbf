package xsession

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store 进程内会话存储。所有方法并发安全。
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	clock   func() time.Time
}

type record struct {
	sess Session
}

// StoreOption 存储配置选项。
type StoreOption func(*Store)

// WithClock 注入时钟，测试用。
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore 创建会话存储。
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		records: make(map[string]*record),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Upsert 创建或刷新身份的会话记录，返回更新后的快照。
// 元数据按"最近到访优先"刷新，Referrer 保留首次到访的值，
// 活跃时间只向前推进。
func (s *Store) Upsert(email string, meta Metadata) Session {
	email = NormalizeEmail(email)
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[email]
	if !ok {
		device, browser := ClassifyAgent(meta.UserAgent)
		rec = &record{sess: Session{
			ID:             uuid.NewString(),
			Email:          email,
			FullName:       meta.FullName,
			NetworkAddress: meta.NetworkAddress,
			UserAgent:      meta.UserAgent,
			Device:         device,
			Browser:        browser,
			Referrer:       meta.Referrer,
			Class:          AccountRegular,
			CreatedAt:      now,
			LastActivity:   now,
		}}
		s.records[email] = rec
	} else {
		if meta.FullName != "" {
			rec.sess.FullName = meta.FullName
		}
		if meta.NetworkAddress != "" {
			rec.sess.NetworkAddress = meta.NetworkAddress
		}
		if meta.UserAgent != "" {
			rec.sess.UserAgent = meta.UserAgent
			rec.sess.Device, rec.sess.Browser = ClassifyAgent(meta.UserAgent)
		}
		if rec.sess.Referrer == "" {
			rec.sess.Referrer = meta.Referrer
		}
		if now.After(rec.sess.LastActivity) {
			rec.sess.LastActivity = now
		}
	}

	return rec.sess
}

// Get 返回身份的会话快照。
func (s *Store) Get(email string) (Session, bool) {
	email = NormalizeEmail(email)

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[email]
	if !ok {
		return Session{}, false
	}
	return rec.sess, true
}

// Update 对已有记录应用修改，返回更新后的快照。
// 不变式在 fn 之后强制执行：滥用标记不可清除，计数器不可回退，
// 活跃时间不可倒退。记录不存在时返回 false，fn 不执行。
func (s *Store) Update(email string, fn func(*Session)) (Session, bool) {
	email = NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	if !ok {
		return Session{}, false
	}

	prev := rec.sess
	fn(&rec.sess)

	// 身份字段不可改写
	rec.sess.ID = prev.ID
	rec.sess.Email = prev.Email
	rec.sess.CreatedAt = prev.CreatedAt

	if prev.Flagged {
		rec.sess.Flagged = true
		if rec.sess.FlagReason == "" {
			rec.sess.FlagReason = prev.FlagReason
		}
	}
	if rec.sess.ResourcesGenerated < prev.ResourcesGenerated {
		rec.sess.ResourcesGenerated = prev.ResourcesGenerated
	}
	if rec.sess.FreeResourcesConsumed < prev.FreeResourcesConsumed {
		rec.sess.FreeResourcesConsumed = prev.FreeResourcesConsumed
	}
	if rec.sess.LastActivity.Before(prev.LastActivity) {
		rec.sess.LastActivity = prev.LastActivity
	}

	return rec.sess, true
}

// RecordUsage 记录一次资源生成，freeUnit 为 true 时同时消耗免费额度。
// 记录不存在时先创建（带最少元数据），保证用量不会因时序丢失。
func (s *Store) RecordUsage(email string, freeUnit bool) Session {
	email = NormalizeEmail(email)
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[email]
	if !ok {
		rec = &record{sess: Session{
			ID:           uuid.NewString(),
			Email:        email,
			Class:        AccountRegular,
			Device:       DeviceDesktop,
			Browser:      BrowserOther,
			CreatedAt:    now,
			LastActivity: now,
		}}
		s.records[email] = rec
	}

	rec.sess.ResourcesGenerated++
	if freeUnit {
		rec.sess.FreeResourcesConsumed++
	}
	if now.After(rec.sess.LastActivity) {
		rec.sess.LastActivity = now
	}
	return rec.sess
}

// List 返回全部会话快照，按创建时间排列（稳定，同刻按邮箱）。
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out
}

// Len 返回身份数量。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// DistinctEmails 返回最近一次到访来自该网络地址的不同身份数。
// 实现 xfraud.History。
func (s *Store) DistinctEmails(networkAddress string) int {
	if networkAddress == "" {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.records {
		if rec.sess.NetworkAddress == networkAddress {
			n++
		}
	}
	return n
}

// ActiveSince 返回共享该网络地址或该身份、且自 since 起有过活跃
// 的会话数。实现 xfraud.History。
func (s *Store) ActiveSince(networkAddress, email string, since time.Time) int {
	email = NormalizeEmail(email)

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.records {
		sameEmail := email != "" && rec.sess.Email == email
		sameAddr := networkAddress != "" && rec.sess.NetworkAddress == networkAddress
		if (sameEmail || sameAddr) && rec.sess.LastActivity.After(since) {
			n++
		}
	}
	return n
}

// Stats 运营统计。
type Stats struct {
	// TotalIdentities 身份总数
	TotalIdentities int

	// ActiveToday 当前 UTC 日内活跃的身份数
	ActiveToday int

	// FreeResourcesToday 当前 UTC 日内活跃身份累计消耗的免费额度
	FreeResourcesToday int

	// FlaggedCount 被标记的身份数
	FlaggedCount int

	// WhitelistedCount 白名单身份数
	WhitelistedCount int
}

// Stats 返回运营统计快照。"今日"按 UTC 日界切分。
func (s *Store) Stats() Stats {
	dayStart := s.clock().UTC().Truncate(24 * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{TotalIdentities: len(s.records)}
	for _, rec := range s.records {
		if !rec.sess.LastActivity.UTC().Before(dayStart) {
			st.ActiveToday++
			st.FreeResourcesToday += rec.sess.FreeResourcesConsumed
		}
		if rec.sess.Flagged {
			st.FlaggedCount++
		}
		if rec.sess.Class == AccountWhitelisted {
			st.WhitelistedCount++
		}
	}
	return st
}
