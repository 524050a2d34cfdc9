package usecase

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"

	"github.com/stretchr/testify/mock"
)

var testTenant = model.Tenant{Schema: "tenant_acme"}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

type fakePosts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.RepurposedPost
}

func newFakePosts(posts ...*model.RepurposedPost) *fakePosts {
	f := &fakePosts{rows: map[int64]*model.RepurposedPost{}}
	for _, p := range posts {
		_ = f.Create(context.Background(), testTenant, p)
	}
	return f
}

func copyPost(p *model.RepurposedPost) *model.RepurposedPost {
	cp := *p
	if p.Recurrence != nil {
		rec := *p.Recurrence
		cp.Recurrence = &rec
	}
	if p.Media != nil {
		m := *p.Media
		cp.Media = &m
	}
	return &cp
}

func (f *fakePosts) get(id int64) *model.RepurposedPost {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyPost(f.rows[id])
}

func (f *fakePosts) all() []*model.RepurposedPost {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RepurposedPost
	for _, p := range f.rows {
		out = append(out, copyPost(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakePosts) save(p *model.RepurposedPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[p.ID]; !ok {
		return repository.ErrNotFound
	}
	f.rows[p.ID] = copyPost(p)
	return nil
}

func (f *fakePosts) Create(_ context.Context, _ model.Tenant, p *model.RepurposedPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == 0 {
		f.nextID++
		p.ID = f.nextID
	} else if p.ID > f.nextID {
		f.nextID = p.ID
	}
	f.rows[p.ID] = copyPost(p)
	return nil
}

func (f *fakePosts) GetByID(_ context.Context, _ model.Tenant, id int64) (*model.RepurposedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyPost(p), nil
}

func (f *fakePosts) ListByUser(_ context.Context, _ model.Tenant, userID string, limit int) ([]*model.RepurposedPost, error) {
	var out []*model.RepurposedPost
	for _, p := range f.all() {
		if p.UserID == userID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePosts) ListDueScheduled(_ context.Context, _ model.Tenant, now time.Time, limit int) ([]*model.RepurposedPost, error) {
	var out []*model.RepurposedPost
	for _, p := range f.all() {
		if p.Status == model.PostStatusScheduled && p.ScheduledFor != nil && !p.ScheduledFor.After(now) && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePosts) ListRecurringTemplates(_ context.Context, _ model.Tenant) ([]*model.RepurposedPost, error) {
	var out []*model.RepurposedPost
	for _, p := range f.all() {
		if p.Recurrence != nil && p.Status != model.PostStatusFailed {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePosts) UpdateContent(_ context.Context, _ model.Tenant, p *model.RepurposedPost) error {
	return f.save(p)
}

func (f *fakePosts) ClaimForPublish(_ context.Context, _ model.Tenant, postID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[postID]
	if !ok || !p.Publishable() {
		return false, nil
	}
	p.Status = model.PostStatusPublishing
	return true, nil
}

func (f *fakePosts) ApplyPublishOutcome(_ context.Context, _ model.Tenant, p *model.RepurposedPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.rows[p.ID]
	if !ok || stored.Status == model.PostStatusPublished {
		return repository.ErrNotFound
	}
	f.rows[p.ID] = copyPost(p)
	return nil
}

func (f *fakePosts) UpdateSchedule(_ context.Context, _ model.Tenant, p *model.RepurposedPost) error {
	return f.save(p)
}

func (f *fakePosts) UpdateRecurrence(_ context.Context, _ model.Tenant, p *model.RepurposedPost) error {
	return f.save(p)
}

func (f *fakePosts) StampRecurrenceCreated(_ context.Context, _ model.Tenant, postID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[postID]
	if !ok || p.Recurrence == nil {
		return repository.ErrNotFound
	}
	t := at
	p.Recurrence.LastCreated = &t
	return nil
}

func (f *fakePosts) UpdateMedia(_ context.Context, _ model.Tenant, postID int64, media *model.MediaRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[postID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Media = media
	return nil
}

type fakeScheduled struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.ScheduledPost
}

func newFakeScheduled(list ...*model.ScheduledPost) *fakeScheduled {
	f := &fakeScheduled{rows: map[int64]*model.ScheduledPost{}}
	for _, sp := range list {
		_ = f.Create(context.Background(), testTenant, sp)
	}
	return f
}

func (f *fakeScheduled) get(id int64) *model.ScheduledPost {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.rows[id]
	return &cp
}

func (f *fakeScheduled) Create(_ context.Context, _ model.Tenant, sp *model.ScheduledPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sp.ID = f.nextID
	cp := *sp
	f.rows[sp.ID] = &cp
	return nil
}

func (f *fakeScheduled) GetByID(_ context.Context, _ model.Tenant, id int64) (*model.ScheduledPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sp, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sp
	return &cp, nil
}

func (f *fakeScheduled) ListByUser(_ context.Context, _ model.Tenant, userID string) ([]*model.ScheduledPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ScheduledPost
	for _, sp := range f.rows {
		if sp.UserID == userID {
			cp := *sp
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeScheduled) ListDue(_ context.Context, _ model.Tenant, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ScheduledPost
	for _, sp := range f.rows {
		if sp.Due(now) && len(out) < limit {
			cp := *sp
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeScheduled) UpdateRunState(_ context.Context, _ model.Tenant, sp *model.ScheduledPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[sp.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *sp
	f.rows[sp.ID] = &cp
	return nil
}

type fakeAccounts struct {
	mu          sync.Mutex
	rows        map[int64]*model.SocialAccount
	tokenWrites int
	used        map[int64]time.Time
}

func newFakeAccounts(list ...*model.SocialAccount) *fakeAccounts {
	f := &fakeAccounts{rows: map[int64]*model.SocialAccount{}, used: map[int64]time.Time{}}
	for _, a := range list {
		cp := *a
		f.rows[a.ID] = &cp
	}
	return f
}

func (f *fakeAccounts) Upsert(_ context.Context, _ model.Tenant, a *model.SocialAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.UserID == a.UserID && existing.Platform == a.Platform && existing.PlatformUserID == a.PlatformUserID {
			a.ID = existing.ID
		}
	}
	if a.ID == 0 {
		a.ID = int64(len(f.rows) + 1)
	}
	a.IsActive = true
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, _ model.Tenant, id int64) (*model.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) FirstActive(_ context.Context, _ model.Tenant, userID string, platform model.Platform) (*model.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *model.SocialAccount
	for _, a := range f.rows {
		if a.UserID == userID && a.Platform == platform && a.IsActive && (found == nil || a.ID < found.ID) {
			found = a
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (f *fakeAccounts) ListByUser(_ context.Context, _ model.Tenant, userID string) ([]*model.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.SocialAccount
	for _, a := range f.rows {
		if a.UserID == userID && a.IsActive {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAccounts) UpdateTokens(_ context.Context, _ model.Tenant, id int64, upd model.TokenUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.tokenWrites++
	a.AccessToken = upd.AccessToken
	a.RefreshToken = upd.RefreshToken
	a.TokenExpiresAt = upd.ExpiresAt
	return nil
}

func (f *fakeAccounts) MarkUsed(_ context.Context, _ model.Tenant, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used[id] = at
	return nil
}

func (f *fakeAccounts) Deactivate(_ context.Context, _ model.Tenant, userID string, platform model.Platform) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, a := range f.rows {
		if a.UserID == userID && a.Platform == platform && a.IsActive {
			a.IsActive = false
			n++
		}
	}
	return n, nil
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []*model.PostingLog
}

func (f *fakeLogs) Create(_ context.Context, _ model.Tenant, e *model.PostingLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLogs) ListByPost(_ context.Context, _ model.Tenant, postID int64) ([]*model.PostingLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.PostingLog
	for _, e := range f.entries {
		if e.PostID == postID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLogs) forPost(postID int64) []*model.PostingLog {
	out, _ := f.ListByPost(context.Background(), testTenant, postID)
	return out
}

type fakeSources struct {
	mu      sync.Mutex
	created []*model.ContentSource
	errors  map[int64]*string
}

func (f *fakeSources) Create(_ context.Context, _ model.Tenant, src *model.ContentSource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	src.ID = int64(len(f.created) + 1)
	f.created = append(f.created, src)
	return nil
}

func (f *fakeSources) MarkProcessed(_ context.Context, _ model.Tenant, id int64, processingErr *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errors == nil {
		f.errors = map[int64]*string{}
	}
	f.errors[id] = processingErr
	return nil
}

type fakeVoices map[int64]*model.BrandVoice

func (f fakeVoices) GetByID(_ context.Context, _ model.Tenant, id int64) (*model.BrandVoice, error) {
	v, ok := f[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUsers(list ...*model.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*model.User{}}
	for _, u := range list {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, _ model.Tenant, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) IncrementUsage(_ context.Context, _ model.Tenant, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id].RepurposesThisMonth++
	return nil
}

type fakeRegistry map[model.Platform]repository.IPublisher

func (r fakeRegistry) Lookup(p model.Platform) (repository.IPublisher, bool) {
	pub, ok := r[p]
	return pub, ok
}

// funcPublisher counts calls and delegates to fn.
type funcPublisher struct {
	platform model.Platform
	calls    int32
	fn       func(req model.PublishRequest) model.PublishResult
}

func (p *funcPublisher) Platform() model.Platform { return p.platform }

func (p *funcPublisher) Publish(_ context.Context, req model.PublishRequest) model.PublishResult {
	atomic.AddInt32(&p.calls, 1)
	return p.fn(req)
}

func (p *funcPublisher) count() int { return int(atomic.LoadInt32(&p.calls)) }

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
	token string
}

func (f *fakeRefresher) Supports(model.Platform) bool { return true }

func (f *fakeRefresher) Refresh(_ context.Context, _ model.Platform, rt string) (*model.TokenUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	exp := time.Now().Add(2 * time.Hour).UTC()
	return &model.TokenUpdate{AccessToken: f.token, RefreshToken: rt, ExpiresAt: &exp}, nil
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req repository.GenerateRequest) (*model.Generated, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Generated), args.Error(1)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) PublishPostStatus(ctx context.Context, evt model.PostStatusEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, sourceType model.SourceType, url, rawText string) (string, string, error) {
	args := m.Called(ctx, sourceType, url, rawText)
	return args.String(0), args.String(1), args.Error(2)
}

// noLocker grants every lock.
type noLocker struct{}

func (noLocker) TryLock(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (noLocker) Unlock(context.Context, string) error                          { return nil }

// heldLocker refuses every lock, as if another sweep owned the units.
type heldLocker struct{}

func (heldLocker) TryLock(context.Context, string, time.Duration) (bool, error) { return false, nil }
func (heldLocker) Unlock(context.Context, string) error                          { return nil }
