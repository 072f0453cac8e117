package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/l3v3l-match/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeQueueRepo is an in-memory queue store. Every mutation holds the mutex
// for its entire read-check-write sequence, mirroring the atomicity the
// Mongo implementation gets from findOneAndUpdate.
type fakeQueueRepo struct {
	mu    sync.Mutex
	items []*models.QueueItem
}

func (f *fakeQueueRepo) Insert(_ context.Context, item *models.QueueItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = primitive.NewObjectID()
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	copied := *item
	f.items = append(f.items, &copied)
	return nil
}

func (f *fakeQueueRepo) GetByID(_ context.Context, id string) (*models.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ID.Hex() == id {
			copied := *it
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("queue item not found")
}

func (f *fakeQueueRepo) ListByStatus(_ context.Context, status models.Status, limit int64) ([]models.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.QueueItem
	for _, it := range f.items {
		if it.Status == status {
			out = append(out, *it)
		}
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeQueueRepo) ClaimNext(_ context.Context, channel models.Channel, now time.Time) (*models.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.Status != models.StatusPending && it.Status != models.StatusScheduled {
			continue
		}
		if channel != "" && it.Channel != channel {
			continue
		}
		if it.ScheduledFor != nil && it.ScheduledFor.After(now) {
			continue
		}
		if it.NextRetryAt != nil && it.NextRetryAt.After(now) {
			continue
		}
		it.Status = models.StatusProcessing
		started := now
		it.ProcessingStartedAt = &started
		it.UpdatedAt = now
		copied := *it
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeQueueRepo) MarkSent(_ context.Context, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it := f.find(id)
	if it == nil {
		return fmt.Errorf("queue item not found")
	}
	it.Status = models.StatusSent
	it.SentAt = &at
	it.Attempts++
	it.ProcessingStartedAt = nil
	it.UpdatedAt = at
	return nil
}

func (f *fakeQueueRepo) MarkRetry(_ context.Context, id primitive.ObjectID, nextRetryAt time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it := f.find(id)
	if it == nil {
		return fmt.Errorf("queue item not found")
	}
	it.Status = models.StatusPending
	it.NextRetryAt = &nextRetryAt
	it.StatusReason = reason
	it.Attempts++
	it.ProcessingStartedAt = nil
	it.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeQueueRepo) MarkFailed(_ context.Context, id primitive.ObjectID, at time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it := f.find(id)
	if it == nil {
		return fmt.Errorf("queue item not found")
	}
	it.Status = models.StatusFailed
	it.FailedAt = &at
	it.StatusReason = reason
	it.Attempts++
	it.ProcessingStartedAt = nil
	it.UpdatedAt = at
	return nil
}

func (f *fakeQueueRepo) ResetStuckProcessing(_ context.Context, olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reset int64
	for _, it := range f.items {
		if it.Status == models.StatusProcessing && it.ProcessingStartedAt != nil && it.ProcessingStartedAt.Before(olderThan) {
			it.Status = models.StatusPending
			it.ProcessingStartedAt = nil
			it.StatusReason = "reset after stuck processing"
			reset++
		}
	}
	return reset, nil
}

func (f *fakeQueueRepo) find(id primitive.ObjectID) *models.QueueItem {
	for _, it := range f.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (f *fakeQueueRepo) snapshot() []models.QueueItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.QueueItem, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, *it)
	}
	return out
}

// fakePreferenceRepo mirrors the lazy-default behavior of the Mongo store
type fakePreferenceRepo struct {
	mu    sync.Mutex
	prefs map[string]*models.Preferences
}

func newFakePreferenceRepo() *fakePreferenceRepo {
	return &fakePreferenceRepo{prefs: map[string]*models.Preferences{}}
}

func (f *fakePreferenceRepo) Get(_ context.Context, username string) (*models.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.prefs[username]; ok {
		copied := *p
		return &copied, nil
	}
	p := models.DefaultPreferences(username)
	f.prefs[username] = p
	copied := *p
	return &copied, nil
}

func (f *fakePreferenceRepo) Update(_ context.Context, username string, _ *models.PreferencesUpdate) (*models.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.prefs[username]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, fmt.Errorf("preferences not found")
}

func (f *fakePreferenceRepo) Delete(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.prefs, username)
	return nil
}

func (f *fakePreferenceRepo) set(p *models.Preferences) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[p.Username] = p
}

type fakeDeliveryLogRepo struct {
	mu      sync.Mutex
	entries []models.DeliveryLog
}

func (f *fakeDeliveryLogRepo) Insert(_ context.Context, entry *models.DeliveryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = primitive.NewObjectID()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeDeliveryLogRepo) CountSince(_ context.Context, username string, channel models.Channel, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.entries {
		if e.Username == username && e.Channel == channel && !e.SentAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeDeliveryLogRepo) SumCostSince(_ context.Context, username string, channel models.Channel, since time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum float64
	for _, e := range f.entries {
		if e.Username == username && e.Channel == channel && !e.SentAt.Before(since) {
			sum += e.Cost
		}
	}
	return sum, nil
}

func (f *fakeDeliveryLogRepo) TrackOpen(_ context.Context, _ string) error  { return nil }
func (f *fakeDeliveryLogRepo) TrackClick(_ context.Context, _ string) error { return nil }

func (f *fakeDeliveryLogRepo) Aggregate(_ context.Context, _ models.AnalyticsFilter) (*models.AnalyticsSummary, error) {
	return &models.AnalyticsSummary{}, nil
}

func (f *fakeDeliveryLogRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]*models.MessageTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: map[string]*models.MessageTemplate{}}
}

func (f *fakeTemplateRepo) FindActive(_ context.Context, trigger models.Trigger, channel models.Channel) (*models.MessageTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[string(trigger)+"/"+string(channel)]
	if !ok || !t.Active {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTemplateRepo) Upsert(_ context.Context, tmpl *models.MessageTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *tmpl
	f.templates[string(tmpl.Trigger)+"/"+string(tmpl.Channel)] = &copied
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		f.users[u.Username] = u
	}
	return f
}

func (f *fakeUserRepo) CreateUser(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ uint) (*models.User, error) {
	return nil, fmt.Errorf("user not found")
}

func (f *fakeUserRepo) GetUserByUsername(username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpdateUser(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserRepo) DeleteUser(_ uint) error { return nil }

// fakeTransport records sends and fails according to failFor
type fakeTransport struct {
	mu      sync.Mutex
	sends   []string
	failFor int // fail the first N calls
	calls   int
}

func (f *fakeTransport) Send(_ context.Context, recipient, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFor {
		return fmt.Errorf("provider unavailable")
	}
	f.sends = append(f.sends, recipient+"|"+subject+"|"+body)
	return nil
}

func (f *fakeTransport) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}
