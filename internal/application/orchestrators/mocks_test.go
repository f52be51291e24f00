package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"crmmail/internal/adapters/email"
	customerStore "crmmail/internal/adapters/storage/customer"
	"crmmail/internal/domain/campaign"
	"crmmail/internal/domain/customer"
	domainOutbox "crmmail/internal/domain/outbox"
	"crmmail/internal/domain/schedule"
	domainTemplate "crmmail/internal/domain/template"
)

var fixedNow = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func idGen(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// --- Mock customer store ---

type mockCustomerStore struct {
	customers []customer.Customer
	err       error
}

// List returns customers matching the status filter.
// PRE: none
// POST: Returns matches in insertion order, or the configured error
func (m *mockCustomerStore) List(_ context.Context, f customerStore.ListFilter) ([]customer.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []customer.Customer
	for _, c := range m.customers {
		if f.Status == "" || c.Status == f.Status {
			out = append(out, c)
		}
	}
	return out, nil
}

// Save appends a customer.
// PRE: c is valid
// POST: Customer stored
func (m *mockCustomerStore) Save(_ context.Context, c customer.Customer) error {
	m.customers = append(m.customers, c)
	return nil
}

func customersN(n int, status string) []customer.Customer {
	out := make([]customer.Customer, n)
	for i := range out {
		out[i] = customer.Customer{
			ID:     fmt.Sprintf("cust%d", i),
			Name:   fmt.Sprintf("Customer %d", i),
			Email:  fmt.Sprintf("c%d@example.com", i),
			Status: status,
		}
	}
	return out
}

// --- Mock template store ---

type mockTemplateStore struct {
	templates map[string]domainTemplate.Template
	used      map[string]string
}

func newMockTemplateStore(ts ...domainTemplate.Template) *mockTemplateStore {
	m := &mockTemplateStore{templates: map[string]domainTemplate.Template{}, used: map[string]string{}}
	for _, t := range ts {
		m.templates[t.ID] = t
	}
	return m
}

// GetByID retrieves a template.
// PRE: id is non-empty
// POST: Returns the template or an error wrapping sql.ErrNoRows
func (m *mockTemplateStore) GetByID(_ context.Context, id string) (domainTemplate.Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return domainTemplate.Template{}, fmt.Errorf("template not found: %w", sql.ErrNoRows)
	}
	return t, nil
}

// Save stores a template.
// PRE: t is valid
// POST: Template stored by ID
func (m *mockTemplateStore) Save(_ context.Context, t domainTemplate.Template) error {
	m.templates[t.ID] = t
	return nil
}

// MarkUsed records the last-used date.
// PRE: none
// POST: used[id] == date
func (m *mockTemplateStore) MarkUsed(_ context.Context, id, date string) error {
	m.used[id] = date
	return nil
}

// --- Mock campaign store ---

type mockCampaignStore struct {
	mu        sync.Mutex
	campaigns map[string]campaign.Campaign
	createErr error
	incErr    error
}

func newMockCampaignStore() *mockCampaignStore {
	return &mockCampaignStore{campaigns: map[string]campaign.Campaign{}}
}

// Create stores a campaign.
// PRE: c has an ID
// POST: Campaign stored unless createErr is set
func (m *mockCampaignStore) Create(_ context.Context, c campaign.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.campaigns[c.ID] = c
	return nil
}

// IncrementOpened bumps opened.
// PRE: none
// POST: opened+1, or campaign.ErrNotFound
func (m *mockCampaignStore) IncrementOpened(_ context.Context, id string) error {
	return m.bump(id, func(c *campaign.Campaign) { c.Opened++ })
}

// IncrementClicked bumps clicked.
// PRE: none
// POST: clicked+1, or campaign.ErrNotFound
func (m *mockCampaignStore) IncrementClicked(_ context.Context, id string) error {
	return m.bump(id, func(c *campaign.Campaign) { c.Clicked++ })
}

func (m *mockCampaignStore) bump(id string, f func(*campaign.Campaign)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incErr != nil {
		return m.incErr
	}
	c, ok := m.campaigns[id]
	if !ok {
		return campaign.ErrNotFound
	}
	f(&c)
	m.campaigns[id] = c
	return nil
}

func (m *mockCampaignStore) only() (campaign.Campaign, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.campaigns) != 1 {
		return campaign.Campaign{}, false
	}
	for _, c := range m.campaigns {
		return c, true
	}
	return campaign.Campaign{}, false
}

// --- Mock schedule store ---

type mockScheduleStore struct {
	mu        sync.Mutex
	schedules map[string]schedule.Schedule
	// stolen marks ids another run claims first.
	stolen   map[string]bool
	claimErr error
}

func newMockScheduleStore(ss ...schedule.Schedule) *mockScheduleStore {
	m := &mockScheduleStore{schedules: map[string]schedule.Schedule{}, stolen: map[string]bool{}}
	for _, s := range ss {
		m.schedules[s.ID] = s
	}
	return m
}

// Create stores a schedule.
// PRE: s is valid
// POST: Schedule stored; duplicate ids are rejected
func (m *mockScheduleStore) Create(_ context.Context, s schedule.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[s.ID]; ok {
		return errors.New("duplicate id")
	}
	m.schedules[s.ID] = s
	return nil
}

// ListDue returns scheduled rows at or before (today, hhmm), ordered.
// PRE: today is YYYY-MM-DD, hhmm is HH:MM
// POST: Ordered by date then time
func (m *mockScheduleStore) ListDue(_ context.Context, today, hhmm string) ([]schedule.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []schedule.Schedule
	for _, s := range m.schedules {
		if s.IsDue(today, hhmm) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledDate != out[j].ScheduledDate {
			return out[i].ScheduledDate < out[j].ScheduledDate
		}
		return out[i].ScheduledTime < out[j].ScheduledTime
	})
	return out, nil
}

// Claim moves scheduled to processing.
// PRE: none
// POST: Returns true only if the row was scheduled and not stolen
func (m *mockScheduleStore) Claim(_ context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return false, m.claimErr
	}
	s, ok := m.schedules[id]
	if !ok || s.Status != schedule.StatusScheduled || m.stolen[id] {
		return false, nil
	}
	s.Status = schedule.StatusProcessing
	s.ClaimedAt = now
	m.schedules[id] = s
	return true, nil
}

// Complete writes a terminal state onto a processing row.
// PRE: s.Status is terminal
// POST: Row updated, or schedule.ErrNotProcessing
func (m *mockScheduleStore) Complete(_ context.Context, s schedule.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.schedules[s.ID]
	if !ok || cur.Status != schedule.StatusProcessing {
		return schedule.ErrNotProcessing
	}
	m.schedules[s.ID] = s
	return nil
}

func (m *mockScheduleStore) get(id string) schedule.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedules[id]
}

// --- Mock sender ---

type mockSender struct {
	mu      sync.Mutex
	singles []email.SendRequest
	batches [][]email.SendRequest
	err     error
}

// Send records a single send.
// PRE: none
// POST: Request recorded unless err is set
func (m *mockSender) Send(_ context.Context, req email.SendRequest) (email.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return email.SendResult{}, m.err
	}
	m.singles = append(m.singles, req)
	return email.SendResult{SentAt: fixedNow}, nil
}

// SendBatch records a batch send.
// PRE: none
// POST: Batch recorded unless err is set
func (m *mockSender) SendBatch(_ context.Context, reqs []email.SendRequest) ([]email.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.batches = append(m.batches, reqs)
	return make([]email.SendResult, len(reqs)), nil
}

// --- Mock outbox ---

type mockOutboxStore struct {
	mu      sync.Mutex
	entries map[string]domainOutbox.Entry
	order   []string
}

func newMockOutboxStore() *mockOutboxStore {
	return &mockOutboxStore{entries: map[string]domainOutbox.Entry{}}
}

// GetByID retrieves an entry.
// PRE: id is non-empty
// POST: Returns the entry or an error
func (m *mockOutboxStore) GetByID(_ context.Context, id string) (domainOutbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domainOutbox.Entry{}, sql.ErrNoRows
	}
	return e, nil
}

// Save upserts an entry.
// PRE: e has an ID
// POST: Entry stored, insertion order kept
func (m *mockOutboxStore) Save(_ context.Context, e domainOutbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	m.entries[e.ID] = e
	return nil
}

// ListPending returns pending or retrying entries in insertion order.
// PRE: limit > 0
// POST: At most limit entries
func (m *mockOutboxStore) ListPending(_ context.Context, limit int) ([]domainOutbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domainOutbox.Entry
	for _, id := range m.order {
		e := m.entries[id]
		if e.Status == domainOutbox.StatusPending || e.Status == domainOutbox.StatusRetrying {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ListByTopic returns entries for a topic.
// PRE: none
// POST: Entries in insertion order, filtered by status if set
func (m *mockOutboxStore) ListByTopic(_ context.Context, topic, status string, limit int) ([]domainOutbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domainOutbox.Entry
	for _, id := range m.order {
		e := m.entries[id]
		if e.Topic == topic && (status == "" || e.Status == status) {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOutboxStore) topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.entries[id].Topic)
	}
	return out
}
