package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/model"
	"github.com/unclebandit/outbound-campaigns/internal/repository"
	"github.com/unclebandit/outbound-campaigns/internal/service"
)

// ---- persistence ----

// MockCampaignRepo keeps committed rows in memory. Writes made inside a
// failed WithTx are discarded, like a rolled back transaction.
type MockCampaignRepo struct {
	mu sync.Mutex

	InsertCampaignErr error
	InsertContactsErr error

	nextID    int
	Campaigns []*model.Campaign
	Contacts  []model.Contact
	Calls     []string
}

type mockWriter struct {
	repo      *MockCampaignRepo
	campaigns []*model.Campaign
	contacts  []model.Contact
}

func (w *mockWriter) InsertCampaign(ctx context.Context, c *model.Campaign) (int, error) {
	w.repo.Calls = append(w.repo.Calls, "insert_campaign")
	if w.repo.InsertCampaignErr != nil {
		return 0, w.repo.InsertCampaignErr
	}
	w.repo.nextID++
	stored := *c
	stored.ID = w.repo.nextID
	w.campaigns = append(w.campaigns, &stored)
	return stored.ID, nil
}

func (w *mockWriter) InsertContacts(ctx context.Context, campaignID int, contacts []model.Contact) error {
	w.repo.Calls = append(w.repo.Calls, "insert_contacts")
	if w.repo.InsertContactsErr != nil {
		return w.repo.InsertContactsErr
	}
	w.contacts = append(w.contacts, contacts...)
	return nil
}

func (m *MockCampaignRepo) WithTx(ctx context.Context, fn func(w repository.CampaignWriter) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &mockWriter{repo: m}
	if err := fn(w); err != nil {
		return err
	}
	m.Campaigns = append(m.Campaigns, w.campaigns...)
	m.Contacts = append(m.Contacts, w.contacts...)
	return nil
}

func (m *MockCampaignRepo) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Campaigns {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, appErrors.NewCampaignNotFound(id)
}

func (m *MockCampaignRepo) ListCampaigns(ctx context.Context, userID string, offset, limit int, status string) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var filtered []*model.Campaign
	// newest first
	for i := len(m.Campaigns) - 1; i >= 0; i-- {
		c := m.Campaigns[i]
		if c.UserID != userID || (status != "" && string(c.Status) != status) {
			continue
		}
		filtered = append(filtered, c)
	}
	total := len(filtered)
	if offset >= total {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

type MockContactRepo struct {
	Campaigns *MockCampaignRepo
	CountErr  error
}

func (m *MockContactRepo) CountByCampaign(ctx context.Context, campaignID int) (int, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	list, _ := m.ListByCampaign(ctx, campaignID, 0, 1<<30)
	return len(list), nil
}

func (m *MockContactRepo) ListByCampaign(ctx context.Context, campaignID, offset, limit int) ([]model.Contact, error) {
	m.Campaigns.mu.Lock()
	defer m.Campaigns.mu.Unlock()
	out := []model.Contact{}
	for _, c := range m.Campaigns.Contacts {
		if c.CampaignID == campaignID {
			out = append(out, c)
		}
	}
	if offset >= len(out) {
		return []model.Contact{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

type MockPublisher struct {
	mu     sync.Mutex
	Err    error
	Events []any
}

func (p *MockPublisher) Publish(topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, payload)
	return p.Err
}

// ---- reference data ----

type staticIdentity struct {
	userID string
}

func (s staticIdentity) CurrentUser(ctx context.Context) (string, bool) {
	return s.userID, s.userID != ""
}

type MockCredentials struct {
	Key   string
	Err   error
	Calls atomic.Int32
}

func (m *MockCredentials) GetDirectoryAPIKey(ctx context.Context, userID string) (string, bool, error) {
	m.Calls.Add(1)
	if m.Err != nil {
		return "", false, m.Err
	}
	return m.Key, m.Key != "", nil
}

type MockDirectory struct {
	Agents       []model.Agent
	PhoneNumbers []model.PhoneNumber
	AgentsErr    error
	NumbersErr   error

	AgentCalls  atomic.Int32
	NumberCalls atomic.Int32
	LastKey     atomic.Value
}

func (m *MockDirectory) ListAgents(ctx context.Context, apiKey string) ([]model.Agent, error) {
	m.AgentCalls.Add(1)
	m.LastKey.Store(apiKey)
	return m.Agents, m.AgentsErr
}

func (m *MockDirectory) ListPhoneNumbers(ctx context.Context, apiKey string) ([]model.PhoneNumber, error) {
	m.NumberCalls.Add(1)
	m.LastKey.Store(apiKey)
	return m.PhoneNumbers, m.NumbersErr
}

func (m *MockDirectory) Calls() int {
	return int(m.AgentCalls.Load() + m.NumberCalls.Load())
}

// barrierDirectory only answers once both fetches are in flight.
type barrierDirectory struct {
	agentsStarted  chan struct{}
	numbersStarted chan struct{}
}

func newBarrierDirectory() *barrierDirectory {
	return &barrierDirectory{agentsStarted: make(chan struct{}), numbersStarted: make(chan struct{})}
}

var errNotConcurrent = errors.New("fetches did not overlap")

func (b *barrierDirectory) ListAgents(ctx context.Context, apiKey string) ([]model.Agent, error) {
	close(b.agentsStarted)
	select {
	case <-b.numbersStarted:
		return []model.Agent{{ID: "agent_1", Name: "A"}}, nil
	case <-time.After(time.Second):
		return nil, errNotConcurrent
	}
}

func (b *barrierDirectory) ListPhoneNumbers(ctx context.Context, apiKey string) ([]model.PhoneNumber, error) {
	close(b.numbersStarted)
	select {
	case <-b.agentsStarted:
		return []model.PhoneNumber{{Number: "+1555"}}, nil
	case <-time.After(time.Second):
		return nil, errNotConcurrent
	}
}

// ---- form collaborators ----

// stubResolver returns a fixed resolution, optionally waiting on gate.
type stubResolver struct {
	res     *service.Resolution
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (s *stubResolver) Resolve(ctx context.Context) (*service.Resolution, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	return s.res, s.err
}

type createCall struct {
	Draft    *model.Campaign
	Contacts []model.Contact
}

// stubCreator answers CreateCampaign from a list of errors, one per call.
type stubCreator struct {
	mu      sync.Mutex
	id      int
	errs    []error
	calls   []createCall
	gate    chan struct{}
	entered chan struct{}
}

func (s *stubCreator) CreateCampaign(ctx context.Context, draft *model.Campaign, contacts []model.Contact) (int, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, createCall{Draft: draft, Contacts: contacts})
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	return s.id, nil
}

func (s *stubCreator) Calls() []createCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]createCall(nil), s.calls...)
}

var testReference = &model.ReferenceData{
	Agents: []model.Agent{
		{ID: "agent_123", Name: "Sales Agent"},
		{ID: "agent_456", Name: "Support Agent"},
	},
	PhoneNumbers: []model.PhoneNumber{
		{Number: "+15551234567", Pretty: "+1 (555) 123-4567", Nickname: "Main"},
	},
}

func readyResolver() *stubResolver {
	return &stubResolver{res: &service.Resolution{UserID: "user_1", Data: testReference}}
}

// workbook builds an xlsx file whose first sheet holds rows.
func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", axis, &rows[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func strPtr(s string) *string { return &s }
