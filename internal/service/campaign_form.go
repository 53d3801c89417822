package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/importer"
	"github.com/unclebandit/outbound-campaigns/internal/logger"
	"github.com/unclebandit/outbound-campaigns/internal/metrics"
	"github.com/unclebandit/outbound-campaigns/internal/model"
)

// User-facing status messages. Causes are logged, never shown.
const (
	MsgUnauthenticated   = "You must be signed in to create a campaign."
	MsgCredentialMissing = "Please set your Retell API key in settings first"
	MsgReferenceData     = "Failed to load Retell data. Please check your API key in settings."
	MsgParseFailed       = "Failed to read the contacts file. Please upload a valid XLSX or XLS file."
	MsgSubmitFailed      = "Failed to create campaign. Please try again."
)

type FormState int

const (
	StateInitializing FormState = iota
	StateReady
	StateCredentialMissing
	StateInitError
	StateEditing
	StateSubmitting
	StateSubmitSuccess
)

var formStateNames = [...]string{
	StateInitializing:      "initializing",
	StateReady:             "ready",
	StateCredentialMissing: "credential_missing",
	StateInitError:         "init_error",
	StateEditing:           "editing",
	StateSubmitting:        "submitting",
	StateSubmitSuccess:     "submit_success",
}

func (s FormState) String() string {
	if s >= 0 && int(s) < len(formStateNames) {
		return formStateNames[s]
	}
	return fmt.Sprintf("FormState(%d)", int(s))
}

// formTransitions lists every legal move. CredentialMissing, InitError and
// SubmitSuccess are terminal. A failed submit returns to Editing.
var formTransitions = map[FormState][]FormState{
	StateInitializing: {StateReady, StateCredentialMissing, StateInitError},
	StateReady:        {StateEditing, StateSubmitting},
	StateEditing:      {StateEditing, StateSubmitting},
	StateSubmitting:   {StateSubmitSuccess, StateEditing},
}

func canTransition(from, to FormState) bool {
	return slices.Contains(formTransitions[from], to)
}

type ReferenceDataResolver interface {
	Resolve(ctx context.Context) (*Resolution, error)
}

type CampaignCreator interface {
	CreateCampaign(ctx context.Context, draft *model.Campaign, contacts []model.Contact) (int, error)
}

// FieldsUpdate is a partial edit; nil fields are left alone.
type FieldsUpdate struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	AgentID        *string `json:"agent_id"`
	OutboundNumber *string `json:"outbound_number"`
}

// CampaignForm drives one campaign creation from initialization to a
// persisted campaign. It is safe for concurrent use; only one import or
// submit changes the form at a time, and results that arrive after Close
// are dropped.
type CampaignForm struct {
	id       string
	resolver ReferenceDataResolver
	creator  CampaignCreator
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	state      FormState
	started    bool
	closed     bool
	userID     string
	reference  *model.ReferenceData
	fields     FormFields
	batch      *importer.Batch
	message    string
	campaignID int
}

func NewCampaignForm(id string, resolver ReferenceDataResolver, creator CampaignCreator, l *zap.Logger, m *metrics.Metrics) *CampaignForm {
	return &CampaignForm{
		id:       id,
		resolver: resolver,
		creator:  creator,
		logger:   logger.Component(l, "campaign-form").With(zap.String("form_id", id)),
		metrics:  m,
		state:    StateInitializing,
	}
}

func (f *CampaignForm) ID() string { return f.id }

func (f *CampaignForm) Owner() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID
}

func (f *CampaignForm) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *CampaignForm) transitionLocked(to FormState) error {
	if !canTransition(f.state, to) {
		return &appErrors.StateError{From: f.state.String(), To: to.String()}
	}
	f.state = to
	return nil
}

// Initialize resolves the user and the reference data. It runs once.
// The returned error is the resolver's; the resulting state and message are
// available through View.
func (f *CampaignForm) Initialize(ctx context.Context) error {
	f.mu.Lock()
	if f.started || f.closed {
		f.mu.Unlock()
		return &appErrors.StateError{From: f.state.String(), To: StateInitializing.String()}
	}
	f.started = true
	f.mu.Unlock()

	res, err := f.resolver.Resolve(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		f.logger.Debug("form closed during initialization, result dropped")
		return nil
	}
	if res != nil {
		f.userID = res.UserID
	}

	switch {
	case err == nil:
		f.reference = res.Data
		return f.transitionLocked(StateReady)
	case errors.Is(err, appErrors.ErrCredentialMissing):
		f.message = MsgCredentialMissing
		f.state = StateCredentialMissing
	case errors.Is(err, appErrors.ErrUnauthenticated):
		f.message = MsgUnauthenticated
		f.state = StateInitError
	default:
		f.message = MsgReferenceData
		f.state = StateInitError
	}
	f.logger.Info("form initialization failed", zap.Stringer("state", f.state), zap.Error(err))
	return err
}

func (f *CampaignForm) checkEditableLocked() error {
	if f.closed {
		return appErrors.ErrFormClosed
	}
	if !canTransition(f.state, StateEditing) || f.state == StateSubmitting {
		return &appErrors.StateError{From: f.state.String(), To: StateEditing.String()}
	}
	return nil
}

// SetFields applies a partial edit.
func (f *CampaignForm) SetFields(update FieldsUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkEditableLocked(); err != nil {
		return err
	}

	if update.Title != nil {
		f.fields.Title = *update.Title
	}
	if update.Description != nil {
		f.fields.Description = *update.Description
	}
	if update.AgentID != nil {
		f.fields.AgentID = *update.AgentID
	}
	if update.OutboundNumber != nil {
		f.fields.OutboundNumber = *update.OutboundNumber
	}
	return f.transitionLocked(StateEditing)
}

// ImportContacts parses a dropped file and replaces the current batch with
// its contacts. A file that cannot be parsed clears the batch.
func (f *CampaignForm) ImportContacts(fileName string, data []byte) (*importer.Batch, error) {
	f.mu.Lock()
	if err := f.checkEditableLocked(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	batch, importErr := importer.Import(fileName, data)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return batch, importErr
	}
	if err := f.checkEditableLocked(); err != nil {
		return nil, err
	}

	if importErr != nil {
		f.logger.Warn("contacts file rejected", zap.String("file_name", fileName), zap.Error(importErr))
		f.metrics.RecordImportFailure()
		f.batch = nil
		f.message = MsgParseFailed
		if err := f.transitionLocked(StateEditing); err != nil {
			return nil, err
		}
		return nil, importErr
	}

	f.batch = batch
	if f.message == MsgParseFailed {
		f.message = ""
	}
	f.metrics.RecordImport(batch.Len(), batch.Rejected)
	f.logger.Info("contacts imported",
		zap.String("file_name", fileName),
		zap.Int("contacts", batch.Len()),
		zap.Int("rejected_rows", batch.Rejected))
	return batch, f.transitionLocked(StateEditing)
}

func (f *CampaignForm) validateLocked() error {
	switch {
	case f.fields.Title == "":
		return appErrors.NewValidationError("title", "is required")
	case f.fields.AgentID == "":
		return appErrors.NewValidationError("agent_id", "is required")
	case !f.reference.HasAgent(f.fields.AgentID):
		return appErrors.NewValidationError("agent_id", "is not one of the available agents")
	case f.fields.OutboundNumber == "":
		return appErrors.NewValidationError("outbound_number", "is required")
	case !f.reference.HasPhoneNumber(f.fields.OutboundNumber):
		return appErrors.NewValidationError("outbound_number", "is not one of the available phone numbers")
	case f.batch == nil:
		return appErrors.ErrNoContactFile
	}
	return nil
}

// Submit assembles and persists the campaign with the current batch. On
// failure the form returns to Editing with its fields and batch intact so
// the user can retry.
func (f *CampaignForm) Submit(ctx context.Context) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, appErrors.ErrFormClosed
	}
	if !canTransition(f.state, StateSubmitting) {
		err := &appErrors.StateError{From: f.state.String(), To: StateSubmitting.String()}
		f.mu.Unlock()
		return 0, err
	}
	if err := f.validateLocked(); err != nil {
		f.mu.Unlock()
		return 0, err
	}
	draft, contacts := AssembleCampaign(f.fields, f.userID, f.batch.Contacts)
	f.state = StateSubmitting
	f.mu.Unlock()

	id, err := f.creator.CreateCampaign(ctx, draft, contacts)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return id, err
	}
	if err != nil {
		f.message = MsgSubmitFailed
		if tErr := f.transitionLocked(StateEditing); tErr != nil {
			return 0, errors.Join(err, tErr)
		}
		return 0, err
	}

	f.campaignID = id
	f.batch = nil
	f.message = ""
	return id, f.transitionLocked(StateSubmitSuccess)
}

// Close abandons the form. Work still in flight completes but its results
// are discarded.
func (f *CampaignForm) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FormView is a snapshot for rendering.
type FormView struct {
	ID           string     `json:"id"`
	State        string     `json:"state"`
	Message      string     `json:"message,omitempty"`
	Fields       FormFields `json:"fields"`
	Agents       []Option   `json:"agents"`
	PhoneNumbers []Option   `json:"phone_numbers"`
	FileName     string     `json:"file_name,omitempty"`
	ContactCount int        `json:"contact_count"`
	RejectedRows int        `json:"rejected_rows"`
	CampaignID   int        `json:"campaign_id,omitempty"`
}

func (f *CampaignForm) View() FormView {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := FormView{
		ID:           f.id,
		State:        f.state.String(),
		Message:      f.message,
		Fields:       f.fields,
		Agents:       []Option{},
		PhoneNumbers: []Option{},
		CampaignID:   f.campaignID,
	}
	if f.reference != nil {
		for _, a := range f.reference.Agents {
			v.Agents = append(v.Agents, Option{Value: a.ID, Label: a.Name})
		}
		for _, p := range f.reference.PhoneNumbers {
			v.PhoneNumbers = append(v.PhoneNumbers, Option{Value: p.Number, Label: p.Label()})
		}
	}
	if f.batch != nil {
		v.FileName = f.batch.FileName
		v.ContactCount = f.batch.Len()
		v.RejectedRows = f.batch.Rejected
	}
	return v
}
