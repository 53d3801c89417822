// internal/service/campaign_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/logger"
	"github.com/unclebandit/outbound-campaigns/internal/metrics"
	"github.com/unclebandit/outbound-campaigns/internal/model"
	"github.com/unclebandit/outbound-campaigns/internal/queue"
	"github.com/unclebandit/outbound-campaigns/internal/repository"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	Publisher    queue.Publisher
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

type CampaignDetails struct {
	ID             int                  `json:"id"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	AgentID        string               `json:"agent_id"`
	OutboundNumber string               `json:"outbound_number"`
	Status         model.CampaignStatus `json:"status"`
	Progress       float64              `json:"progress"`
	HasRun         bool                 `json:"has_run"`
	CreatedAt      time.Time            `json:"created_at"`
	ContactCount   int                  `json:"contact_count"`
}

// CreateCampaign persists draft and then its contacts tagged with the new
// campaign id. Contacts are never written unless the campaign insert
// succeeded, and both writes share one transaction so a failed contact
// insert leaves no campaign behind.
func (s *CampaignService) CreateCampaign(ctx context.Context, draft *model.Campaign, contacts []model.Contact) (int, error) {
	log := logger.Component(s.Logger, "campaign-service")

	if err := validateDraft(draft); err != nil {
		return 0, err
	}

	stage := "campaign"
	var campaignID int
	err := s.CampaignRepo.WithTx(ctx, func(w repository.CampaignWriter) error {
		id, err := w.InsertCampaign(ctx, draft)
		if err != nil {
			return err
		}
		campaignID = id

		stage = "contacts"
		tagged := make([]model.Contact, len(contacts))
		for i, c := range contacts {
			c.CampaignID = id
			tagged[i] = c
		}
		return w.InsertContacts(ctx, id, tagged)
	})
	if err != nil {
		log.Error("failed to create campaign",
			zap.String("stage", stage),
			zap.String("user_id", draft.UserID),
			zap.Error(err))
		s.Metrics.RecordSubmitFailure(stage)
		return 0, err
	}

	draft.ID = campaignID
	s.Metrics.RecordCampaignCreated()
	log.Info("campaign created",
		zap.Int("campaign_id", campaignID),
		zap.String("user_id", draft.UserID),
		zap.Int("contacts", len(contacts)))

	s.handOff(log, queue.CampaignCreatedEvent{
		CampaignID:   campaignID,
		UserID:       draft.UserID,
		ContactCount: len(contacts),
	})
	return campaignID, nil
}

// handOff announces the new campaign. Failures are logged only: the campaign
// is already committed.
func (s *CampaignService) handOff(log *zap.Logger, event queue.CampaignCreatedEvent) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(queue.TopicCampaignCreated, event); err != nil {
		log.Warn("failed to publish campaign created event",
			zap.Int("campaign_id", event.CampaignID),
			zap.Error(err))
	}
}

func validateDraft(c *model.Campaign) error {
	switch {
	case c.Title == "":
		return appErrors.NewValidationError("title", "is required")
	case c.AgentID == "":
		return appErrors.NewValidationError("agent_id", "is required")
	case c.OutboundNumber == "":
		return appErrors.NewValidationError("outbound_number", "is required")
	case c.UserID == "":
		return appErrors.NewValidationError("user_id", "is required")
	}
	return nil
}

// ListCampaigns fetches a user's campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, userID string, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, userID, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// GetCampaignDetails returns a campaign with its contact count. Campaigns of
// other users are reported as not found.
func (s *CampaignService) GetCampaignDetails(ctx context.Context, userID string, id int) (*CampaignDetails, error) {
	campaign, err := s.ownedCampaign(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	count, err := s.ContactRepo.CountByCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	return &CampaignDetails{
		ID:             campaign.ID,
		Title:          campaign.Title,
		Description:    campaign.Description,
		AgentID:        campaign.AgentID,
		OutboundNumber: campaign.OutboundNumber,
		Status:         campaign.Status,
		Progress:       campaign.Progress,
		HasRun:         campaign.HasRun,
		CreatedAt:      campaign.CreatedAt,
		ContactCount:   count,
	}, nil
}

// ListContacts pages through a campaign's contacts.
func (s *CampaignService) ListContacts(ctx context.Context, userID string, campaignID, page, pageSize int) ([]model.Contact, error) {
	if _, err := s.ownedCampaign(ctx, userID, campaignID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}
	return s.ContactRepo.ListByCampaign(ctx, campaignID, (page-1)*pageSize, pageSize)
}

func (s *CampaignService) ownedCampaign(ctx context.Context, userID string, id int) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.UserID != userID {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return campaign, nil
}
