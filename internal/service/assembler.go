package service

import (
	"github.com/unclebandit/outbound-campaigns/internal/model"
)

// FormFields are the user-entered campaign fields.
type FormFields struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	AgentID        string `json:"agent_id"`
	OutboundNumber string `json:"outbound_number"`
}

// AssembleCampaign builds the campaign draft for a submission. A new
// campaign always starts Scheduled, with no progress and not yet run. The
// contacts are returned as given, still without a campaign id.
func AssembleCampaign(fields FormFields, userID string, contacts []model.Contact) (*model.Campaign, []model.Contact) {
	draft := &model.Campaign{
		Title:          fields.Title,
		Description:    fields.Description,
		AgentID:        fields.AgentID,
		OutboundNumber: fields.OutboundNumber,
		Status:         model.StatusScheduled,
		Progress:       0,
		HasRun:         false,
		UserID:         userID,
	}
	return draft, contacts
}
