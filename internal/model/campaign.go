// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
	StatusScheduled CampaignStatus = "Scheduled"
	StatusRunning   CampaignStatus = "Running"
	StatusCompleted CampaignStatus = "Completed"
	StatusFailed    CampaignStatus = "Failed"
)

type Campaign struct {
	ID             int            `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	Description    string         `db:"description" json:"description"`
	AgentID        string         `db:"agent_id" json:"agent_id"`
	OutboundNumber string         `db:"outbound_number" json:"outbound_number"`
	Status         CampaignStatus `db:"status" json:"status"`
	Progress       float64        `db:"progress" json:"progress"`
	HasRun         bool           `db:"has_run" json:"has_run"`
	UserID         string         `db:"user_id" json:"user_id"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}
