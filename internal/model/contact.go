// internal/model/contact.go
package model

// Contact is one call target. CampaignID stays zero until the owning
// campaign has been inserted.
type Contact struct {
	ID          int    `db:"id" json:"id,omitempty"`
	PhoneNumber string `db:"phone_number" json:"phone_number"`
	FirstName   string `db:"first_name" json:"first_name"`
	CampaignID  int    `db:"campaign_id" json:"campaign_id,omitempty"`
}
