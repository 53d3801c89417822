package repository

import (
	"context"
	"database/sql"

	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/model"
)

type ContactRepositoryInterface interface {
	CountByCampaign(ctx context.Context, campaignID int) (int, error)
	ListByCampaign(ctx context.Context, campaignID, offset, limit int) ([]model.Contact, error)
}

type ContactRepository struct {
	DB *sql.DB
}

func (r *ContactRepository) CountByCampaign(ctx context.Context, campaignID int) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE campaign_id=$1`, campaignID).Scan(&n)
	if err != nil {
		return 0, appErrors.NewStorageError("count contacts", err)
	}
	return n, nil
}

// ListByCampaign returns contacts in insertion order.
func (r *ContactRepository) ListByCampaign(ctx context.Context, campaignID, offset, limit int) ([]model.Contact, error) {
	query := `
        SELECT id, campaign_id, phone_number, first_name
        FROM contacts
        WHERE campaign_id=$1
        ORDER BY id
        LIMIT $2 OFFSET $3
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID, limit, offset)
	if err != nil {
		return nil, appErrors.NewStorageError("list contacts", err)
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.CampaignID, &c.PhoneNumber, &c.FirstName); err != nil {
			return nil, appErrors.NewStorageError("list contacts", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewStorageError("list contacts", err)
	}
	return contacts, nil
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
