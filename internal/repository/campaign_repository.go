package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/model"
)

// CampaignWriter performs the two inserts of a campaign submission. Inside
// WithTx both run in one transaction.
type CampaignWriter interface {
	InsertCampaign(ctx context.Context, c *model.Campaign) (int, error)
	InsertContacts(ctx context.Context, campaignID int, contacts []model.Contact) error
}

type CampaignRepositoryInterface interface {
	WithTx(ctx context.Context, fn func(w CampaignWriter) error) error
	GetByID(ctx context.Context, id int) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, userID string, offset, limit int, status string) ([]*model.Campaign, int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

// ====================== Writes ======================

// WithTx runs fn in a transaction, committing only if fn returns nil.
func (r *CampaignRepository) WithTx(ctx context.Context, fn func(w CampaignWriter) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return appErrors.NewStorageError("begin", err)
	}
	if err := fn(&txWriter{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, appErrors.NewStorageError("rollback", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErrors.NewStorageError("commit", err)
	}
	return nil
}

type txWriter struct {
	tx *sql.Tx
}

func (w *txWriter) InsertCampaign(ctx context.Context, c *model.Campaign) (int, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO campaigns (title, description, agent_id, outbound_number, status, progress, has_run, user_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	var id int
	err := w.tx.QueryRowContext(ctx, query,
		c.Title, c.Description, c.AgentID, c.OutboundNumber,
		string(c.Status), c.Progress, c.HasRun, c.UserID, c.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, appErrors.NewStorageError("insert campaign", err)
	}
	return id, nil
}

// InsertContacts streams the batch with COPY.
func (w *txWriter) InsertContacts(ctx context.Context, campaignID int, contacts []model.Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	stmt, err := w.tx.PrepareContext(ctx, pq.CopyIn("contacts", "campaign_id", "phone_number", "first_name"))
	if err != nil {
		return appErrors.NewStorageError("insert contacts", err)
	}
	defer stmt.Close()

	for _, c := range contacts {
		if _, err := stmt.ExecContext(ctx, campaignID, c.PhoneNumber, c.FirstName); err != nil {
			return appErrors.NewStorageError("insert contacts", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return appErrors.NewStorageError("insert contacts", err)
	}
	return nil
}

// ====================== Reads ======================

const campaignColumns = `id, title, description, agent_id, outbound_number, status, progress, has_run, user_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var (
		c      model.Campaign
		status string
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &c.AgentID, &c.OutboundNumber,
		&status, &c.Progress, &c.HasRun, &c.UserID, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Status = model.CampaignStatus(status)
	return &c, nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, appErrors.NewStorageError("get campaign", err)
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, userID string, offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	where := ` WHERE user_id=$1`
	args := []any{userID}
	if status != "" {
		where += ` AND status=$2`
		args = append(args, status)
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, appErrors.NewStorageError("list campaigns", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, appErrors.NewStorageError("list campaigns", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, appErrors.NewStorageError("list campaigns", err)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, appErrors.NewStorageError("count campaigns", err)
	}

	return campaigns, total, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
var _ CampaignWriter = (*txWriter)(nil)
