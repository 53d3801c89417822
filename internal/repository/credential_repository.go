package repository

import (
	"context"
	"database/sql"
	"errors"

	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
)

// CredentialRepositoryInterface looks up the per-user directory API key.
type CredentialRepositoryInterface interface {
	GetDirectoryAPIKey(ctx context.Context, userID string) (key string, found bool, err error)
}

type CredentialRepository struct {
	DB *sql.DB
}

// GetDirectoryAPIKey reports found=false when the user has no settings row
// or an empty key.
func (r *CredentialRepository) GetDirectoryAPIKey(ctx context.Context, userID string) (string, bool, error) {
	var key sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT retell_api_key FROM user_settings WHERE user_id=$1`, userID).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, appErrors.NewStorageError("get api key", err)
	}
	if !key.Valid || key.String == "" {
		return "", false, nil
	}
	return key.String, true, nil
}

func (r *CredentialRepository) SetDirectoryAPIKey(ctx context.Context, userID, key string) error {
	query := `
        INSERT INTO user_settings (user_id, retell_api_key, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id) DO UPDATE SET retell_api_key=EXCLUDED.retell_api_key, updated_at=NOW()
    `
	if _, err := r.DB.ExecContext(ctx, query, userID, key); err != nil {
		return appErrors.NewStorageError("set api key", err)
	}
	return nil
}

var _ CredentialRepositoryInterface = (*CredentialRepository)(nil)
