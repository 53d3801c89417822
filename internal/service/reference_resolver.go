package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/logger"
	"github.com/unclebandit/outbound-campaigns/internal/metrics"
	"github.com/unclebandit/outbound-campaigns/internal/model"
	"github.com/unclebandit/outbound-campaigns/internal/repository"
)

// IdentityProvider resolves the authenticated user for a request.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (userID string, ok bool)
}

// DirectoryClient is the remote agent/number directory.
type DirectoryClient interface {
	ListAgents(ctx context.Context, apiKey string) ([]model.Agent, error)
	ListPhoneNumbers(ctx context.Context, apiKey string) ([]model.PhoneNumber, error)
}

type Resolution struct {
	UserID string
	Data   *model.ReferenceData
}

// ReferenceResolver loads the agent and phone number options for the
// current user.
type ReferenceResolver struct {
	Identity    IdentityProvider
	Credentials repository.CredentialRepositoryInterface
	Directory   DirectoryClient
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// Resolve returns:
//   - appErrors.ErrUnauthenticated when there is no user,
//   - appErrors.ErrCredentialMissing (with the user id set) when the user has
//     no stored key; the directory is not contacted,
//   - *appErrors.ReferenceDataError when the key lookup or either fetch fails.
func (r *ReferenceResolver) Resolve(ctx context.Context) (*Resolution, error) {
	log := logger.Component(r.Logger, "reference-resolver")

	userID, ok := r.Identity.CurrentUser(ctx)
	if !ok {
		r.Metrics.RecordResolution("unauthenticated")
		return nil, appErrors.ErrUnauthenticated
	}
	log = log.With(zap.String("user_id", userID))

	key, found, err := r.Credentials.GetDirectoryAPIKey(ctx, userID)
	if err != nil {
		log.Error("api key lookup failed", zap.Error(err))
		r.Metrics.RecordResolution("error")
		return nil, &appErrors.ReferenceDataError{Err: err}
	}
	if !found {
		log.Info("no directory api key configured")
		r.Metrics.RecordResolution("credential_missing")
		return &Resolution{UserID: userID}, appErrors.ErrCredentialMissing
	}

	data, err := FetchReferenceData(ctx, r.Directory, key)
	if err != nil {
		log.Error("reference data fetch failed", zap.Error(err))
		r.Metrics.RecordResolution("error")
		return nil, &appErrors.ReferenceDataError{Err: err}
	}

	log.Debug("reference data loaded",
		zap.Int("agents", len(data.Agents)),
		zap.Int("phone_numbers", len(data.PhoneNumbers)))
	r.Metrics.RecordResolution("ready")
	return &Resolution{UserID: userID, Data: data}, nil
}

// FetchReferenceData runs both directory fetches concurrently and waits for
// both. Either failure fails the whole fetch and cancels the other request.
func FetchReferenceData(ctx context.Context, dir DirectoryClient, apiKey string) (*model.ReferenceData, error) {
	var data model.ReferenceData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		agents, err := dir.ListAgents(gctx, apiKey)
		if err != nil {
			return err
		}
		data.Agents = agents
		return nil
	})
	g.Go(func() error {
		numbers, err := dir.ListPhoneNumbers(gctx, apiKey)
		if err != nil {
			return err
		}
		data.PhoneNumbers = numbers
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if data.Agents == nil {
		data.Agents = []model.Agent{}
	}
	if data.PhoneNumbers == nil {
		data.PhoneNumbers = []model.PhoneNumber{}
	}
	return &data, nil
}
