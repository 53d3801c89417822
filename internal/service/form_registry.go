package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/logger"
	"github.com/unclebandit/outbound-campaigns/internal/metrics"
)

// FormRegistry keeps in-progress forms in memory. A form that is not touched
// for the TTL expires and is closed.
type FormRegistry struct {
	Resolver ReferenceDataResolver
	Creator  CampaignCreator

	forms   *cache.Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewFormRegistry(resolver ReferenceDataResolver, creator CampaignCreator, ttl time.Duration, l *zap.Logger, m *metrics.Metrics) *FormRegistry {
	r := &FormRegistry{
		Resolver: resolver,
		Creator:  creator,
		forms:    cache.New(ttl, ttl/2),
		logger:   logger.Component(l, "form-registry"),
		metrics:  m,
	}
	r.forms.OnEvicted(func(id string, v any) {
		if form, ok := v.(*CampaignForm); ok {
			form.Close()
		}
		r.logger.Debug("form released", zap.String("form_id", id))
		r.metrics.SetActiveForms(r.forms.ItemCount())
	})
	return r
}

// Open creates a form, registers it and initializes it. The form is
// returned together with the initialization error, if any.
func (r *FormRegistry) Open(ctx context.Context) (*CampaignForm, error) {
	form := NewCampaignForm(uuid.NewString(), r.Resolver, r.Creator, r.logger, r.metrics)
	r.forms.SetDefault(form.ID(), form)
	r.metrics.SetActiveForms(r.forms.ItemCount())

	err := form.Initialize(ctx)
	return form, err
}

// Get returns the form and extends its lifetime.
func (r *FormRegistry) Get(id string) (*CampaignForm, error) {
	v, ok := r.forms.Get(id)
	if !ok {
		return nil, appErrors.ErrFormNotFound
	}
	form := v.(*CampaignForm)
	r.forms.SetDefault(id, form)
	return form, nil
}

// Remove closes and forgets the form.
func (r *FormRegistry) Remove(id string) {
	r.forms.Delete(id)
}

func (r *FormRegistry) Len() int {
	return r.forms.ItemCount()
}
