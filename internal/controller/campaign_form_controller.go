// internal/controller/campaign_form_controller.go
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/outbound-campaigns/internal/auth"
	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/importer"
	"github.com/unclebandit/outbound-campaigns/internal/logger"
	"github.com/unclebandit/outbound-campaigns/internal/service"
)

const multipartMemory = 32 << 20

// CampaignFormController exposes the campaign creation flow over HTTP. Each
// form lives in the registry between requests and belongs to the user who
// opened it.
type CampaignFormController struct {
	Forms          *service.FormRegistry
	MaxUploadBytes int64
	Logger         *zap.Logger
}

func (c *CampaignFormController) Routes(r chi.Router) {
	r.Route("/campaign-forms", func(r chi.Router) {
		r.Post("/", c.OpenForm)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", c.GetForm)
			r.Patch("/", c.UpdateFields)
			r.Delete("/", c.DiscardForm)
			r.Post("/contacts", c.ImportContacts)
			r.Post("/submit", c.Submit)
		})
	})
}

func (c *CampaignFormController) log() *zap.Logger {
	return logger.Component(c.Logger, "campaign-form-controller")
}

// OpenForm starts a form and returns its initial view. Forms that end
// initialization in a terminal state are reported and then dropped.
// Initialization outlives a client that disconnects mid-request.
func (c *CampaignFormController) OpenForm(w http.ResponseWriter, r *http.Request) {
	form, err := c.Forms.Open(context.WithoutCancel(r.Context()))
	view := form.View()

	switch form.State() {
	case service.StateReady:
		writeJSON(w, http.StatusCreated, view)
		return
	case service.StateInitializing:
		// closed before initialization finished
		c.Forms.Remove(form.ID())
		writeError(w, http.StatusGone, "campaign form was discarded")
		return
	}

	c.Forms.Remove(form.ID())
	switch {
	case errors.Is(err, appErrors.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, view.Message)
	case errors.Is(err, appErrors.ErrCredentialMissing):
		writeJSON(w, http.StatusOK, view)
	default:
		writeJSON(w, http.StatusBadGateway, view)
	}
}

func (c *CampaignFormController) GetForm(w http.ResponseWriter, r *http.Request) {
	form, ok := c.formFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, form.View())
}

func (c *CampaignFormController) UpdateFields(w http.ResponseWriter, r *http.Request) {
	form, ok := c.formFor(w, r)
	if !ok {
		return
	}

	var body service.FieldsUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := form.SetFields(body); err != nil {
		c.writeFormError(w, form, err)
		return
	}
	writeJSON(w, http.StatusOK, form.View())
}

// ImportContacts replaces the form's contact batch with the uploaded file.
func (c *CampaignFormController) ImportContacts(w http.ResponseWriter, r *http.Request) {
	form, ok := c.formFor(w, r)
	if !ok {
		return
	}

	if c.MaxUploadBytes > 0 {
		if r.ContentLength > c.MaxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "contacts file is too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, c.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "contacts file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	if !importer.Accepts(header.Header.Get("Content-Type"), header.Filename) {
		c.writeFormError(w, form, appErrors.ErrUnsupportedFileType)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	batch, err := form.ImportContacts(header.Filename, data)
	if err != nil {
		c.writeFormError(w, form, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file_name":     batch.FileName,
		"contact_count": batch.Len(),
		"rejected_rows": batch.Rejected,
	})
}

// Submit creates the campaign. On success the form is finished and removed.
// A submission that has started runs to completion even if the client goes
// away.
func (c *CampaignFormController) Submit(w http.ResponseWriter, r *http.Request) {
	form, ok := c.formFor(w, r)
	if !ok {
		return
	}

	id, err := form.Submit(context.WithoutCancel(r.Context()))
	if err != nil {
		c.writeFormError(w, form, err)
		return
	}
	c.Forms.Remove(form.ID())

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"campaign_id": id,
	})
}

func (c *CampaignFormController) DiscardForm(w http.ResponseWriter, r *http.Request) {
	form, ok := c.formFor(w, r)
	if !ok {
		return
	}
	c.Forms.Remove(form.ID())
	w.WriteHeader(http.StatusNoContent)
}

// formFor loads the form named in the path. Forms owned by another user are
// reported as missing.
func (c *CampaignFormController) formFor(w http.ResponseWriter, r *http.Request) (*service.CampaignForm, bool) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, service.MsgUnauthenticated)
		return nil, false
	}
	form, err := c.Forms.Get(chi.URLParam(r, "id"))
	if err != nil || form.Owner() != userID {
		writeError(w, http.StatusNotFound, appErrors.ErrFormNotFound.Error())
		return nil, false
	}
	return form, true
}

func (c *CampaignFormController) writeFormError(w http.ResponseWriter, form *service.CampaignForm, err error) {
	var (
		validationErr *appErrors.ValidationError
		stateErr      *appErrors.StateError
		parseErr      *appErrors.ParseError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": validationErr.Error(),
			"field": validationErr.Field,
		})
	case errors.Is(err, appErrors.ErrNoContactFile):
		writeError(w, http.StatusUnprocessableEntity, "please upload a contacts file")
	case errors.Is(err, appErrors.ErrUnsupportedFileType):
		writeError(w, http.StatusUnsupportedMediaType, "only .xlsx and .xls files are accepted")
	case errors.As(err, &parseErr):
		writeError(w, http.StatusUnprocessableEntity, service.MsgParseFailed)
	case errors.As(err, &stateErr):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, appErrors.ErrFormClosed):
		writeError(w, http.StatusGone, err.Error())
	default:
		c.log().Error("campaign form operation failed",
			zap.String("form_id", form.ID()),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, service.MsgSubmitFailed)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
