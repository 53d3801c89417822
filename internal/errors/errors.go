// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated     = errors.New("no authenticated user")
	ErrCredentialMissing   = errors.New("directory api key not configured")
	ErrNoContactFile       = errors.New("no contacts file imported")
	ErrUnsupportedFileType = errors.New("unsupported contacts file type")
	ErrFormNotFound        = errors.New("campaign form not found")
	ErrFormClosed          = errors.New("campaign form is closed")
)

// ErrCampaignNotFound is returned when a campaign id has no row.
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ParseError wraps a spreadsheet decode failure.
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	if e.FileName == "" {
		return fmt.Sprintf("parse spreadsheet: %v", e.Err)
	}
	return fmt.Sprintf("parse spreadsheet %q: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func NewParseError(fileName string, err error) error {
	return &ParseError{FileName: fileName, Err: err}
}

// DirectoryError is a non-2xx answer from the directory service.
type DirectoryError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("directory %s returned status %d", e.Endpoint, e.StatusCode)
}

// Unauthorized reports whether the key was rejected.
func (e *DirectoryError) Unauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// ReferenceDataError is the single failure reported when either
// reference-data fetch fails. Which one failed is not distinguished.
type ReferenceDataError struct {
	Err error
}

func (e *ReferenceDataError) Error() string {
	return fmt.Sprintf("load reference data: %v", e.Err)
}

func (e *ReferenceDataError) Unwrap() error { return e.Err }

// StorageError wraps a persistence failure with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StateError is returned for an operation the form cannot perform in its
// current state.
type StateError struct {
	From string
	To   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid form transition %s -> %s", e.From, e.To)
}
