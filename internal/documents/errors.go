package documents

import "errors"

var (
	ErrNotFound      = errors.New("document not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrMimeNotAllowed = errors.New("mime type not allowed")
	ErrFileTooLarge  = errors.New("file exceeds size limit")
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeStorage    = "STORAGE_ERROR"
	ErrorCodeDatabase   = "DATABASE_ERROR"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)
