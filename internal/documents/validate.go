package documents

import "fmt"

// Validator checks one file's MIME type and size against the upload policy.
// Each file in a batch is judged independently; a rejection never affects
// sibling files.
type Validator struct {
	allowed  map[string]struct{}
	maxBytes int64
}

// NewValidator builds a Validator from the configured allow-list and size
// ceiling. A non-positive ceiling disables the size check.
func NewValidator(allowedMimeTypes []string, maxBytes int64) *Validator {
	allowed := make(map[string]struct{}, len(allowedMimeTypes))
	for _, m := range allowedMimeTypes {
		allowed[m] = struct{}{}
	}
	return &Validator{allowed: allowed, maxBytes: maxBytes}
}

// Validate returns nil when the file passes, or a wrapped ErrMimeNotAllowed /
// ErrFileTooLarge describing the rejection.
func (v *Validator) Validate(mimeType string, sizeBytes int64) error {
	if _, ok := v.allowed[mimeType]; !ok {
		return fmt.Errorf("%w: %s", ErrMimeNotAllowed, mimeType)
	}
	if v.maxBytes > 0 && sizeBytes > v.maxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, sizeBytes, v.maxBytes)
	}
	return nil
}

// MaxBytes reports the configured ceiling.
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}
