package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileValidationError represents a rejected upload.
type FileValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *FileValidationError) Error() string { return e.Message }

const ErrCodeInvalidExtension = "invalid_extension"

// RequireExtension rejects names whose extension (case-insensitive) is not
// one of allowed, e.g. RequireExtension("report.PDF", ".pdf").
func RequireExtension(filename string, allowed ...string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return nil
		}
	}
	return &FileValidationError{
		Field:   "file",
		Code:    ErrCodeInvalidExtension,
		Message: fmt.Sprintf("only %s files allowed", strings.Join(allowed, ", ")),
	}
}
