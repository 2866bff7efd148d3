// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// Intake errors
	ErrIncompleteDetails = errors.New("applicant name and email are required")
	ErrDocumentRequired  = errors.New("document capture required before continuing")
	ErrSelfieRequired    = errors.New("selfie capture required before continuing")
	ErrSessionComplete   = errors.New("intake session already complete")
	ErrSessionNotReady   = errors.New("intake session not ready for submission")
	ErrInvalidStepMove   = errors.New("invalid intake step transition")

	// Media errors
	ErrEmptyFile          = errors.New("file is empty")
	ErrFileTooLarge       = errors.New("file too large")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")

	// Verification session errors
	ErrSessionNotFound  = errors.New("verification session not found")
	ErrSessionAbandoned = errors.New("verification session abandoned")

	// Submission errors
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidStatus      = errors.New("invalid kyc status")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
