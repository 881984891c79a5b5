package tools

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"toolshed/internal/domain"
	"toolshed/internal/pkg/urlnorm"
)

// User-facing messages
const (
	msgInvalidURL      = "Invalid URL."
	msgMissingName     = "Please say who is submitting this tool."
	msgShortReason     = "Justification must be at least %d characters."
	msgTimeout         = "The request timed out or was blocked. The URL might be slow, inaccessible, or preventing automated requests."
	msgDatabase        = "Could not save to the database. Please try again."
	msgNotFound        = "Tool not found."
	msgInvalidVote     = "Vote increments must be -1, 0 or 1."
	msgQueueDisabled   = "Background refresh is not available."
	msgSubmitted       = "Tool submitted successfully."
	msgResubmitted     = "Tool already listed, metadata updated."
	msgRefreshed       = "Tool metadata refreshed."
	msgRefreshQueued   = "Refresh queued."
	msgFallbackWarning = "Saved, but details could not be retrieved automatically."
)

// validationError carries the message shown to the user alongside the
// sentinel that classifies it
type validationError struct {
	kind    error
	message string
}

func (e *validationError) Error() string { return e.message }
func (e *validationError) Unwrap() error { return e.kind }

// submissionURL is a validated submission address. Page is fetched and
// stored; Key finds earlier submissions of the same tool.
type submissionURL struct {
	Page string
	Key  string
}

func parseSubmissionURL(rawURL string) (submissionURL, error) {
	page, err := urlnorm.Clean(rawURL)
	if err != nil {
		return submissionURL{}, &validationError{kind: domain.ErrInvalidURL, message: msgInvalidURL}
	}
	key, err := urlnorm.NormalizeURL(page)
	if err != nil {
		return submissionURL{}, &validationError{kind: domain.ErrInvalidURL, message: msgInvalidURL}
	}
	return submissionURL{Page: page, Key: key}, nil
}

// validateSubmission checks a submission. It performs no network activity.
func validateSubmission(in SubmitInput, minJustification int) (submissionURL, error) {
	target, err := parseSubmissionURL(in.URL)
	if err != nil {
		return submissionURL{}, err
	}

	if strings.TrimSpace(in.SubmittedBy) == "" {
		return submissionURL{}, &validationError{kind: domain.ErrInvalidInput, message: msgMissingName}
	}

	if utf8.RuneCountInString(strings.TrimSpace(in.Justification)) < minJustification {
		return submissionURL{}, &validationError{
			kind:    domain.ErrInvalidInput,
			message: fmt.Sprintf(msgShortReason, minJustification),
		}
	}

	return target, nil
}
