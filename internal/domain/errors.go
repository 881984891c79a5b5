package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when no record matches
	ErrNotFound = errors.New("not found")

	// ErrInvalidURL marks a submission URL that is not an absolute http(s) URL
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidInput marks any other rejected submission field
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidVote marks a vote delta outside {-1, 0, +1}
	ErrInvalidVote = errors.New("invalid vote increment")

	// ErrDuplicateURL is returned by Create when the normalized URL is already stored
	ErrDuplicateURL = errors.New("tool with this URL already exists")
)
