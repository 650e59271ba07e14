package model

import "errors"

var (
	// ErrInvalidInput is returned for an empty or whitespace-only handle,
	// before any request is issued.
	ErrInvalidInput = errors.New("please enter a GitHub username")

	// ErrNotFound means the remote service reported that the handle does
	// not exist.
	ErrNotFound = errors.New("user not found")

	// ErrService covers any other non-success status or transport failure.
	ErrService = errors.New("error connecting to GitHub API")
)
