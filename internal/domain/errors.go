package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoDataset indicates an operation needs an uploaded file
	ErrNoDataset = errors.New("no dataset uploaded")
	// ErrUnsupportedFile indicates the file type is not accepted for upload
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrRequestInFlight indicates the same kind of request is still outstanding
	ErrRequestInFlight = errors.New("request already in progress")
)
