package scans

import "errors"

var (
	// ErrNotFound indicates the scan id is unknown.
	ErrNotFound = errors.New("scan not found")

	// ErrInvalidTransition indicates a status change that would leave a
	// terminal state or skip a step. The stored status is left unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotReady indicates a report was requested before the scan completed.
	ErrNotReady = errors.New("report not ready")

	// ErrSourceDeleted indicates the source archive was already removed.
	ErrSourceDeleted = errors.New("source archive already deleted")

	// ErrBadArchive indicates the upload is not a well-formed zip container.
	ErrBadArchive = errors.New("archive is not a valid zip file")

	// ErrArchiveTooLarge indicates the upload exceeds the configured maximum.
	ErrArchiveTooLarge = errors.New("archive exceeds maximum size")

	// ErrMissingField indicates a required request field was empty.
	ErrMissingField = errors.New("missing required field")
)
