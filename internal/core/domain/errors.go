package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a construction-time configuration
	// error. Fatal, never retried.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidCursor indicates a stored cursor could not be decoded
	// or was rejected by the remote listing API.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrRateLimited indicates the remote API throttled the request.
	// Callers back off and retry; distinguishable from other failures.
	ErrRateLimited = errors.New("rate limited")

	// ErrEncryptedArchive indicates an archive requires a password.
	// Encrypted archives are rejected outright.
	ErrEncryptedArchive = errors.New("encrypted archive")

	// ErrArchiveTooLarge indicates archive extraction exceeded the
	// total extracted-size ceiling.
	ErrArchiveTooLarge = errors.New("archive exceeds extraction ceiling")

	// ErrCorruptArchive indicates the archive could not be opened.
	ErrCorruptArchive = errors.New("corrupt archive")
)
