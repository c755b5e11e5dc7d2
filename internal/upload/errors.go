package upload

import "errors"

var (
	// ErrMissingInput is returned when the request lacks a file or a cookie.
	ErrMissingInput = errors.New("missing file or cookie")
	// ErrTooLarge is returned when the request body exceeds the upload limit.
	ErrTooLarge = errors.New("file too large")
	// ErrScratch marks failures to write, read or remove the local scratch copy.
	ErrScratch = errors.New("scratch file error")
)
