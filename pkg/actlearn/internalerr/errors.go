package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrParse         = errors.New("parse failure")
	ErrMalformedRule = errors.New("malformed rule")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrStoreClosed   = errors.New("store closed")
)
