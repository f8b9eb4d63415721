package core

import "errors"

// Account set errors (admin input)
var (
	ErrInvalidAccount      = errors.New("account requires an email or mobile") // 400
	ErrDuplicateIdentifier = errors.New("account identifier already exists")   // 400
	ErrNotFound            = errors.New("account not found")                   // 404
)

// Account-level failures, recovered by the rotation queue
var (
	ErrUnauthenticated = errors.New("account has no usable token and no password") // 401
	ErrLoginFailed     = errors.New("login failed")                                // 401
)

// Terminal for one selection
var (
	ErrNoUsableAccount = errors.New("no usable account available") // 503
)

// API key errors
var (
	ErrKeyRequired = errors.New("key is required")    // 400
	ErrKeyExists   = errors.New("key already exists") // 400
	ErrKeyNotFound = errors.New("key not found")      // 404
)

// Admin guard errors
var (
	ErrMissingAuthHeader = errors.New("missing authorization header")                            // 401
	ErrInvalidAuthHeader = errors.New("invalid authorization format, expected 'Bearer <token>'") // 401
	ErrAdminKeyInvalid   = errors.New("invalid admin key")                                       // 401
	ErrCacheNotFound     = errors.New("entry not found in cache")
)

// Config errors (server-side configuration)
var (
	ErrStorageRequired     = errors.New("config storage is required") // 500
	ErrLoginClientRequired = errors.New("login client is required")   // 500
	ErrInvalidConfig       = errors.New("invalid configuration")      // 500
)
