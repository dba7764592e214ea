package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found") // General not found

	// User & Authentication Errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this username already exists")
	ErrEmailAlreadyExists = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized") // Authentication required or failed

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenNotFound  = errors.New("token not found in storage")

	// Gameplay Errors
	ErrInvalidChoice      = errors.New("invalid choice")
	ErrAdventureCompleted = errors.New("adventure is already completed")
	ErrStaleChoice        = errors.New("choice was made against an outdated scenario")
	ErrInvalidStatDelta   = errors.New("invalid stat delta")
	ErrTemplateNotFound   = errors.New("adventure template not found")

	// ErrRequestInProgress is returned for a retry whose idempotency key is
	// still held by the first attempt.
	ErrRequestInProgress = errors.New("request with this idempotency key is still in progress")

	// ErrAdventureInProgress is returned when a second in-progress adventure
	// would be created for the same character and template.
	ErrAdventureInProgress = errors.New("adventure already in progress")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
