package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound        = errors.New("resource not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")

	// Token & identity errors
	ErrInvalidToken = errors.New("device token is invalid")

	// Skill errors
	ErrInvalidSkillKey = errors.New("skill key is invalid")

	// Quiz session errors
	ErrSessionCompleted = errors.New("session is already completed")
	ErrInvalidAction    = errors.New("session action is invalid")

	// Analytics errors
	ErrInvalidEvent = errors.New("analytics event is invalid")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
