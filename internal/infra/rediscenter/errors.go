package rediscenter

import "errors"

var (
	ErrInvalidPayload    = errors.New("invalid notification payload")
	ErrInvalidPermission = errors.New("invalid stored permission")
)
