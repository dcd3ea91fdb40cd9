package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidHeader   = errors.New("invalid csv header")
	ErrPublish         = errors.New("publish failed")
	ErrPublishDisabled = errors.New("publishing disabled")
)
