package journal

import "errors"

var (
	ErrDisabled    = errors.New("journal disabled")
	ErrRunNotFound = errors.New("transfer run not found")
)
