package repair

import "errors"

// ErrInvalidRule indicates a repair rule that cannot be applied.
var ErrInvalidRule = errors.New("invalid repair rule")
