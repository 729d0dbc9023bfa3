package manifest

import "errors"

// ErrMissingKey indicates a manifest without a required top-level key.
var ErrMissingKey = errors.New("manifest missing required key")
