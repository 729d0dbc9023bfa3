package recovery

import "errors"

var (
	// ErrNoMetadata indicates no secondary metadata line matches an asset.
	ErrNoMetadata = errors.New("no secondary metadata for asset")
	// ErrExtract indicates an archive could not be fetched or unpacked.
	ErrExtract = errors.New("archive extraction failed")
)
