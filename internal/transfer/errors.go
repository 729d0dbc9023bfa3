package transfer

import "errors"

var (
	// ErrTransferFault indicates a fetch, probe, or upload failure other than not-found.
	ErrTransferFault = errors.New("transfer fault")
	// ErrMetadataMissing indicates an asset that needs ledger rows has no usable metadata.
	ErrMetadataMissing = errors.New("asset metadata missing")
)
