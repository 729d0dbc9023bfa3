package collection

import "errors"

var (
	ErrNoBucket    = errors.New("collection bucket does not exist")
	ErrNoVerifier  = errors.New("verifier not configured")
	ErrUploadFault = errors.New("upload batch failed")
)
