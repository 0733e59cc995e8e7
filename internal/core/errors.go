package core

import "errors"

// Sentinel errors for domain failures. Services wrap them with context via
// fmt.Errorf("…: %w", …); transports match them with errors.Is.
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrStationNotFound    = errors.New("station not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrMissingBaseProduct = errors.New("glass product has no base bottle configured")
	ErrInvalidState       = errors.New("invalid order state")
	ErrAlreadyClosed      = errors.New("day already closed")
	ErrBadClosePhrase     = errors.New("close phrase does not match")
	ErrProofUploadFailed  = errors.New("payment proof upload failed")
)
