package domain

import "errors"

var (
	// ErrProductNotFound is returned when a lookup source has no name for a barcode
	ErrProductNotFound = errors.New("product not found")

	// ErrLookupFailure is returned when a product lookup request fails
	ErrLookupFailure = errors.New("product lookup request failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidBarcode is returned when a barcode is empty after trimming
	ErrInvalidBarcode = errors.New("invalid barcode")

	// ErrCacheMiss is returned when a candidate has no cached name
	ErrCacheMiss = errors.New("cache miss")

	// ErrStoreFailure is returned when an inventory or shopping list API call fails
	ErrStoreFailure = errors.New("inventory store request failed")

	// ErrItemNotFound is returned when an inventory or shopping list item id is unknown
	ErrItemNotFound = errors.New("inventory item not found")

	// ErrScanCancelled is returned when a scan session is closed by the user
	ErrScanCancelled = errors.New("scan cancelled")

	// ErrCaptureClosed is returned when the camera stream ends before a barcode is confirmed
	ErrCaptureClosed = errors.New("camera stream closed")

	// ErrSessionState is returned when a scan session method is called in the wrong state
	ErrSessionState = errors.New("invalid scan session state")
)
