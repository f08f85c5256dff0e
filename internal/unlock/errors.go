package unlock

import "errors"

var (
	// ErrUnknownCode means the payload referenced a QR code record that does
	// not exist.
	ErrUnknownCode = errors.New("unknown QR code")

	// ErrInactiveCode means the record exists but has been toggled off.
	ErrInactiveCode = errors.New("QR code is inactive")

	// ErrNotYetActive means the current time is before the record's start
	// date.
	ErrNotYetActive = errors.New("QR code is not active yet")

	// ErrExpiredCode means the current time is after the record's end date.
	ErrExpiredCode = errors.New("QR code has expired")
)
