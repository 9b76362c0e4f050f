package hxlookup

import (
	"errors"

	"github.com/pthm/hxlookup/lib/widget"
)

// Sentinel errors for component operations.
var (
	ErrNotFound         = errors.New("hxlookup: resource not found")
	ErrDecryptFailed    = errors.New("hxlookup: parameter decryption failed")
	ErrSignatureInvalid = errors.New("hxlookup: signature verification failed")
	ErrInvalidFormat    = errors.New("hxlookup: invalid parameter format")
	ErrHydrationFailed  = errors.New("hxlookup: hydration failed")
	ErrInstanceNotFound = errors.New("hxlookup: lookup instance not found")
	ErrReadOnly         = errors.New("hxlookup: lookup is read only")
	ErrMethodNotAllowed = errors.New("hxlookup: method not allowed")
)

// IsNotFound checks if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInstanceNotFound)
}

// IsDecryptionError checks if err is a decryption or signature error.
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryptFailed) || errors.Is(err, ErrSignatureInvalid)
}

// IsReadOnly checks if err was caused by a mutation of a read-only lookup.
func IsReadOnly(err error) bool {
	return errors.Is(err, ErrReadOnly) || errors.Is(err, widget.ErrReadOnly)
}
