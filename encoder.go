package hxlookup

import (
	"errors"

	"github.com/pthm/hxlookup/lib/encoding"
)

// Encoder is an alias for encoding.Encoder for convenience.
type Encoder = encoding.Encoder

// Encodable is implemented by types that can encode themselves efficiently.
type Encodable = encoding.Encodable

// Decodable is implemented by types that can decode themselves efficiently.
type Decodable = encoding.Decodable

// NewEncoder creates a new encoder with the given key. Props encoded under
// any of the previous keys still decode.
func NewEncoder(key []byte, previous ...[]byte) (*Encoder, error) {
	return encoding.NewEncoder(key, previous...)
}

func encodingMode(sensitive bool) encoding.Mode {
	if sensitive {
		return encoding.Encrypted
	}
	return encoding.Signed
}

// wrapEncodingError maps encoding package errors to hxlookup sentinel errors.
func wrapEncodingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, encoding.ErrInvalidFormat) {
		return ErrInvalidFormat
	}
	if errors.Is(err, encoding.ErrSignatureInvalid) {
		return ErrSignatureInvalid
	}
	if errors.Is(err, encoding.ErrDecryptFailed) {
		return ErrDecryptFailed
	}
	return err
}
