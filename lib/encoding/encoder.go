// Package encoding turns component props into opaque URL-safe strings and
// back. Props travel through the browser, so every string is either signed
// (readable, tamper-proof) or encrypted.
package encoding

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrInvalidFormat    = errors.New("encoding: invalid format")
	ErrSignatureInvalid = errors.New("encoding: signature verification failed")
	ErrDecryptFailed    = errors.New("encoding: decryption failed")
	ErrNotEncodable     = errors.New("encoding: value does not implement Encodable")
	ErrNotDecodable     = errors.New("encoding: value does not implement Decodable")
)

// Mode selects how props are protected.
type Mode int

const (
	// Signed is base64 msgpack followed by an HMAC. Visible but tamper-proof.
	Signed Mode = iota
	// Encrypted is AES-256-GCM. Fully opaque.
	Encrypted
)

// Encodable is implemented by props that know their wire form.
type Encodable interface {
	HXEncode() map[string]any
}

// Decodable is implemented by props that can rebuild themselves.
type Decodable interface {
	HXDecode(map[string]any) error
}

type keySet struct {
	mac []byte
	gcm cipher.AEAD
}

func newKeySet(key []byte) (keySet, error) {
	if len(key) != 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return keySet{}, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return keySet{}, err
	}
	return keySet{mac: key, gcm: gcm}, nil
}

// Encoder encodes with its current key and decodes with the current key or
// any previous one, so a key can be rotated without breaking pages that are
// already open.
type Encoder struct {
	current  keySet
	previous []keySet
}

// NewEncoder returns an encoder for key. Keys of any length are accepted;
// anything other than 32 bytes is hashed down to 32.
func NewEncoder(key []byte, previous ...[]byte) (*Encoder, error) {
	cur, err := newKeySet(key)
	if err != nil {
		return nil, fmt.Errorf("encoding: key: %w", err)
	}
	e := &Encoder{current: cur}
	for _, p := range previous {
		ks, err := newKeySet(p)
		if err != nil {
			return nil, fmt.Errorf("encoding: previous key: %w", err)
		}
		e.previous = append(e.previous, ks)
	}
	return e, nil
}

// Encode serialises v, which must implement Encodable.
func (e *Encoder) Encode(v any, mode Mode) (string, error) {
	enc, ok := v.(Encodable)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrNotEncodable, v)
	}
	packed, err := msgpack.Marshal(enc.HXEncode())
	if err != nil {
		return "", fmt.Errorf("encoding: marshal: %w", err)
	}
	if mode == Encrypted {
		return e.current.encrypt(packed)
	}
	return e.current.sign(packed), nil
}

// Decode verifies or decrypts s and loads it into v, which must implement
// Decodable.
func (e *Encoder) Decode(s string, mode Mode, v any) error {
	dec, ok := v.(Decodable)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotDecodable, v)
	}
	packed, err := e.open(s, mode)
	if err != nil {
		return err
	}
	var data map[string]any
	if err := msgpack.Unmarshal(packed, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return dec.HXDecode(data)
}

func (e *Encoder) open(s string, mode Mode) ([]byte, error) {
	keys := append([]keySet{e.current}, e.previous...)
	var lastErr error
	for _, ks := range keys {
		var (
			data []byte
			err  error
		)
		if mode == Encrypted {
			data, err = ks.decrypt(s)
		} else {
			data, err = ks.verify(s)
		}
		if err == nil {
			return data, nil
		}
		if errors.Is(err, ErrInvalidFormat) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// sign produces base64(data) "." base64(hmac[:16]).
func (ks keySet) sign(data []byte) string {
	mac := hmac.New(sha256.New, ks.mac)
	mac.Write(data)
	return base64.RawURLEncoding.EncodeToString(data) + "." +
		base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16])
}

func (ks keySet) verify(s string) ([]byte, error) {
	body, sigText, ok := strings.Cut(s, ".")
	if !ok {
		return nil, ErrInvalidFormat
	}
	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, ErrInvalidFormat
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigText)
	if err != nil {
		return nil, ErrSignatureInvalid
	}
	mac := hmac.New(sha256.New, ks.mac)
	mac.Write(data)
	if !hmac.Equal(sig, mac.Sum(nil)[:16]) {
		return nil, ErrSignatureInvalid
	}
	return data, nil
}

func (ks keySet) encrypt(data []byte) (string, error) {
	nonce := make([]byte, ks.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("encoding: nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(ks.gcm.Seal(nonce, nonce, data, nil)), nil
}

func (ks keySet) decrypt(s string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidFormat
	}
	n := ks.gcm.NonceSize()
	if len(raw) < n {
		return nil, ErrInvalidFormat
	}
	data, err := ks.gcm.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return data, nil
}
