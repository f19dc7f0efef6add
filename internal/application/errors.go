package application

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("transaction not found")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamAPI       = errors.New("upstream api error")
	ErrUpstreamNetwork   = errors.New("upstream network error")
	ErrStoreNotConnected = errors.New("ledger store not connected")
	ErrDuplicateHash     = errors.New("transaction already logged")
)

// ErrDuplicateKey is returned by backends that reject a repeated hash server-side.
var ErrDuplicateKey = errors.New("duplicate ledger key")

// FetchError classifies a failed indexing-service lookup. Kind is one of
// ErrNotFound, ErrUpstreamTimeout, ErrUpstreamAPI or ErrUpstreamNetwork.
type FetchError struct {
	Kind    error
	Status  int
	Message string
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%v: status %d", e.Kind, e.Status)
	}
	if e.Message != "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return e.Kind.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Kind
}

// Transient reports whether a retry may succeed.
func (e *FetchError) Transient() bool {
	switch e.Kind {
	case ErrUpstreamTimeout, ErrUpstreamNetwork:
		return true
	case ErrUpstreamAPI:
		return e.Status == 429 || e.Status >= 500
	default:
		return false
	}
}
