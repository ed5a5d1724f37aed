package model

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a cache miss. Callers treat it as an empty result,
// not a failure.
var ErrNotFound = errors.New("not found")

// NetworkError wraps a transport failure against the ledger or the
// cache store.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NormalizationError reports a single malformed log entry. The fetch
// that produced it continues past the entry.
type NormalizationError struct {
	TxHash   string
	LogIndex uint64
	Reason   string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize log %s:%d: %s", e.TxHash, e.LogIndex, e.Reason)
}

// ConfigurationError reports a missing required address or parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}
