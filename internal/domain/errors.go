// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates the caller supplied invalid input.
var ErrValidation = errors.New("validation failed")

// ErrConfiguration indicates missing or invalid wiring detected at startup.
// It is the only fatal error class: no pipeline run may start while it holds.
var ErrConfiguration = errors.New("configuration error")

// ErrBusy indicates the service is at its admission limit.
var ErrBusy = errors.New("service busy")
