package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrNoFrame        = errors.New("no frame available")
	ErrUnknownPersona = errors.New("unknown persona")
)
