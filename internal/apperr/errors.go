package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNoActiveNote      = errors.New("no active note")
	ErrMissingCredential = errors.New("transcription credential is not set")
)
