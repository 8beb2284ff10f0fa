package repository

import "errors"

var (
	// ErrEmailTaken is returned when another account already uses the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInUse is returned when a row is still referenced elsewhere.
	ErrInUse = errors.New("still in use")
)
