package domain

import "errors"

// Sentinel errors shared by services and handlers. Wrap them with
// fmt.Errorf("...: %w") to add context.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict")

	// ErrSameGuild is returned when a clone names one guild as both source and target.
	ErrSameGuild = errors.New("source and target guilds must differ")
)

// ValidationError reports which request field was rejected. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
