package apperrors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrGeneratorUnavailable = errors.New("query generator unavailable")
	ErrSchemaUnavailable    = errors.New("schema description unavailable")
	ErrRunAlreadyTerminal   = errors.New("query run already in a terminal state")
)
