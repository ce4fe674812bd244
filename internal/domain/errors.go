package domain

import "errors"

// Error taxonomy shared by the codec, mutation, storage and session layers
var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrCorruptData        = errors.New("corrupt data")
	ErrPersistence        = errors.New("persistence failed")
)

// Error kinds reported to clients in Error frames
const (
	KindMalformed   = "malformed"
	KindValidation  = "validation"
	KindNotFound    = "not_found"
	KindUnknownType = "unknown_type"
	KindCorruptData = "corrupt_data"
	KindPersistence = "persistence"
	KindInternal    = "internal"
)

// ErrorKind maps an error chain to its wire kind
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedMessage):
		return KindMalformed
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnknownMessageType):
		return KindUnknownType
	case errors.Is(err, ErrCorruptData):
		return KindCorruptData
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindInternal
	}
}

// IsRecoverable reports whether err only fails the message that caused it.
// Anything else should end the session.
func IsRecoverable(err error) bool {
	switch ErrorKind(err) {
	case KindMalformed, KindValidation, KindNotFound, KindUnknownType, KindPersistence:
		return true
	}
	return false
}
