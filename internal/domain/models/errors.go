package models

import "errors"

var (
	// ErrInvalidInput is returned before resolution when the request itself is unusable.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoDataAvailable is returned when every resolution tier failed.
	ErrNoDataAvailable = errors.New("no data available")
)

// ErrorKind maps an error to its public kind label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrNoDataAvailable):
		return "NoDataAvailable"
	default:
		return "Internal"
	}
}
