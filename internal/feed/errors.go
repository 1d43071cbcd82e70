package feed

import (
	"errors"
	"fmt"
)

var (
	ErrLocationUnavailable = errors.New("viewer location unavailable")
	ErrBusy                = errors.New("feed refresh already in flight")
	ErrClosed              = errors.New("feed closed")
)

const msgLocationUnavailable = "Location not available. Please enable location permissions."

// FetchFailedError reports a failed upstream call. StatusCode is 0 for
// transport failures that never produced a response.
type FetchFailedError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch failed: %d %s", e.StatusCode, e.Message)
}

func (e *FetchFailedError) Unwrap() error {
	return e.Err
}
