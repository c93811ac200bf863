package dewatermark

import (
	"errors"
	"fmt"

	"github.com/Robertiks/erase-watermark/internal/resize"
)

var (
	// ErrDecode marks payloads that are not valid images.
	ErrDecode = resize.ErrDecode
	// ErrIO marks filesystem read and write failures around a call.
	ErrIO = errors.New("io")
)

// RemoteServiceError is a non-2xx answer or a 2xx answer without an edited image.
type RemoteServiceError struct {
	StatusCode int
	Body       string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("API Error (status %d): %s", e.StatusCode, e.Body)
}

// InvalidResponseError is a 2xx answer whose body could not be decoded.
type InvalidResponseError struct {
	Body string
	Err  error
}

func (e *InvalidResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response from API: %v: %s", e.Err, e.Body)
	}
	return fmt.Sprintf("invalid JSON response from API: %s", e.Body)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}
