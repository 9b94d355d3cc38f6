package ocr

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFileType is returned when a file extension cannot be mapped
// to a media type the vision API accepts.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// UpstreamError reports a transport failure or non-200 reply from the vision API.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ocr upstream error: %v", e.Err)
	}
	return fmt.Sprintf("ocr upstream error (HTTP %d): %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// MalformedExtractionError reports a model reply that could not be parsed as the
// expected JSON shape. RawText carries the reply verbatim for diagnosis.
type MalformedExtractionError struct {
	RawText string
	Err     error
}

func (e *MalformedExtractionError) Error() string {
	return fmt.Sprintf("malformed extraction: %v: %s", e.Err, e.RawText)
}

func (e *MalformedExtractionError) Unwrap() error {
	return e.Err
}
