package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOverloaded    = errors.New("too many mosaics in flight")
	ErrImageCount    = errors.New("mosaic needs between 2 and 4 images")
	ErrUnknownFormat = errors.New("unsupported output format")
	ErrEmptySegment  = errors.New("empty path segment")
)

// ValidationError reports a malformed request. No upstream work is attempted for it.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type FetchErrorKind string

const (
	FetchTimeout     FetchErrorKind = "timeout"
	FetchUnreachable FetchErrorKind = "unreachable"
	FetchHTTPStatus  FetchErrorKind = "http_status"
	FetchTooLarge    FetchErrorKind = "too_large"
)

type FetchError struct {
	Kind       FetchErrorKind
	Ref        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchHTTPStatus:
		return fmt.Sprintf("fetching %s: upstream returned status %d", e.Ref, e.StatusCode)
	case FetchTooLarge:
		return fmt.Sprintf("fetching %s: body exceeds size limit", e.Ref)
	}

	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %s: %v", e.Ref, e.Kind, e.Err)
	}

	return fmt.Sprintf("fetching %s: %s", e.Ref, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type DecodeErrorKind string

const (
	DecodeUnsupportedFormat DecodeErrorKind = "unsupported_format"
	DecodeCorrupt           DecodeErrorKind = "corrupt"
	DecodeDimensionTooLarge DecodeErrorKind = "dimension_too_large"
)

type DecodeError struct {
	Kind DecodeErrorKind
	Ref  string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding %s: %s: %v", e.Ref, e.Kind, e.Err)
	}

	return fmt.Sprintf("decoding %s: %s", e.Ref, e.Kind)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoding %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
