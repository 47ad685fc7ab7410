package feed

import (
	"fmt"
)

// FetchError reports a transport failure for one source: network error,
// timeout or a non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a document that could not be decoded at the feed level.
type ParseError struct {
	URL  string
	Kind SourceKind
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s feed %s: %v", e.Kind, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MalformedItemError reports a single entry missing a required field.
// Such entries are skipped; the rest of the source is kept.
type MalformedItemError struct {
	Index int
	Field string
	Err   error // set when the entry could not be decoded at all
}

func (e *MalformedItemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("entry %d could not be decoded: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("entry %d is missing required field %q", e.Index, e.Field)
}

func (e *MalformedItemError) Unwrap() error {
	return e.Err
}
