package metadata

import (
	"errors"
	"fmt"
	"os"
)

// Reader turns meta file text into a listing.
type Reader interface {
	FromString(text string, target Target) (Listing, error)
}

// ReadError means the meta file could not be read at all.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ParseError means the meta file was read but its text could not be
// interpreted.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	msg := "unable to parse text"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// FromFile reads the whole file at path and hands its text to r.
func FromFile(r Reader, path string, target Target) (Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	listing, err := r.FromString(string(data), target)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
			return nil, perr
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	return listing, nil
}
