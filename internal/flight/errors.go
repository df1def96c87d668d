package flight

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	// ErrNotFound means no file matched the requested pattern.
	ErrNotFound = errors.New("no matching flight file")

	// ErrAmbiguousMatch means a pinned revision matched more than one file.
	ErrAmbiguousMatch = errors.New("multiple flight files match")

	// ErrTimeNotMonotonic means the Time channel decreases or is not finite.
	ErrTimeNotMonotonic = errors.New("time index not monotonic")

	// ErrMissingChannel means a channel needed by the loader is absent.
	ErrMissingChannel = errors.New("missing channel")
)

// NotFoundError names the directory and pattern that produced no match.
// It matches ErrNotFound and fs.ErrNotExist.
type NotFoundError struct {
	Dir     string
	Pattern string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no files matching %s under %s", ErrNotFound, e.Pattern, e.Dir)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == fs.ErrNotExist
}

// AmbiguousMatchError lists every file matching a pinned query. It matches
// ErrAmbiguousMatch and fs.ErrExist.
type AmbiguousMatchError struct {
	Pattern    string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%s %s: %s", ErrAmbiguousMatch, e.Pattern, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguousMatch || target == fs.ErrExist
}
