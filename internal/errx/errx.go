// Package errx provides a small sentinel-wrapping convention used
// throughout this module: package-level sentinel errors (declared with
// errors.New) identify the class of failure for errors.Is, while Wrap and
// With attach the underlying cause or a formatted detail message.
package errx

import (
	"errors"
	"fmt"
)

// Wrap attaches cause to sentinel so that errors.Is(err, sentinel) still
// matches, while the returned error's message includes cause's text.
func Wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &wrapped{sentinel: sentinel, cause: cause}
}

// With attaches a formatted detail message to sentinel, for failures that
// don't originate from an underlying error value.
func With(sentinel error, format string, args ...interface{}) error {
	return &wrapped{sentinel: sentinel, detail: fmt.Sprintf(format, args...)}
}

type wrapped struct {
	sentinel error
	cause    error
	detail   string
}

func (w *wrapped) Error() string {
	switch {
	case w.cause != nil:
		return fmt.Sprintf("%s: %s", w.sentinel.Error(), w.cause.Error())
	case w.detail != "":
		return fmt.Sprintf("%s: %s", w.sentinel.Error(), w.detail)
	default:
		return w.sentinel.Error()
	}
}

func (w *wrapped) Unwrap() error {
	return w.sentinel
}

// Cause returns the original error passed to Wrap, if any.
func Cause(err error) error {
	var w *wrapped
	if errors.As(err, &w) {
		return w.cause
	}
	return nil
}

// Is reports whether err is, or wraps, sentinel. It exists as a thin
// convenience over errors.Is for call sites that already import errx.
func Is(err, sentinel error) bool {
	return errors.Is(err, sentinel)
}
