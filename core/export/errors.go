package export

import (
	"errors"
	"fmt"

	"github.com/gaurav-prasanna/markify/core"
)

var (
	// ErrBusy is returned when an export is requested while another one is
	// still in flight. Requests are never queued.
	ErrBusy = errors.New("an export is already in progress")

	// ErrCapabilityUnavailable marks an engine that cannot run yet or at
	// all (missing browser binary, fonts not loaded).
	ErrCapabilityUnavailable = errors.New("export capability unavailable")
)

// Kind classifies an export failure.
type Kind int

const (
	// KindConversion is a failure inside an engine or packager.
	KindConversion Kind = iota
	// KindUnavailable is an engine detected as unusable before invocation.
	KindUnavailable
)

// Error is a failed export of one format.
type Error struct {
	Format core.Format
	Kind   Kind
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindUnavailable {
		return fmt.Sprintf("%s export unavailable: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("%s export failed: %v", e.Format, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches ErrCapabilityUnavailable for KindUnavailable errors.
func (e *Error) Is(target error) bool {
	return target == ErrCapabilityUnavailable && e.Kind == KindUnavailable
}

func unavailable(format core.Format, err error) error {
	return &Error{Format: format, Kind: KindUnavailable, Err: err}
}

func conversion(format core.Format, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Format: format, Kind: KindConversion, Err: err}
}

// Message returns the one-line text shown to the user for err.
func Message(err error) string {
	var e *Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return "An export is already running. Please wait for it to finish."
	case errors.Is(err, ErrCapabilityUnavailable):
		if errors.As(err, &e) {
			return fmt.Sprintf("The %s exporter is not ready yet. Please try again in a moment.", e.Format)
		}
		return "The exporter is not ready yet. Please try again in a moment."
	case errors.As(err, &e):
		return fmt.Sprintf("%s export failed. Please check your settings and try again.", e.Format)
	default:
		return "Export failed. Please check your settings and try again."
	}
}
