// Package nerr implements the error taxonomy (spec.md §7): a small set of
// sentinel codes returned by every layer, modeled on hz.tools/sdr's
// sentinel-error style (sdr.ErrNotSupported, sdr.ErrSampleFormatMismatch).
package nerr

import "fmt"

// Code is one of the taxonomy values from spec.md §7.
type Code int

const (
	// OK is never actually returned as an error (nil is used instead); it
	// exists so Code values print sensibly in logs that tag the last
	// observed code.
	OK Code = iota
	EINVAL
	ERANGE
	EBUSY
	ENOTFOUND
	EOPEN
	ELIB
	ENOTAVAIL
	ERROR
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case EINVAL:
		return "EINVAL"
	case ERANGE:
		return "ERANGE"
	case EBUSY:
		return "EBUSY"
	case ENOTFOUND:
		return "ENOTFOUND"
	case EOPEN:
		return "EOPEN"
	case ELIB:
		return "ELIB"
	case ENOTAVAIL:
		return "ENOTAVAIL"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is a nerr-coded error, analogous to hz.tools/sdr's sentinel errors
// but carrying a message and a code rather than being a single global var.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is implements errors.Is support against the sentinel package vars below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New builds an *Error with the given code and formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap turns a C-style "0 means success" return code into an error,
// the shape every vendor device backend's library calls use.
func Wrap(rv int) error {
	if rv == 0 {
		return nil
	}
	return New(ELIB, "vendor call failed: %d", rv)
}

// Sentinels for errors.Is comparisons against a bare code, mirroring
// sdr.ErrNotSupported / sdr.ErrSampleFormatMismatch's style.
var (
	ErrInvalid    = &Error{Code: EINVAL}
	ErrRange      = &Error{Code: ERANGE}
	ErrBusy       = &Error{Code: EBUSY}
	ErrNotFound   = &Error{Code: ENOTFOUND}
	ErrOpenFailed = &Error{Code: EOPEN}
	ErrLib        = &Error{Code: ELIB}
	ErrNotAvail   = &Error{Code: ENOTAVAIL}
	ErrGeneric    = &Error{Code: ERROR}
)
