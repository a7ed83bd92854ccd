package rtc

import "errors"

// Sentinel errors returned by administrative operations.
var (
	// ErrError is a generic failure, e.g. an attach handshake that returned
	// an out of range context id.
	ErrError = errors.New("rtc: error")

	// ErrBadParameter is returned for unknown or invalid component handles
	// and invalid arguments such as a non-positive rate.
	ErrBadParameter = errors.New("rtc: bad parameter")

	// ErrUnsupported is returned when a component lacks a required capability.
	ErrUnsupported = errors.New("rtc: unsupported")

	// ErrOutOfResources is returned when a resource could not be acquired.
	ErrOutOfResources = errors.New("rtc: out of resources")

	// ErrPreconditionNotMet is returned when an operation is invalid in the
	// current run state or lifecycle state.
	ErrPreconditionNotMet = errors.New("rtc: precondition not met")
)

// ReturnCode is the result code surfaced across the administrative boundary.
type ReturnCode int

const (
	CodeOK ReturnCode = iota
	CodeError
	CodeBadParameter
	CodeUnsupported
	CodeOutOfResources
	CodePreconditionNotMet
)

var codeNames = [...]string{
	CodeOK:                 "RTC_OK",
	CodeError:              "RTC_ERROR",
	CodeBadParameter:       "BAD_PARAMETER",
	CodeUnsupported:        "UNSUPPORTED",
	CodeOutOfResources:     "OUT_OF_RESOURCES",
	CodePreconditionNotMet: "PRECONDITION_NOT_MET",
}

// String returns the conventional name of the code.
func (c ReturnCode) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return "UNKNOWN"
	}
	return codeNames[c]
}

// Err returns the sentinel error for c, or nil for CodeOK.
func (c ReturnCode) Err() error {
	switch c {
	case CodeOK:
		return nil
	case CodeBadParameter:
		return ErrBadParameter
	case CodeUnsupported:
		return ErrUnsupported
	case CodeOutOfResources:
		return ErrOutOfResources
	case CodePreconditionNotMet:
		return ErrPreconditionNotMet
	default:
		return ErrError
	}
}

// CodeOf maps err to a ReturnCode. Errors that wrap none of the sentinels
// map to CodeError.
func CodeOf(err error) ReturnCode {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrBadParameter):
		return CodeBadParameter
	case errors.Is(err, ErrPreconditionNotMet):
		return CodePreconditionNotMet
	case errors.Is(err, ErrUnsupported):
		return CodeUnsupported
	case errors.Is(err, ErrOutOfResources):
		return CodeOutOfResources
	default:
		return CodeError
	}
}
