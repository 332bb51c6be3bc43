package clients

import (
	"errors"
	"fmt"
)

// Kind classifies a failure at the capture or inference boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindPermissionDenied
	KindDeviceError
	KindServiceUnavailable
	KindProtocolError
	KindAnalysisError
	KindTimeout
	KindSizeLimitExceeded
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindDeviceError:
		return "device_error"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindProtocolError:
		return "protocol_error"
	case KindAnalysisError:
		return "analysis_error"
	case KindTimeout:
		return "timeout"
	case KindSizeLimitExceeded:
		return "size_limit_exceeded"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt may succeed without
// operator intervention.
func (k Kind) Retryable() bool {
	return k == KindServiceUnavailable || k == KindTimeout
}

// Hint is the user-facing guidance for the kind.
func (k Kind) Hint() string {
	switch k {
	case KindPermissionDenied:
		return "access to the clip was refused; check file permissions"
	case KindDeviceError:
		return "the clip could not be read; re-record and try again"
	case KindServiceUnavailable:
		return "the analysis service is waking up; try again shortly"
	case KindProtocolError:
		return "the analysis service returned an unexpected response; report this"
	case KindAnalysisError:
		return "the analysis service could not process this clip"
	case KindTimeout:
		return "the request timed out; check your connection and try again"
	case KindSizeLimitExceeded:
		return "the clip is too large; record a shorter clip"
	default:
		return "unexpected failure"
	}
}

// Error carries a classified failure across the pipeline.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, or KindUnknown when err was not
// produced by this package.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}
