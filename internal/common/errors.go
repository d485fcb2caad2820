package common

import (
	"errors"
	"fmt"
)

// Fault kinds. Every error crossing a package boundary wraps exactly one of
// these, so callers classify with errors.Is instead of string matching.
var (
	ErrConfiguration   = errors.New("configuration fault")
	ErrSource          = errors.New("source fault")
	ErrRemoteService   = errors.New("remote service fault")
	ErrMalformedAnchor = errors.New("malformed text anchor")
	ErrSink            = errors.New("sink fault")
)

// Remote sub-kinds. Both match ErrRemoteService under errors.Is.
var (
	ErrAuthentication = fmt.Errorf("%w: authentication", ErrRemoteService)
	ErrNetwork        = fmt.Errorf("%w: network", ErrRemoteService)
)

// Fault is a classified application error. Kind is one of the sentinels
// above; Message names the input that triggered the fault (file path,
// config key, page/field position).
type Fault struct {
	Kind    error
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() []error {
	if f.Cause != nil {
		return []error{f.Kind, f.Cause}
	}
	return []error{f.Kind}
}

// Fault constructors
func NewFault(kind error, message string, cause error) *Fault {
	return &Fault{Kind: kind, Message: message, Cause: cause}
}

func ConfigurationFault(message string, cause error) *Fault {
	return NewFault(ErrConfiguration, message, cause)
}

func SourceFault(message string, cause error) *Fault {
	return NewFault(ErrSource, message, cause)
}

func RemoteServiceFault(message string, cause error) *Fault {
	return NewFault(ErrRemoteService, message, cause)
}

func AuthenticationFault(message string, cause error) *Fault {
	return NewFault(ErrAuthentication, message, cause)
}

func NetworkFault(message string, cause error) *Fault {
	return NewFault(ErrNetwork, message, cause)
}

func MalformedAnchorFault(message string) *Fault {
	return NewFault(ErrMalformedAnchor, message, nil)
}

func SinkFault(message string, cause error) *Fault {
	return NewFault(ErrSink, message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
