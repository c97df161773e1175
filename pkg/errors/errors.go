// Coded errors for the rotational animation engine
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfigSection    ErrorCode = "CONFIG_SECTION"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrConfigType       ErrorCode = "CONFIG_TYPE"

	// Animation errors
	ErrAnimNoSlot        ErrorCode = "ANIM_NO_SLOT"
	ErrAnimUnknownObject ErrorCode = "ANIM_UNKNOWN_OBJECT"
	ErrAnimUnknownPart   ErrorCode = "ANIM_UNKNOWN_PART"
	ErrAnimUnknownKind   ErrorCode = "ANIM_UNKNOWN_KIND"
	ErrAnimQueueFull     ErrorCode = "ANIM_QUEUE_FULL"
	ErrAnimStaleHandle   ErrorCode = "ANIM_STALE_HANDLE"
	ErrAnimStackEmpty    ErrorCode = "ANIM_STACK_EMPTY"

	// Runtime errors
	ErrRuntime     ErrorCode = "RUNTIME"
	ErrRuntimeInit ErrorCode = "RUNTIME_INIT"
)

// AnimError is the coded error type shared by the engine packages.
type AnimError struct {
	Code    ErrorCode
	Message string

	// Object and Part name the animated target, when known.
	Object string
	Part   string

	// Section and Option locate configuration problems.
	Section string
	Option  string

	Err     error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AnimError) Error() string {
	where := e.Section
	switch {
	case e.Part != "" && e.Object != "":
		where = e.Object + "/" + e.Part
	case e.Part != "":
		where = e.Part
	case e.Object != "":
		where = e.Object
	case e.Option != "":
		where = e.Section + "." + e.Option
	}
	msg := fmt.Sprintf("[%s:%s] %s", e.Code, where, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AnimError) Unwrap() error {
	return e.Err
}

// SetTarget sets the object and part the error refers to
func (e *AnimError) SetTarget(object, part string) *AnimError {
	e.Object = object
	e.Part = part
	return e
}

// SetSection sets the config section
func (e *AnimError) SetSection(section string) *AnimError {
	e.Section = section
	return e
}

// SetOption sets the config option
func (e *AnimError) SetOption(option string) *AnimError {
	e.Option = option
	return e
}

// SetContext adds additional context
func (e *AnimError) SetContext(key string, value interface{}) *AnimError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AnimError
func New(code ErrorCode, message string) *AnimError {
	return &AnimError{Code: code, Message: message}
}

// Newf creates a new AnimError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AnimError {
	return &AnimError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a code and message
func Wrap(err error, code ErrorCode, message string) *AnimError {
	return &AnimError{Code: code, Message: message, Err: err}
}

// ConfigOptionError reports a missing or unusable option
func ConfigOptionError(section, option, reason string) *AnimError {
	return New(ErrConfigOption, reason).SetSection(section).SetOption(option)
}

// ConfigTypeError reports a value that failed to parse
func ConfigTypeError(section, option, value, targetType string, err error) *AnimError {
	return Wrap(err, ErrConfigType, fmt.Sprintf("failed to parse '%s' as %s", value, targetType)).
		SetSection(section).
		SetOption(option)
}

// NoSlotError reports a part that was never given a motion state
func NoSlotError(object, part string) *AnimError {
	return New(ErrAnimNoSlot, "part has no motion slot").SetTarget(object, part)
}

// UnknownObjectError reports a lookup of an unregistered object
func UnknownObjectError(object string) *AnimError {
	return New(ErrAnimUnknownObject, "object not registered").SetTarget(object, "")
}

// FromPanic converts a recovered panic value to an error. Call it from the
// deferred function itself, since recover only works there:
//
//	defer func() {
//		if r := recover(); r != nil {
//			err = errors.FromPanic(r)
//		}
//	}()
func FromPanic(r interface{}) *AnimError {
	switch x := r.(type) {
	case error:
		return Wrap(x, ErrRuntime, "panic")
	case string:
		return New(ErrRuntime, "panic: "+x)
	default:
		return Newf(ErrRuntime, "panic: %v", x)
	}
}

// Is reports whether any error in err's chain is an AnimError with code
func Is(err error, code ErrorCode) bool {
	var ae *AnimError
	for err != nil {
		if !stderrors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Err
	}
	return false
}

// CodeOf returns the code of the first AnimError in err's chain
func CodeOf(err error) (ErrorCode, bool) {
	var ae *AnimError
	if stderrors.As(err, &ae) {
		return ae.Code, true
	}
	return "", false
}

// IsConfig checks if error is a config error
func IsConfig(err error) bool {
	return Is(err, ErrConfigSection) ||
		Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation) ||
		Is(err, ErrConfigType)
}

// IsAnim checks if error is an animation dispatch error
func IsAnim(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case ErrAnimNoSlot, ErrAnimUnknownObject, ErrAnimUnknownPart, ErrAnimUnknownKind,
		ErrAnimQueueFull, ErrAnimStaleHandle, ErrAnimStackEmpty:
		return true
	}
	return false
}
