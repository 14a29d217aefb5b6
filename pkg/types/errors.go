package types

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a stable wire identifier for a failure kind.
type Code string

const (
	CodeInputTooLarge            Code = "input.too_large"
	CodeInputUnparsable          Code = "input.unparsable"
	CodeSelectionMalformedJSON   Code = "selection.malformed_json"
	CodeSelectionMissingField    Code = "selection.missing_field"
	CodeSelectionComponentDenied Code = "selection.component_not_allowed"
	CodeSelectionTimeout         Code = "selection.timeout"
	CodeTransformNoData          Code = "transform.no_data"
	CodeTransformNoImage         Code = "transform.no_image"
	CodeTransformNoVideo         Code = "transform.no_video"
	CodeTransformNoAudio         Code = "transform.no_audio"
	CodeTransformInvalidChart    Code = "transform.invalid_chart"
	CodeRenderUnknownSystem      Code = "render.unknown_system"
	CodeInternal                 Code = "internal"
)

// Error is a failure that can be exposed to callers.
type Error struct {
	Code              Code     `json:"code"`
	Message           string   `json:"message"`
	AllowedComponents []string `json:"allowed_components,omitempty"`
	Err               error    `json:"-"`
}

// NewError creates an Error with a formatted message.
func NewError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error wrapping cause.
func WrapError(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if len(e.AllowedComponents) > 0 {
		msg += " (allowed: " + strings.Join(e.AllowedComponents, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// CodeOf returns the code of the first Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
