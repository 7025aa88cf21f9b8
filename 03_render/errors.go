package render

import (
	"errors"
	"fmt"
)

// Kind classifies render failures
type Kind string

const (
	// KindCapability means the rich backend could not be loaded or initialized
	KindCapability Kind = "capability_unavailable"
	// KindAssetFetch means a product image was unreachable or undecodable
	KindAssetFetch Kind = "asset_fetch"
	// KindStaging means directories or frame files could not be written
	KindStaging Kind = "staging_io"
	// KindEncode means the encoder subprocess failed or produced no usable output
	KindEncode Kind = "encode"
	// KindRender means a thumbnail could not be drawn or rasterized
	KindRender Kind = "render"
	// KindValidation means the caller passed an unusable job or geometry
	KindValidation Kind = "validation"
)

var (
	ErrNoFrames      = errors.New("no frames to encode")
	ErrNoProducts    = errors.New("no products to render")
	ErrEncodeFailed  = errors.New("encode failed")
	ErrOutputInvalid = errors.New("encoded output is missing or invalid")
	ErrFontMissing   = errors.New("font not loadable")
	ErrFontCoverage  = errors.New("font lacks Vietnamese coverage")
)

// Error carries the stage that failed and the underlying cause
type Error struct {
	Kind    Kind
	Op      string
	Err     error
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if diag, ok := e.Details["diagnostic"].(string); ok && diag != "" {
		return fmt.Sprintf("%s error in %s: %v: %s", e.Kind, e.Op, e.Err, diag)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// Diagnostic returns the encoder output attached to an encode failure, if any
func (e *Error) Diagnostic() string {
	s, _ := e.Details["diagnostic"].(string)
	return s
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// StagingError creates a new staging_io error
func StagingError(op string, err error) *Error { return newError(KindStaging, op, err) }

// EncodeError creates a new encode error
func EncodeError(op string, err error) *Error { return newError(KindEncode, op, err) }

// RenderError creates a new render error
func RenderError(op string, err error) *Error { return newError(KindRender, op, err) }

// CapabilityError creates a new capability_unavailable error
func CapabilityError(op string, err error) *Error { return newError(KindCapability, op, err) }

// AssetError creates a new asset_fetch error
func AssetError(op string, err error) *Error { return newError(KindAssetFetch, op, err) }

// ValidationError creates a new validation error
func ValidationError(op string, err error) *Error { return newError(KindValidation, op, err) }

// KindOf extracts the kind from an error chain. Untyped errors report "".
func KindOf(err error) Kind {
	var rErr *Error
	if errors.As(err, &rErr) {
		return rErr.Kind
	}
	return ""
}

func IsEncodeFailure(err error) bool {
	return KindOf(err) == KindEncode
}

func IsStagingFailure(err error) bool {
	return KindOf(err) == KindStaging
}
