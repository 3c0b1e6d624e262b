package layout

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/spectra/engine/shader"
)

// ErrorKind classifies a layout failure.
type ErrorKind uint8

const (
	SizeUnknown ErrorKind = iota + 1
	Unsupported
	DuplicateBinding
	MultiplePushConstants
	MissingBinding
)

func (k ErrorKind) String() string {
	switch k {
	case SizeUnknown:
		return "size unknown"
	case Unsupported:
		return "unsupported declaration"
	case DuplicateBinding:
		return "duplicate binding"
	case MultiplePushConstants:
		return "multiple push constant blocks"
	case MissingBinding:
		return "missing binding"
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Error is a layout failure with enough context to find the declaration.
// Two Errors match with errors.Is when their kinds are equal.
type Error struct {
	Kind    ErrorKind
	Shader  string
	Name    string
	Set     uint32
	Binding uint32
	Field   string
	Detail  string
}

var (
	ErrSizeUnknown           = &Error{Kind: SizeUnknown}
	ErrUnsupported           = &Error{Kind: Unsupported}
	ErrDuplicateBinding      = &Error{Kind: DuplicateBinding}
	ErrMultiplePushConstants = &Error{Kind: MultiplePushConstants}
	ErrMissingBinding        = &Error{Kind: MissingBinding}
)

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Shader, e.Kind)
	if e.Name != "" {
		fmt.Fprintf(&b, " for %s", e.Name)
	}
	fmt.Fprintf(&b, " (set %d, binding %d)", e.Set, e.Binding)
	if e.Field != "" {
		fmt.Fprintf(&b, " field %s", e.Field)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Unwrap() error {
	if e.Kind == SizeUnknown {
		return shader.ErrSizeUnknown
	}
	return nil
}
