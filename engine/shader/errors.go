package shader

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the shape of source the reflector refused.
type ErrorKind uint8

const (
	// ErrKindSyntax is a lexical or grammatical error.
	ErrKindSyntax ErrorKind = iota + 1
	// ErrKindLayoutIdentifier is an identifier not allowed inside layout(...).
	ErrKindLayoutIdentifier
	// ErrKindLayoutValue is a missing, non-integer or out of range layout value.
	ErrKindLayoutValue
	// ErrKindGlobalQualifier is a qualifier-only global whose storage is not `in`.
	ErrKindGlobalQualifier
	// ErrKindDuplicateWorkgroup is a second local_size declaration.
	ErrKindDuplicateWorkgroup
	// ErrKindStorageQualifier is a variable or block with an unsupported storage.
	ErrKindStorageQualifier
	// ErrKindMissingQualifier is a global variable without any storage qualifier.
	ErrKindMissingQualifier
	// ErrKindArraySpecifier is an array specifier on a global variable.
	ErrKindArraySpecifier
	// ErrKindInitializer is an initializer on a uniform variable.
	ErrKindInitializer
	// ErrKindMultipleDeclarators is more than one name in a uniform declaration.
	ErrKindMultipleDeclarators
	// ErrKindFieldQualifier is a block field qualifier other than layout(offset).
	ErrKindFieldQualifier
	// ErrKindArrayedBlock is a block whose instance is an array.
	ErrKindArrayedBlock
	// ErrKindUnsupportedQualifier is an interpolation, invariance or other
	// qualifier the reflector has no meaning for.
	ErrKindUnsupportedQualifier
)

var errorKindNames = map[ErrorKind]string{
	ErrKindSyntax:               "syntax error",
	ErrKindLayoutIdentifier:     "unsupported layout identifier",
	ErrKindLayoutValue:          "invalid layout value",
	ErrKindGlobalQualifier:      "unsupported global qualifier",
	ErrKindDuplicateWorkgroup:   "duplicate workgroup size",
	ErrKindStorageQualifier:     "unsupported storage qualifier",
	ErrKindMissingQualifier:     "missing storage qualifier",
	ErrKindArraySpecifier:       "unsupported array specifier",
	ErrKindInitializer:          "unsupported initializer",
	ErrKindMultipleDeclarators:  "multiple declarators",
	ErrKindFieldQualifier:       "unsupported field qualifier",
	ErrKindArrayedBlock:         "arrayed block instance",
	ErrKindUnsupportedQualifier: "unsupported qualifier",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// ParseError is returned for any shader source the reflector cannot accept.
type ParseError struct {
	Kind   ErrorKind
	Shader string
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.Shader, e.Line, e.Column, e.Kind, e.Msg)
}

// IsKind reports whether err is a *ParseError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == kind
}

var (
	// ErrNoVariable is returned when a reflection has no image of that name.
	ErrNoVariable = errors.New("no such variable")
	// ErrNoBlock is returned when a reflection has no block with that instance name.
	ErrNoBlock = errors.New("no such block")
	// ErrSizeUnknown is returned when a type has no static byte size.
	ErrSizeUnknown = errors.New("size unknown")
)

func newError(kind ErrorKind, shader string, pos Position, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Kind:   kind,
		Shader: shader,
		Line:   pos.Line,
		Column: pos.Column,
		Msg:    fmt.Sprintf(format, args...),
	}
}
