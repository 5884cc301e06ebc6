package schema

import (
	"errors"
	"fmt"
)

// ErrSchemaValidation is matched by every SchemaValidationError.
var ErrSchemaValidation = errors.New("schema validation failed")

// SchemaValidationError reports a schema that does not match the shape a
// generator requires. Parameter is empty for schema-level problems.
type SchemaValidationError struct {
	Kind      Kind
	Parameter string
	Reason    string
}

func (e *SchemaValidationError) Error() string {
	prefix := "schema"
	if e.Kind != KindInvalid {
		prefix = e.Kind.String() + " schema"
	}
	if e.Parameter != "" {
		return fmt.Sprintf("%s: parameter %q: %s", prefix, e.Parameter, e.Reason)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Reason)
}

// Is lets errors.Is match ErrSchemaValidation.
func (e *SchemaValidationError) Is(target error) bool {
	return target == ErrSchemaValidation
}

// Invalidf builds a SchemaValidationError with a formatted reason.
func Invalidf(kind Kind, param, format string, args ...any) error {
	return &SchemaValidationError{Kind: kind, Parameter: param, Reason: fmt.Sprintf(format, args...)}
}
