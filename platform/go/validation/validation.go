package validation

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// Add appends a message for a field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Error captures input validation problems surfaced by a domain service.
type Error struct {
	Fields FieldErrors
}

func (e *Error) Error() string {
	return "validation error"
}

// NewError builds a validation error for a single field.
func NewError(field, message string) *Error {
	return &Error{Fields: FieldErrors{field: []string{message}}}
}
