package domain

// ValidationError reports input that was rejected before touching storage.
type ValidationError struct {
	msg string
	err error
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

// WrapValidationError keeps err reachable through errors.Is.
func WrapValidationError(msg string, err error) *ValidationError {
	return &ValidationError{msg: msg, err: err}
}

func (e *ValidationError) Error() string {
	return e.msg
}

func (e *ValidationError) Unwrap() error {
	return e.err
}
