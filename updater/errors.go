package updater

import "fmt"

// ValidationError is a client-correctable input problem.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IOError is a failure to read or write the document.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// TransformError covers the model call, including rejected output.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform failed: %v", e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// PublishError means the document was already written but version control
// failed. Stderr holds the tool's diagnostic output.
type PublishError struct {
	Step   string
	Stderr string
	Err    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed at %s: %v", e.Step, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Details is what callers show: the diagnostic stream when there is one,
// the error text otherwise.
func (e *PublishError) Details() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Err.Error()
}
