package lifecycle

// modelNotFoundError signals a model name absent from the static catalog.
type modelNotFoundError struct{ name string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.name }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(name string) error { return modelNotFoundError{name: name} }

// IsModelNotFound reports whether the error indicates an unknown model name.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// notResidentError signals an unload request for a model that is not loaded.
type notResidentError struct{ name string }

func (e notResidentError) Error() string { return "model not resident: " + e.name }

// ErrNotResident constructs a notResidentError.
func ErrNotResident(name string) error { return notResidentError{name: name} }

// IsNotResident reports whether the error indicates a model that is known
// but not currently loaded.
func IsNotResident(err error) bool {
	_, ok := err.(notResidentError)
	return ok
}
