package platform

import "fmt"

// UnknownError is returned when a platform name is not registered.
type UnknownError struct {
	Name      string
	Supported []string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unsupported platform %q, expected one of %v", e.Name, e.Supported)
}
