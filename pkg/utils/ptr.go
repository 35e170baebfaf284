package utils

// Ptr returns a pointer to a copy of v, for optional fields such as a failed
// version's script path.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the value p points to, or def when p is nil.
func Deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}

	return *p
}
