package utils

// Value dereferences v, returning the zero value for a nil pointer. Optional
// backend fields (last-seen minutes, avatar URLs) decode as pointers.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Equal compares two optional values; nil only equals nil.
func Equal[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
