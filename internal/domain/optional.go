package domain

// Optional is a patch field: unset means "leave unchanged".
// For nullable columns use Optional[*T], where a set nil clears the value.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether the field should be applied.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// StringPtrEqual compares two optional ids.
func StringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
