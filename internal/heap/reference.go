// Package heap implements the runtime object model: instance objects,
// reference/primitive arrays, and the offset-addressed heap that owns them.
// Grounded on original_source/src/objects/{heap,object,reference}.rs.
package heap

// Reference is the sole form in which heap objects enter the interpreter:
// either Null or a valid handle to a value of type T. Mirrors
// original_source/src/objects/reference.rs's Reference<T> enum.
type Reference[T any] struct {
	valid bool
	value T
}

// Null returns an invalid (null) reference.
func Null[T any]() Reference[T] {
	return Reference[T]{}
}

// Of wraps v in a valid reference.
func Of[T any](v T) Reference[T] {
	return Reference[T]{valid: true, value: v}
}

// IsNull reports whether the reference is null.
func (r Reference[T]) IsNull() bool { return !r.valid }

// Get returns the wrapped value and whether the reference was valid.
func (r Reference[T]) Get() (T, bool) { return r.value, r.valid }

// Equals implements spec.md §8's reference-identity invariant: true iff a and
// b are both null, or both valid and comparing equal under ==.
func Equals[T comparable](a, b Reference[T]) bool {
	if a.valid != b.valid {
		return false
	}
	if !a.valid {
		return true
	}
	return a.value == b.value
}
