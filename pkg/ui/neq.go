package ui

// NeqAssign stores v in *dst if it differs from the current value and
// reports whether it did. Use its result as the re-render signal.
func NeqAssign[T comparable](dst *T, v T) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

// NeqAssignFunc is NeqAssign for types that are not comparable with ==.
func NeqAssignFunc[T any](dst *T, v T, equal func(a, b T) bool) bool {
	if equal(*dst, v) {
		return false
	}
	*dst = v
	return true
}
