// Package collections provides small slice utilities shared across contexts.
package collections

// Dedupe removes duplicate elements from a slice. Order is preserved and the
// first occurrence wins. Used to normalize requirement ID sets on applications.
//
// Example:
//
//	Dedupe([]int{1, 2, 1, 3})
//	// Returns: []int{1, 2, 3}
func Dedupe[T comparable](values []T) []T {
	if len(values) == 0 {
		return values
	}

	seen := make(map[T]struct{}, len(values))
	result := make([]T, 0, len(values))

	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}

	return result
}

// Contains reports whether the slice holds the given element.
func Contains[T comparable](values []T, target T) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
