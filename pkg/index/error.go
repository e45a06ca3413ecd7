package index

import "errors"

var (
	// ErrInvalidVector is returned when a vector's length does not match
	// the collection's configured dimensionality.
	ErrInvalidVector = errors.New("vector dimensionality mismatch")

	// ErrInvalidLimit is returned when a query limit is not positive.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrMissingFilter is returned when a delete supplies neither an
	// owner key nor a location.
	ErrMissingFilter = errors.New("delete requires an owner key or a location")

	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached or does not respond before the deadline.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)

// ValidateVector checks a vector against the configured dimensionality.
func ValidateVector(vector []float32, dimensions uint) error {
	if len(vector) == 0 || uint(len(vector)) != dimensions {
		return ErrInvalidVector
	}
	return nil
}

// ValidateLimit checks that a query limit is positive.
func ValidateLimit(limit int) error {
	if limit <= 0 {
		return ErrInvalidLimit
	}
	return nil
}
