package pricing

// Result is the two-variant outcome returned across the engine boundary. A failed Result still carries a
// structurally complete value so callers can render it without nil checks.
type Result[T any] struct {
	value T
	err   *CalculationError
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{value: v} }

// Fail wraps a failure value together with its cause.
func Fail[T any](v T, err *CalculationError) Result[T] { return Result[T]{value: v, err: err} }

// IsOk reports whether the calculation succeeded.
func (r Result[T]) IsOk() bool { return r.err == nil }

// Value returns the carried value, zero-filled on failure.
func (r Result[T]) Value() T { return r.value }

// Err returns the fatal error, or nil on success.
func (r Result[T]) Err() *CalculationError { return r.err }

// Unwrap returns the value and an error suitable for ordinary Go error handling.
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		return r.value, r.err
	}
	return r.value, nil
}
