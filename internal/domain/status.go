package domain

// State is the tag of a RequestStatus value.
type State int

const (
	StateLoading State = iota
	StateSuccess
	StateError
)

// String returns a human-readable representation of the state
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// RequestStatus is the three-state result envelope carried on every live
// query stream: Loading while a fetch is in flight, then Success with data or
// Error with a normalized kind. A stream stays alive after a terminal
// emission and may start a fresh Loading cycle whenever upstream state
// changes (provider switched, underlying data mutated).
type RequestStatus[T any] struct {
	State State

	// Progress is a 0-100 percentage, valid only while loading; -1 when unknown
	Progress int

	// Data is valid only in StateSuccess
	Data T

	// Err and Cause are valid only in StateError. Cause is the underlying
	// backend error, if any; it never crosses the router boundary as
	// anything other than context for logging.
	Err   MediaError
	Cause error
}

// Loading returns a loading status with unknown progress
func Loading[T any]() RequestStatus[T] {
	return RequestStatus[T]{State: StateLoading, Progress: -1}
}

// LoadingProgress returns a loading status with a progress percentage
func LoadingProgress[T any](percent int) RequestStatus[T] {
	return RequestStatus[T]{State: StateLoading, Progress: percent}
}

// Success returns a successful status carrying data
func Success[T any](data T) RequestStatus[T] {
	return RequestStatus[T]{State: StateSuccess, Data: data}
}

// Failure returns an error status with a kind and optional cause
func Failure[T any](kind MediaError, cause error) RequestStatus[T] {
	return RequestStatus[T]{State: StateError, Err: kind, Cause: cause}
}

// FailureOf classifies err via KindOf and wraps it in an error status
func FailureOf[T any](err error) RequestStatus[T] {
	return RequestStatus[T]{State: StateError, Err: KindOf(err), Cause: err}
}

func (r RequestStatus[T]) IsLoading() bool { return r.State == StateLoading }
func (r RequestStatus[T]) IsSuccess() bool { return r.State == StateSuccess }
func (r RequestStatus[T]) IsError() bool   { return r.State == StateError }
