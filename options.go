package pathmut

// MutationOptions are completion callbacks of one mutation handle. They run
// after the handle's own invalidation, in the order OnSuccess/OnError then
// OnSettled, on the goroutine that executed the write.
type MutationOptions[A, R any] struct {
	OnSuccess func(data R, arg A)
	OnError   func(err error, arg A)
	OnSettled func(data R, err error, arg A)
}

// SetOptions adds the node priority written together with the value.
// Priority must be a number or a string; nil leaves the node without one.
type SetOptions[T any] struct {
	MutationOptions[T, T]
	Priority any
}
