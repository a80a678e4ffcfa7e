package importer

// Result is what a handler returns from a stage: either a claim carrying
// the stage payload, or a decline.
type Result[T any] struct {
	payload T
	claimed bool
}

// Claim marks the run as owned by the returning handler.
func Claim[T any](payload T) Result[T] {
	return Result[T]{payload: payload, claimed: true}
}

// Decline reports that the handler does not own the run.
func Decline[T any]() Result[T] {
	return Result[T]{}
}

// Claimed returns the payload and whether the result is a claim.
func (r Result[T]) Claimed() (T, bool) {
	return r.payload, r.claimed
}
