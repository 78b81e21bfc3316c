package model

// Attributes is the set of derived column values produced by one source call
// for one listing. An empty map is a valid success (the source had no data
// for the point).
type Attributes map[string]string

// Outcome is the tagged result of one source invocation for one listing:
// either a success carrying Attributes or a failure carrying Err. Failures
// stop at the coordinator boundary; they are tallied and logged, never
// propagated as run errors.
type Outcome struct {
	Source string
	Attrs  Attributes
	Err    error
}

// Failed reports whether the invocation failed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}
