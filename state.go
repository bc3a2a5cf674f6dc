package xform

// State is an immutable snapshot of a definition's argument values, taken
// together so that no argument is newer than another.
type State struct {
	values   []any
	versions []uint64
	version  uint64
}

// emptyState is shared by every engine without arguments.
var emptyState = &State{}

// Version is the composite version: the sum of the argument versions. It
// never decreases while each argument's version never decreases.
func (s *State) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

// Len returns the number of arguments in the snapshot.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// At returns the value of the argument at index i.
func (s *State) At(i int) any {
	return s.values[i]
}

// ArgVersion returns the version the argument at index i had when the
// snapshot was taken.
func (s *State) ArgVersion(i int) uint64 {
	return s.versions[i]
}
