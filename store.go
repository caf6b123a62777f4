package heatmap

import "slices"

// MutationKind identifies how a Store changed.
type MutationKind int

const (
	// MutationReplace means the whole sample set was swapped.
	MutationReplace MutationKind = iota
	// MutationAppend means one sample was added at the end.
	MutationAppend
	// MutationClear means the store was emptied.
	MutationClear
)

// String returns the mutation name.
func (k MutationKind) String() string {
	switch k {
	case MutationReplace:
		return "replace"
	case MutationAppend:
		return "append"
	case MutationClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Mutation describes a single change to a Store.
type Mutation struct {
	Kind MutationKind
	// Len is the number of samples after the change.
	Len int
}

// Listener is notified after every Store mutation.
type Listener func(Mutation)

// Store is the ordered, append-only sample sequence a heatmap is rendered
// from. Insertion order is preserved and samples are never deduplicated.
//
// Store is owned by its caller and is not safe for concurrent use.
// Listeners run synchronously, in registration order, before the mutating
// call returns.
type Store struct {
	samples   []Sample
	listeners []*listenerEntry
}

type listenerEntry struct {
	fn Listener
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreFrom returns a store holding a copy of samples. No listeners
// are notified.
func NewStoreFrom(samples []Sample) *Store {
	return &Store{samples: slices.Clone(samples)}
}

// Len returns the number of samples.
func (s *Store) Len() int {
	return len(s.samples)
}

// At returns the i-th sample in insertion order.
func (s *Store) At(i int) Sample {
	return s.samples[i]
}

// Samples returns a copy of the samples in insertion order.
func (s *Store) Samples() []Sample {
	return slices.Clone(s.samples)
}

// view returns the backing slice for read-only use inside the package.
func (s *Store) view() []Sample {
	return s.samples
}

// Replace swaps the entire sample set for a copy of samples.
func (s *Store) Replace(samples []Sample) {
	s.samples = slices.Clone(samples)
	s.notify(MutationReplace)
}

// Append adds one sample at the end. Samples with a non-finite position
// are rejected and the store is left untouched.
func (s *Store) Append(sample Sample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	s.samples = append(s.samples, sample)
	s.notify(MutationAppend)
	return nil
}

// Clear removes every sample.
func (s *Store) Clear() {
	s.samples = nil
	s.notify(MutationClear)
}

// Subscribe registers fn to run after every mutation. The returned cancel
// function removes it; calling cancel more than once is harmless.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	e := &listenerEntry{fn: fn}
	s.listeners = append(s.listeners, e)
	return func() {
		s.listeners = slices.DeleteFunc(s.listeners, func(x *listenerEntry) bool {
			return x == e
		})
	}
}

func (s *Store) notify(kind MutationKind) {
	m := Mutation{Kind: kind, Len: len(s.samples)}
	for _, e := range slices.Clone(s.listeners) {
		e.fn(m)
	}
}
