// Package bloom provides exact identifier sets with a Bloom filter in front
// of the exact lookup.
package bloom

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/raftspec"
)

// DefaultFalsePositiveRate is the false positive rate used by NewIdentifierSet.
const DefaultFalsePositiveRate = 0.01

// Ensure Filter implements raftspec.IdentifierSet at compile time.
var _ raftspec.IdentifierSet = (*Filter)(nil)

// Filter is an exact identifier set. A Bloom filter prefilters lookups:
// identifiers it rules out skip the map, and everything else is confirmed
// against the map, so Contains never reports a false positive. Filter is not
// safe for concurrent use.
type Filter struct {
	f           *bloom.BloomFilter
	exact       map[string]struct{}
	prefiltered int
}

// NewFilter creates a new Filter sized for n expected identifiers with the
// given false positive rate for the Bloom stage.
func NewFilter(n uint, fpRate float64) *Filter {
	if n == 0 {
		n = 1
	}
	return &Filter{
		f:     bloom.NewWithEstimates(n, fpRate),
		exact: make(map[string]struct{}, n),
	}
}

// NewIdentifierSet returns a Filter sized for n records. The allocator
// reserves successors beyond the records themselves, so the filter is sized
// for twice as many identifiers.
func NewIdentifierSet(n int) raftspec.IdentifierSet {
	return NewFilter(uint(2*n), DefaultFalsePositiveRate)
}

// Add adds an identifier to the set.
func (f *Filter) Add(id string) {
	f.f.AddString(id)
	f.exact[id] = struct{}{}
}

// Contains reports whether the identifier was added.
func (f *Filter) Contains(id string) bool {
	if !f.f.TestString(id) {
		f.prefiltered++
		return false
	}
	_, ok := f.exact[id]
	return ok
}

// Prefiltered returns how many Contains calls the Bloom filter answered
// without consulting the exact set.
func (f *Filter) Prefiltered() int {
	return f.prefiltered
}

// Len returns the number of distinct identifiers in the set.
func (f *Filter) Len() int {
	return len(f.exact)
}

// EstimatedCount returns the approximate number of identifiers seen by the
// Bloom stage.
func (f *Filter) EstimatedCount() uint {
	return uint(f.f.ApproximatedSize())
}
