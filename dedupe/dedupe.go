// Package dedupe keeps primary identifiers unique across a record set by
// moving colliding records to the next free sequence number.
package dedupe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fwojciec/raftspec"
)

// Ensure Allocator implements raftspec.Deduplicator at compile time.
var _ raftspec.Deduplicator = (*Allocator)(nil)

// GroupError reports a colliding group that could not be resolved. The
// group's records keep their identifiers.
type GroupError struct {
	Identifier string
	Documents  []string
	Err        error
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("identifier %s claimed by %s: %s", e.Identifier, strings.Join(e.Documents, ", "), raftspec.ErrorMessage(e.Err))
}

func (e *GroupError) Unwrap() error { return e.Err }

// mapSet is the default exact identifier set.
type mapSet map[string]struct{}

func (s mapSet) Add(id string)           { s[id] = struct{}{} }
func (s mapSet) Contains(id string) bool { _, ok := s[id]; return ok }

// Allocator assigns successor identifiers to colliding records.
type Allocator struct {
	format *Format
	newSet func(n int) raftspec.IdentifierSet
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithSet sets the constructor of the used-identifier set. n is the number
// of identifiers the set starts with.
func WithSet(fn func(n int) raftspec.IdentifierSet) Option {
	return func(a *Allocator) {
		a.newSet = fn
	}
}

// NewAllocator returns an allocator for identifiers of format f.
func NewAllocator(f *Format, opts ...Option) *Allocator {
	a := &Allocator{
		format: f,
		newSet: func(n int) raftspec.IdentifierSet { return make(mapSet, n) },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Deduplicate groups records by primary identifier in input order. The
// first record of a group keeps its identifier; each other record gets the
// next sequence number that is not used anywhere in the set, including
// identifiers handed out earlier in the same run. The search only moves
// upward and fails with EEXHAUSTED past the format's width.
//
// A group is reassigned as a whole or not at all. Unresolvable groups are
// returned as *GroupError values joined into the error while the other
// groups are still corrected. Records without an identifier are ignored.
func (a *Allocator) Deduplicate(records []*raftspec.CanonicalRecord) ([]*raftspec.CanonicalRecord, []*raftspec.Correction, error) {
	used := a.newSet(len(records))
	groups := make(map[string][]*raftspec.CanonicalRecord)
	var order []string
	for _, r := range records {
		if r == nil || r.PrimaryIdentifier == "" {
			continue
		}
		id := r.PrimaryIdentifier
		used.Add(id)
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], r)
	}

	var corrections []*raftspec.Correction
	var errs []error
	for _, id := range order {
		group := groups[id]
		if len(group) < 2 {
			continue
		}
		assigned, err := a.allocate(id, len(group)-1, used)
		if err != nil {
			docs := make([]string, len(group))
			for i, r := range group {
				docs[i] = r.Document
			}
			errs = append(errs, &GroupError{Identifier: id, Documents: docs, Err: err})
			continue
		}
		for i, r := range group[1:] {
			used.Add(assigned[i])
			r.PrimaryIdentifier = assigned[i]
			corrections = append(corrections, &raftspec.Correction{
				Document:  r.Document,
				Original:  id,
				Corrected: assigned[i],
			})
		}
	}
	return records, corrections, errors.Join(errs...)
}

// allocate finds n free successors of id.
func (a *Allocator) allocate(id string, n int, used raftspec.IdentifierSet) ([]string, error) {
	before, after, seq, err := a.format.split(id)
	if err != nil {
		return nil, err
	}
	limit := a.format.limit()
	var assigned []string
	for len(assigned) < n {
		seq++
		if seq > limit {
			return nil, raftspec.Errorf(raftspec.EEXHAUSTED, "no free sequence after %s within %d digits", id, a.format.width)
		}
		next := a.format.successor(before, after, seq)
		if used.Contains(next) {
			continue
		}
		assigned = append(assigned, next)
	}
	return assigned, nil
}
