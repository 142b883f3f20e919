package uistate

import (
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Set is an immutable collection of StateFlags. The zero value is the empty set.
// Operations never modify their receiver; they return new sets.
type Set struct {
	bits *bitset.BitSet
}

// NewSet returns a set holding flags. Flags outside the vocabulary are kept so
// that a request can be validated as a whole.
func NewSet(flags ...StateFlag) Set {
	b := bitset.New(uint(flagCount))
	for _, f := range flags {
		b.Set(uint(f))
	}
	return Set{bits: b}
}

// Vocabulary returns the set of every known flag.
func Vocabulary() Set { return NewSet(Flags()...) }

func (s Set) b() *bitset.BitSet {
	if s.bits == nil {
		return bitset.New(0)
	}
	return s.bits
}

// Has reports whether f is a member of s.
func (s Set) Has(f StateFlag) bool { return s.bits != nil && s.bits.Test(uint(f)) }

// Len returns the number of members.
func (s Set) Len() int { return int(s.b().Count()) }

// IsEmpty reports whether s has no members.
func (s Set) IsEmpty() bool { return s.Len() == 0 }

// Intersects reports whether s and o share at least one member.
func (s Set) Intersects(o Set) bool { return s.b().IntersectionCardinality(o.b()) > 0 }

// Intersection returns the members present in both s and o.
func (s Set) Intersection(o Set) Set { return Set{bits: s.b().Intersection(o.b())} }

// Union returns the members present in either s or o.
func (s Set) Union(o Set) Set { return Set{bits: s.b().Union(o.b())} }

// Difference returns the members of s that are not in o.
func (s Set) Difference(o Set) Set { return Set{bits: s.b().Difference(o.b())} }

// Without returns s minus the given flags.
func (s Set) Without(flags ...StateFlag) Set { return s.Difference(NewSet(flags...)) }

// Equal reports whether s and o have exactly the same members.
func (s Set) Equal(o Set) bool { return s.b().SymmetricDifferenceCardinality(o.b()) == 0 }

// Clone returns a copy of s that shares no storage with it.
func (s Set) Clone() Set { return Set{bits: s.b().Clone()} }

// Flags returns the members in ascending order.
func (s Set) Flags() []StateFlag {
	b := s.b()
	out := make([]StateFlag, 0, b.Count())
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		out = append(out, StateFlag(i))
	}
	return out
}

// String renders the set as {a, b}.
func (s Set) String() string {
	flags := s.Flags()
	names := make([]string, len(flags))
	for i, f := range flags {
		names[i] = f.String()
	}
	return "{" + strings.Join(names, ", ") + "}"
}
