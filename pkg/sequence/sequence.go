package sequence

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"

	"github.com/ishanwen-byte/seqevolve-go/internal/types"
	"github.com/ishanwen-byte/seqevolve-go/pkg/gene"
)

// ErrEmpty is returned when building a sequence from no values
var ErrEmpty = errors.New("sequence must have at least one locus")

// IDSource hands out locus identities. Identities are never reused within a run.
type IDSource interface {
	Next() uint64
}

// Counter is a monotonically increasing IDSource safe for concurrent use
type Counter struct {
	next atomic.Uint64
}

// NewCounter creates a counter whose first identity is start
func NewCounter(start uint64) *Counter {
	c := &Counter{}
	c.next.Store(start)
	return c
}

// Next returns the next identity
func (c *Counter) Next() uint64 {
	return c.next.Add(1) - 1
}

// Peek returns the identity the next call to Next will return
func (c *Counter) Peek() uint64 {
	return c.next.Load()
}

// Locus is one position of a sequence.
// ID is assigned once at creation; clones keep it and mutation never changes it.
type Locus struct {
	ID   uint64
	Gene gene.Gene

	next *Locus
	prev *Locus
}

// Next returns the following locus or nil at the tail
func (l *Locus) Next() *Locus { return l.next }

// Prev returns the preceding locus or nil at the head
func (l *Locus) Prev() *Locus { return l.prev }

// Sequence is a non-empty doubly-linked chain of loci owned by one holder
type Sequence struct {
	variant gene.Variant
	head    *Locus
	tail    *Locus
	length  int
}

// Random builds a sequence of n randomized loci
func Random(v gene.Variant, ids IDSource, rng *rand.Rand, n int) *Sequence {
	if n < 1 {
		panic(fmt.Sprintf("sequence: length %d < 1", n))
	}
	s := &Sequence{variant: v}
	for i := 0; i < n; i++ {
		g := v.Default()
		v.Randomize(rng, &g)
		s.Append(&Locus{ID: ids.Next(), Gene: g})
	}
	return s
}

// FromValues builds a sequence by deserializing each value into a fresh locus
func FromValues(v gene.Variant, ids IDSource, values []string) (*Sequence, error) {
	if len(values) == 0 {
		return nil, ErrEmpty
	}
	s := &Sequence{variant: v}
	for _, value := range values {
		g, err := v.Deserialize(value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode locus: %w", err)
		}
		s.Append(&Locus{ID: ids.Next(), Gene: g})
	}
	return s, nil
}

// FromRecords rebuilds a sequence keeping the recorded locus identities
func FromRecords(v gene.Variant, records []types.LocusRecord) (*Sequence, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	s := &Sequence{variant: v}
	for _, rec := range records {
		g, err := v.Deserialize(rec.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode locus %d: %w", rec.ID, err)
		}
		s.Append(&Locus{ID: rec.ID, Gene: g})
	}
	return s, nil
}

// Variant returns the gene variant of every locus
func (s *Sequence) Variant() gene.Variant { return s.variant }

// Len returns the number of loci
func (s *Sequence) Len() int { return s.length }

// Head returns the first locus
func (s *Sequence) Head() *Locus { return s.head }

// Tail returns the last locus
func (s *Sequence) Tail() *Locus { return s.tail }

// Append attaches l at the tail
func (s *Sequence) Append(l *Locus) {
	l.next = nil
	l.prev = s.tail
	if s.tail == nil {
		s.head = l
	} else {
		s.tail.next = l
	}
	s.tail = l
	s.length++
}

// Nth returns the locus at 1-indexed position k. It panics when k is outside [1, Len].
func (s *Sequence) Nth(k int) *Locus {
	s.checkPosition(k)
	if k <= (s.length+1)/2 {
		l := s.head
		for i := 1; i < k; i++ {
			l = l.next
		}
		return l
	}
	l := s.tail
	for i := s.length; i > k; i-- {
		l = l.prev
	}
	return l
}

// SpliceAt returns the locus at position k together with its predecessor
// (nil when k == 1), the two ends a cut before k has to relink.
func (s *Sequence) SpliceAt(k int) (at *Locus, prev *Locus) {
	at = s.Nth(k)
	return at, at.prev
}

// SwapTails exchanges the suffix of a starting at position pa with the suffix
// of b starting at pb. Both cut points must leave a non-empty prefix.
func SwapTails(a *Sequence, pa int, b *Sequence, pb int) {
	if a == b {
		panic("sequence: cannot swap tails of a sequence with itself")
	}
	if a.variant.Tag() != b.variant.Tag() {
		panic(fmt.Sprintf("sequence: variant mismatch %s != %s", a.variant.Tag(), b.variant.Tag()))
	}
	if pa < 2 || pb < 2 {
		panic(fmt.Sprintf("sequence: cut points %d,%d would empty a prefix", pa, pb))
	}

	atA, prevA := a.SpliceAt(pa)
	atB, prevB := b.SpliceAt(pb)

	prevA.next = atB
	atB.prev = prevA
	prevB.next = atA
	atA.prev = prevB

	a.tail, b.tail = b.tail, a.tail

	lenA, lenB := a.length, b.length
	a.length = (pa - 1) + (lenB - pb + 1)
	b.length = (pb - 1) + (lenA - pa + 1)
}

// Clone deep-copies every locus, keeping identities and cloning gene payloads
func (s *Sequence) Clone() *Sequence {
	s.checkLive()
	c := &Sequence{variant: s.variant}
	for l := s.head; l != nil; l = l.next {
		c.Append(&Locus{ID: l.ID, Gene: s.variant.Clone(l.Gene)})
	}
	return c
}

// Free releases every locus tail-first. The sequence is unusable afterwards.
func (s *Sequence) Free() {
	l := s.tail
	for l != nil {
		prev := l.prev
		l.prev = nil
		l.next = nil
		l.Gene = gene.Gene{}
		l = prev
	}
	s.head = nil
	s.tail = nil
	s.length = 0
}

// Equal reports whether a and b have the same length and, position by
// position, the same locus identity and, for variants with value equality,
// the same decoded value.
func Equal(a, b *Sequence) bool {
	if a.length != b.length {
		return false
	}
	if a.variant.Tag() != b.variant.Tag() {
		return false
	}
	byValue := a.variant.ValueEquality()
	for la, lb := a.head, b.head; la != nil && lb != nil; la, lb = la.next, lb.next {
		if la.ID != lb.ID {
			return false
		}
		if byValue && !a.variant.Equal(la.Gene, lb.Gene) {
			return false
		}
	}
	return true
}

// Values returns the serialized value of every locus in order
func (s *Sequence) Values() []string {
	out := make([]string, 0, s.length)
	for l := s.head; l != nil; l = l.next {
		out = append(out, s.variant.Serialize(l.Gene))
	}
	return out
}

// IDs returns the identity of every locus in order
func (s *Sequence) IDs() []uint64 {
	out := make([]uint64, 0, s.length)
	for l := s.head; l != nil; l = l.next {
		out = append(out, l.ID)
	}
	return out
}

// Records returns the serialized loci
func (s *Sequence) Records() []types.LocusRecord {
	out := make([]types.LocusRecord, 0, s.length)
	for l := s.head; l != nil; l = l.next {
		out = append(out, types.LocusRecord{ID: l.ID, Value: s.variant.Serialize(l.Gene)})
	}
	return out
}

// Describe lists every gene through the variant's describe capability
func (s *Sequence) Describe() string {
	parts := make([]string, 0, s.length)
	for l := s.head; l != nil; l = l.next {
		parts = append(parts, fmt.Sprintf("#%d %s", l.ID, s.variant.Describe(l.Gene)))
	}
	return strings.Join(parts, " -> ")
}

// String renders the artifact the sequence encodes
func (s *Sequence) String() string {
	return s.variant.Render(s.Values())
}

// Validate checks link symmetry and the cached length
func (s *Sequence) Validate() error {
	if s.head == nil || s.tail == nil {
		return ErrEmpty
	}
	if s.head.prev != nil {
		return fmt.Errorf("head has a predecessor")
	}
	if s.tail.next != nil {
		return fmt.Errorf("tail has a successor")
	}
	count := 0
	var last *Locus
	for l := s.head; l != nil; l = l.next {
		count++
		if l.prev != last {
			return fmt.Errorf("broken backward link at position %d", count)
		}
		if l.Gene.Variant != s.variant.Tag() {
			return fmt.Errorf("locus %d has variant %s, want %s", l.ID, l.Gene.Variant, s.variant.Tag())
		}
		last = l
	}
	if last != s.tail {
		return fmt.Errorf("tail is not reachable from head")
	}
	if count != s.length {
		return fmt.Errorf("cached length %d, counted %d", s.length, count)
	}
	return nil
}

func (s *Sequence) checkLive() {
	if s.head == nil {
		panic("sequence: operation on empty or freed sequence")
	}
}

func (s *Sequence) checkPosition(k int) {
	s.checkLive()
	if k < 1 || k > s.length {
		panic(fmt.Sprintf("sequence: position %d outside [1,%d]", k, s.length))
	}
}
