package gene

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// Tag names a gene variant. A gene never changes tag after creation.
type Tag string

const (
	TagLLVMPass     Tag = "llvm-pass"
	TagGCCFlag      Tag = "gcc-flag"
	TagIntRange     Tag = "int-range"
	TagRandomString Tag = "random-string"
)

// ErrUnknownVariant is returned by New for a tag outside the closed set
var ErrUnknownVariant = errors.New("unknown gene variant")

// Gene is the payload of one locus.
// Constrained variants keep Value == valid[Index]; unconstrained ones keep Index == -1.
type Gene struct {
	Variant Tag    `json:"variant"`
	Index   int    `json:"index"`
	Value   string `json:"value"`
}

// Variant is the capability set every gene alphabet implements
type Variant interface {
	Tag() Tag
	// Default instantiates a gene with the variant's default value
	Default() Gene
	// Randomize replaces the gene's value in place
	Randomize(rng *rand.Rand, g *Gene)
	Describe(g Gene) string
	Serialize(g Gene) string
	Deserialize(s string) (Gene, error)
	Clone(g Gene) Gene
	Equal(a, b Gene) bool
	// ValueEquality reports whether sequence equality also compares decoded
	// values. When false, sequences compare by locus identity only.
	ValueEquality() bool
	// Render turns decoded values into the artifact the sequence encodes,
	// e.g. an opt pass pipeline or a compiler flag list.
	Render(values []string) string
}

// Seeder is implemented by variants that know good starting sequences
type Seeder interface {
	Defaults() [][]string
}

// Enumerable is implemented by constrained variants
type Enumerable interface {
	Values() []string
}

// Options parameterize variants that need it
type Options struct {
	IntRangeSize int
}

// New returns the variant registered under tag
func New(tag Tag, opts Options) (Variant, error) {
	switch tag {
	case TagLLVMPass:
		return newConstrained(TagLLVMPass, llvmPasses, true, llvmDefaults, renderLLVM), nil
	case TagGCCFlag:
		return newConstrained(TagGCCFlag, gccFlags, true, gccDefaults, renderFlags), nil
	case TagIntRange:
		size := opts.IntRangeSize
		if size <= 0 {
			return nil, fmt.Errorf("int-range size must be positive, got %d", size)
		}
		values := make([]string, size)
		for i := range values {
			values[i] = fmt.Sprintf("%d", i)
		}
		return newConstrained(TagIntRange, values, false, nil, renderList), nil
	case TagRandomString:
		return &RandomString{MinLen: 1, MaxLen: 12}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, tag)
	}
}

// Tags lists the closed variant set
func Tags() []Tag {
	return []Tag{TagLLVMPass, TagGCCFlag, TagIntRange, TagRandomString}
}

// Constrained draws values from a fixed valid-value set
type Constrained struct {
	tag      Tag
	values   []string
	index    map[string]int
	valueEq  bool
	defaults [][]string
	render   func([]string) string
}

func newConstrained(tag Tag, values []string, valueEq bool, defaults [][]string, render func([]string) string) *Constrained {
	index := make(map[string]int, len(values))
	for i, v := range values {
		index[v] = i
	}
	return &Constrained{
		tag:      tag,
		values:   values,
		index:    index,
		valueEq:  valueEq,
		defaults: defaults,
		render:   render,
	}
}

func (c *Constrained) Tag() Tag { return c.tag }

func (c *Constrained) Default() Gene {
	return Gene{Variant: c.tag, Index: 0, Value: c.values[0]}
}

func (c *Constrained) Randomize(rng *rand.Rand, g *Gene) {
	idx := rng.Intn(len(c.values))
	g.Variant = c.tag
	g.Index = idx
	g.Value = c.values[idx]
}

func (c *Constrained) Describe(g Gene) string {
	return fmt.Sprintf("%s[%d]=%s", c.tag, g.Index, g.Value)
}

func (c *Constrained) Serialize(g Gene) string {
	return g.Value
}

func (c *Constrained) Deserialize(s string) (Gene, error) {
	idx, ok := c.index[s]
	if !ok {
		return Gene{}, fmt.Errorf("value %q is not valid for %s", s, c.tag)
	}
	return Gene{Variant: c.tag, Index: idx, Value: s}, nil
}

func (c *Constrained) Clone(g Gene) Gene {
	return g
}

func (c *Constrained) Equal(a, b Gene) bool {
	return a.Variant == b.Variant && a.Index == b.Index
}

func (c *Constrained) ValueEquality() bool { return c.valueEq }

func (c *Constrained) Render(values []string) string { return c.render(values) }

// Values returns a copy of the valid-value set
func (c *Constrained) Values() []string {
	out := make([]string, len(c.values))
	copy(out, c.values)
	return out
}

// Defaults returns the known-good sequences, filtered to valid values
func (c *Constrained) Defaults() [][]string {
	out := make([][]string, 0, len(c.defaults))
	for _, seq := range c.defaults {
		kept := make([]string, 0, len(seq))
		for _, v := range seq {
			if _, ok := c.index[v]; ok {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			out = append(out, kept)
		}
	}
	return out
}

const letters = "abcdefghijklmnopqrstuvwxyz"

// RandomString synthesizes random lowercase strings of random length
type RandomString struct {
	MinLen int
	MaxLen int
}

func (r *RandomString) Tag() Tag { return TagRandomString }

func (r *RandomString) Default() Gene {
	return Gene{Variant: TagRandomString, Index: -1, Value: strings.Repeat("a", r.MinLen)}
}

func (r *RandomString) Randomize(rng *rand.Rand, g *Gene) {
	n := r.MinLen
	if r.MaxLen > r.MinLen {
		n += rng.Intn(r.MaxLen - r.MinLen + 1)
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	g.Variant = TagRandomString
	g.Index = -1
	g.Value = string(b)
}

func (r *RandomString) Describe(g Gene) string {
	return fmt.Sprintf("%s(%d)=%s", TagRandomString, len(g.Value), g.Value)
}

func (r *RandomString) Serialize(g Gene) string {
	return g.Value
}

func (r *RandomString) Deserialize(s string) (Gene, error) {
	if s == "" {
		return Gene{}, fmt.Errorf("empty value for %s", TagRandomString)
	}
	for _, ch := range s {
		if ch < 'a' || ch > 'z' {
			return Gene{}, fmt.Errorf("value %q is not valid for %s", s, TagRandomString)
		}
	}
	return Gene{Variant: TagRandomString, Index: -1, Value: s}, nil
}

func (r *RandomString) Clone(g Gene) Gene {
	return g
}

func (r *RandomString) Equal(a, b Gene) bool {
	return a.Variant == b.Variant && a.Value == b.Value
}

func (r *RandomString) ValueEquality() bool { return false }

func (r *RandomString) Render(values []string) string { return strings.Join(values, " ") }

func renderLLVM(values []string) string {
	return "-passes=" + strings.Join(values, ",")
}

func renderFlags(values []string) string {
	return strings.Join(values, " ")
}

func renderList(values []string) string {
	return strings.Join(values, ",")
}
