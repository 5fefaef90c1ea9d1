package gene

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, tag := range Tags() {
		t.Run(string(tag), func(t *testing.T) {
			v, err := New(tag, Options{IntRangeSize: 8})
			require.NoError(t, err)
			assert.Equal(t, tag, v.Tag())
			assert.Equal(t, tag, v.Default().Variant)
		})
	}
}

func TestNewUnknownVariant(t *testing.T) {
	_, err := New("brainfuck", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestNewIntRangeRequiresSize(t *testing.T) {
	_, err := New(TagIntRange, Options{})
	assert.Error(t, err)
}

func TestConstrainedRandomize(t *testing.T) {
	v, err := New(TagLLVMPass, Options{})
	require.NoError(t, err)
	values := v.(Enumerable).Values()

	rng := rand.New(rand.NewSource(7))
	g := v.Default()
	for i := 0; i < 200; i++ {
		v.Randomize(rng, &g)
		require.GreaterOrEqual(t, g.Index, 0)
		require.Less(t, g.Index, len(values))
		assert.Equal(t, values[g.Index], g.Value)
		assert.Equal(t, TagLLVMPass, g.Variant)
	}
}

func TestRandomStringRandomize(t *testing.T) {
	v := &RandomString{MinLen: 2, MaxLen: 5}
	rng := rand.New(rand.NewSource(3))
	g := v.Default()
	assert.Equal(t, "aa", g.Value)

	for i := 0; i < 100; i++ {
		v.Randomize(rng, &g)
		assert.Equal(t, -1, g.Index)
		assert.GreaterOrEqual(t, len(g.Value), 2)
		assert.LessOrEqual(t, len(g.Value), 5)
		_, err := v.Deserialize(g.Value)
		assert.NoError(t, err)
	}
}

func TestDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		tag     Tag
		input   string
		wantErr bool
		index   int
	}{
		{name: "known pass", tag: TagLLVMPass, input: "gvn", index: 18},
		{name: "unknown pass", tag: TagLLVMPass, input: "frobnicate", wantErr: true},
		{name: "gcc flag", tag: TagGCCFlag, input: "-funroll-loops", index: 36},
		{name: "int in range", tag: TagIntRange, input: "3", index: 3},
		{name: "int out of range", tag: TagIntRange, input: "12", wantErr: true},
		{name: "string", tag: TagRandomString, input: "abc", index: -1},
		{name: "empty string", tag: TagRandomString, input: "", wantErr: true},
		{name: "non letters", tag: TagRandomString, input: "ab1", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v, err := New(test.tag, Options{IntRangeSize: 8})
			require.NoError(t, err)

			g, err := v.Deserialize(test.input)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.index, g.Index)
			assert.Equal(t, test.input, v.Serialize(g))
		})
	}
}

func TestValueEquality(t *testing.T) {
	tests := []struct {
		tag      Tag
		expected bool
	}{
		{TagLLVMPass, true},
		{TagGCCFlag, true},
		{TagIntRange, false},
		{TagRandomString, false},
	}

	for _, test := range tests {
		v, err := New(test.tag, Options{IntRangeSize: 4})
		require.NoError(t, err)
		assert.Equal(t, test.expected, v.ValueEquality(), string(test.tag))
	}
}

func TestEqualAndClone(t *testing.T) {
	v, err := New(TagIntRange, Options{IntRangeSize: 4})
	require.NoError(t, err)

	a, _ := v.Deserialize("2")
	b := v.Clone(a)
	assert.True(t, v.Equal(a, b))

	c, _ := v.Deserialize("3")
	assert.False(t, v.Equal(a, c))
}

func TestRender(t *testing.T) {
	llvm, _ := New(TagLLVMPass, Options{})
	assert.Equal(t, "-passes=sroa,gvn", llvm.Render([]string{"sroa", "gvn"}))

	gcc, _ := New(TagGCCFlag, Options{})
	assert.Equal(t, "-fgcse -funroll-loops", gcc.Render([]string{"-fgcse", "-funroll-loops"}))

	ints, _ := New(TagIntRange, Options{IntRangeSize: 4})
	assert.Equal(t, "1,2", ints.Render([]string{"1", "2"}))
}

func TestDefaultsAreValid(t *testing.T) {
	for _, tag := range []Tag{TagLLVMPass, TagGCCFlag} {
		v, err := New(tag, Options{})
		require.NoError(t, err)

		seeder, ok := v.(Seeder)
		require.True(t, ok)
		defaults := seeder.Defaults()
		require.Len(t, defaults, 3)
		for _, seq := range defaults {
			for _, value := range seq {
				_, err := v.Deserialize(value)
				assert.NoError(t, err, value)
			}
		}
	}
}

func TestDescribe(t *testing.T) {
	v, _ := New(TagIntRange, Options{IntRangeSize: 4})
	g, _ := v.Deserialize("1")
	assert.Equal(t, "int-range[1]=1", v.Describe(g))

	s := &RandomString{MinLen: 1, MaxLen: 3}
	assert.Equal(t, "random-string(3)=abc", s.Describe(Gene{Variant: TagRandomString, Index: -1, Value: "abc"}))
}
