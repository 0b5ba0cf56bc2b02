package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObj is a minimal Object for exercising the collector without any
// dependency on the machine package's value types.
type fakeObj struct {
	kind Kind
	refs []*fakeObj
}

func (f *fakeObj) GCKind() Kind { return f.kind }
func (f *fakeObj) GCRefs(refs []Object) []Object {
	for _, r := range f.refs {
		refs = append(refs, r)
	}
	return refs
}

func TestAllocAndCollectUnreachableIsFreed(t *testing.T) {
	c := New(Config{})
	var finalized []Object
	c.Finalize = func(o Object) { finalized = append(finalized, o) }

	root := &fakeObj{kind: KindInstance}
	garbage := &fakeObj{kind: KindInstance}
	c.Alloc(root)
	c.Alloc(garbage)

	c.Collect([]Object{root})

	require.Len(t, finalized, 1)
	assert.Same(t, garbage, finalized[0])
}

func TestReachableObjectSurvives(t *testing.T) {
	c := New(Config{})
	var finalized []Object
	c.Finalize = func(o Object) { finalized = append(finalized, o) }

	child := &fakeObj{kind: KindArray}
	root := &fakeObj{kind: KindInstance, refs: []*fakeObj{child}}
	c.Alloc(root)
	c.Alloc(child)

	c.Collect([]Object{root})

	assert.Empty(t, finalized)
}

func TestPinnedObjectSurvivesWithoutRoot(t *testing.T) {
	c := New(Config{})
	var finalized []Object
	c.Finalize = func(o Object) { finalized = append(finalized, o) }

	obj := &fakeObj{kind: KindString}
	c.Alloc(obj)
	c.Pin(obj)

	c.Collect(nil)

	assert.Empty(t, finalized)
}

func TestDisabledCollectorNeverFrees(t *testing.T) {
	c := New(Config{Disabled: true})
	var finalized []Object
	c.Finalize = func(o Object) { finalized = append(finalized, o) }

	garbage := &fakeObj{kind: KindMap}
	c.Alloc(garbage)
	c.Collect(nil)

	assert.Empty(t, finalized)
}

func TestStressModeCollectsOnEveryAllocation(t *testing.T) {
	c := New(Config{Stress: StressFull})
	var finalized int
	c.Finalize = func(Object) { finalized++ }

	c.Alloc(&fakeObj{kind: KindMap})
	c.MaybeCollect(nil) // no roots: the object just allocated should be swept

	assert.Equal(t, 1, finalized)
}

func TestParseStressMode(t *testing.T) {
	cases := map[string]StressMode{
		"":      StressNone,
		"none":  StressNone,
		"young": StressYoung,
		"full":  StressFull,
		"both":  StressBoth,
	}
	for s, want := range cases {
		got, err := ParseStressMode(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStressMode("bogus")
	assert.Error(t, err)
}

func TestCyclicReferencesDoNotInfiniteLoop(t *testing.T) {
	c := New(Config{})
	a := &fakeObj{kind: KindInstance}
	b := &fakeObj{kind: KindInstance}
	a.refs = []*fakeObj{b}
	b.refs = []*fakeObj{a}
	c.Alloc(a)
	c.Alloc(b)

	assert.NotPanics(t, func() {
		c.Collect([]Object{a})
	})
}
