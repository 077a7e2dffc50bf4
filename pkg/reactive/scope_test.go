package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeLazyCreationIsStable(t *testing.T) {
	root := NewScope(nil)
	child := NewScope(root)

	assert.Nil(t, child.Get("missing"))
	first, ok := child.Lookup("missing")
	require.True(t, ok)

	assert.Nil(t, child.Get("missing"))
	second, _ := child.Lookup("missing")
	assert.Same(t, first, second)

	assert.True(t, child.Has("missing"))
	assert.False(t, root.Has("missing"), "lazy signal belongs to the reading scope")
}

func TestScopeWriteReachesAncestor(t *testing.T) {
	root := NewScope(nil)
	root.Set("count", 1)
	mid := NewScope(root)
	leaf := NewScope(mid)

	var seen []any
	leaf.Signal("count").Subscribe(func(v any) { seen = append(seen, v) })
	mid.Signal("count").Subscribe(func(v any) { seen = append(seen, v) })

	leaf.Set("count", 2)

	assert.Equal(t, 2, root.Get("count"))
	assert.Equal(t, []any{2, 2}, seen, "listeners run before Set returns")
	assert.Empty(t, leaf.Names(), "no shadow signal in leaf")
	assert.Empty(t, mid.Names())
}

func TestScopeTopmostDeclarerWins(t *testing.T) {
	root := NewScope(nil)
	child := NewScope(root)
	child.Set("x", "child")
	root.Set("x", "root")

	assert.Same(t, root, child.Owner("x"))
	assert.Equal(t, "root", child.Get("x"))
}

func TestScopeOld(t *testing.T) {
	root := NewScope(nil)
	child := NewScope(root)
	root.Set("theme", "light")
	child.Set("theme", "dark")

	assert.Equal(t, "light", child.Old("theme"))
	assert.Equal(t, "light", root.Old("theme"))
	assert.Nil(t, child.Old("unknown"))
}

func TestScopeOldRecordedBeforeNotify(t *testing.T) {
	s := NewScope(nil)
	s.Set("v", 1)
	var old any
	s.Signal("v").Subscribe(func(any) { old = s.Old("v") })

	s.Set("v", 5)
	assert.Equal(t, 1, old)
}

func TestScopeSnapshot(t *testing.T) {
	root := NewScope(nil)
	root.Set("a", 1)
	child := NewScope(root)
	child.Set("b", 2)

	assert.Equal(t, map[string]any{"a": 1, "b": 2}, child.Snapshot())
	assert.Same(t, root, child.Root())
	assert.Nil(t, root.Parent())
}

func TestTrackerRecordsReads(t *testing.T) {
	root := NewScope(nil)
	root.Set("a", 1)
	scope := NewScope(root)

	tr := Track(scope)
	tr.Get("a")
	tr.Get("b")
	tr.Get("a")
	tr.Set("c", 3)

	deps := tr.Signals()
	require.Len(t, deps, 2)
	a, _ := root.Lookup("a")
	assert.Same(t, a, deps[0])
	assert.True(t, tr.Has("c"))
}
