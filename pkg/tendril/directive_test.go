package tendril

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/pkg/fetch"
	"github.com/vango-dev/tendril/pkg/reactive"
	"github.com/vango-dev/tendril/pkg/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		attr string
		kind DirectiveKind
	}{
		{"class", DirectiveNone},
		{"data-x", DirectiveNone},
		{"@click", DirectiveEvent},
		{":title", DirectiveAttr},
		{"::value", DirectiveProp},
		{"#let:x", DirectiveLet},
		{"#jsvar", DirectiveJSVar},
		{"#component", DirectiveComponent},
		{"#include", DirectiveInclude},
		{"#onconnected", DirectiveConnected},
		{"#onDisconnected", DirectiveDisconnected},
	}
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			d, err := Classify(tt.attr)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.attr, d.Attr)
		})
	}
}

func TestClassifyLet(t *testing.T) {
	d, err := Classify("#let:total-count|first-item|b")
	require.NoError(t, err)
	assert.Equal(t, "totalCount", d.Name)
	assert.Equal(t, []string{"firstItem", "b"}, d.Deps)
	assert.Empty(t, d.Store)

	for suffix, kind := range map[string]store.Kind{"url": store.URL, "local": store.Local, "session": store.Session} {
		d, err := Classify("#let-" + suffix + ":v")
		require.NoError(t, err)
		assert.Equal(t, kind, d.Store)
		assert.Equal(t, "v", d.Name)
	}

	for _, bad := range []string{"#let", "#let:", "#let-cookie:v", "#letx:v", "#bogus"} {
		_, err := Classify(bad)
		require.Error(t, err, bad)
		assert.Equal(t, tderrors.ErrDirective, tderrors.CodeOf(err), bad)
	}
}

func TestClassifyEvent(t *testing.T) {
	d, err := Classify("@key-down|once|capture|throttle:100|fetch:json")
	require.NoError(t, err)
	assert.Equal(t, "keyDown", d.Event.Event)
	assert.True(t, d.Event.Once)
	assert.True(t, d.Event.Capture)
	assert.Equal(t, 100*time.Millisecond, d.Event.Throttle)
	assert.True(t, d.Event.Fetch)
	assert.Equal(t, fetch.JSON, d.Event.ParseMode)
}

func TestClassifyTargets(t *testing.T) {
	d, err := Classify("::style.font-size")
	require.NoError(t, err)
	assert.Equal(t, []string{"style", "fontSize"}, d.Target.Path)
	assert.True(t, d.Target.Property)

	d, err = Classify(":html+")
	require.NoError(t, err)
	assert.Equal(t, []string{"innerHTML"}, d.Target.Path)
	assert.True(t, d.Target.Append)

	d, err = Classify(":aria-label")
	require.NoError(t, err)
	assert.Equal(t, []string{"aria-label"}, d.Target.Path)
	assert.False(t, d.Target.Property)

	_, err = Classify("::a..b")
	assert.Equal(t, tderrors.ErrProperty, tderrors.CodeOf(err))
	_, err = Classify(":")
	assert.Equal(t, tderrors.ErrDirective, tderrors.CodeOf(err))
}

func TestDirectiveKindString(t *testing.T) {
	assert.Equal(t, "event", DirectiveEvent.String())
	assert.Equal(t, "ondisconnected", DirectiveDisconnected.String())
	assert.Equal(t, "unknown", DirectiveKind(200).String())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, b := newScopePair()
	r.Register("x", a)
	r.Register("x", b)
	r.Unregister("x", a)
	got, ok := r.Lookup("x")
	require.True(t, ok, "unregistering a replaced scope keeps the new one")
	assert.Same(t, b, got)
	r.Unregister("x", b)
	_, ok = r.Lookup("x")
	assert.False(t, ok)
}

func newScopePair() (*reactive.Scope, *reactive.Scope) {
	return reactive.NewScope(nil), reactive.NewScope(nil)
}
