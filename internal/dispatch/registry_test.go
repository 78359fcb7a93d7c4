package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
	"github.com/klon-labs/klon/pkg/klon/v1/object"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	typ := object.NewType("widget", nil)

	called := false
	err := reg.Register(typ, func(obj object.Object) (object.Object, error) {
		called = true
		return obj, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	reducer, ok := reg.Lookup(typ)
	require.True(t, ok)
	_, err = reducer(object.None)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRegistry_LookupMiss(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Lookup(object.StrType)
	assert.False(t, ok)
}

func TestRegistry_RejectsInvalidRegistrations(t *testing.T) {
	reg := NewRegistry()
	noop := func(obj object.Object) (object.Object, error) { return obj, nil }

	var cfgErr *klonerrors.ConfigError
	err := reg.Register(nil, noop)
	require.ErrorAs(t, err, &cfgErr)

	err = reg.Register(object.StrType, nil)
	require.ErrorAs(t, err, &cfgErr)

	require.NoError(t, reg.Register(object.StrType, noop))
	err = reg.Register(object.StrType, noop)
	require.ErrorAs(t, err, &cfgErr, "duplicate registration must be rejected")
}
