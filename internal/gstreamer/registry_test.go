package gstreamer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake_MissingType(t *testing.T) {
	registry := NewRegistry()

	element, err := registry.Make("", "")
	assert.Nil(t, element)
	assert.ErrorIs(t, err, ErrConstruction)

	element, err = NewElement("", "alias")
	assert.Nil(t, element)
	assert.ErrorIs(t, err, ErrConstruction)
}

func TestMake_UnknownType(t *testing.T) {
	element, err := NewElement("this-element-does-not-exist", "no-alias")
	assert.Nil(t, element)
	assert.ErrorIs(t, err, ErrConstruction)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMake_GeneratedNames(t *testing.T) {
	registry := NewRegistry()
	for _, typ := range CoreElementTypes() {
		require.NoError(t, registry.Register(typ))
	}

	first, err := registry.Make("fakesink", "")
	require.NoError(t, err)
	second, err := registry.Make("fakesink", "")
	require.NoError(t, err)
	other, err := registry.Make("tee", "")
	require.NoError(t, err)

	assert.Equal(t, "fakesink0", first.Name())
	assert.Equal(t, "fakesink1", second.Name())
	assert.Equal(t, "tee0", other.Name())
}

func TestRegister(t *testing.T) {
	registry := NewRegistry()
	custom := &ElementType{
		Name: "custom",
		Properties: []PropertySpec{
			{Name: "level", Kind: KindInt, Default: 3, Writable: true},
		},
	}

	require.NoError(t, registry.Register(custom))
	assert.ErrorIs(t, registry.Register(&ElementType{Name: "custom"}), ErrAlreadyExists)
	assert.Error(t, registry.Register(&ElementType{}))
	assert.Error(t, registry.Register(nil))

	found, ok := registry.Lookup("custom")
	require.True(t, ok)
	nameSpec, ok := found.Property("name")
	require.True(t, ok)
	assert.False(t, nameSpec.Writable)

	element, err := registry.Make("custom", "c")
	require.NoError(t, err)
	level, err := element.Property("level")
	require.NoError(t, err)
	assert.Equal(t, 3, level)

	_, hasStateError := found.Property(PropStateError)
	assert.False(t, hasStateError)
}

func TestDefaultRegistry_CoreTypes(t *testing.T) {
	types := DefaultRegistry().Types()
	names := make([]string, 0, len(types))
	for _, typ := range types {
		names = append(names, typ.Name)
	}
	assert.Equal(t, []string{"fakesink", "fakesrc", "filesink", "filesrc", "identity", "queue", "tee"}, names)

	for _, name := range []string{"fakesink", "fakesrc"} {
		typ, ok := DefaultRegistry().Lookup(name)
		require.True(t, ok)
		_, ok = typ.Property(PropStateError)
		assert.True(t, ok, name)
	}
}
