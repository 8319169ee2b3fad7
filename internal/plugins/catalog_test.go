package plugins

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/logging"
)

func TestLookup(t *testing.T) {
	info, ok := Lookup(annotation.TypeDuration)
	require.True(t, ok)
	assert.Equal(t, "🕓", info.Icon)
	assert.Equal(t, "#32fa32", info.Color.Hex())
	assert.Contains(t, info.VisibleFields, "remainingSeconds")

	info, ok = Lookup("Mystery")
	assert.False(t, ok)
	assert.Equal(t, "Mystery", info.Name)
	assert.Equal(t, Fallback.Color, info.Color)
}

func TestTypesIsACopy(t *testing.T) {
	types := Types()
	types[0].Name = "changed"
	assert.Equal(t, annotation.TypeIngredient, Types()[0].Name)
}

func TestBuiltin(t *testing.T) {
	all, err := Builtin(nil, time.Second, logging.Nop())
	require.NoError(t, err)
	var names []string
	for _, p := range all {
		names = append(names, p.Name)
	}
	assert.Equal(t, BuiltinNames, names)

	some, err := Builtin([]string{"timer", "ingredient"}, time.Second, logging.Nop())
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "ingredient", some[0].Name, "load order is fixed")

	_, err = Builtin([]string{"nope"}, time.Second, logging.Nop())
	assert.Error(t, err)
}
