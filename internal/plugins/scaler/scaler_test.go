package scaler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/crdt"
	"github.com/dshills/potluck/internal/logging"
	"github.com/dshills/potluck/internal/plugin"
	"github.com/dshills/potluck/internal/plugins/ingredient"
)

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "2"},
		{0.5, "½"},
		{1.5, "1½"},
		{2.25, "2¼"},
		{1.0 / 3, "⅓"},
		{0.125, "⅛"},
		{1200, "1,200"},
		{1.999, "2"},
		{1.43, "1.43"},
		{-0.75, "-¾"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatQuantity(tt.in), "FormatQuantity(%v)", tt.in)
	}
}

func TestParseFactor(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"2", 2, true},
		{" 1.5x ", 1.5, true},
		{"3 servings", 3, true},
		{".5", 0.5, true},
		{"double", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFactor(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestScaledIngredientView(t *testing.T) {
	buf := crdt.NewFromString("Serves 2x. 1 1/2 cups flour")
	in := []annotation.Annotation{
		annotation.New(annotation.TypeScaleFactor, annotation.SpanFromRange(buf, 7, 9), nil),
		annotation.New(annotation.TypeIngredient, annotation.SpanFromRange(buf, 11, 27), nil),
	}

	plugins := []plugin.Plugin{ingredient.Plugin(), Plugin()}
	out, err := plugin.NewPipeline(plugins, plugin.WithPipelineLogger(logging.Nop())).Apply(in, buf)
	require.NoError(t, err)
	assert.Equal(t, 2.0, out[0].Data[FieldScaleFactor])

	reg := plugin.NewRegistry(plugins, logging.Nop())
	views := []plugin.View{reg.View(out[0], buf), reg.View(out[1], buf)}

	p, ok := reg.Present(views[1], views)
	require.True(t, ok)
	assert.Equal(t, "→ 3 cups", p.Text)
}

func TestNoScaleFactorNoPresentation(t *testing.T) {
	buf := crdt.NewFromString("2 cups flour")
	a := annotation.New(annotation.TypeIngredient, annotation.SpanFromRange(buf, 0, 12), annotation.Data{
		"quantity":   2.0,
		"unitPlural": "cups",
	})
	reg := plugin.NewRegistry([]plugin.Plugin{Plugin()}, logging.Nop())
	v := reg.View(a, buf)

	_, ok := reg.Present(v, []plugin.View{v})
	assert.False(t, ok)
}
