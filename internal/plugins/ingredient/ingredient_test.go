package ingredient

import (
	"errors"
	"math"
	"testing"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/crdt"
	"github.com/dshills/potluck/internal/logging"
	"github.com/dshills/potluck/internal/plugin"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Parsed
	}{
		{"2 cups flour", Parsed{Quantity: 2, MaxQuantity: 2, Unit: "cups", UnitPlural: "cups", Ingredient: "flour"}},
		{"1 1/2 tsp Salt", Parsed{Quantity: 1.5, MaxQuantity: 1.5, Unit: "tsp", UnitPlural: "teaspoons", Ingredient: "salt"}},
		{"½ cup of sugar", Parsed{Quantity: 0.5, MaxQuantity: 0.5, Unit: "cup", UnitPlural: "cups", Ingredient: "sugar"}},
		{"1½ Tbsp. butter", Parsed{Quantity: 1.5, MaxQuantity: 1.5, Unit: "Tbsp.", UnitPlural: "tablespoons", Ingredient: "butter"}},
		{"3/4 lb ground beef", Parsed{Quantity: 0.75, MaxQuantity: 0.75, Unit: "lb", UnitPlural: "pounds", Ingredient: "ground beef"}},
		{"2-3 cloves garlic", Parsed{Quantity: 2, MaxQuantity: 3, Unit: "cloves", UnitPlural: "cloves", Ingredient: "garlic"}},
		{"3 eggs", Parsed{Quantity: 3, MaxQuantity: 3, Ingredient: "eggs"}},
		{"0.5 l milk", Parsed{Quantity: 0.5, MaxQuantity: 0.5, Unit: "l", UnitPlural: "liters", Ingredient: "milk"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.line, err)
			}
			if math.Abs(got.Quantity-tt.want.Quantity) > 1e-9 || math.Abs(got.MaxQuantity-tt.want.MaxQuantity) > 1e-9 {
				t.Errorf("quantity = %v-%v, want %v-%v", got.Quantity, got.MaxQuantity, tt.want.Quantity, tt.want.MaxQuantity)
			}
			got.Quantity, got.MaxQuantity = tt.want.Quantity, tt.want.MaxQuantity
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseNoQuantity(t *testing.T) {
	for _, line := range []string{"", "   ", "salt to taste", "cups/ flour"} {
		if _, err := Parse(line); !errors.Is(err, ErrNoQuantity) {
			t.Errorf("Parse(%q): expected ErrNoQuantity, got %v", line, err)
		}
	}
}

func TestTransformIngredientAnnotation(t *testing.T) {
	buf := crdt.NewFromString("Mix 2 cups flour and salt to taste")
	in := []annotation.Annotation{
		annotation.New(annotation.TypeIngredient, annotation.SpanFromRange(buf, 4, 16), nil),
		annotation.New(annotation.TypeIngredient, annotation.SpanFromRange(buf, 21, 34), nil),
		annotation.New(annotation.TypeStep, annotation.SpanFromRange(buf, 0, 3), nil),
	}

	p := plugin.NewPipeline([]plugin.Plugin{Plugin()}, plugin.WithPipelineLogger(logging.Nop()))
	out, err := p.Apply(in, buf)
	if err != nil {
		t.Fatal(err)
	}

	want := annotation.Data{
		FieldQuantity:   2.0,
		FieldUnit:       "cups",
		FieldUnitPlural: "cups",
		FieldIngredient: "flour",
	}
	if !out[0].Data.Equal(want) {
		t.Errorf("data = %v, want %v", out[0].Data, want)
	}
	if got := out[1].Data[FieldIngredient]; got != "salt to taste" {
		t.Errorf("unparsed text should become the ingredient name, got %v", got)
	}
	if len(out[2].Data) != 0 {
		t.Errorf("other types must be untouched, got %v", out[2].Data)
	}
}
