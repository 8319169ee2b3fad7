// Package ingredient derives quantity, unit and ingredient name for
// Ingredient annotations.
package ingredient

import (
	"fmt"
	"strings"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/plugin"
)

// Name is the plugin name.
const Name = "ingredient"

// Data fields written by the plugin.
const (
	FieldQuantity    = "quantity"
	FieldMaxQuantity = "maxQuantity"
	FieldUnit        = "unit"
	FieldUnitPlural  = "unitPlural"
	FieldIngredient  = "ingredient"
)

// Plugin parses the text of every Ingredient annotation. Text that does
// not start with a quantity is recorded as the ingredient name alone.
func Plugin() plugin.Plugin {
	return plugin.Plugin{
		Name:      Name,
		Types:     []string{annotation.TypeIngredient},
		Transform: transform,
	}
}

func transform(annotations []annotation.Annotation, buf annotation.Buffer) error {
	for i := range annotations {
		a := &annotations[i]
		if a.Type != annotation.TypeIngredient {
			continue
		}
		if a.Data == nil {
			a.Data = annotation.Data{}
		}

		text := a.Span.Text(buf)
		p, err := Parse(text)
		if err != nil {
			a.Data[FieldIngredient] = lower(strings.TrimSpace(text))
			continue
		}

		a.Data[FieldQuantity] = p.Quantity
		if p.MaxQuantity != p.Quantity {
			a.Data[FieldMaxQuantity] = p.MaxQuantity
		}
		if p.Unit != "" {
			a.Data[FieldUnit] = p.Unit
			a.Data[FieldUnitPlural] = p.UnitPlural
		}
		a.Data[FieldIngredient] = p.Ingredient
	}
	return nil
}

// String renders a parsed line for debugging.
func (p Parsed) String() string {
	return fmt.Sprintf("%g %s %s", p.Quantity, p.Unit, p.Ingredient)
}
