// Package plugins holds the built-in annotation plugins and the catalog of
// annotation types the editor offers.
package plugins

import (
	"fmt"
	"slices"
	"time"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/logging"
	"github.com/dshills/potluck/internal/plugin"
	"github.com/dshills/potluck/internal/plugins/ingredient"
	"github.com/dshills/potluck/internal/plugins/scaler"
	"github.com/dshills/potluck/internal/plugins/timer"
)

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex returns the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// TypeInfo describes how an annotation type is shown.
type TypeInfo struct {
	Name  string
	Icon  string
	Color RGB
	// VisibleFields are the data fields listed for the type, in order.
	VisibleFields []string
}

var catalog = []TypeInfo{
	{
		Name:          annotation.TypeIngredient,
		Icon:          "🥕",
		Color:         RGB{253, 253, 85},
		VisibleFields: []string{ingredient.FieldQuantity, ingredient.FieldUnit, ingredient.FieldIngredient},
	},
	{Name: annotation.TypeIngredientQuantity, Icon: "🥄", Color: RGB{204, 65, 135}},
	{Name: annotation.TypeIngredientName, Icon: "🍅", Color: RGB{204, 98, 65}},
	{
		Name:  annotation.TypeDuration,
		Icon:  "🕓",
		Color: RGB{50, 250, 50},
		VisibleFields: []string{
			"text",
			timer.FieldTotalSeconds,
			timer.FieldRemainingSeconds,
			timer.FieldIsRunning,
			timer.FieldIsInProgress,
			timer.FieldIsFinished,
			timer.FieldIsPaused,
			timer.FieldMinutesDigits,
			timer.FieldSecondsDigits,
		},
	},
	{Name: annotation.TypeStep, Icon: "🔢", Color: RGB{250, 50, 50}},
	{Name: annotation.TypeScaleFactor, Icon: "🍴", Color: RGB{65, 155, 204}},
	{Name: annotation.TypeTag, Icon: "🏷", Color: RGB{16, 176, 165}},
	{Name: annotation.TypeComment, Icon: "💬", Color: RGB{255, 213, 79}, VisibleFields: []string{"text"}},
}

// Fallback is used for types missing from the catalog.
var Fallback = TypeInfo{Icon: "•", Color: RGB{180, 180, 180}}

// Types returns the catalog in display order.
func Types() []TypeInfo {
	return slices.Clone(catalog)
}

// Lookup returns the catalog entry for typ.
func Lookup(typ string) (TypeInfo, bool) {
	for _, ti := range catalog {
		if ti.Name == typ {
			return ti, true
		}
	}
	info := Fallback
	info.Name = typ
	return info, false
}

// BuiltinNames lists the built-in plugins in load order.
var BuiltinNames = []string{ingredient.Name, scaler.Name, timer.Name}

// Builtin returns the built-in plugins named in enabled, in load order.
// A nil enabled list selects all of them. Unknown names are an error.
func Builtin(enabled []string, tick time.Duration, log *logging.Logger) ([]plugin.Plugin, error) {
	if enabled == nil {
		enabled = BuiltinNames
	}
	for _, name := range enabled {
		if !slices.Contains(BuiltinNames, name) {
			return nil, fmt.Errorf("unknown built-in plugin %q", name)
		}
	}

	var out []plugin.Plugin
	for _, name := range BuiltinNames {
		if !slices.Contains(enabled, name) {
			continue
		}
		switch name {
		case ingredient.Name:
			out = append(out, ingredient.Plugin())
		case scaler.Name:
			out = append(out, scaler.Plugin())
		case timer.Name:
			out = append(out, timer.Plugin(timer.WithInterval(tick), timer.WithLogger(log)))
		}
	}
	return out, nil
}
