// Package scaler scales ingredient quantities by the document's scale
// factor.
package scaler

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/plugin"
)

// Name is the plugin name.
const Name = "scaler"

// FieldScaleFactor holds the parsed factor on Scale Factor annotations.
const FieldScaleFactor = "scaleFactor"

// Plugin parses Scale Factor annotations and presents every Ingredient
// scaled by the first of them.
func Plugin() plugin.Plugin {
	return plugin.Plugin{
		Name:      Name,
		Types:     []string{annotation.TypeScaleFactor},
		Transform: transform,
		Extensions: map[string]plugin.Extension{
			annotation.TypeIngredient: {View: view},
		},
	}
}

func transform(annotations []annotation.Annotation, buf annotation.Buffer) error {
	for i := range annotations {
		a := &annotations[i]
		if a.Type != annotation.TypeScaleFactor {
			continue
		}
		if a.Data == nil {
			a.Data = annotation.Data{}
		}
		if f, ok := ParseFactor(a.Span.Text(buf)); ok {
			a.Data[FieldScaleFactor] = f
		} else {
			delete(a.Data, FieldScaleFactor)
		}
	}
	return nil
}

// ParseFactor reads the leading number of s, ignoring anything after it,
// so "2x" and "3 servings" both parse.
func ParseFactor(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	dot := false
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			end = i + 1
		case r == '.' && !dot:
			dot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			return parsePrefix(s[:end])
		}
	}
	return parsePrefix(s[:end])
}

func parsePrefix(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func view(v plugin.View, all []plugin.View) (plugin.Presentation, bool) {
	factor, ok := scaleFactor(all)
	if !ok {
		return plugin.Presentation{}, false
	}
	qty, ok := plugin.Float(v, "quantity")
	if !ok {
		return plugin.Presentation{}, false
	}

	text := "→ " + FormatQuantity(qty*factor)
	if unit, ok := plugin.String(v, "unitPlural"); ok && unit != "" {
		text += " " + unit
	}
	return plugin.Presentation{Text: text}, true
}

func scaleFactor(all []plugin.View) (float64, bool) {
	for _, v := range all {
		if v.Type() == annotation.TypeScaleFactor {
			return plugin.Float(v, FieldScaleFactor)
		}
	}
	return 0, false
}

var fractions = []struct {
	value float64
	glyph string
}{
	{1.0 / 8, "⅛"}, {1.0 / 6, "⅙"}, {1.0 / 5, "⅕"}, {1.0 / 4, "¼"},
	{1.0 / 3, "⅓"}, {3.0 / 8, "⅜"}, {2.0 / 5, "⅖"}, {1.0 / 2, "½"},
	{3.0 / 5, "⅗"}, {5.0 / 8, "⅝"}, {2.0 / 3, "⅔"}, {3.0 / 4, "¾"},
	{4.0 / 5, "⅘"}, {5.0 / 6, "⅚"}, {7.0 / 8, "⅞"},
}

const fractionTolerance = 0.01

// FormatQuantity renders q the way a recipe would: whole numbers plain,
// common fractions as vulgar fraction glyphs ("1½"), anything else rounded
// to two decimals.
func FormatQuantity(q float64) string {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return humanize.Ftoa(q)
	}
	sign := ""
	if q < 0 {
		sign = "-"
		q = -q
	}

	whole, frac := math.Modf(q)
	if frac < fractionTolerance {
		return sign + humanize.Comma(int64(whole))
	}
	if frac > 1-fractionTolerance {
		return sign + humanize.Comma(int64(whole)+1)
	}
	for _, f := range fractions {
		if math.Abs(frac-f.value) < fractionTolerance {
			if whole == 0 {
				return sign + f.glyph
			}
			return sign + humanize.Comma(int64(whole)) + f.glyph
		}
	}
	return sign + humanize.CommafWithDigits(q, 2)
}
