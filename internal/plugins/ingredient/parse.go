package ingredient

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNoQuantity is returned when a line does not start with a quantity.
var ErrNoQuantity = errors.New("no quantity")

// Parsed is one ingredient line split into its parts.
type Parsed struct {
	Quantity    float64
	MaxQuantity float64
	Unit        string
	UnitPlural  string
	Ingredient  string
}

// units maps every accepted spelling of a unit to its plural form.
var units = map[string]string{}

func init() {
	add := func(singular, plural string, aliases ...string) {
		units[singular] = plural
		units[plural] = plural
		for _, a := range aliases {
			units[a] = plural
		}
	}
	add("cup", "cups", "c")
	add("tablespoon", "tablespoons", "tbsp", "tbs", "tbl")
	add("teaspoon", "teaspoons", "tsp")
	add("gram", "grams", "g", "gr")
	add("kilogram", "kilograms", "kg")
	add("milliliter", "milliliters", "ml", "millilitre", "millilitres")
	add("liter", "liters", "l", "litre", "litres")
	add("ounce", "ounces", "oz")
	add("pound", "pounds", "lb", "lbs")
	add("pint", "pints", "pt")
	add("quart", "quarts", "qt")
	add("gallon", "gallons", "gal")
	add("pinch", "pinches")
	add("dash", "dashes")
	add("clove", "cloves")
	add("can", "cans")
	add("slice", "slices")
	add("piece", "pieces")
	add("stick", "sticks")
	add("sprig", "sprigs")
	add("bunch", "bunches")
	add("handful", "handfuls")
	add("package", "packages", "pkg")
}

var vulgarFractions = map[rune]float64{
	'¼': 0.25, '½': 0.5, '¾': 0.75,
	'⅓': 1.0 / 3, '⅔': 2.0 / 3,
	'⅕': 0.2, '⅖': 0.4, '⅗': 0.6, '⅘': 0.8,
	'⅙': 1.0 / 6, '⅚': 5.0 / 6,
	'⅛': 0.125, '⅜': 0.375, '⅝': 0.625, '⅞': 0.875,
}

// Casers are stateful, so each call builds its own.
func fold(s string) string  { return cases.Fold().String(s) }
func lower(s string) string { return cases.Lower(language.English).String(s) }

// Parse splits "<quantity> [unit] <ingredient>". Quantities may be
// integers, decimals, simple or mixed fractions, unicode vulgar fractions,
// or a range such as "2-3". The unit is kept as written.
func Parse(line string) (Parsed, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Parsed{}, ErrNoQuantity
	}

	qty, maxQty, rest, ok := parseQuantity(fields)
	if !ok {
		return Parsed{}, ErrNoQuantity
	}
	p := Parsed{Quantity: qty, MaxQuantity: maxQty}

	if len(rest) > 0 {
		word := strings.TrimSuffix(rest[0], ".")
		if plural, ok := units[fold(word)]; ok {
			p.Unit = word
			p.UnitPlural = plural
			rest = rest[1:]
		}
	}
	if len(rest) > 0 && fold(rest[0]) == "of" {
		rest = rest[1:]
	}
	p.Ingredient = lower(strings.Join(rest, " "))
	return p, nil
}

// parseQuantity consumes the leading quantity tokens of fields.
func parseQuantity(fields []string) (qty, maxQty float64, rest []string, ok bool) {
	first := fields[0]

	if lo, hi, found := strings.Cut(first, "-"); found && lo != "" && hi != "" {
		a, okA := parseNumber(lo)
		b, okB := parseNumber(hi)
		if okA && okB {
			return a, b, fields[1:], true
		}
	}

	qty, ok = parseNumber(first)
	if !ok {
		return 0, 0, nil, false
	}
	rest = fields[1:]

	// Mixed numbers: "1 1/2" or "1 ½".
	if len(rest) > 0 && qty == float64(int(qty)) && !strings.ContainsAny(first, "./") {
		if frac, ok := parseNumber(rest[0]); ok && frac < 1 {
			qty += frac
			rest = rest[1:]
		}
	}
	return qty, qty, rest, true
}

// parseNumber reads "2", "1.5", "3/4", "½" or "1½".
func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	runes := []rune(s)
	if v, ok := vulgarFractions[runes[len(runes)-1]]; ok {
		if len(runes) == 1 {
			return v, true
		}
		whole, err := strconv.Atoi(string(runes[:len(runes)-1]))
		if err != nil {
			return 0, false
		}
		return float64(whole) + v, true
	}

	if num, den, found := strings.Cut(s, "/"); found {
		n, errN := strconv.Atoi(num)
		d, errD := strconv.Atoi(den)
		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}
		return float64(n) / float64(d), true
	}

	if !unicode.IsDigit(runes[0]) && runes[0] != '.' {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
