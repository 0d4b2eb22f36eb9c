package coercer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NumericCoercer turns hand-curated cell text into numbers. Coercion is total:
// anything it cannot read becomes nil, never an error.
type NumericCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the cleanup applied before parsing
type CoercionConfig struct {
	ThousandsSeparators []string `json:"thousands_separators"` // Removed anywhere in the text
	ParenNegatives      bool     `json:"paren_negatives"`      // (123) -> -123
}

// DefaultCoercionConfig returns the rules used by the loaders
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		ThousandsSeparators: []string{","},
		ParenNegatives:      true,
	}
}

// NewNumericCoercer creates a coercer with the given config
func NewNumericCoercer(config CoercionConfig) *NumericCoercer {
	return &NumericCoercer{config: config}
}

var defaultCoercer = NewNumericCoercer(DefaultCoercionConfig())

// CoerceNumeric converts a raw cell with the default rules
func CoerceNumeric(raw interface{}) *float64 {
	return defaultCoercer.Coerce(raw)
}

// Coerce returns the numeric value of raw, or nil when it is missing or malformed
func (c *NumericCoercer) Coerce(raw interface{}) *float64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return finite(float64(v))
	case int8:
		return finite(float64(v))
	case int16:
		return finite(float64(v))
	case int32:
		return finite(float64(v))
	case int64:
		return finite(float64(v))
	case uint:
		return finite(float64(v))
	case uint8:
		return finite(float64(v))
	case uint16:
		return finite(float64(v))
	case uint32:
		return finite(float64(v))
	case uint64:
		return finite(float64(v))
	case *float64:
		if v == nil {
			return nil
		}
		return finite(*v)
	case json.Number:
		return c.parse(v.String())
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	case fmt.Stringer:
		return c.parse(v.String())
	default:
		return nil
	}
}

// CoerceCount returns the integer value of raw. Values with a fractional part
// are not counts and yield nil.
func (c *NumericCoercer) CoerceCount(raw interface{}) *int64 {
	f := c.Coerce(raw)
	if f == nil || *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt64/2 {
		return nil
	}
	n := int64(*f)
	return &n
}

// Clean applies the text cleanup without parsing; exposed for diagnostics
func (c *NumericCoercer) Clean(s string) string {
	clean := strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	for _, sep := range c.config.ThousandsSeparators {
		clean = strings.ReplaceAll(clean, sep, "")
	}
	return strings.TrimSpace(clean)
}

func (c *NumericCoercer) parse(s string) *float64 {
	clean := c.Clean(s)
	if clean == "" {
		return nil
	}

	negative := false
	if c.config.ParenNegatives && strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		clean = strings.TrimSpace(clean[1 : len(clean)-1])
		negative = true
	}

	// ParseFloat also accepts hex floats, "inf" and "nan"; only plain decimals are data
	if !looksDecimal(clean) {
		return nil
	}
	val, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil
	}
	if negative {
		val = -val
	}
	return finite(val)
}

func looksDecimal(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.', r == 'e', r == 'E':
		case (r == '+' || r == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		default:
			return false
		}
	}
	return digits > 0
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
