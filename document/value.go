package document

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Value is a single KDL value together with its optional tag. The concrete
// variants preserve whatever the source notation carried beyond the scalar
// itself: radix for integers, mantissa and exponent for decimals, and the
// raw/quoted flavor for strings, so a document can be reprinted faithfully.
type Value interface {
	// Value returns the underlying Go scalar.
	Value() any
	// ValueTag returns the value's tag, or nil if untagged.
	ValueTag() *string
	// SetTag attaches or clears the value's tag.
	SetTag(tag *string)

	appendValue(b []byte, cfg *PrintConfig) []byte
}

// Numberish is implemented by the numeric variants: Binary, Octal, Hex,
// Decimal, Infinity, and NaN.
type Numberish interface {
	Value
	numberish()
}

// Stringish is implemented by the textual variants: String and RawString.
type Stringish interface {
	Value
	stringish()
}

// Binary is an integer that was written in 0b notation.
type Binary struct {
	Val int64
	Tag *string
}

func (v *Binary) Value() any         { return v.Val }
func (v *Binary) ValueTag() *string  { return v.Tag }
func (v *Binary) SetTag(tag *string) { v.Tag = tag }
func (v *Binary) numberish()         {}
func (v *Binary) String() string     { return PrintValue(v, nil) }
func (v *Binary) appendValue(b []byte, cfg *PrintConfig) []byte {
	if cfg.RespectRadix {
		return appendRadixInt(b, v.Val, "0b", 2)
	}
	return strconv.AppendInt(b, v.Val, 10)
}

// Octal is an integer that was written in 0o notation.
type Octal struct {
	Val int64
	Tag *string
}

func (v *Octal) Value() any         { return v.Val }
func (v *Octal) ValueTag() *string  { return v.Tag }
func (v *Octal) SetTag(tag *string) { v.Tag = tag }
func (v *Octal) numberish()         {}
func (v *Octal) String() string     { return PrintValue(v, nil) }
func (v *Octal) appendValue(b []byte, cfg *PrintConfig) []byte {
	if cfg.RespectRadix {
		return appendRadixInt(b, v.Val, "0o", 8)
	}
	return strconv.AppendInt(b, v.Val, 10)
}

// Hex is an integer that was written in 0x notation.
type Hex struct {
	Val int64
	Tag *string
}

func (v *Hex) Value() any         { return v.Val }
func (v *Hex) ValueTag() *string  { return v.Tag }
func (v *Hex) SetTag(tag *string) { v.Tag = tag }
func (v *Hex) numberish()         {}
func (v *Hex) String() string     { return PrintValue(v, nil) }
func (v *Hex) appendValue(b []byte, cfg *PrintConfig) []byte {
	if cfg.RespectRadix {
		return appendRadixInt(b, v.Val, "0x", 16)
	}
	return strconv.AppendInt(b, v.Val, 10)
}

// Decimal is a base-10 number. The exponent is kept separate from the
// mantissa so scientific notation survives a round trip; the mantissa is an
// int64 when the literal fits one, otherwise a float64.
type Decimal struct {
	Mantissa any // int64 or float64
	Exponent int64
	Tag      *string
}

// Value returns the numeric interpretation, mantissa times ten to the
// exponent. With a zero exponent the mantissa is returned unchanged.
func (v *Decimal) Value() any {
	if v.Exponent == 0 {
		return v.Mantissa
	}
	return v.floatMantissa() * math.Pow10(int(v.Exponent))
}

func (v *Decimal) ValueTag() *string  { return v.Tag }
func (v *Decimal) SetTag(tag *string) { v.Tag = tag }
func (v *Decimal) numberish()         {}
func (v *Decimal) String() string     { return PrintValue(v, nil) }

func (v *Decimal) floatMantissa() float64 {
	switch m := v.Mantissa.(type) {
	case int64:
		return float64(m)
	case float64:
		return m
	}
	return math.NaN()
}

func (v *Decimal) appendValue(b []byte, cfg *PrintConfig) []byte {
	switch m := v.Mantissa.(type) {
	case int64:
		b = strconv.AppendInt(b, m, 10)
	case float64:
		b = appendFloatMantissa(b, m)
	default:
		b = append(b, fmt.Sprintf("%v", v.Mantissa)...)
	}
	if v.Exponent != 0 {
		b = append(b, cfg.exponentChar())
		b = strconv.AppendInt(b, v.Exponent, 10)
	}
	return b
}

// Bool is a #true or #false keyword value.
type Bool struct {
	Val bool
	Tag *string
}

func (v *Bool) Value() any         { return v.Val }
func (v *Bool) ValueTag() *string  { return v.Tag }
func (v *Bool) SetTag(tag *string) { v.Tag = tag }
func (v *Bool) String() string     { return PrintValue(v, nil) }
func (v *Bool) appendValue(b []byte, cfg *PrintConfig) []byte {
	if v.Val {
		return append(b, "#true"...)
	}
	return append(b, "#false"...)
}

// Null is the #null keyword value.
type Null struct {
	Tag *string
}

func (v *Null) Value() any         { return nil }
func (v *Null) ValueTag() *string  { return v.Tag }
func (v *Null) SetTag(tag *string) { v.Tag = tag }
func (v *Null) String() string     { return PrintValue(v, nil) }
func (v *Null) appendValue(b []byte, cfg *PrintConfig) []byte {
	return append(b, "#null"...)
}

// Infinity is the #inf or #-inf keyword value.
type Infinity struct {
	Val float64
	Tag *string
}

func (v *Infinity) Value() any         { return v.Val }
func (v *Infinity) ValueTag() *string  { return v.Tag }
func (v *Infinity) SetTag(tag *string) { v.Tag = tag }
func (v *Infinity) numberish()         {}
func (v *Infinity) String() string     { return PrintValue(v, nil) }
func (v *Infinity) appendValue(b []byte, cfg *PrintConfig) []byte {
	if v.Val < 0 {
		return append(b, "#-inf"...)
	}
	return append(b, "#inf"...)
}

// NaN is the #nan keyword value.
type NaN struct {
	Tag *string
}

func (v *NaN) Value() any         { return math.NaN() }
func (v *NaN) ValueTag() *string  { return v.Tag }
func (v *NaN) SetTag(tag *string) { v.Tag = tag }
func (v *NaN) numberish()         {}
func (v *NaN) String() string     { return PrintValue(v, nil) }
func (v *NaN) appendValue(b []byte, cfg *PrintConfig) []byte {
	return append(b, "#nan"...)
}

// String is a string that was written quoted, multiline, or as an
// identifier-string, with escapes already decoded.
type String struct {
	Val string
	Tag *string
}

func (v *String) Value() any         { return v.Val }
func (v *String) ValueTag() *string  { return v.Tag }
func (v *String) SetTag(tag *string) { v.Tag = tag }
func (v *String) stringish()         {}
func (v *String) String() string     { return PrintValue(v, nil) }
func (v *String) appendValue(b []byte, cfg *PrintConfig) []byte {
	return AppendQuotedString(b, v.Val)
}

// RawString is a string that was written in raw notation; no escape
// processing was applied to its content.
type RawString struct {
	Val string
	Tag *string
}

func (v *RawString) Value() any         { return v.Val }
func (v *RawString) ValueTag() *string  { return v.Tag }
func (v *RawString) SetTag(tag *string) { v.Tag = tag }
func (v *RawString) stringish()         {}
func (v *RawString) String() string     { return PrintValue(v, nil) }
func (v *RawString) appendValue(b []byte, cfg *PrintConfig) []byte {
	if cfg.RespectStringType {
		if raw, ok := AppendRawString(b, v.Val); ok {
			return raw
		}
	}
	return AppendQuotedString(b, v.Val)
}

// ExactValue is a preformatted KDL literal used by programmatic construction
// to bypass the printer's formatting; Chars is emitted verbatim. Use
// kdl.NewExactValue to build one with validation.
type ExactValue struct {
	Chars string
	Val   any
	Tag   *string
}

func (v *ExactValue) Value() any         { return v.Val }
func (v *ExactValue) ValueTag() *string  { return v.Tag }
func (v *ExactValue) SetTag(tag *string) { v.Tag = tag }
func (v *ExactValue) String() string     { return PrintValue(v, nil) }
func (v *ExactValue) appendValue(b []byte, cfg *PrintConfig) []byte {
	return append(b, v.Chars...)
}

// PrintValue returns the KDL text for v, which may be a Value variant or a
// plain Go scalar left in the tree by a converter. A nil cfg uses defaults.
func PrintValue(v any, cfg *PrintConfig) string {
	return string(AppendValue(nil, v, cfg))
}

// AppendValue appends the KDL text for v to b, including the tag prefix for
// tagged Value variants, and returns the expanded buffer.
func AppendValue(b []byte, v any, cfg *PrintConfig) []byte {
	if cfg == nil {
		cfg = defaultPrintConfig
	}
	if val, ok := v.(Value); ok {
		if tag := val.ValueTag(); tag != nil {
			b = append(b, '(')
			b = appendStringLike(b, *tag)
			b = append(b, ')')
		}
		return val.appendValue(b, cfg)
	}
	return appendScalar(b, v, cfg)
}

// appendScalar formats a native Go value the way the equivalent KDL literal
// would print.
func appendScalar(b []byte, v any, cfg *PrintConfig) []byte {
	switch x := v.(type) {
	case nil:
		return append(b, "#null"...)
	case bool:
		if x {
			return append(b, "#true"...)
		}
		return append(b, "#false"...)
	case string:
		return AppendQuotedString(b, x)
	case int:
		return strconv.AppendInt(b, int64(x), 10)
	case int8:
		return strconv.AppendInt(b, int64(x), 10)
	case int16:
		return strconv.AppendInt(b, int64(x), 10)
	case int32:
		return strconv.AppendInt(b, int64(x), 10)
	case int64:
		return strconv.AppendInt(b, x, 10)
	case uint:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint8:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint16:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint32:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint64:
		return strconv.AppendUint(b, x, 10)
	case float32:
		return appendFloatScalar(b, float64(x), cfg)
	case float64:
		return appendFloatScalar(b, x, cfg)
	case time.Time:
		return AppendQuotedString(b, x.Format(time.RFC3339Nano))
	case []byte:
		return AppendQuotedString(b, base64.StdEncoding.EncodeToString(x))
	case fmt.Stringer:
		return AppendQuotedString(b, x.String())
	default:
		return AppendQuotedString(b, fmt.Sprintf("%v", x))
	}
}

// appendRadixInt emits v with its radix prefix, placing the sign before the
// prefix the way the grammar reads it back.
func appendRadixInt(b []byte, v int64, prefix string, base int) []byte {
	if v < 0 {
		b = append(b, '-')
		b = append(b, prefix...)
		return strconv.AppendUint(b, -uint64(v), base)
	}
	b = append(b, prefix...)
	return strconv.AppendUint(b, uint64(v), base)
}

// appendFloatMantissa emits a float in plain decimal notation, always with a
// decimal point so it reads back as a decimal rather than an integer.
func appendFloatMantissa(b []byte, x float64) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, x, 'f', -1, 64)
	for i := start; i < len(b); i++ {
		if b[i] == '.' {
			return b
		}
	}
	return append(b, '.', '0')
}

func appendFloatScalar(b []byte, x float64, cfg *PrintConfig) []byte {
	switch {
	case math.IsInf(x, 1):
		return append(b, "#inf"...)
	case math.IsInf(x, -1):
		return append(b, "#-inf"...)
	case math.IsNaN(x):
		return append(b, "#nan"...)
	}
	l10 := math.Log10(math.Abs(x))
	if !math.IsInf(l10, 0) && (l10 > 9 || l10 < -9) {
		return strconv.AppendFloat(b, x, cfg.exponentChar(), -1, 64)
	}
	return appendFloatMantissa(b, x)
}
