package kdl

import (
	"encoding/base64"
	"math"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kdlworks/kdl2/document"
)

// toNative applies the built-in conversion for a value's tag. Values with
// an unrecognized tag, or whose variant the tag doesn't apply to, pass
// through unchanged.
func toNative(v document.Value, pf *ParseFragment) (any, error) {
	tag := ""
	if t := v.ValueTag(); t != nil {
		tag = *t
	}
	switch val := v.(type) {
	case document.Numberish:
		switch tag {
		case "i8":
			n, err := signedInt(val, pf, 8, "an i8")
			if err != nil {
				return nil, err
			}
			return int8(n), nil
		case "i16":
			n, err := signedInt(val, pf, 16, "an i16")
			if err != nil {
				return nil, err
			}
			return int16(n), nil
		case "i32":
			n, err := signedInt(val, pf, 32, "an i32")
			if err != nil {
				return nil, err
			}
			return int32(n), nil
		case "i64":
			return signedInt(val, pf, 64, "an i64")
		case "u8":
			n, err := unsignedInt(val, pf, 8, "a u8")
			if err != nil {
				return nil, err
			}
			return uint8(n), nil
		case "u16":
			n, err := unsignedInt(val, pf, 16, "a u16")
			if err != nil {
				return nil, err
			}
			return uint16(n), nil
		case "u32":
			n, err := unsignedInt(val, pf, 32, "a u32")
			if err != nil {
				return nil, err
			}
			return uint32(n), nil
		case "u64":
			return unsignedInt(val, pf, 64, "a u64")
		case "f32":
			return float32(numberFloat(val)), nil
		case "f64":
			return numberFloat(val), nil
		case "decimal64", "decimal128":
			return decimalFromChars(strings.ReplaceAll(pf.Fragment, "_", ""), pf)
		}
	case document.Stringish:
		str, _ := val.Value().(string)
		switch tag {
		case "date-time":
			return timeFromString(str, dateTimeLayouts, "date-time", pf)
		case "time":
			return timeFromString(str, timeLayouts, "time", pf)
		case "date":
			return timeFromString(str, dateLayouts, "date", pf)
		case "decimal":
			return decimalFromChars(str, pf)
		case "ipv4":
			addr, err := netip.ParseAddr(str)
			if err != nil || !addr.Is4() {
				return nil, pf.Errorf("Couldn't parse an IPv4 address from %s.", pf.Fragment)
			}
			return addr, nil
		case "ipv6":
			addr, err := netip.ParseAddr(str)
			if err != nil || !addr.Is6() {
				return nil, pf.Errorf("Couldn't parse an IPv6 address from %s.", pf.Fragment)
			}
			return addr, nil
		case "url":
			u, err := url.Parse(str)
			if err != nil {
				return nil, pf.Errorf("Couldn't parse a url from %s.", pf.Fragment)
			}
			return u, nil
		case "uuid":
			id, err := uuid.Parse(str)
			if err != nil {
				return nil, pf.Errorf("Couldn't parse a UUID from %s.", pf.Fragment)
			}
			return id, nil
		case "regex":
			re, err := regexp.Compile(str)
			if err != nil {
				return nil, pf.Errorf("Couldn't parse a regex from %s.", pf.Fragment)
			}
			return re, nil
		case "base64":
			raw, err := base64.StdEncoding.Strict().DecodeString(str)
			if err != nil {
				return nil, pf.Errorf("Couldn't parse base64.")
			}
			return raw, nil
		}
	}
	return v, nil
}

// signedInt range-checks a numeric value against a signed width. Float
// values are truncated after the check, the way an integer tag reads them.
func signedInt(val document.Numberish, pf *ParseFragment, bits uint, what string) (int64, error) {
	switch x := val.Value().(type) {
	case int64:
		if bits < 64 {
			limit := int64(1) << (bits - 1)
			if x < -limit || x >= limit {
				return 0, pf.Errorf("%d doesn't fit in %s.", x, what)
			}
		}
		return x, nil
	case float64:
		limit := math.Ldexp(1, int(bits-1))
		if !(x >= -limit && x < limit) {
			return 0, pf.Errorf("%v doesn't fit in %s.", x, what)
		}
		return int64(x), nil
	}
	return 0, pf.Errorf("%v doesn't fit in %s.", val.Value(), what)
}

func unsignedInt(val document.Numberish, pf *ParseFragment, bits uint, what string) (uint64, error) {
	switch x := val.Value().(type) {
	case int64:
		if x < 0 {
			return 0, pf.Errorf("%d doesn't fit in %s.", x, what)
		}
		if bits < 64 {
			limit := int64(1) << bits
			if x >= limit {
				return 0, pf.Errorf("%d doesn't fit in %s.", x, what)
			}
		}
		return uint64(x), nil
	case float64:
		limit := math.Ldexp(1, int(bits))
		if !(x >= 0 && x < limit) {
			return 0, pf.Errorf("%v doesn't fit in %s.", x, what)
		}
		return uint64(x), nil
	}
	return 0, pf.Errorf("%v doesn't fit in %s.", val.Value(), what)
}

func numberFloat(val document.Numberish) float64 {
	switch x := val.Value().(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	}
	return math.NaN()
}

func decimalFromChars(chars string, pf *ParseFragment) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(chars)
	if err != nil {
		return decimal.Decimal{}, pf.Errorf("Couldn't parse a decimal from %s.", pf.Fragment)
	}
	return d, nil
}

// ISO-8601 layouts, most specific first.
var (
	dateTimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
	}
	dateLayouts = []string{"2006-01-02"}
	timeLayouts = []string{"15:04:05.999999999", "15:04"}
)

func timeFromString(s string, layouts []string, what string, pf *ParseFragment) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, pf.Errorf("Couldn't parse a %s from %s.", what, pf.Fragment)
}
