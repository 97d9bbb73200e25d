package kdl

import (
	"errors"

	"github.com/kdlworks/kdl2/document"
)

// ErrUnhandled is returned by a converter to decline a value or node it was
// offered; the registry then tries the next matching rule.
var ErrUnhandled = errors.New("kdl: converter does not handle this value")

// ValueConverter maps a parsed value to another representation. The returned
// value replaces the parsed one in the document tree.
type ValueConverter func(v document.Value, frag *ParseFragment) (any, error)

// NodeConverter maps a completed node to a replacement node.
type NodeConverter func(n *document.Node, frag *ParseFragment) (*document.Node, error)

// ValueConverterRule pairs a key with the converter it dispatches to.
type ValueConverterRule struct {
	Key     document.ValueKey
	Convert ValueConverter
}

// NodeConverterRule pairs a key with the converter it dispatches to.
type NodeConverterRule struct {
	Key     document.NodeKey
	Convert NodeConverter
}

// ParseConfig controls value and node conversion during parsing. The zero
// value disables all conversion, leaving every value as its parsed variant.
type ParseConfig struct {
	// NativeUntaggedValues unwraps untagged values to their Go scalars.
	NativeUntaggedValues bool
	// NativeTaggedValues applies the built-in conversions for standard tags
	// (i8...u64, f32/f64, decimal, date-time, ipv4/6, url, uuid, regex,
	// base64).
	NativeTaggedValues bool
	// ValueConverters is scanned in order after each value is parsed; the
	// first rule whose key matches runs, and a rule returning ErrUnhandled
	// passes the value to the next match. Native conversion applies only
	// when no rule consumed the value.
	ValueConverters []ValueConverterRule
	// NodeConverters is scanned the same way after each node completes.
	NodeConverters []NodeConverterRule
}

var defaultParseConfig = &ParseConfig{
	NativeUntaggedValues: true,
	NativeTaggedValues:   true,
}

// DefaultParseConfig returns a fresh copy of the default configuration:
// native untagged and tagged conversion enabled, no user converters.
func DefaultParseConfig() *ParseConfig {
	cfg := *defaultParseConfig
	return &cfg
}
