// Package kdl parses and prints KDL documents. Parsing produces a
// document.Document tree that can be reprinted canonically; a converter
// registry lets callers map tagged values and nodes to their own
// representations while the document is being parsed.
package kdl

import (
	"fmt"
	"io"

	"github.com/kdlworks/kdl2/document"
)

// Parser binds a parse configuration and a default print configuration. The
// zero value parses with the package defaults.
type Parser struct {
	Config      *ParseConfig
	PrintConfig *document.PrintConfig
}

// ParseString parses a KDL document from text.
func (p *Parser) ParseString(text string) (*document.Document, error) {
	doc, err := parseDocument(text, p.Config)
	if err != nil {
		return nil, err
	}
	doc.PrintConfig = p.PrintConfig
	return doc, nil
}

// Parse parses a KDL document from r.
func (p *Parser) Parse(r io.Reader) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return p.ParseString(string(data))
}

// Parse parses a KDL document from r with the default configuration and
// returns the parsed Document, or a non-nil error on failure.
func Parse(r io.Reader) (*document.Document, error) {
	var p Parser
	return p.Parse(r)
}

// ParseString parses a KDL document from text with the default
// configuration.
func ParseString(text string) (*document.Document, error) {
	var p Parser
	return p.ParseString(text)
}

// NewExactValue builds an ExactValue after checking, by re-parsing, that
// literal is a single well-formed KDL value. The printer emits the literal
// verbatim, so this is the constructor to use when formatting must be
// bypassed without risking invalid output.
func NewExactValue(literal string) (*document.ExactValue, error) {
	doc, err := parseDocument("node "+literal, &ParseConfig{})
	if err != nil {
		return nil, fmt.Errorf("invalid KDL value literal %q: %w", literal, err)
	}
	if len(doc.Nodes) != 1 {
		return nil, fmt.Errorf("invalid KDL value literal %q", literal)
	}
	n := doc.Nodes[0]
	if len(n.Args) != 1 || n.Props.Exist() || len(n.Children) > 0 {
		return nil, fmt.Errorf("invalid KDL value literal %q", literal)
	}
	ev := &document.ExactValue{Chars: literal}
	if v, ok := n.Args[0].(document.Value); ok {
		ev.Val = v.Value()
	}
	return ev, nil
}
