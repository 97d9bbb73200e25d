package kdl

import (
	"fmt"
	"strings"

	"github.com/kdlworks/kdl2/internal/stream"
)

// ParseError is the single error kind produced by parsing: a position and a
// message. Parse errors are fatal; no partial document accompanies one.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	head := fmt.Sprintf("Parse error on line %d col %d:", e.Line, e.Col)
	switch {
	case strings.Contains(e.Msg, "\n"):
		return head + "\n" + e.Msg
	case len(head)+len(e.Msg)+1 > 78:
		return head + "\n  " + e.Msg
	default:
		return head + " " + e.Msg
	}
}

func parseErrorf(s *stream.Stream, i int, format string, args ...any) *ParseError {
	loc := s.Loc(i)
	return &ParseError{Line: loc.Line, Col: loc.Col, Msg: fmt.Sprintf(format, args...)}
}

// ParseFragment hands a converter the source text that produced the value or
// node it is converting, so conversion failures can point back into the
// document.
type ParseFragment struct {
	// Fragment is the source text of the value or node.
	Fragment string

	s *stream.Stream
	i int
}

// Errorf builds a ParseError located at the fragment's position.
func (f *ParseFragment) Errorf(format string, args ...any) *ParseError {
	return parseErrorf(f.s, f.i, format, args...)
}

// asParseError passes through converter-raised ParseErrors and anchors any
// other converter error at the fragment's position.
func asParseError(err error, frag *ParseFragment) *ParseError {
	if pe, ok := err.(*ParseError); ok {
		return pe
	}
	return frag.Errorf("%s", err.Error())
}
