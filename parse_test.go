package kdl

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdlworks/kdl2/document"
)

// fidelityParse parses with both native conversion passes off, so every
// value stays a document.Value variant and reprints faithfully.
func fidelityParse(t *testing.T, text string) *document.Document {
	t.Helper()
	p := Parser{Config: &ParseConfig{}}
	doc, err := p.ParseString(text)
	require.NoError(t, err, "input: %s", text)
	return doc
}

func treeEqual(t *testing.T, want, got *document.Document) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(document.Properties{})); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBasicNode(t *testing.T) {
	doc := fidelityParse(t, "node 1 2 3")
	require.Len(t, doc.Nodes, 1)
	n := doc.Nodes[0]
	assert.Equal(t, "node", n.Name)
	assert.Nil(t, n.Tag)
	require.Len(t, n.Args, 3)
	for i, want := range []int64{1, 2, 3} {
		dec, ok := n.Args[i].(*document.Decimal)
		require.True(t, ok, "arg %d", i)
		assert.Equal(t, want, dec.Mantissa)
		assert.EqualValues(t, 0, dec.Exponent)
	}
}

func TestParseDuplicateProperties(t *testing.T) {
	doc := fidelityParse(t, "node a=1 b=2 a=3")
	n := doc.Nodes[0]
	assert.Empty(t, n.Args)
	require.Equal(t, 2, n.Props.Len())
	// last write wins, first position survives
	assert.Equal(t, []string{"a", "b"}, n.Props.Keys())
	v, ok := n.Props.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.(*document.Decimal).Mantissa)
	assert.Equal(t, "node a=3 b=2\n", doc.Print(nil))
}

func TestParseTags(t *testing.T) {
	doc := fidelityParse(t, `(tag)name (u8)10 ("quoted tag")"v" key=(t)2`)
	n := doc.Nodes[0]
	require.NotNil(t, n.Tag)
	assert.Equal(t, "tag", *n.Tag)
	require.Len(t, n.Args, 2)
	assert.Equal(t, "u8", *n.Args[0].(*document.Decimal).Tag)
	assert.Equal(t, "quoted tag", *n.Args[1].(*document.String).Tag)
	v, _ := n.Props.Get("key")
	assert.Equal(t, "t", *v.(*document.Decimal).Tag)
}

func TestParseChildren(t *testing.T) {
	doc := fidelityParse(t, "parent {\n\tchild \"x\"\n\tchild2 {\n\t\tgrand 1\n\t}\n}")
	n := doc.Nodes[0]
	require.Len(t, n.Children, 2)
	assert.Equal(t, "child", n.Children[0].Name)
	require.Len(t, n.Children[1].Children, 1)
	assert.Equal(t, "grand", n.Children[1].Children[0].Name)
}

func TestParseChildBlockWithoutSpace(t *testing.T) {
	doc := fidelityParse(t, "node{child}")
	require.Len(t, doc.Nodes, 1)
	require.Len(t, doc.Nodes[0].Children, 1)
	assert.Equal(t, "child", doc.Nodes[0].Children[0].Name)
}

func TestParseSemicolonTerminators(t *testing.T) {
	doc := fidelityParse(t, "a; b; c")
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "c", doc.Nodes[2].Name)
}

func TestParseSlashdash(t *testing.T) {
	t.Run("whole node", func(t *testing.T) {
		doc := fidelityParse(t, "/- node 1; keep 2")
		require.Len(t, doc.Nodes, 1)
		assert.Equal(t, "keep", doc.Nodes[0].Name)
		assert.Equal(t, "keep 2\n", doc.Print(nil))
	})
	t.Run("entry", func(t *testing.T) {
		doc := fidelityParse(t, "node /- 1 2 /-skip=3 real=4")
		n := doc.Nodes[0]
		require.Len(t, n.Args, 1)
		assert.Equal(t, int64(2), n.Args[0].(*document.Decimal).Mantissa)
		assert.Equal(t, []string{"real"}, n.Props.Keys())
	})
	t.Run("child blocks", func(t *testing.T) {
		doc := fidelityParse(t, "node /-{\na\n} {\nb\n} /-{\nc\n}")
		n := doc.Nodes[0]
		require.Len(t, n.Children, 1)
		assert.Equal(t, "b", n.Children[0].Name)
	})
	t.Run("node with children", func(t *testing.T) {
		doc := fidelityParse(t, "/- gone 1 {\nchild\n}\nkeep")
		require.Len(t, doc.Nodes, 1)
		assert.Equal(t, "keep", doc.Nodes[0].Name)
	})
}

func TestParseComments(t *testing.T) {
	doc := fidelityParse(t, "node /* inline /* nested */ comment */ 1 // trailing\nnext 2")
	require.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Nodes[0].Args, 1)
	assert.Equal(t, "next", doc.Nodes[1].Name)
}

func TestParseEscline(t *testing.T) {
	doc := fidelityParse(t, "node 1 \\\n 2 \\ // comment after continuation\n 3")
	require.Len(t, doc.Nodes, 1)
	assert.Len(t, doc.Nodes[0].Args, 3)
}

func TestParseNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"0b1010", &document.Binary{Val: 10}},
		{"-0b10", &document.Binary{Val: -2}},
		{"0o17", &document.Octal{Val: 15}},
		{"0x1a", &document.Hex{Val: 26}},
		{"-0xff", &document.Hex{Val: -255}},
		{"+0x0F", &document.Hex{Val: 15}},
		{"0xdead_beef", &document.Hex{Val: 0xdeadbeef}},
		{"12", &document.Decimal{Mantissa: int64(12)}},
		{"-12", &document.Decimal{Mantissa: int64(-12)}},
		{"1_000", &document.Decimal{Mantissa: int64(1000)}},
		{"1.5", &document.Decimal{Mantissa: 1.5}},
		{"-3.25", &document.Decimal{Mantissa: -3.25}},
		{"1.5e2", &document.Decimal{Mantissa: 1.5, Exponent: 2}},
		{"10e-2", &document.Decimal{Mantissa: int64(10), Exponent: -2}},
		{"2E5", &document.Decimal{Mantissa: int64(2), Exponent: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			doc := fidelityParse(t, "node "+tt.in)
			require.Len(t, doc.Nodes[0].Args, 1)
			assert.Equal(t, tt.want, doc.Nodes[0].Args[0])
		})
	}
}

func TestParseHugeDecimalFallsBackToFloat(t *testing.T) {
	doc := fidelityParse(t, "node 99999999999999999999")
	dec := doc.Nodes[0].Args[0].(*document.Decimal)
	_, isFloat := dec.Mantissa.(float64)
	assert.True(t, isFloat)
}

func TestParseKeywords(t *testing.T) {
	doc := fidelityParse(t, "node #true #false #null #inf #-inf #nan")
	args := doc.Nodes[0].Args
	require.Len(t, args, 6)
	assert.Equal(t, &document.Bool{Val: true}, args[0])
	assert.Equal(t, &document.Bool{Val: false}, args[1])
	assert.Equal(t, &document.Null{}, args[2])
	inf := args[3].(*document.Infinity)
	assert.True(t, inf.Val > 0)
	ninf := args[4].(*document.Infinity)
	assert.True(t, ninf.Val < 0)
	_, isNaN := args[5].(*document.NaN)
	assert.True(t, isNaN)
}

func TestParseStrings(t *testing.T) {
	t.Run("escapes", func(t *testing.T) {
		doc := fidelityParse(t, `node "a\tb\n\"q\"\\x\s."`)
		s := doc.Nodes[0].Args[0].(*document.String)
		assert.Equal(t, "a\tb\n\"q\"\\x .", s.Val)
	})
	t.Run("unicode escape", func(t *testing.T) {
		doc := fidelityParse(t, `node "snow \`+`u{2603}"`)
		s := doc.Nodes[0].Args[0].(*document.String)
		assert.Equal(t, "snow "+string(rune(0x2603)), s.Val)
	})
	t.Run("line continuation", func(t *testing.T) {
		doc := fidelityParse(t, "node \"a\\\n    b\"")
		s := doc.Nodes[0].Args[0].(*document.String)
		assert.Equal(t, "ab", s.Val)
	})
	t.Run("empty", func(t *testing.T) {
		doc := fidelityParse(t, `node ""`)
		assert.Equal(t, "", doc.Nodes[0].Args[0].(*document.String).Val)
	})
	t.Run("ident string", func(t *testing.T) {
		doc := fidelityParse(t, "node foo-bar?")
		assert.Equal(t, "foo-bar?", doc.Nodes[0].Args[0].(*document.String).Val)
	})
	t.Run("raw", func(t *testing.T) {
		doc := fidelityParse(t, `node #"a"b\n"#`)
		raw := doc.Nodes[0].Args[0].(*document.RawString)
		assert.Equal(t, `a"b\n`, raw.Val)
	})
	t.Run("raw with inner hash runs", func(t *testing.T) {
		doc := fidelityParse(t, `node ##"x"#y"##`)
		raw := doc.Nodes[0].Args[0].(*document.RawString)
		assert.Equal(t, `x"#y`, raw.Val)
	})
	t.Run("raw empty", func(t *testing.T) {
		doc := fidelityParse(t, `node #""#`)
		raw := doc.Nodes[0].Args[0].(*document.RawString)
		assert.Equal(t, "", raw.Val)
	})
}

func TestParseMultilineStrings(t *testing.T) {
	t.Run("dedent", func(t *testing.T) {
		doc := fidelityParse(t, "node \"\"\"\n  hello\n  world\n  \"\"\"")
		s := doc.Nodes[0].Args[0].(*document.String)
		assert.Equal(t, "hello\nworld", s.Val)
	})
	t.Run("blank lines contribute newlines", func(t *testing.T) {
		doc := fidelityParse(t, "node \"\"\"\n  a\n\n  b\n  \"\"\"")
		s := doc.Nodes[0].Args[0].(*document.String)
		assert.Equal(t, "a\n\nb", s.Val)
	})
	t.Run("empty", func(t *testing.T) {
		doc := fidelityParse(t, "node \"\"\"\n\"\"\"")
		s := doc.Nodes[0].Args[0].(*document.String)
		assert.Equal(t, "", s.Val)
	})
	t.Run("raw multiline", func(t *testing.T) {
		doc := fidelityParse(t, "node #\"\"\"\n  keep\\n\n  \"\"\"#")
		raw := doc.Nodes[0].Args[0].(*document.RawString)
		assert.Equal(t, `keep\n`, raw.Val)
	})
	t.Run("inner quotes", func(t *testing.T) {
		doc := fidelityParse(t, "node \"\"\"\n  say \"hi\"\n  \"\"\"")
		s := doc.Nodes[0].Args[0].(*document.String)
		assert.Equal(t, `say "hi"`, s.Val)
	})
}

func TestParseBOM(t *testing.T) {
	doc := fidelityParse(t, string(rune(0xFEFF))+"node 1")
	require.Len(t, doc.Nodes, 1)
}

func TestVerticalTabIsNewline(t *testing.T) {
	doc := fidelityParse(t, "a 1"+string(rune(0x0B))+"b 2")
	require.Len(t, doc.Nodes, 2)
}

func TestCRLFTerminator(t *testing.T) {
	doc := fidelityParse(t, "a 1\r\nb 2\r\n")
	require.Len(t, doc.Nodes, 2)
}

func TestQuotedNamesAndKeys(t *testing.T) {
	doc := fidelityParse(t, `"my node" "a key"=1`)
	n := doc.Nodes[0]
	assert.Equal(t, "my node", n.Name)
	assert.Equal(t, []string{"a key"}, n.Props.Keys())
	assert.Equal(t, "\"my node\" \"a key\"=1\n", doc.Print(nil))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		msg  string
	}{
		{"unterminated string", `node "unterminated`, "Hit EOF while looking for the end of the string"},
		{"unterminated block comment", "node /* x", "Hit EOF while inside a multiline comment"},
		{"unterminated children", "node {", "Hit EOF while searching for end of child list"},
		{"unterminated children after child", "node {\nchild", "Hit EOF while searching for end of child list"},
		{"bad binary digit", "node 0b2", "Expected binary digit after 0b"},
		{"bad octal digit", "node 0o8", "Expected octal digit after 0o"},
		{"bad hex digit", "node 0xg", "Expected hex digit after 0x"},
		{"digit after dot", "node 1.", "Expected digit after decimal point."},
		{"digit after exponent", "node 1.5e", "Expected number after exponent."},
		{"uppercase keyword", "node #TRUE", "KDL keywords must be written in lowercase"},
		{"unknown keyword", "node #maybe", "Unknown keyword #maybe"},
		{"bare true", "node true", "confusable with keywords"},
		{"bare null name", "null 1", "confusable with keywords"},
		{"tag without value", "node (t)", "Found a tag, but no value following it."},
		{"tag junk", "node (t junk)1", "Junk between tag ident and closing paren."},
		{"terminator junk", "node 1 2}", "Expected a node terminator"},
		{"top-level junk", "good\n{", "Unexpected non-node content"},
		{"unescaped newline", "node \"a\nb\"", "Saw an unescaped newline in a single-quote string."},
		{"stray hashes", `node ""#`, "Saw # characters at the end of a non-raw string."},
		{"too many closing hashes", `node #"a"##`, "Expected 1 # chars at end of raw string; got 2."},
		{"invalid escape", `node "a\q"`, "Invalid character escape"},
		{"unicode escape braces", `node "\`+`uFFFD"`, "Unicode escapes must surround their codepoint in {}"},
		{"unicode escape empty", `node "\`+`u{}"`, "Unicode escape doesn't contain a codepoint"},
		{"unicode escape too long", `node "\`+`u{1234567}"`, "Unicode escapes can contain at most six digits"},
		{"unicode escape surrogate", `node "\`+`u{D800}"`, "Unicode escapes can't encode surrogate codepoints"},
		{"unicode escape too big", `node "\`+`u{110000}"`, "Maximum codepoint in a unicode escape is 0x10ffff"},
		{"multiline needs newline", `node """x"""`, "Multiline strings must have a newline immediately after their opening quotes."},
		{"multiline dedent mismatch", "node \"\"\"\n  a\n b\n  \"\"\"", "doesn't start with the same whitespace prefix"},
		{"multiline junk on last line", "node \"\"\"\n  a\n  junk\"\"\"", "non-whitespace content on last line"},
		{"radix overflow", "node 0xffffffffffffffffff", "doesn't fit in 64 bits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parser{Config: &ParseConfig{}}
			_, err := p.ParseString(tt.in)
			require.Error(t, err)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Contains(t, pe.Msg, tt.msg)
			assert.Contains(t, err.Error(), "Parse error on line")
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	p := Parser{Config: &ParseConfig{}}
	_, err := p.ParseString("good 1\n{")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, 1, pe.Col)
}

func TestRoundTripIdempotent(t *testing.T) {
	inputs := []string{
		"node 1 2 3",
		"node a=1 b=2 a=3",
		"(tag)name 0x1a 0b10 0o17 -0xff",
		"parent {\n\tchild \"x\"\n\t(t)child2 #true {\n\t\tgrand 1.5e2\n\t}\n}",
		"a; b; c",
		`node #"raw"str"# "plain" ident`,
		"node #true #false #null #inf #-inf #nan",
		"node \"\"\"\n  multi\n  line\n  \"\"\"",
		"node 1.5 10e-2 2E5 1_000",
		`("quoted tag")"quoted name" "key with space"=#null`,
		"deep {\n\ta {\n\t\tb {\n\t\t\tc 1\n\t\t}\n\t}\n}",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first := fidelityParse(t, in).Print(nil)
			second := fidelityParse(t, first).Print(nil)
			assert.Equal(t, first, second)
			// and the reparsed tree matches the first tree
			treeEqual(t, fidelityParse(t, in), fidelityParse(t, first))
		})
	}
}

func TestRoundTripByteIdentical(t *testing.T) {
	// already-canonical text reprints byte-for-byte
	inputs := []string{
		"parent {\n\tchild \"x\"\n}\n",
		"node 1 2 3\n",
		"(tag)name 0x1a 0b10\n",
	}
	for _, in := range inputs {
		assert.Equal(t, in, fidelityParse(t, in).Print(nil))
	}
}

func TestEmptyDocumentPrintsNewline(t *testing.T) {
	for _, in := range []string{"", "\n\n", "// just a comment\n", "   "} {
		doc := fidelityParse(t, in)
		assert.Empty(t, doc.Nodes)
		assert.Equal(t, "\n", doc.Print(nil))
	}
}

func TestSingleQuotedTokenParsesAsIdentString(t *testing.T) {
	// ' is an identifier character, so 'x' parses as an identifier-string
	doc := fidelityParse(t, "node 'x'")
	assert.Equal(t, "'x'", doc.Nodes[0].Args[0].(*document.String).Val)
}

func TestNativeUntaggedValues(t *testing.T) {
	doc, err := ParseString("node 1 1.5 #true #null \"s\" word 0x10")
	require.NoError(t, err)
	args := doc.Nodes[0].Args
	require.Len(t, args, 7)
	assert.Equal(t, int64(1), args[0])
	assert.Equal(t, 1.5, args[1])
	assert.Equal(t, true, args[2])
	assert.Nil(t, args[3])
	assert.Equal(t, "s", args[4])
	assert.Equal(t, "word", args[5])
	assert.Equal(t, int64(16), args[6])
}

func TestScientificNotationNativeValue(t *testing.T) {
	doc, err := ParseString("node 1.5e2")
	require.NoError(t, err)
	assert.Equal(t, 150.0, doc.Nodes[0].Args[0])
}

func TestDeeplyNestedRoundTrip(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("root")
	for i := 0; i < 20; i++ {
		sb.WriteString(" {\nnext")
	}
	for i := 0; i < 20; i++ {
		sb.WriteString("\n}")
	}
	first := fidelityParse(t, sb.String()).Print(nil)
	second := fidelityParse(t, first).Print(nil)
	assert.Equal(t, first, second)
}
