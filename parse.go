package kdl

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/kdlworks/kdl2/document"
	"github.com/kdlworks/kdl2/internal/chars"
	"github.com/kdlworks/kdl2/internal/stream"
)

// parser holds the input and configuration shared by every production.
// Productions take a start index and report how far they consumed; a
// production that does not match leaves the index where it found it.
type parser struct {
	s   *stream.Stream
	cfg *ParseConfig
}

func parseDocument(text string, cfg *ParseConfig) (*document.Document, error) {
	if cfg == nil {
		cfg = defaultParseConfig
	}
	p := &parser{s: stream.New(text), cfg: cfg}
	doc := document.New()

	i := 0
	// Skip a single BOM, if present
	if p.s.CharAt(i) == 0xFEFF {
		i++
	}
	for {
		ls, err := p.linespace(i)
		if err != nil {
			return nil, err
		}
		i = ls.i
		node, err := p.baseNode(i)
		if err != nil {
			return nil, err
		}
		if !node.ok {
			break
		}
		i = node.i
		if node.val != nil {
			doc.AddNode(node.val)
		}
		term := p.nodeTerminator(i)
		if !term.ok {
			return nil, parseErrorf(p.s, i, "Expected a node terminator (newline, ;, or EOF). Got '%s'", string(p.s.CharAt(i)))
		}
		i = term.i
	}
	ls, err := p.linespace(i)
	if err != nil {
		return nil, err
	}
	i = ls.i
	if !p.s.EOFAt(i) {
		// Something's leftover...
		return nil, parseErrorf(p.s, i, "Unexpected non-node content")
	}
	return doc, nil
}

// baseNode parses one node: optional slashdash, optional tag, name, entries,
// child blocks. A slashdashed node is fully parsed but reported as a nil
// node so it never reaches the tree.
func (p *parser) baseNode(start int) (result[*document.Node], error) {
	i := start

	sd, err := p.slashdash(i)
	if err != nil {
		return fail[*document.Node](start), err
	}
	nodeSD := sd.ok
	i = sd.i

	tag, err := p.tag(i)
	if err != nil {
		return fail[*document.Node](start), err
	}
	i = tag.i

	ns, err := p.nodespace(i)
	if err != nil {
		return fail[*document.Node](start), err
	}
	i = ns.i

	name, err := p.str(i)
	if err != nil {
		return fail[*document.Node](start), err
	}
	if !name.ok {
		return fail[*document.Node](start), nil
	}
	i = name.i
	nameEnd := i

	node := document.NewNode(stringScalar(name.val))
	if tag.ok {
		t := tag.val
		node.Tag = &t
	}

	// props and args
	for {
		tempI := i
		space, err := p.nodespace(tempI)
		if err != nil {
			return fail[*document.Node](start), err
		}
		if !space.ok {
			break
		}
		tempI = space.i
		entSD, err := p.slashdash(tempI)
		if err != nil {
			return fail[*document.Node](start), err
		}
		tempI = entSD.i
		ent, err := p.entry(tempI)
		if err != nil {
			return fail[*document.Node](start), err
		}
		if !ent.ok {
			break
		}
		i = ent.i
		if entSD.ok {
			continue
		}
		if ent.val.key != nil {
			// repeated property names replace the existing value but keep
			// the first occurrence's position
			node.Props.Add(*ent.val.key, ent.val.val)
		} else {
			node.Args = append(node.Args, ent.val.val)
		}
	}

	// leading slashdashed child blocks; the space before a block is optional
	for {
		tempI := i
		space, err := p.nodespace(tempI)
		if err != nil {
			return fail[*document.Node](start), err
		}
		tempI = space.i
		blockSD, err := p.slashdash(tempI)
		if err != nil {
			return fail[*document.Node](start), err
		}
		if !blockSD.ok {
			break
		}
		children, err := p.nodeChildren(blockSD.i)
		if err != nil {
			return fail[*document.Node](start), err
		}
		if !children.ok {
			break
		}
		i = children.i
	}

	// the real child block, at most one
	{
		space, err := p.nodespace(i)
		if err != nil {
			return fail[*document.Node](start), err
		}
		children, err := p.nodeChildren(space.i)
		if err != nil {
			return fail[*document.Node](start), err
		}
		if children.ok {
			node.Children = children.val
			i = children.i
		}
	}

	// trailing slashdashed child blocks
	for {
		tempI := i
		space, err := p.nodespace(tempI)
		if err != nil {
			return fail[*document.Node](start), err
		}
		tempI = space.i
		blockSD, err := p.slashdash(tempI)
		if err != nil {
			return fail[*document.Node](start), err
		}
		if !blockSD.ok {
			break
		}
		children, err := p.nodeChildren(blockSD.i)
		if err != nil {
			return fail[*document.Node](start), err
		}
		if !children.ok {
			break
		}
		i = children.i
	}

	ns, err = p.nodespace(i)
	if err != nil {
		return fail[*document.Node](start), err
	}
	i = ns.i

	for _, rule := range p.cfg.NodeConverters {
		if !rule.Key.MatchNode(node) {
			continue
		}
		frag := &ParseFragment{Fragment: p.s.Slice(start, nameEnd), s: p.s, i: start}
		out, err := rule.Convert(node, frag)
		if errors.Is(err, ErrUnhandled) {
			continue
		}
		if err != nil {
			return fail[*document.Node](start), asParseError(err, frag)
		}
		node = out
		break
	}

	if nodeSD {
		return result[*document.Node]{ok: true, i: i}, nil
	}
	return res(node, i), nil
}

func (p *parser) nodeChildren(start int) (result[[]*document.Node], error) {
	if p.s.CharAt(start) != '{' {
		return fail[[]*document.Node](start), nil
	}
	i := start + 1
	nodes := []*document.Node{}

	for {
		ls, err := p.linespace(i)
		if err != nil {
			return fail[[]*document.Node](start), err
		}
		i = ls.i
		node, err := p.baseNode(i)
		if err != nil {
			return fail[[]*document.Node](start), err
		}
		if !node.ok {
			break
		}
		i = node.i
		if node.val != nil {
			nodes = append(nodes, node.val)
		}
		term := p.nodeTerminator(i)
		if !term.ok {
			break
		}
		i = term.i
	}
	if p.s.EOFAt(i) {
		return fail[[]*document.Node](start), parseErrorf(p.s, start, "Hit EOF while searching for end of child list")
	}
	if p.s.CharAt(i) != '}' {
		return fail[[]*document.Node](start), parseErrorf(p.s, i, "Junk between end of child list and closing }")
	}
	return res(nodes, i+1), nil
}

func (p *parser) tag(start int) (result[string], error) {
	if p.s.CharAt(start) != '(' {
		return fail[string](start), nil
	}
	i := start + 1
	ns, err := p.nodespace(i)
	if err != nil {
		return fail[string](start), err
	}
	i = ns.i
	val, err := p.str(i)
	if err != nil {
		return fail[string](start), err
	}
	if !val.ok {
		return fail[string](start), nil
	}
	i = val.i
	ns, err = p.nodespace(i)
	if err != nil {
		return fail[string](start), err
	}
	i = ns.i
	if p.s.CharAt(i) != ')' {
		return fail[string](start), parseErrorf(p.s, i, "Junk between tag ident and closing paren.")
	}
	return res(stringScalar(val.val), i+1), nil
}

func (p *parser) bareIdent(start int) result[string] {
	st := p.identStart(start)
	if !st.ok {
		return fail[string](start)
	}
	i := st.i
	for chars.IsIdentChar(p.s.CharAt(i)) {
		i++
	}
	return res(p.s.Slice(start, i), i)
}

// identStart rejects first characters that would make the token confusable
// with a number.
func (p *parser) identStart(start int) result[rune] {
	c := p.s.CharAt(start)
	if !chars.IsIdentChar(c) {
		return fail[rune](start)
	}
	if chars.IsDigit(c) {
		return fail[rune](start)
	}
	if chars.IsSign(c) && chars.IsDigit(p.s.CharAt(start+1)) {
		return fail[rune](start)
	}
	if chars.IsSign(c) && p.s.CharAt(start+1) == '.' && chars.IsDigit(p.s.CharAt(start+2)) {
		return fail[rune](start)
	}
	if c == '.' && chars.IsDigit(p.s.CharAt(start+1)) {
		return fail[rune](start)
	}
	return res(c, start+1)
}

func (p *parser) nodeTerminator(start int) result[bool] {
	if slc := p.singleLineComment(start); slc.ok {
		return res(true, slc.i)
	}
	if nl := p.newline(start); nl.ok {
		return res(true, nl.i)
	}
	if p.s.CharAt(start) == ';' {
		return res(true, start+1)
	}
	if p.s.EOFAt(start) {
		return res(true, start)
	}
	return fail[bool](start)
}

// entry is a single argument or property.
type entry struct {
	key *string
	val any
}

func (p *parser) entry(start int) (result[entry], error) {
	prop, err := p.property(start)
	if err != nil {
		return fail[entry](start), err
	}
	if prop.ok {
		return prop, nil
	}
	return p.attribute(start)
}

func (p *parser) property(start int) (result[entry], error) {
	val, err := p.str(start)
	if err != nil {
		return fail[entry](start), err
	}
	if !val.ok {
		return fail[entry](start), nil
	}
	key := stringScalar(val.val)
	i := val.i
	ns, err := p.nodespace(i)
	if err != nil {
		return fail[entry](start), err
	}
	i = ns.i
	if p.s.CharAt(i) != '=' {
		return fail[entry](start), nil
	}
	i++
	ns, err = p.nodespace(i)
	if err != nil {
		return fail[entry](start), err
	}
	i = ns.i
	v, err := p.value(i)
	if err != nil {
		return fail[entry](start), err
	}
	if !v.ok {
		return fail[entry](start), parseErrorf(p.s, i, "Expected value after prop=.")
	}
	return res(entry{key: &key, val: v.val}, v.i), nil
}

func (p *parser) attribute(start int) (result[entry], error) {
	v, err := p.value(start)
	if err != nil {
		return fail[entry](start), err
	}
	if !v.ok {
		return fail[entry](start), nil
	}
	return res(entry{val: v.val}, v.i), nil
}

// value parses an optional tag followed by a number, keyword, or string,
// then runs the converter registry and the native conversions over the
// assembled value.
func (p *parser) value(start int) (result[any], error) {
	tag, err := p.tag(start)
	if err != nil {
		return fail[any](start), err
	}
	i := tag.i
	ns, err := p.nodespace(i)
	if err != nil {
		return fail[any](start), err
	}
	i = ns.i

	valueStart := i
	var val document.Value
	num, err := p.number(i)
	if err != nil {
		return fail[any](start), err
	}
	if num.ok {
		val, i = num.val, num.i
	} else {
		kw, err := p.keyword(i)
		if err != nil {
			return fail[any](start), err
		}
		if kw.ok {
			val, i = kw.val, kw.i
		} else {
			str, err := p.str(i)
			if err != nil {
				return fail[any](start), err
			}
			if str.ok {
				val, i = str.val, str.i
			}
		}
	}

	if val != nil {
		if tag.ok {
			t := tag.val
			val.SetTag(&t)
		}
		frag := &ParseFragment{Fragment: p.s.Slice(valueStart, i), s: p.s, i: i}
		var out any = val
		consumed := false
		for _, rule := range p.cfg.ValueConverters {
			if !rule.Key.MatchValue(val) {
				continue
			}
			converted, err := rule.Convert(val, frag)
			if errors.Is(err, ErrUnhandled) {
				continue
			}
			if err != nil {
				return fail[any](start), asParseError(err, frag)
			}
			out = converted
			consumed = true
			break
		}
		if !consumed {
			if !tag.ok && p.cfg.NativeUntaggedValues {
				out = val.Value()
			}
			if tag.ok && p.cfg.NativeTaggedValues {
				out, err = toNative(val, frag)
				if err != nil {
					return fail[any](start), asParseError(err, frag)
				}
			}
		}
		return res(out, i), nil
	}

	if p.s.CharAt(i) == '\'' {
		return fail[any](start), parseErrorf(p.s, i, "KDL strings use double-quotes.")
	}

	// Failed to find a value.
	// But if there was a tag, something's up.
	if tag.ok {
		return fail[any](start), parseErrorf(p.s, i, "Found a tag, but no value following it.")
	}
	return fail[any](start), nil
}

func (p *parser) number(start int) (result[document.Numberish], error) {
	if !p.numberStart(start) {
		return fail[document.Numberish](start), nil
	}
	bin, err := p.binaryNumber(start)
	if err != nil || bin.ok {
		return bin, err
	}
	oct, err := p.octalNumber(start)
	if err != nil || oct.ok {
		return oct, err
	}
	hex, err := p.hexNumber(start)
	if err != nil || hex.ok {
		return hex, err
	}
	dec, err := p.decimalNumber(start)
	if err != nil || dec.ok {
		return dec, err
	}
	return fail[document.Numberish](start), parseErrorf(p.s, start, "Expected a number, but got junk after the initial digit.")
}

// numberStart: all numbers begin with an optional sign followed by a digit,
// either the first digit of the number or the 0 of a radix prefix.
func (p *parser) numberStart(start int) bool {
	if chars.IsDigit(p.s.CharAt(start)) {
		return true
	}
	return chars.IsSign(p.s.CharAt(start)) && chars.IsDigit(p.s.CharAt(start+1))
}

func (p *parser) sign(start int) result[int64] {
	if p.s.CharAt(start) == '+' {
		return res(int64(1), start+1)
	}
	if p.s.CharAt(start) == '-' {
		return res(int64(-1), start+1)
	}
	return fail[int64](start)
}

func (p *parser) binaryNumber(start int) (result[document.Numberish], error) {
	i := start

	sign := int64(1)
	if sg := p.sign(i); sg.ok {
		sign, i = sg.val, sg.i
	}

	if !(p.s.CharAt(i) == '0' && p.s.CharAt(i+1) == 'b') {
		return fail[document.Numberish](start), nil
	}
	i += 2

	if !chars.IsBinaryDigit(p.s.CharAt(i)) {
		return fail[document.Numberish](start), parseErrorf(p.s, i, "Expected binary digit after 0b, got junk.")
	}
	end := i + 1
	for chars.IsBinaryDigit(p.s.CharAt(end)) || p.s.CharAt(end) == '_' {
		end++
	}
	n, err := parseRadixInt(p.s.Slice(i, end), 2, sign)
	if err != nil {
		return fail[document.Numberish](start), parseErrorf(p.s, start, "%s", err)
	}
	return res[document.Numberish](&document.Binary{Val: n}, end), nil
}

func (p *parser) octalNumber(start int) (result[document.Numberish], error) {
	i := start

	sign := int64(1)
	if sg := p.sign(i); sg.ok {
		sign, i = sg.val, sg.i
	}

	if !(p.s.CharAt(i) == '0' && p.s.CharAt(i+1) == 'o') {
		return fail[document.Numberish](start), nil
	}
	i += 2

	if !chars.IsOctalDigit(p.s.CharAt(i)) {
		return fail[document.Numberish](start), parseErrorf(p.s, i, "Expected octal digit after 0o, got junk.")
	}
	end := i + 1
	for chars.IsOctalDigit(p.s.CharAt(end)) || p.s.CharAt(end) == '_' {
		end++
	}
	n, err := parseRadixInt(p.s.Slice(i, end), 8, sign)
	if err != nil {
		return fail[document.Numberish](start), parseErrorf(p.s, start, "%s", err)
	}
	return res[document.Numberish](&document.Octal{Val: n}, end), nil
}

func (p *parser) hexNumber(start int) (result[document.Numberish], error) {
	i := start

	sign := int64(1)
	if sg := p.sign(i); sg.ok {
		sign, i = sg.val, sg.i
	}

	if !(p.s.CharAt(i) == '0' && p.s.CharAt(i+1) == 'x') {
		return fail[document.Numberish](start), nil
	}
	i += 2

	if !chars.IsHexDigit(p.s.CharAt(i)) {
		return fail[document.Numberish](start), parseErrorf(p.s, i, "Expected hex digit after 0x, got junk.")
	}
	end := i + 1
	for chars.IsHexDigit(p.s.CharAt(end)) || p.s.CharAt(end) == '_' {
		end++
	}
	n, err := parseRadixInt(p.s.Slice(i, end), 16, sign)
	if err != nil {
		return fail[document.Numberish](start), parseErrorf(p.s, start, "%s", err)
	}
	return res[document.Numberish](&document.Hex{Val: n}, end), nil
}

func (p *parser) decimalNumber(start int) (result[document.Numberish], error) {
	i := start

	if sg := p.sign(i); sg.ok {
		i = sg.i
	}

	integer := p.digits(i)
	if !integer.ok {
		return fail[document.Numberish](start), nil
	}
	i = integer.i

	if p.s.CharAt(i) == '.' {
		frac := p.digits(i + 1)
		if !frac.ok {
			return fail[document.Numberish](start), parseErrorf(p.s, i+1, "Expected digit after decimal point.")
		}
		i = frac.i
	}

	mantissaChars := strings.ReplaceAll(p.s.Slice(start, i), "_", "")
	var mantissa any
	if n, err := strconv.ParseInt(mantissaChars, 10, 64); err == nil {
		mantissa = n
	} else if f, ferr := strconv.ParseFloat(mantissaChars, 64); ferr == nil || errors.Is(ferr, strconv.ErrRange) {
		mantissa = f
	} else {
		return fail[document.Numberish](start), parseErrorf(p.s, start, "Number-like string didn't actually parse as a number.")
	}

	exponent := int64(0)
	if c := p.s.CharAt(i); c == 'e' || c == 'E' {
		expStart := i + 1
		j := expStart
		if sg := p.sign(j); sg.ok {
			j = sg.i
		}
		ds := p.digits(j)
		if !ds.ok {
			return fail[document.Numberish](start), parseErrorf(p.s, j, "Expected number after exponent.")
		}
		i = ds.i
		expChars := strings.ReplaceAll(p.s.Slice(expStart, i), "_", "")
		e, err := strconv.ParseInt(expChars, 10, 64)
		if err != nil {
			return fail[document.Numberish](start), parseErrorf(p.s, expStart, "Number-like string didn't actually parse as a number.")
		}
		exponent = e
	}

	return res[document.Numberish](&document.Decimal{Mantissa: mantissa, Exponent: exponent}, i), nil
}

// digits consumes a run of decimal digits; the first character must be a
// digit, the rest may be digits or underscores.
func (p *parser) digits(start int) result[bool] {
	if !chars.IsDigit(p.s.CharAt(start)) {
		return fail[bool](start)
	}
	end := start + 1
	for chars.IsDigit(p.s.CharAt(end)) || p.s.CharAt(end) == '_' {
		end++
	}
	return res(true, end)
}

// parseRadixInt converts a radix-prefixed digit run, applying the sign to
// the magnitude. The magnitude must fit 64 bits.
func parseRadixInt(digits string, base int, sign int64) (int64, error) {
	clean := strings.ReplaceAll(digits, "_", "")
	u, err := strconv.ParseUint(clean, base, 64)
	if err != nil {
		return 0, errors.New("Number doesn't fit in 64 bits.")
	}
	if sign > 0 && u > math.MaxInt64 {
		return 0, errors.New("Number doesn't fit in 64 bits.")
	}
	if sign < 0 && u > 1<<63 {
		return 0, errors.New("Number doesn't fit in 64 bits.")
	}
	return int64(u) * sign, nil
}

func (p *parser) keyword(start int) (result[document.Value], error) {
	if p.s.CharAt(start) != '#' {
		return fail[document.Value](start), nil
	}
	ident := p.bareIdent(start + 1)
	if !ident.ok {
		return fail[document.Value](start), nil
	}
	i := ident.i
	switch ident.val {
	case "true":
		return res[document.Value](&document.Bool{Val: true}, i), nil
	case "false":
		return res[document.Value](&document.Bool{Val: false}, i), nil
	case "null":
		return res[document.Value](&document.Null{}, i), nil
	case "inf":
		return res[document.Value](&document.Infinity{Val: math.Inf(1)}, i), nil
	case "-inf":
		return res[document.Value](&document.Infinity{Val: math.Inf(-1)}, i), nil
	case "nan":
		return res[document.Value](&document.NaN{}, i), nil
	}
	if chars.IsConfusableKeyword(ident.val) {
		return fail[document.Value](start), parseErrorf(p.s, start, "KDL keywords must be written in lowercase, got #%s", ident.val)
	}
	return fail[document.Value](start), parseErrorf(p.s, start, "Unknown keyword #%s", ident.val)
}

// str parses any of the string forms, disambiguated by the leading runs of
// hashes and quotes counted once: an identifier-string, a quoted string, a
// raw string, or a multiline string.
func (p *parser) str(start int) (result[document.Stringish], error) {
	hashes := p.repeatedChar(start, '#')
	quotes := p.repeatedChar(hashes.i, '"')
	i := quotes.i
	switch quotes.val {
	case 0:
		if hashes.val == 0 {
			return p.identString(i)
		}
		return fail[document.Stringish](start), nil
	case 1:
		return p.quotedString(i, hashes.val)
	case 2:
		// degenerate empty string: re-scan from the closing quote
		return p.quotedString(i-1, hashes.val)
	case 3:
		return p.multilineString(i, hashes.val)
	}
	return fail[document.Stringish](start), parseErrorf(p.s, start, "Encountered %d quotes in a row.", quotes.val)
}

func (p *parser) repeatedChar(start int, ch rune) result[int] {
	i := start
	for p.s.CharAt(i) == ch {
		i++
	}
	return res(i-start, i)
}

func (p *parser) quotedString(start, hashCount int) (result[document.Stringish], error) {
	i := start
	var raw strings.Builder
	for {
		c := p.s.CharAt(i)
		switch {
		case c == '"' && hashCount == 0:
			i++
			if p.s.CharAt(i) == '#' {
				return fail[document.Stringish](start), parseErrorf(p.s, start, "Saw # characters at the end of a non-raw string.")
			}
			if p.s.CharAt(i) == '"' {
				return fail[document.Stringish](start), parseErrorf(p.s, start, "Single-quote string was ended with multiple quote chars.")
			}
			return res[document.Stringish](&document.String{Val: raw.String()}, i), nil
		case c == '"' && hashCount > 0:
			// cheap exit for a lone literal "
			if p.s.CharAt(i+1) != '#' {
				raw.WriteRune('"')
				i++
				continue
			}
			ending := p.repeatedChar(i+1, '#')
			switch {
			case ending.val < hashCount:
				// allowed, this is string content
				raw.WriteString(p.s.Slice(i, ending.i))
				i = ending.i
			case ending.val > hashCount:
				// including *more* hashes than the string starts with is an
				// error
				return fail[document.Stringish](start), parseErrorf(p.s, start, "Expected %d # chars at end of raw string; got %d.", hashCount, ending.val)
			default:
				return res[document.Stringish](&document.RawString{Val: raw.String()}, ending.i), nil
			}
		case p.s.EOFAt(i):
			return fail[document.Stringish](start), parseErrorf(p.s, start, "Hit EOF while looking for the end of the string")
		case p.newline(i).ok:
			return fail[document.Stringish](start), parseErrorf(p.s, start, "Saw an unescaped newline in a single-quote string.")
		case c == '\\' && hashCount == 0:
			esc, err := p.escape(i)
			if err != nil {
				return fail[document.Stringish](start), err
			}
			if !esc.ok {
				return fail[document.Stringish](start), parseErrorf(p.s, i, "Invalid escape sequence in string")
			}
			raw.WriteString(esc.val)
			i = esc.i
		default:
			raw.WriteRune(c)
			i++
		}
	}
}

func (p *parser) escape(start int) (result[string], error) {
	if p.s.CharAt(start) != '\\' {
		return fail[string](start), nil
	}
	c := p.s.CharAt(start + 1)
	switch c {
	case 'n':
		return res("\n", start+2), nil
	case 'r':
		return res("\r", start+2), nil
	case 't':
		return res("\t", start+2), nil
	case '\\':
		return res(`\`, start+2), nil
	case '"':
		return res(`"`, start+2), nil
	case 'b':
		return res("\b", start+2), nil
	case 'f':
		return res("\f", start+2), nil
	case 's':
		return res(" ", start+2), nil
	case 'u':
		if p.s.CharAt(start+2) != '{' {
			return fail[string](start), parseErrorf(p.s, start, "Unicode escapes must surround their codepoint in {}")
		}
		i := start + 3
		hexStart := i
		for chars.IsHexDigit(p.s.CharAt(i)) {
			i++
		}
		hexCount := i - hexStart
		if p.s.CharAt(i) != '}' {
			return fail[string](start), parseErrorf(p.s, hexStart, "Expected } to finish a unicode escape")
		}
		if hexCount < 1 {
			return fail[string](start), parseErrorf(p.s, hexStart, "Unicode escape doesn't contain a codepoint")
		}
		if hexCount > 6 {
			return fail[string](start), parseErrorf(p.s, hexStart, "Unicode escapes can contain at most six digits")
		}
		hexValue, _ := strconv.ParseUint(p.s.Slice(hexStart, i), 16, 32)
		if hexValue >= 0xD800 && hexValue <= 0xDFFF {
			return fail[string](start), parseErrorf(p.s, hexStart, "Unicode escapes can't encode surrogate codepoints (U+D800-DFFF)")
		}
		if hexValue > 0x10FFFF {
			return fail[string](start), parseErrorf(p.s, hexStart, "Maximum codepoint in a unicode escape is 0x10ffff")
		}
		return res(string(rune(hexValue)), i+1), nil
	}
	if chars.IsLinespace(c) {
		// escaped whitespace is simply discarded
		i := start + 2
		for chars.IsLinespace(p.s.CharAt(i)) {
			i++
		}
		return res("", i), nil
	}
	return fail[string](start), parseErrorf(p.s, start, "Invalid character escape")
}

// msLine is one physical line of a multiline string, split into its leading
// whitespace and the rest.
type msLine struct {
	i      int
	indent string
	text   string
}

func (p *parser) multilineString(start, hashCount int) (result[document.Stringish], error) {
	nl := p.newline(start)
	if !nl.ok {
		return fail[document.Stringish](start), parseErrorf(p.s, start, "Multiline strings must have a newline immediately after their opening quotes.")
	}
	i := nl.i
	var lines []msLine
	line := msLine{i: i}
	if us := p.unicodeSpace(i); us.ok {
		line.indent = p.s.Slice(i, us.i)
		i = us.i
	}
	for {
		if nl := p.newline(i); nl.ok {
			lines = append(lines, line)
			i = nl.i
			line = msLine{i: i}
			if us := p.unicodeSpace(i); us.ok {
				line.indent = p.s.Slice(i, us.i)
				i = us.i
			}
			continue
		}
		c := p.s.CharAt(i)
		switch {
		case c == '"':
			quoteStart := i
			quotes := p.repeatedChar(i, '"')
			i = quotes.i
			if quotes.val == 1 || quotes.val == 2 {
				line.text += p.s.Slice(quoteStart, i)
				continue
			}
			if quotes.val > 3 {
				return fail[document.Stringish](start), parseErrorf(p.s, quoteStart, "Saw %d consecutive quotes in a multi-line string.", quotes.val)
			}
			// exactly three quotes: the end, unless this is a raw string
			// missing its hashes
			if hashCount == 0 {
				if p.s.CharAt(i) == '#' {
					return fail[document.Stringish](start), parseErrorf(p.s, i, "Saw # characters at the end of a non-raw string.")
				}
				content, err := p.processMultiline(lines, line)
				if err != nil {
					return fail[document.Stringish](start), err
				}
				return res[document.Stringish](&document.String{Val: content}, i), nil
			}
			if p.s.CharAt(i) != '#' {
				// a lone literal """
				line.text += `"""`
				continue
			}
			ending := p.repeatedChar(i, '#')
			switch {
			case ending.val < hashCount:
				line.text += p.s.Slice(quoteStart, ending.i)
				i = ending.i
			case ending.val > hashCount:
				return fail[document.Stringish](start), parseErrorf(p.s, start, "Expected %d # chars at end of raw multiline string; got %d.", hashCount, ending.val)
			default:
				content, err := p.processMultiline(lines, line)
				if err != nil {
					return fail[document.Stringish](start), err
				}
				return res[document.Stringish](&document.RawString{Val: content}, ending.i), nil
			}
		case p.s.EOFAt(i):
			return fail[document.Stringish](start), parseErrorf(p.s, start, "Hit EOF while looking for the end of the string")
		case c == '\\' && hashCount == 0:
			esc, err := p.escape(i)
			if err != nil {
				return fail[document.Stringish](start), err
			}
			if !esc.ok {
				return fail[document.Stringish](start), parseErrorf(p.s, i, "Invalid escape sequence in string")
			}
			line.text += esc.val
			i = esc.i
		default:
			line.text += string(c)
			i++
		}
	}
}

// processMultiline strips the final line's whitespace prefix from every
// non-blank line and joins the remainder with newlines. The final line
// itself must be all whitespace.
func (p *parser) processMultiline(lines []msLine, lastLine msLine) (string, error) {
	if lastLine.text != "" {
		return "", parseErrorf(p.s, lastLine.i, "Multiline string ended with non-whitespace content on last line.")
	}
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		// whitespace-only lines contribute just their presence
		if line.text == "" {
			parts = append(parts, "")
			continue
		}
		if !strings.HasPrefix(line.indent, lastLine.indent) {
			return "", parseErrorf(p.s, line.i, "Multiline string line doesn't start with the same whitespace prefix as the final line.")
		}
		parts = append(parts, line.indent[len(lastLine.indent):]+line.text)
	}
	return strings.Join(parts, "\n"), nil
}

func (p *parser) identString(start int) (result[document.Stringish], error) {
	ident := p.bareIdent(start)
	if !ident.ok {
		return fail[document.Stringish](start), nil
	}
	if chars.IsConfusableKeyword(ident.val) {
		return fail[document.Stringish](start), parseErrorf(p.s, start, "Ident strings confusable with keywords aren't allowed; use a quoted string. Got '%s'.", ident.val)
	}
	return res[document.Stringish](&document.String{Val: ident.val}, ident.i), nil
}

func (p *parser) newline(start int) result[bool] {
	if p.s.CharAt(start) == '\r' && p.s.CharAt(start+1) == '\n' {
		return res(true, start+2)
	}
	if chars.IsNewline(p.s.CharAt(start)) {
		return res(true, start+1)
	}
	return fail[bool](start)
}

func (p *parser) linespace(start int) (result[bool], error) {
	i := start
	for {
		progressed := false
		if nl := p.newline(i); nl.ok {
			i = nl.i
			progressed = true
		}
		ns, err := p.nodespace(i)
		if err != nil {
			return fail[bool](start), err
		}
		if ns.ok {
			i = ns.i
			progressed = true
		}
		if slc := p.singleLineComment(i); slc.ok {
			i = slc.i
			progressed = true
		}
		if !progressed {
			break
		}
	}
	if i == start {
		return fail[bool](start), nil
	}
	return res(true, i), nil
}

func (p *parser) nodespace(start int) (result[bool], error) {
	i := start
	for {
		ws, err := p.whitespace(i)
		if err != nil {
			return fail[bool](start), err
		}
		i = ws.i
		esc, err := p.escline(i)
		if err != nil {
			return fail[bool](start), err
		}
		if !esc.ok {
			break
		}
		i = esc.i
	}
	if i == start {
		return fail[bool](start), nil
	}
	return res(true, i), nil
}

// escline is a \ line continuation: the following line break does not end
// the node.
func (p *parser) escline(start int) (result[bool], error) {
	if p.s.CharAt(start) != '\\' {
		return fail[bool](start), nil
	}
	ws, err := p.whitespace(start + 1)
	if err != nil {
		return fail[bool](start), err
	}
	i := ws.i
	if nl := p.newline(i); nl.ok {
		return res(true, nl.i), nil
	}
	if slc := p.singleLineComment(i); slc.ok {
		return res(true, slc.i), nil
	}
	if p.s.EOFAt(i) {
		return res(true, i), nil
	}
	return fail[bool](start), nil
}

func (p *parser) whitespace(start int) (result[bool], error) {
	i := start
	for {
		progressed := false
		if us := p.unicodeSpace(i); us.ok {
			i = us.i
			progressed = true
		}
		bc, err := p.blockComment(i)
		if err != nil {
			return fail[bool](start), err
		}
		if bc.ok {
			i = bc.i
			progressed = true
		}
		if !progressed {
			break
		}
	}
	if i == start {
		return fail[bool](start), nil
	}
	return res(true, i), nil
}

func (p *parser) unicodeSpace(start int) result[bool] {
	i := start
	for chars.IsWhitespace(p.s.CharAt(i)) {
		i++
	}
	if i == start {
		return fail[bool](start)
	}
	return res(true, i)
}

// slashdash consumes /- plus any following space; the caller discards
// whatever parses next.
func (p *parser) slashdash(start int) (result[bool], error) {
	if !(p.s.CharAt(start) == '/' && p.s.CharAt(start+1) == '-') {
		return fail[bool](start), nil
	}
	i := start + 2
	for {
		progressed := false
		ls, err := p.linespace(i)
		if err != nil {
			return fail[bool](start), err
		}
		if ls.ok {
			i = ls.i
			progressed = true
		}
		ns, err := p.nodespace(i)
		if err != nil {
			return fail[bool](start), err
		}
		if ns.ok {
			i = ns.i
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return res(true, i), nil
}

func (p *parser) singleLineComment(start int) result[bool] {
	if !(p.s.CharAt(start) == '/' && p.s.CharAt(start+1) == '/') {
		return fail[bool](start)
	}
	i := start + 2
	for !chars.IsNewline(p.s.CharAt(i)) && !p.s.EOFAt(i) {
		i++
	}
	if nl := p.newline(i); nl.ok {
		i = nl.i
	}
	return res(true, i)
}

// blockComment consumes a /* ... */ comment, which may nest.
func (p *parser) blockComment(start int) (result[bool], error) {
	if !(p.s.CharAt(start) == '/' && p.s.CharAt(start+1) == '*') {
		return fail[bool](start), nil
	}
	i := start + 2
	for {
		if p.s.EOFAt(i) {
			return fail[bool](start), parseErrorf(p.s, start, "Hit EOF while inside a multiline comment")
		}
		if p.s.CharAt(i) == '*' && p.s.CharAt(i+1) == '/' {
			return res(true, i+2), nil
		}
		if p.s.CharAt(i) == '/' && p.s.CharAt(i+1) == '*' {
			inner, err := p.blockComment(i)
			if err != nil {
				return fail[bool](start), err
			}
			i = inner.i
			continue
		}
		i++
	}
}

func stringScalar(v document.Stringish) string {
	s, _ := v.Value().(string)
	return s
}
