package document

import "regexp"

// Matcher matches an optional string such as a value tag or a node name;
// present is false when the string is absent (an untagged value).
type Matcher interface {
	Match(s string, present bool) bool
}

// MatchAny matches every string, present or absent.
var MatchAny Matcher = anyMatcher{}

// MatchAbsent matches only the absent string (untagged values or nodes).
var MatchAbsent Matcher = absentMatcher{}

type anyMatcher struct{}

func (anyMatcher) Match(string, bool) bool { return true }

type absentMatcher struct{}

func (absentMatcher) Match(_ string, present bool) bool { return !present }

type exactMatcher string

func (m exactMatcher) Match(s string, present bool) bool {
	return present && s == string(m)
}

// MatchExact matches a present string equal to s.
func MatchExact(s string) Matcher {
	return exactMatcher(s)
}

type regexpMatcher struct {
	re *regexp.Regexp
}

func (m regexpMatcher) Match(s string, present bool) bool {
	return present && m.re.MatchString(s)
}

// MatchRegexp matches a present string against re.
func MatchRegexp(re *regexp.Regexp) Matcher {
	return regexpMatcher{re: re}
}

type funcMatcher func(s string, present bool) bool

func (m funcMatcher) Match(s string, present bool) bool { return m(s, present) }

// MatchFunc adapts a predicate into a Matcher.
func MatchFunc(f func(s string, present bool) bool) Matcher {
	return funcMatcher(f)
}

// TypeMatcher matches a value's runtime variant.
type TypeMatcher func(Value) bool

// AnyType matches every value variant.
func AnyType(Value) bool { return true }

// NumberType matches the numeric variants.
func NumberType(v Value) bool {
	_, ok := v.(Numberish)
	return ok
}

// StringType matches the textual variants.
func StringType(v Value) bool {
	_, ok := v.(Stringish)
	return ok
}

// ValueKey selects values for a converter by tag and runtime variant. A nil
// Tag or Type matches anything.
type ValueKey struct {
	Tag  Matcher
	Type TypeMatcher
}

// TagKey is the common case: match values carrying exactly this tag.
func TagKey(tag string) ValueKey {
	return ValueKey{Tag: MatchExact(tag)}
}

// MatchValue reports whether v satisfies the key.
func (k ValueKey) MatchValue(v Value) bool {
	tag := ""
	present := false
	if t := v.ValueTag(); t != nil {
		tag, present = *t, true
	}
	if k.Tag != nil && !k.Tag.Match(tag, present) {
		return false
	}
	if k.Type != nil && !k.Type(v) {
		return false
	}
	return true
}

// NodeKey selects nodes for a converter or lookup by tag and name. A nil
// Tag or Name matches anything.
type NodeKey struct {
	Tag  Matcher
	Name Matcher
}

// NameKey is the common case: match nodes with exactly this name, any tag.
func NameKey(name string) NodeKey {
	return NodeKey{Name: MatchExact(name)}
}

// MatchNode reports whether n satisfies the key.
func (k NodeKey) MatchNode(n *Node) bool {
	tag := ""
	present := false
	if n.Tag != nil {
		tag, present = *n.Tag, true
	}
	if k.Tag != nil && !k.Tag.Match(tag, present) {
		return false
	}
	if k.Name != nil && !k.Name.Match(n.Name, true) {
		return false
	}
	return true
}
