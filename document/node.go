package document

// Node is a single node in a KDL document: a name, an optional tag, ordered
// arguments, insertion-ordered properties, and child nodes.
type Node struct {
	// Name is the name of the node.
	Name string
	// Tag is the node's tag, or nil if none.
	Tag *string
	// Args is the ordered list of positional arguments. Each element is a
	// Value variant, or a native Go value if a converter replaced it.
	Args []any
	// Props holds the node's properties.
	Props Properties
	// Children is the list of child nodes; nil when the node has no child
	// block, empty for an empty block.
	Children []*Node
}

// NewNode creates a Node with the given name.
func NewNode(name string) *Node {
	return &Node{Name: name}
}

// AddArgument appends a positional argument.
func (n *Node) AddArgument(v any) {
	n.Args = append(n.Args, v)
}

// AddProperty sets a property, applying the last-write-wins rule for
// duplicate keys.
func (n *Node) AddProperty(key string, v any) {
	n.Props.Add(key, v)
}

// AddNode appends a child node.
func (n *Node) AddNode(child *Node) {
	n.Children = append(n.Children, child)
}

// String returns the node's KDL text with the default configuration.
func (n *Node) String() string {
	return n.Print(nil, 0)
}

// Print returns the node's KDL text, indented to indentLevel. A nil cfg
// uses defaults.
func (n *Node) Print(cfg *PrintConfig, indentLevel int) string {
	if cfg == nil {
		cfg = defaultPrintConfig
	}
	return string(n.appendTo(nil, cfg, indentLevel))
}

func (n *Node) appendTo(b []byte, cfg *PrintConfig, depth int) []byte {
	for i := 0; i < depth; i++ {
		b = append(b, cfg.Indent...)
	}
	if n.Tag != nil {
		b = append(b, '(')
		b = appendStringLike(b, *n.Tag)
		b = append(b, ')')
	}
	b = appendStringLike(b, n.Name)

	for _, arg := range n.Args {
		if !cfg.PrintNullArgs && isNullValue(arg) {
			continue
		}
		b = append(b, ' ')
		b = AppendValue(b, arg, cfg)
	}

	keys := n.Props.Keys()
	if cfg.SortProperties {
		keys = n.Props.SortedKeys()
	}
	for _, key := range keys {
		v, _ := n.Props.Get(key)
		if !cfg.PrintNullProps && isNullValue(v) {
			continue
		}
		b = append(b, ' ')
		b = appendStringLike(b, key)
		b = append(b, '=')
		b = AppendValue(b, v, cfg)
	}

	if len(n.Children) > 0 {
		b = append(b, ' ', '{', '\n')
		for _, child := range n.Children {
			b = child.appendTo(b, cfg, depth+1)
		}
		for i := 0; i < depth; i++ {
			b = append(b, cfg.Indent...)
		}
		b = append(b, '}')
	}
	if cfg.Semicolons {
		b = append(b, ';')
	}
	return append(b, '\n')
}

// isNullValue reports whether v is the null value, parsed or native.
func isNullValue(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(*Null)
	return ok
}
