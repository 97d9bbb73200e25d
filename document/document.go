package document

// Document is the top-level container for a KDL document.
type Document struct {
	Nodes []*Node
	// PrintConfig, if non-nil, is the default configuration used when Print
	// is called with a nil config.
	PrintConfig *PrintConfig
}

// New creates a new Document.
func New() *Document {
	return &Document{
		Nodes: make([]*Node, 0, 32),
	}
}

// AddNode adds a Node to this document.
func (d *Document) AddNode(child *Node) {
	d.Nodes = append(d.Nodes, child)
}

// Print returns the document's KDL text. A nil cfg falls back to the
// document's own PrintConfig, then to the defaults. An empty document
// prints as a single newline.
func (d *Document) Print(cfg *PrintConfig) string {
	if cfg == nil {
		cfg = d.PrintConfig
	}
	if cfg == nil {
		cfg = defaultPrintConfig
	}
	if len(d.Nodes) == 0 {
		return "\n"
	}
	var b []byte
	for _, n := range d.Nodes {
		b = n.appendTo(b, cfg, 0)
	}
	return string(b)
}

// String returns the document's KDL text with its default configuration.
func (d *Document) String() string {
	return d.Print(nil)
}

// Get returns the first top-level node with the given name, or nil.
func (d *Document) Get(name string) *Node {
	return d.GetMatch(NameKey(name))
}

// GetAll returns every top-level node with the given name.
func (d *Document) GetAll(name string) []*Node {
	return d.GetAllMatch(NameKey(name))
}

// GetMatch returns the first top-level node matching key, or nil.
func (d *Document) GetMatch(key NodeKey) *Node {
	for _, n := range d.Nodes {
		if key.MatchNode(n) {
			return n
		}
	}
	return nil
}

// GetAllMatch returns every top-level node matching key.
func (d *Document) GetAllMatch(key NodeKey) []*Node {
	var nodes []*Node
	for _, n := range d.Nodes {
		if key.MatchNode(n) {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
