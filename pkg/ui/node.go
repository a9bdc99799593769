package ui

import "strings"

// Node is an element or text node.
type Node struct {
	// Tag is the element name. Empty for text nodes.
	Tag string

	// Key identifies the node for lookups with Find.
	Key string

	// Text is the content of a text node.
	Text string

	// Attrs are the element attributes.
	Attrs map[string]string

	// Children are the child nodes.
	Children []*Node

	// OnSubmit is called with the submitted value of a text input.
	OnSubmit func(value string)

	// OnClick is called when a button is clicked.
	OnClick func()
}

// Element creates an element node.
func Element(tag string, children ...*Node) *Node {
	return &Node{Tag: tag, Children: children}
}

// Text creates a text node.
func Text(s string) *Node {
	return &Node{Text: s}
}

// Div creates a <div>.
func Div(children ...*Node) *Node { return Element("div", children...) }

// H2 creates an <h2> holding text.
func H2(text string) *Node { return Element("h2", Text(text)) }

// P creates a <p> holding text.
func P(text string) *Node { return Element("p", Text(text)) }

// TextInput creates an editable text field showing value. onSubmit receives
// the new string when the user submits it.
func TextInput(key, value string, onSubmit func(string)) *Node {
	return &Node{
		Tag:      "input",
		Key:      key,
		Attrs:    map[string]string{"type": "text", "value": value},
		OnSubmit: onSubmit,
	}
}

// Button creates a <button> with a text label.
func Button(key, label string, onClick func()) *Node {
	return &Node{
		Tag:      "button",
		Key:      key,
		Children: []*Node{Text(label)},
		OnClick:  onClick,
	}
}

// WithKey sets the node key and returns the node.
func (n *Node) WithKey(key string) *Node {
	n.Key = key
	return n
}

// WithAttr sets an attribute and returns the node.
func (n *Node) WithAttr(name, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
	return n
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool {
	return n != nil && n.Tag == ""
}

// Find returns the first node in the tree (depth-first) with the given key.
func (n *Node) Find(key string) *Node {
	if n == nil {
		return nil
	}
	if n.Key == key {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(key); found != nil {
			return found
		}
	}
	return nil
}

// Submit fires the node's submit handler. It reports whether one was set.
func (n *Node) Submit(value string) bool {
	if n == nil || n.OnSubmit == nil {
		return false
	}
	n.OnSubmit(value)
	return true
}

// Click fires the node's click handler. It reports whether one was set.
func (n *Node) Click() bool {
	if n == nil || n.OnClick == nil {
		return false
	}
	n.OnClick()
	return true
}

// TextContent returns the concatenated text of the subtree.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	if n == nil {
		return
	}
	if n.IsText() {
		b.WriteString(n.Text)
		return
	}
	for _, child := range n.Children {
		child.writeText(b)
	}
}
