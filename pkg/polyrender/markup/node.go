package markup

import (
	"fmt"
	"strings"
)

// NodeType identifies the kind of a Node.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
	CommentNode
)

func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "tag"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	default:
		return "unknown"
	}
}

// MarshalText encodes the node type the way tree dumps expect it ("tag", "text", "comment").
func (t NodeType) MarshalText() ([]byte, error) {
	s := t.String()
	if s == "unknown" {
		return nil, fmt.Errorf("markup: invalid node type %d", int(t))
	}
	return []byte(s), nil
}

// UnmarshalText decodes the names written by MarshalText.
func (t *NodeType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "tag":
		*t = ElementNode
	case "text":
		*t = TextNode
	case "comment":
		*t = CommentNode
	default:
		return fmt.Errorf("markup: invalid node type %q", string(b))
	}
	return nil
}

// Attribute is a single name="value" pair. Order is preserved.
type Attribute struct {
	Key string `json:"name"`
	Val string `json:"value"`
}

// Node is either an element (Name, Attrs, Children) or a text/comment node (Data).
type Node struct {
	Type     NodeType    `json:"type"`
	Name     string      `json:"name,omitempty"`
	Attrs    []Attribute `json:"attribs,omitempty"`
	Data     string      `json:"data,omitempty"`
	Children []*Node     `json:"children,omitempty"`
}

// NewElement returns an element node with the given attributes and children.
func NewElement(name string, attrs []Attribute, children ...*Node) *Node {
	return &Node{
		Type:     ElementNode,
		Name:     name,
		Attrs:    attrs,
		Children: children,
	}
}

// NewText returns a text node.
func NewText(data string) *Node {
	return &Node{Type: TextNode, Data: data}
}

// NewComment returns a comment node.
func NewComment(data string) *Node {
	return &Node{Type: CommentNode, Data: data}
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// IsElement reports whether n is an element with the given tag name.
func (n *Node) IsElement(name string) bool {
	return n != nil && n.Type == ElementNode && n.Name == name
}

// AppendChild adds c as the last child of n.
func (n *Node) AppendChild(c *Node) {
	n.Children = append(n.Children, c)
}

func (n *Node) String() string {
	switch n.Type {
	case TextNode:
		return fmt.Sprintf("Text(%q)", n.Data)
	case CommentNode:
		return fmt.Sprintf("Comment(%q)", n.Data)
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	return fmt.Sprintf("Element(%s %v [%s])", n.Name, n.Attrs, strings.Join(parts, ", "))
}
