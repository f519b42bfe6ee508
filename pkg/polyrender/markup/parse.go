package markup

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SyntaxError is returned by a strict parse for unbalanced markup.
type SyntaxError struct {
	Message string
	Tag     string
}

func (e *SyntaxError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("markup: %s <%s>", e.Message, e.Tag)
	}
	return "markup: " + e.Message
}

// ParseOption configures Parse.
type ParseOption func(*parser)

// Strict makes stray end tags and unclosed elements errors instead of being repaired.
func Strict() ParseOption {
	return func(p *parser) {
		p.strict = true
	}
}

// voidElements never have children; an end tag for them is ignored.
var voidElements = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Keygen: true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// dropsLeadingNewline reports whether n ignores a newline directly after its start tag.
func dropsLeadingNewline(n *Node) bool {
	if n.Type != ElementNode {
		return false
	}
	switch atom.Lookup([]byte(n.Name)) {
	case atom.Pre, atom.Listing, atom.Textarea:
		return true
	}
	return false
}

// A parser builds a Node tree from the tokens of an html.Tokenizer. It keeps a stack of
// open elements but applies none of the HTML5 insertion modes.
type parser struct {
	tokenizer *html.Tokenizer
	root      *Node
	// open is the stack of open elements, root excluded.
	open   []*Node
	strict bool
}

func (p *parser) top() *Node {
	if len(p.open) == 0 {
		return p.root
	}
	return p.open[len(p.open)-1]
}

func (p *parser) addChild(n *Node, push bool) {
	p.top().AppendChild(n)
	if push {
		p.open = append(p.open, n)
	}
}

// addText merges with a preceding text node so that text split by the tokenizer (for
// example around a NUL byte) stays a single node.
func (p *parser) addText(text string) {
	t := p.top()
	if len(t.Children) == 0 && dropsLeadingNewline(t) {
		// html.Render writes this newline back
		if strings.HasPrefix(text, "\r\n") {
			text = text[2:]
		} else {
			text = strings.TrimPrefix(text, "\n")
		}
	}
	if text == "" {
		return
	}
	if k := len(t.Children); k > 0 && t.Children[k-1].Type == TextNode {
		t.Children[k-1].Data += text
		return
	}
	p.addChild(NewText(text), false)
}

func (p *parser) addElement(tok html.Token, selfClosing bool) {
	n := &Node{Type: ElementNode, Name: tok.Data}
	if len(tok.Attr) > 0 {
		n.Attrs = make([]Attribute, 0, len(tok.Attr))
		for _, a := range tok.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + key
			}
			n.Attrs = append(n.Attrs, Attribute{Key: key, Val: a.Val})
		}
	}
	p.addChild(n, !selfClosing && !voidElements[tok.DataAtom])
}

// closeElement pops the stack up to and including the innermost element named name.
func (p *parser) closeElement(tok html.Token) error {
	if voidElements[tok.DataAtom] {
		return nil
	}
	for i := len(p.open) - 1; i >= 0; i-- {
		if p.open[i].Name != tok.Data {
			continue
		}
		if p.strict && i != len(p.open)-1 {
			return &SyntaxError{Message: "unclosed element", Tag: p.open[len(p.open)-1].Name}
		}
		p.open = p.open[:i]
		return nil
	}
	if p.strict {
		return &SyntaxError{Message: "unexpected end tag", Tag: tok.Data}
	}
	return nil
}

func (p *parser) parse() error {
	for {
		tt := p.tokenizer.Next()
		if tt == html.ErrorToken {
			if err := p.tokenizer.Err(); err != io.EOF {
				return err
			}
			break
		}
		tok := p.tokenizer.Token()
		switch tt {
		case html.TextToken:
			p.addText(strings.ReplaceAll(tok.Data, "\x00", ""))
		case html.StartTagToken:
			p.addElement(tok, false)
		case html.SelfClosingTagToken:
			p.addElement(tok, true)
		case html.EndTagToken:
			if err := p.closeElement(tok); err != nil {
				return err
			}
		case html.CommentToken:
			p.addChild(NewComment(tok.Data), false)
		case html.DoctypeToken:
			// Doctypes carry no bindings and are not part of a component view.
		}
	}
	if p.strict && len(p.open) > 0 {
		return &SyntaxError{Message: "unclosed element", Tag: p.top().Name}
	}
	return nil
}

// Parse reads markup from r and returns its top-level nodes in source order.
// The input is assumed to be UTF-8 encoded.
func Parse(r io.Reader, opts ...ParseOption) ([]*Node, error) {
	p := &parser{
		tokenizer: html.NewTokenizer(r),
		root:      &Node{Type: ElementNode},
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.root.Children, nil
}

// ParseString is Parse over a string.
func ParseString(s string, opts ...ParseOption) ([]*Node, error) {
	return Parse(strings.NewReader(s), opts...)
}
