package polyrender

import (
	"strings"

	"github.com/benjaminschreck/go-polyrender/pkg/polyrender/binding"
	"github.com/benjaminschreck/go-polyrender/pkg/polyrender/markup"
)

const (
	templateTag     = "template"
	controlAttr     = "is"
	conditionalKind = "dom-if"
	repeatKind      = "dom-repeat"

	defaultItemAlias  = "item"
	defaultIndexAlias = "index"
)

// compiler turns one source text into a Program. It is used for a single compile
// pass; declarations are collected across the whole walk.
type compiler struct {
	config   *Config
	elements *ElementRegistry
	binder   *binder
	logger   *Logger
}

func newCompiler(config *Config, elements *ElementRegistry, logger *Logger) *compiler {
	return &compiler{
		config:   config,
		elements: elements,
		binder:   newBinder(),
		logger:   logger,
	}
}

// compile parses source and generates its program. Unless fragment is set, only the
// children of the first template inside the first component root are compiled; a
// source without a component root is compiled whole.
func (c *compiler) compile(source string, fragment bool) (*Program, error) {
	var opts []markup.ParseOption
	if c.config.StrictMode {
		opts = append(opts, markup.Strict())
	}

	nodes, err := markup.ParseString(source, opts...)
	if err != nil {
		return nil, &CompileError{Stage: "parse", Source: source, Cause: NewParseError("malformed markup", "", err)}
	}

	if !fragment {
		nodes, err = c.templateRoot(nodes)
		if err != nil {
			return nil, &CompileError{Stage: "parse", Source: source, Cause: err}
		}
	}

	body, err := c.compileNodes(nodes)
	if err != nil {
		return nil, &CompileError{Stage: "generate", Source: source, Cause: err}
	}

	return &Program{
		Nodes:        body,
		Declarations: c.binder.declarations(),
	}, nil
}

// templateRoot returns the nodes to compile for a component source.
func (c *compiler) templateRoot(nodes []*markup.Node) ([]*markup.Node, error) {
	for _, n := range nodes {
		if n.Type != markup.ElementNode || !c.config.isRootTag(n.Name) {
			continue
		}
		for _, child := range n.Children {
			if child.IsElement(templateTag) {
				return child.Children, nil
			}
		}
		if c.config.StrictMode {
			return nil, WithContext(ErrNoTemplate, "locate template", map[string]interface{}{"root": n.Name})
		}
		c.logger.WithField("root", n.Name).Warn("Component root has no template; rendering nothing")
		return nil, nil
	}
	return nodes, nil
}

func (c *compiler) compileNodes(nodes []*markup.Node) ([]ProgramNode, error) {
	var out []ProgramNode
	for _, n := range nodes {
		compiled, err := c.compileNode(n)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled)
	}
	return out, nil
}

func (c *compiler) compileNode(n *markup.Node) (ProgramNode, error) {
	switch n.Type {
	case markup.TextNode:
		value, err := c.bindable(n.Data)
		if err != nil {
			return nil, err
		}
		return &Text{Value: value}, nil

	case markup.CommentNode:
		value, err := c.bindable(n.Data)
		if err != nil {
			return nil, err
		}
		return &Comment{Value: value}, nil
	}

	if n.Name == templateTag {
		kind, _ := n.Attr(controlAttr)
		switch kind {
		case conditionalKind:
			return c.compileConditional(n)
		case repeatKind:
			return c.compileRepeat(n)
		}
	}

	if el, ok := c.elements.Lookup(n.Name); ok {
		return c.compileElementRef(n, el)
	}

	return c.compileElement(n)
}

// bindable parses a text or attribute value and declares the paths it references.
func (c *compiler) bindable(text string) (*ConcatNode, error) {
	value, err := ParseBindable(text, c.config.StrictMode)
	if err != nil {
		return nil, err
	}
	c.binder.bind(value)
	return value, nil
}

func (c *compiler) compileElement(n *markup.Node) (ProgramNode, error) {
	el := &Element{Tag: n.Name}

	for _, a := range n.Attrs {
		value, err := c.bindable(a.Val)
		if err != nil {
			return nil, err
		}
		el.Attrs = append(el.Attrs, &Attr{Name: binding.StripDynamic(a.Key), Value: value})
	}

	children, err := c.compileNodes(n.Children)
	if err != nil {
		return nil, err
	}
	el.Children = children
	return el, nil
}

func (c *compiler) compileConditional(n *markup.Node) (ProgramNode, error) {
	cond, _ := n.Attr("if")
	condition, err := c.bindable(cond)
	if err != nil {
		return nil, err
	}

	body, err := c.compileNodes(n.Children)
	if err != nil {
		return nil, err
	}
	return &Conditional{Condition: condition, Body: body}, nil
}

func (c *compiler) compileRepeat(n *markup.Node) (ProgramNode, error) {
	itemsAttr, _ := n.Attr("items")
	items, err := c.bindable(itemsAttr)
	if err != nil {
		return nil, err
	}

	rp := &Repeat{
		Items:   items,
		As:      attrOr(n, "as", defaultItemAlias),
		IndexAs: attrOr(n, "index-as", defaultIndexAlias),
	}

	if filter, ok := n.Attr("filter"); ok {
		filter = strings.TrimSpace(filter)
		switch {
		case binding.HasBindings(filter):
			// not declared: a missing filter callable is an error
			expr, err := ParseBindable(filter, c.config.StrictMode)
			if err != nil {
				return nil, err
			}
			rp.FilterExpr = expr
		case filter != "":
			rp.FilterName = filter
		}
	}

	body, err := markup.RenderString(n.Children)
	if err != nil {
		return nil, err
	}
	rp.Body = body
	return rp, nil
}

func (c *compiler) compileElementRef(n *markup.Node, el RegisteredElement) (ProgramNode, error) {
	ref := &ElementRef{
		Name:     el.Name,
		Source:   el.Source,
		Defaults: el.Defaults,
	}

	for _, a := range n.Attrs {
		value, err := c.bindable(a.Val)
		if err != nil {
			return nil, err
		}
		ref.Attrs = append(ref.Attrs, &Attr{
			Name:  binding.CamelCase(binding.StripDynamic(a.Key)),
			Value: value,
		})
	}

	c.logger.WithField("element", el.Name).Debug("Inlining registered element")
	return ref, nil
}

func attrOr(n *markup.Node, name, fallback string) string {
	if v, ok := n.Attr(name); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return fallback
}
