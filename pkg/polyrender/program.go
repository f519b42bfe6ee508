package polyrender

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benjaminschreck/go-polyrender/pkg/polyrender/markup"
)

// ProgramNode is one position of a compiled program. Rendering a node yields zero or
// more output nodes: control blocks and partials splice their content in place.
type ProgramNode interface {
	String() string
	render(r *renderState, s *scope, depth int) ([]*markup.Node, error)
}

// Program is the compiled form of a template: the node skeleton plus the defaults for
// every path its bindings reference.
type Program struct {
	Nodes        []ProgramNode
	Declarations []Declaration
}

// String dumps the program on a single line.
func (p *Program) String() string {
	decls := make([]string, len(p.Declarations))
	for i, d := range p.Declarations {
		decls[i] = d.String()
	}
	return fmt.Sprintf("Program(decls=[%s], nodes=[%s])", strings.Join(decls, ", "), joinNodes(p.Nodes))
}

func (p *Program) execute(r *renderState, data TemplateData, depth int) ([]*markup.Node, error) {
	return renderNodes(p.Nodes, r, newScope(data, p.Declarations), depth)
}

func joinNodes(nodes []ProgramNode) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

func renderNodes(nodes []ProgramNode, r *renderState, s *scope, depth int) ([]*markup.Node, error) {
	var out []*markup.Node
	for _, n := range nodes {
		rendered, err := n.render(r, s, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered...)
	}
	return out, nil
}

// Attr is an attribute with a bindable value.
type Attr struct {
	Name  string
	Value *ConcatNode
}

func (a *Attr) String() string {
	return fmt.Sprintf("%s=%s", a.Name, a.Value)
}

func renderAttrs(attrs []*Attr, s *scope) ([]markup.Attribute, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	out := make([]markup.Attribute, len(attrs))
	for i, a := range attrs {
		val, err := evaluateString(a.Value, s)
		if err != nil {
			return nil, err
		}
		out[i] = markup.Attribute{Key: a.Name, Val: val}
	}
	return out, nil
}

// Element is an element passed through with its attributes and children compiled.
type Element struct {
	Tag      string
	Attrs    []*Attr
	Children []ProgramNode
}

func (e *Element) String() string {
	attrs := make([]string, len(e.Attrs))
	for i, a := range e.Attrs {
		attrs[i] = a.String()
	}
	return fmt.Sprintf("Element(%s [%s] [%s])", e.Tag, strings.Join(attrs, " "), joinNodes(e.Children))
}

func (e *Element) render(r *renderState, s *scope, depth int) ([]*markup.Node, error) {
	attrs, err := renderAttrs(e.Attrs, s)
	if err != nil {
		return nil, err
	}
	children, err := renderNodes(e.Children, r, s, depth)
	if err != nil {
		return nil, err
	}
	return []*markup.Node{markup.NewElement(e.Tag, attrs, children...)}, nil
}

// Text is a text node with bindings.
type Text struct {
	Value *ConcatNode
}

func (t *Text) String() string {
	return fmt.Sprintf("Text(%s)", t.Value)
}

func (t *Text) render(r *renderState, s *scope, depth int) ([]*markup.Node, error) {
	val, err := evaluateString(t.Value, s)
	if err != nil {
		return nil, err
	}
	return []*markup.Node{markup.NewText(val)}, nil
}

// Comment is a comment node; bindings in it are evaluated like text.
type Comment struct {
	Value *ConcatNode
}

func (c *Comment) String() string {
	return fmt.Sprintf("Comment(%s)", c.Value)
}

func (c *Comment) render(r *renderState, s *scope, depth int) ([]*markup.Node, error) {
	val, err := evaluateString(c.Value, s)
	if err != nil {
		return nil, err
	}
	return []*markup.Node{markup.NewComment(val)}, nil
}

// Conditional splices its body when Condition is truthy.
type Conditional struct {
	Condition *ConcatNode
	Body      []ProgramNode
}

func (c *Conditional) String() string {
	return fmt.Sprintf("Conditional(%s [%s])", c.Condition, joinNodes(c.Body))
}

func (c *Conditional) render(r *renderState, s *scope, depth int) ([]*markup.Node, error) {
	cond, err := c.Condition.Evaluate(s)
	if err != nil {
		return nil, err
	}
	if !isTruthy(cond) {
		return nil, nil
	}
	return renderNodes(c.Body, r, s, depth)
}

// Repeat renders Body once per item of Items that passes the filter. Body is the
// serialized markup of the block's children; it is compiled as an independent
// fragment and executed with the ambient data extended by As, IndexAs and "items".
type Repeat struct {
	Items *ConcatNode
	// FilterName names a context callable called with each item.
	FilterName string
	// FilterExpr is evaluated per item, with the aliases in scope.
	FilterExpr *ConcatNode
	As         string
	IndexAs    string
	Body       string
}

func (rp *Repeat) String() string {
	filter := "none"
	switch {
	case rp.FilterName != "":
		filter = rp.FilterName
	case rp.FilterExpr != nil:
		filter = rp.FilterExpr.String()
	}
	return fmt.Sprintf("Repeat(items=%s filter=%s as=%s index-as=%s body=%q)",
		rp.Items, filter, rp.As, rp.IndexAs, rp.Body)
}

func (rp *Repeat) render(r *renderState, s *scope, depth int) ([]*markup.Node, error) {
	itemsVal, err := rp.Items.Evaluate(s)
	if err != nil {
		return nil, err
	}
	items := toSlice(itemsVal)
	if len(items) == 0 {
		return nil, nil
	}

	if err := r.checkDepth(depth+1, "repeat"); err != nil {
		return nil, err
	}

	var filterFn interface{}
	if rp.FilterName != "" {
		fn, ok := s.resolve(strings.Split(rp.FilterName, "."))
		if !ok || !isCallable(fn) {
			return nil, NewEvaluationError(rp.FilterName, fmt.Errorf("filter: %w", ErrNotCallable))
		}
		filterFn = fn
	}

	var body *Program
	var out []*markup.Node
	index := 0

	for _, item := range items {
		vars := TemplateData{
			rp.IndexAs: index,
			rp.As:      item,
			"items":    itemsVal,
		}

		keep, err := rp.keep(s, filterFn, item, vars)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}

		if body == nil {
			body, err = r.program(rp.Body, true)
			if err != nil {
				return nil, err
			}
		}

		rendered, err := body.execute(r, s.extend(vars), depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered...)
		index++
	}

	return out, nil
}

func (rp *Repeat) keep(s *scope, filterFn interface{}, item interface{}, vars TemplateData) (bool, error) {
	switch {
	case filterFn != nil:
		ok, err := callValue(filterFn, []interface{}{item})
		if err != nil {
			var evalErr *EvaluationError
			if errors.As(err, &evalErr) {
				return false, err
			}
			return false, NewEvaluationError(rp.FilterName, err)
		}
		return isTruthy(ok), nil
	case rp.FilterExpr != nil:
		ok, err := rp.FilterExpr.Evaluate(&scope{data: s.extend(vars), defaults: s.defaults})
		if err != nil {
			return false, err
		}
		return isTruthy(ok), nil
	}
	return true, nil
}

// ElementRef is a usage of a registered partial. Source and Defaults are captured
// when the referencing template is compiled; Attrs carry camelCased names.
type ElementRef struct {
	Name     string
	Source   string
	Defaults TemplateData
	Attrs    []*Attr
}

func (e *ElementRef) String() string {
	attrs := make([]string, len(e.Attrs))
	for i, a := range e.Attrs {
		attrs[i] = a.String()
	}
	return fmt.Sprintf("ElementRef(%s [%s])", e.Name, strings.Join(attrs, " "))
}

func (e *ElementRef) render(r *renderState, s *scope, depth int) ([]*markup.Node, error) {
	if err := r.checkDepth(depth+1, e.Name); err != nil {
		return nil, err
	}

	ctx := make(TemplateData, len(e.Defaults)+len(s.data)+len(e.Attrs))
	for k, v := range e.Defaults {
		ctx[k] = v
	}
	for k, v := range s.data {
		ctx[k] = v
	}
	for _, a := range e.Attrs {
		val, err := a.Value.Evaluate(s)
		if err != nil {
			return nil, err
		}
		ctx[a.Name] = val
	}

	prog, err := r.program(e.Source, false)
	if err != nil {
		return nil, WithContext(err, "compile element", map[string]interface{}{"element": e.Name})
	}

	r.logger.WithFields(Fields{"element": e.Name, "depth": depth + 1}).Debug("Rendering element")
	return prog.execute(r, ctx, depth+1)
}
