package polyrender

import (
	"fmt"
	"strings"
)

// DefaultKind is the value a referenced path takes when the render context lacks it.
type DefaultKind int

const (
	// DefaultString renders as the empty string.
	DefaultString DefaultKind = iota
	// DefaultMapping is an empty mapping, so deeper paths keep resolving.
	DefaultMapping
	// DefaultCallable is a callable that returns nothing.
	DefaultCallable
)

func (k DefaultKind) String() string {
	switch k {
	case DefaultString:
		return "string"
	case DefaultMapping:
		return "mapping"
	case DefaultCallable:
		return "callable"
	default:
		return "unknown"
	}
}

func (k DefaultKind) value() interface{} {
	switch k {
	case DefaultMapping:
		return TemplateData{}
	case DefaultCallable:
		return noop
	default:
		return ""
	}
}

// Declaration makes one referenced path safe to evaluate.
type Declaration struct {
	Path    string
	Default DefaultKind
}

func (d Declaration) String() string {
	return fmt.Sprintf("%s=%s", d.Path, d.Default)
}

// binder collects declarations for every path referenced by the bindings of one
// compile pass. A path is declared at most once; the first declaration wins.
type binder struct {
	decls []Declaration
	seen  map[string]bool
}

func newBinder() *binder {
	return &binder{seen: make(map[string]bool)}
}

func (b *binder) declare(path string, kind DefaultKind) {
	if b.seen[path] {
		return
	}
	b.seen[path] = true
	b.decls = append(b.decls, Declaration{Path: path, Default: kind})
}

// declarePath declares every prefix of parts as a mapping and the leaf as leaf.
func (b *binder) declarePath(parts []string, leaf DefaultKind) {
	for i := 1; i < len(parts); i++ {
		b.declare(strings.Join(parts[:i], "."), DefaultMapping)
	}
	b.declare(strings.Join(parts, "."), leaf)
}

// bind walks an expression and declares what it references.
func (b *binder) bind(node ExpressionNode) {
	switch n := node.(type) {
	case *PathNode:
		b.declarePath(n.Parts, DefaultString)
	case *CallNode:
		if path, ok := n.Callee.(*PathNode); ok {
			b.declarePath(path.Parts, DefaultCallable)
		} else {
			b.bind(n.Callee)
		}
		for _, arg := range n.Args {
			b.bind(arg)
		}
	case *AccessNode:
		b.bind(n.Object)
	case *UnaryOpNode:
		b.bind(n.Operand)
	case *BinaryOpNode:
		b.bind(n.Left)
		b.bind(n.Right)
	case *BindingNode:
		b.bind(n.Expr)
	case *ConcatNode:
		for _, part := range n.Parts {
			b.bind(part)
		}
	case *groupNode:
		b.bind(n.ExpressionNode)
	}
}

func (b *binder) declarations() []Declaration {
	return b.decls
}
