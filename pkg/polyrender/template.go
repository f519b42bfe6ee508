package polyrender

import (
	"fmt"

	"github.com/benjaminschreck/go-polyrender/pkg/polyrender/markup"
)

// Output selects what a compiled Template's Render returns. It is fixed at compile time.
type Output int

const (
	// OutputString renders to serialized markup.
	OutputString Output = iota
	// OutputTree renders to a node tree.
	OutputTree
)

func (o Output) String() string {
	switch o {
	case OutputString:
		return "string"
	case OutputTree:
		return "tree"
	default:
		return fmt.Sprintf("Output(%d)", int(o))
	}
}

// Template is a compiled, reusable render routine. It is safe for concurrent use.
type Template struct {
	engine  *Engine
	program *Program
	output  Output
}

// Render executes the template against data. The result is a []*markup.Node for
// OutputTree templates and a string for OutputString templates. data may be nil;
// it is never modified.
func (t *Template) Render(data TemplateData) (interface{}, error) {
	if t.output == OutputTree {
		return t.RenderTree(data)
	}
	return t.RenderString(data)
}

// RenderTree executes the template and returns the rendered node tree.
func (t *Template) RenderTree(data TemplateData) ([]*markup.Node, error) {
	r := &renderState{engine: t.engine, logger: t.engine.log()}
	return t.program.execute(r, data, 0)
}

// RenderString executes the template and serializes the result.
func (t *Template) RenderString(data TemplateData) (string, error) {
	nodes, err := t.RenderTree(data)
	if err != nil {
		return "", err
	}
	out, err := markup.RenderString(nodes)
	if err != nil {
		return "", fmt.Errorf("failed to serialize output: %w", err)
	}
	return out, nil
}

// Output returns the output mode fixed at compile time.
func (t *Template) Output() Output {
	return t.output
}

// Program returns the compiled program.
func (t *Template) Program() *Program {
	return t.program
}

// renderState is shared by all nested executions of one Render call.
type renderState struct {
	engine *Engine
	logger *Logger
}

// program compiles source through the engine cache.
func (r *renderState) program(source string, fragment bool) (*Program, error) {
	entry, err := r.engine.entry(source, fragment)
	if err != nil {
		return nil, err
	}
	return entry.program, nil
}

func (r *renderState) checkDepth(depth int, what string) error {
	if max := r.engine.config.MaxRenderDepth; depth > max {
		return WithContext(ErrMaxDepthExceeded, "render", map[string]interface{}{
			"at":    what,
			"depth": depth,
			"max":   max,
		})
	}
	return nil
}
