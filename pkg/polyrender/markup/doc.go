// Package markup provides the node tree used by polyrender together with a parser and a
// serializer for it.
//
// The parser is a thin tree builder over the tokenizer from golang.org/x/net/html. It does
// not apply the HTML5 insertion modes: the goal is a tree that mirrors the source as written,
// so custom elements such as <dom-module> and nested <template> elements keep their children
// exactly where the author put them.
//
// # Structure Organization
//
//   - node.go: Node, Attribute and NodeType
//   - parse.go: Parse and ParseString (tokenizer based tree builder)
//   - render.go: Render and RenderString (serialization through html.Render)
//
// # Usage
//
//	nodes, err := markup.ParseString(`<div class="greeting">Hello</div>`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := markup.RenderString(nodes)
//	// out == `<div class="greeting">Hello</div>`
//
// Tag and attribute names are lower-cased by the tokenizer, which gives case-insensitive
// tag matching for free.
package markup
