// Package polyrender compiles component markup templates into render routines that
// produce a node tree or serialized markup for a given data context, without a browser.
//
// Basic Usage:
//
//	engine := polyrender.New()
//
//	tmpl, err := engine.Compile(`<dom-module><template><div>{{greeting}}, [[user.name]]</div></template></dom-module>`,
//	    polyrender.OutputString)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := tmpl.Render(polyrender.TemplateData{
//	    "greeting": "Hello",
//	    "user":     map[string]interface{}{"name": "Bob"},
//	})
//	// out.(string) == "<div>Hello, Bob</div>"
//
// Template Syntax:
//
// Component root: only the first <template> child of the first <dom-module> (or <root>)
// element is compiled. A source without a component root is compiled as a fragment.
//
// Bindings: {{name}}, [[user.address.city]], {{format(price)}}, {{!hidden}}. Both
// delimiter styles render the same. Paths missing from the context render as empty.
//
// Conditionals: <template is="dom-if" if="{{show}}">...</template>
//
// Loops: <template is="dom-repeat" items="{{employees}}" filter="isActive" as="employee" index-as="i">...</template>
//
// Partials: engine.RegisterElement("my-card", source, defaults) makes every <my-card>
// tag render the partial's template, with the usage-site attributes (camelCased) on top
// of the ambient context and the partial's defaults.
package polyrender
