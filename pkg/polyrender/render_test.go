package polyrender

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/benjaminschreck/go-polyrender/pkg/polyrender/markup"
)

func renderForTest(t *testing.T, engine *Engine, source string, data TemplateData) string {
	t.Helper()
	tmpl, err := engine.Compile(source, OutputString)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	out, err := tmpl.Render(data)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return out.(string)
}

func TestRenderEndToEnd(t *testing.T) {
	engine := NewWithOptions()
	source := "<root><template><div>{{foo}}</div></template></root>"

	tests := []struct {
		name string
		data TemplateData
		want string
	}{
		{"bound", TemplateData{"foo": "hi"}, "<div>hi</div>"},
		{"missing", TemplateData{}, "<div></div>"},
		{"nil context", nil, "<div></div>"},
		{"zero is rendered", TemplateData{"foo": 0}, "<div>0</div>"},
		{"escaped", TemplateData{"foo": "a<b"}, "<div>a&lt;b</div>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderForTest(t, engine, source, tt.data); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderTreeOutput(t *testing.T) {
	engine := NewWithOptions()
	tmpl, err := engine.Compile(`<root><template><div id="{{id}}">{{foo}}</div></template></root>`, OutputTree)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	out, err := tmpl.Render(TemplateData{"id": "main", "foo": "hi"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got, ok := out.([]*markup.Node)
	if !ok {
		t.Fatalf("Render() returned %T, want []*markup.Node", out)
	}

	want := []*markup.Node{
		markup.NewElement("div", []markup.Attribute{{Key: "id", Val: "main"}}, markup.NewText("hi")),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Render() tree mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderBindinglessRoundTrip(t *testing.T) {
	inner := `<div class="card"><h1>Title</h1><p>Some <b>bold</b> text<br/></p><!-- note --><ul><li>a</li><li>b</li></ul></div>`
	engine := NewWithOptions()

	got := renderForTest(t, engine, "<dom-module><template>"+inner+"</template></dom-module>", TemplateData{"x": 1})
	if got != inner {
		t.Errorf("round trip =\n%s\nwant\n%s", got, inner)
	}
}

func TestRenderDelimiterEquivalence(t *testing.T) {
	contexts := []TemplateData{
		{},
		{"x": "v"},
		{"x": 0},
		{"x": []interface{}{1, 2}},
		{"x": map[string]interface{}{"y": "deep"}},
		{"x": nil},
	}

	for _, expr := range []string{"x", "x.y", "!x"} {
		curly := fmt.Sprintf(`<root><template><p title="{{%s}}">{{%s}}</p></template></root>`, expr, expr)
		square := fmt.Sprintf(`<root><template><p title="[[%s]]">[[%s]]</p></template></root>`, expr, expr)

		for i, data := range contexts {
			engine := NewWithOptions()
			a := renderForTest(t, engine, curly, data)
			b := renderForTest(t, engine, square, data)
			if a != b {
				t.Errorf("%s, context %d: {{}} = %q, [[]] = %q", expr, i, a, b)
			}
		}
	}
}

func TestRenderDefaultValueSafety(t *testing.T) {
	engine := NewWithOptions()

	tests := []struct {
		name   string
		source string
		data   TemplateData
		want   string
	}{
		{"nested path", `<root><template><p>{{a.b.c}}</p></template></root>`, TemplateData{}, "<p></p>"},
		{"prefix is not a mapping", `<root><template><p>{{a.b.c}}</p></template></root>`, TemplateData{"a": "text"}, "<p></p>"},
		{"missing callable", `<root><template><p>{{format(price)}}</p></template></root>`, TemplateData{}, "<p></p>"},
		{"missing method", `<root><template><p>{{user.greet()}}</p></template></root>`, TemplateData{}, "<p></p>"},
		{"negation of missing", `<root><template><p>{{!shown}}</p></template></root>`, TemplateData{}, "<p>true</p>"},
		{"attribute", `<root><template><a href="/u/{{user.id}}">x</a></template></root>`, TemplateData{}, `<a href="/u/">x</a>`},
		{"many missing", `<root><template><p>{{a}}{{b.c}}[[d.e.f]]{{g()}}</p></template></root>`, TemplateData{}, "<p></p>"},
		{"comparison of missing", `<root><template><template is="dom-if" if="{{count > 0}}"><b>x</b></template><p>end</p></template></root>`, TemplateData{}, "<p>end</p>"},
		{"subtraction of missing", `<root><template><p>{{total - discount}}</p></template></root>`, TemplateData{}, "<p>0</p>"},
		{"product of missing", `<root><template><p>{{price * qty}}</p></template></root>`, TemplateData{}, "<p>0</p>"},
		{"negated missing", `<root><template><p>{{-offset}}</p></template></root>`, TemplateData{}, "<p>0</p>"},
		{"division of missing", `<root><template><p>{{a / b}}|{{a % b}}</p></template></root>`, TemplateData{}, "<p>NaN|NaN</p>"},
		{"division by zero", `<root><template><p>{{n / 0}}</p></template></root>`, TemplateData{"n": 4}, "<p>Infinity</p>"},
		{"non-numeric operand", `<root><template><p>{{user.name * 2}}</p></template></root>`, TemplateData{"user": map[string]interface{}{"name": "Bob"}}, "<p>NaN</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderForTest(t, engine, tt.source, tt.data); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderDoesNotModifyContext(t *testing.T) {
	engine := NewWithOptions()
	data := TemplateData{"list": []interface{}{"a"}}
	source := `<root><template><p>{{a.b}}</p><template is="dom-repeat" items="{{list}}"><i>{{item}}{{index}}</i></template></template></root>`

	renderForTest(t, engine, source, data)

	want := TemplateData{"list": []interface{}{"a"}}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("context modified (-want +got):\n%s", diff)
	}
}

func TestRenderConditional(t *testing.T) {
	engine := NewWithOptions()
	source := `<root><template><p>before</p><template is="dom-if" if="{{show}}"><b>{{msg}}</b><i>x</i></template><p>after</p></template></root>`

	tests := []struct {
		name string
		data TemplateData
		want string
	}{
		{"true", TemplateData{"show": true, "msg": "hi"}, "<p>before</p><b>hi</b><i>x</i><p>after</p>"},
		{"false", TemplateData{"show": false, "msg": "hi"}, "<p>before</p><p>after</p>"},
		{"missing", TemplateData{}, "<p>before</p><p>after</p>"},
		{"empty slice is truthy", TemplateData{"show": []interface{}{}}, "<p>before</p><b></b><i>x</i><p>after</p>"},
		{"zero is falsy", TemplateData{"show": 0}, "<p>before</p><p>after</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderForTest(t, engine, source, tt.data); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderConditionalExpression(t *testing.T) {
	engine := NewWithOptions()
	source := `<root><template><template is="dom-if" if="{{!isHidden(user)}}"><span>{{user.name}}</span></template></template></root>`

	data := TemplateData{
		"user":     map[string]interface{}{"name": "Ann", "hidden": false},
		"isHidden": func(u map[string]interface{}) bool { return u["hidden"] == true },
	}
	if got := renderForTest(t, engine, source, data); got != "<span>Ann</span>" {
		t.Errorf("Render() = %q", got)
	}

	data["user"] = map[string]interface{}{"name": "Ann", "hidden": true}
	if got := renderForTest(t, engine, source, data); got != "" {
		t.Errorf("Render() = %q, want empty", got)
	}
}

func employees() []interface{} {
	return []interface{}{
		map[string]interface{}{"first": "Steven", "last": "Smith"},
		map[string]interface{}{"first": "John", "last": "Doe"},
	}
}

func TestRenderRepeatFilter(t *testing.T) {
	engine := NewWithOptions()
	source := `<root><template><template is="dom-repeat" items="{{employees}}" filter="filterList" as="employee" index-as="myIndex"><div>{{myIndex}}: {{employee.first}} {{employee.last}}</div></template></template></root>`

	data := TemplateData{
		"employees": employees(),
		"filterList": func(item interface{}) bool {
			return item.(map[string]interface{})["first"] != "Steven"
		},
	}

	if got := renderForTest(t, engine, source, data); got != "<div>0: John Doe</div>" {
		t.Errorf("Render() = %q, want %q", got, "<div>0: John Doe</div>")
	}
}

func TestRenderRepeatDefaults(t *testing.T) {
	engine := NewWithOptions()
	source := `<root><template><ul><template is="dom-repeat" items="{{employees}}"><li># {{index}} {{item.first}} of {{items.length}} for {{company}}</li></template></ul></template></root>`

	data := TemplateData{"employees": employees(), "company": "ACME"}
	want := "<ul><li># 0 Steven of 2 for ACME</li><li># 1 John of 2 for ACME</li></ul>"
	if got := renderForTest(t, engine, source, data); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderRepeatEdgeCases(t *testing.T) {
	engine := NewWithOptions()
	source := `<root><template><p>[</p><template is="dom-repeat" items="{{list}}"><i>{{item}}</i></template><p>]</p></template></root>`

	tests := []struct {
		name string
		data TemplateData
		want string
	}{
		{"missing items", TemplateData{}, "<p>[</p><p>]</p>"},
		{"empty items", TemplateData{"list": []string{}}, "<p>[</p><p>]</p>"},
		{"typed slice", TemplateData{"list": []int{3, 4}}, "<p>[</p><i>3</i><i>4</i><p>]</p>"},
		{"not a sequence", TemplateData{"list": 5}, "<p>[</p><p>]</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderForTest(t, engine, source, tt.data); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderNestedRepeat(t *testing.T) {
	engine := NewWithOptions()
	source := `<root><template><template is="dom-repeat" items="{{rows}}" as="row" index-as="r"><tr><template is="dom-repeat" items="{{row.cells}}" as="cell"><td>{{r}}.{{index}}={{cell}}</td></template></tr></template></template></root>`

	data := TemplateData{
		"rows": []interface{}{
			map[string]interface{}{"cells": []string{"a", "b"}},
			map[string]interface{}{"cells": []string{"c"}},
		},
	}
	want := "<tr><td>0.0=a</td><td>0.1=b</td></tr><tr><td>1.0=c</td></tr>"
	if got := renderForTest(t, engine, source, data); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderRepeatFilterExpression(t *testing.T) {
	engine := NewWithOptions()
	source := `<root><template><template is="dom-repeat" items="{{nums}}" filter="{{n > min}}" as="n"><b>{{index}}:{{n}}</b></template></template></root>`

	data := TemplateData{"nums": []int{1, 5, 2, 8}, "min": 2}
	if got := renderForTest(t, engine, source, data); got != "<b>0:5</b><b>1:8</b>" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderRepeatFilterErrors(t *testing.T) {
	engine := NewWithOptions()
	source := `<root><template><template is="dom-repeat" items="{{list}}" filter="keep"><i>{{item}}</i></template></template></root>`
	tmpl, err := engine.Compile(source, OutputString)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	errBoom := errors.New("boom")
	tests := []struct {
		name    string
		data    TemplateData
		wantErr error
	}{
		{"missing filter", TemplateData{"list": []int{1}}, ErrNotCallable},
		{"filter is not callable", TemplateData{"list": []int{1}, "keep": "yes"}, ErrNotCallable},
		{"filter fails", TemplateData{"list": []int{1}, "keep": func(interface{}) (bool, error) { return false, errBoom }}, errBoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tmpl.Render(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Render() error = %v, want %v", err, tt.wantErr)
			}
			if !IsEvaluationError(err) {
				t.Errorf("Render() error = %T, want *EvaluationError", err)
			}
		})
	}
}

func TestRenderCallbackErrorPropagates(t *testing.T) {
	engine := NewWithOptions()
	errBoom := errors.New("boom")

	tmpl, err := engine.Compile(`<root><template><p>{{explode()}}</p></template></root>`, OutputString)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	_, err = tmpl.Render(TemplateData{"explode": func() (string, error) { return "", errBoom }})
	if !errors.Is(err, errBoom) || !IsEvaluationError(err) {
		t.Fatalf("Render() error = %v, want evaluation error wrapping boom", err)
	}
	if !strings.Contains(err.Error(), "explode()") {
		t.Errorf("error %q does not name the expression", err)
	}

	_, err = tmpl.Render(TemplateData{"explode": 42})
	if !errors.Is(err, ErrNotCallable) {
		t.Errorf("Render() error = %v, want ErrNotCallable", err)
	}
}

func TestRenderCallbackPanicsAreNotRecovered(t *testing.T) {
	engine := NewWithOptions()
	tmpl, err := engine.Compile(`<root><template><p>{{crash()}}</p></template></root>`, OutputString)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected the callback panic to reach the caller")
		}
	}()
	tmpl.Render(TemplateData{"crash": func() string { panic("crash") }})
}

func TestRenderPartialPrecedence(t *testing.T) {
	engine := NewWithOptions()
	engine.RegisterElement("my-element", `<dom-module><template><span>{{value}}</span></template></dom-module>`, TemplateData{"value": "X"})

	tests := []struct {
		name   string
		source string
		data   TemplateData
		want   string
	}{
		{"local attribute wins", `<root><template><my-element value="Bob"></my-element></template></root>`, TemplateData{"value": "Amb"}, "<span>Bob</span>"},
		{"ambient beats default", `<root><template><my-element></my-element></template></root>`, TemplateData{"value": "Amb"}, "<span>Amb</span>"},
		{"default when nothing else", `<root><template><my-element></my-element></template></root>`, TemplateData{}, "<span>X</span>"},
		{"bound attribute", `<root><template><my-element value="{{name}}!"></my-element></template></root>`, TemplateData{"name": "Cy", "value": "Amb"}, "<span>Cy!</span>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderForTest(t, engine, tt.source, tt.data); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderPartialAttributes(t *testing.T) {
	engine := NewWithOptions()
	engine.RegisterElement("name-list",
		`<ul><template is="dom-repeat" items="{{people}}"><li class$="{{itemClass}}">{{item}}</li></template></ul>`,
		TemplateData{"itemClass": "plain"})

	source := `<root><template><section><name-list people="{{names}}" item-class="strong"><p>discarded</p></name-list></section></template></root>`
	got := renderForTest(t, engine, source, TemplateData{"names": []string{"Ann", "Bo"}})

	want := `<section><ul><li class="strong">Ann</li><li class="strong">Bo</li></ul></section>`
	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderPartialCallableDefault(t *testing.T) {
	engine := NewWithOptions()
	engine.RegisterElement("price-tag", `<root><template><b>{{format(amount)}}</b></template></root>`, TemplateData{
		"format": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	})

	got := renderForTest(t, engine, `<root><template><price-tag amount="{{price}}"></price-tag></template></root>`, TemplateData{"price": 3.5})
	if got != "<b>$3.50</b>" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderPartialInsideRepeat(t *testing.T) {
	engine := NewWithOptions()
	engine.RegisterElement("emp-card", `<root><template><div>{{employee.first}} #{{position}}</div></template></root>`, nil)

	source := `<root><template><template is="dom-repeat" items="{{employees}}" as="employee"><emp-card position="{{index}}"></emp-card></template></template></root>`
	got := renderForTest(t, engine, source, TemplateData{"employees": employees()})

	want := "<div>Steven #0</div><div>John #1</div>"
	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderUnregisteredElementPassesThrough(t *testing.T) {
	engine := NewWithOptions()
	got := renderForTest(t, engine, `<root><template><x-card data-id$="{{id}}"><b>{{title}}</b></x-card></template></root>`,
		TemplateData{"id": 7, "title": "T"})

	if got != `<x-card data-id="7"><b>T</b></x-card>` {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderMaxDepth(t *testing.T) {
	engine := NewWithOptions(WithMaxRenderDepth(5))
	engine.RegisterElement("self-ref", `<root><template><i><self-ref></self-ref></i></template></root>`, nil)

	tmpl, err := engine.Compile(`<root><template><self-ref></self-ref></template></root>`, OutputString)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	_, err = tmpl.Render(nil)
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Fatalf("Render() error = %v, want ErrMaxDepthExceeded", err)
	}
}

func TestRenderDepthWithinLimit(t *testing.T) {
	engine := NewWithOptions(WithMaxRenderDepth(2))
	engine.RegisterElement("inner-el", `<b>{{v}}</b>`, nil)
	engine.RegisterElement("outer-el", `<i><inner-el></inner-el></i>`, nil)

	got := renderForTest(t, engine, `<root><template><outer-el v="1"></outer-el></template></root>`, nil)
	if got != "<i><b>1</b></i>" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderStructContext(t *testing.T) {
	type address struct{ City string }
	type person struct {
		Name    string
		Tags    []string
		Address address
	}

	engine := NewWithOptions()
	source := `<root><template><p>{{person.name}} from {{person.address.city}}: {{person.tags}}</p></template></root>`
	got := renderForTest(t, engine, source, TemplateData{
		"person": person{Name: "Ann", Tags: []string{"a", "b"}, Address: address{City: "Oslo"}},
	})

	if got != "<p>Ann from Oslo: a,b</p>" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderComments(t *testing.T) {
	engine := NewWithOptions()
	got := renderForTest(t, engine, `<root><template><!-- user {{id}} --><p>x</p></template></root>`, TemplateData{"id": 9})
	if got != "<!-- user 9 --><p>x</p>" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderConcurrent(t *testing.T) {
	engine := NewWithOptions()
	engine.RegisterElement("my-item", `<li>{{label}}</li>`, nil)
	source := `<root><template><ul><template is="dom-repeat" items="{{list}}"><my-item label="{{item}}"></my-item></template></ul></template></root>`

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tmpl, err := engine.Compile(source, OutputString)
			if err != nil {
				errs <- err
				return
			}
			got, err := tmpl.RenderString(TemplateData{"list": []int{i}})
			if err != nil {
				errs <- err
				return
			}
			if want := fmt.Sprintf("<ul><li>%d</li></ul>", i); got != want {
				errs <- fmt.Errorf("got %q, want %q", got, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestRenderPreformattedInsideRepeat(t *testing.T) {
	engine := NewWithOptions()
	source := `<root><template>` +
		`<template is="dom-repeat" items="{{items}}"><pre>` + "\n\n" + `{{item}}</pre><textarea>` + "\n" + `{{item}}</textarea></template>` +
		`<pre>` + "\n\n" + `{{first}}</pre><textarea>` + "\n" + `{{first}}</textarea>` +
		`</template></root>`

	got := renderForTest(t, engine, source, TemplateData{"items": []interface{}{1, 2}, "first": 1})
	block := "<pre>\n\n1</pre><textarea>1</textarea>"
	want := block + "<pre>\n\n2</pre><textarea>2</textarea>" + block
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}
