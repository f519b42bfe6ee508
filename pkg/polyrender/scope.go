package polyrender

import "strings"

// scope is the explicit lookup context of one render: the caller's data plus the
// defaults declared for the program being executed. Lookups never write to data.
type scope struct {
	data     TemplateData
	defaults map[string]DefaultKind
}

func newScope(data TemplateData, decls []Declaration) *scope {
	if data == nil {
		data = TemplateData{}
	}
	defaults := make(map[string]DefaultKind, len(decls))
	for _, d := range decls {
		if _, ok := defaults[d.Path]; !ok {
			defaults[d.Path] = d.Default
		}
	}
	return &scope{data: data, defaults: defaults}
}

// lookup resolves a dotted path. If any segment is missing, the declared default of
// the full path is returned, or nil for an undeclared path.
func (s *scope) lookup(parts []string) interface{} {
	if val, ok := s.resolve(parts); ok {
		return val
	}
	if kind, ok := s.defaults[strings.Join(parts, ".")]; ok {
		return kind.value()
	}
	return nil
}

// resolve walks parts through the data without applying defaults.
func (s *scope) resolve(parts []string) (interface{}, bool) {
	var cur interface{} = s.data
	for _, part := range parts {
		val, ok := fieldOf(cur, part)
		if !ok {
			return nil, false
		}
		cur = val
	}
	return cur, true
}

// extend returns a copy of the data with vars set on top. The copy is shallow.
func (s *scope) extend(vars TemplateData) TemplateData {
	out := make(TemplateData, len(s.data)+len(vars))
	for k, v := range s.data {
		out[k] = v
	}
	for k, v := range vars {
		out[k] = v
	}
	return out
}
