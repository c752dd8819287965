package resolver

import (
	"fmt"
	"time"
)

// templates lists the template strings authored for an expandable field.
func templates(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (st *state) expandField(field string) ([]ExpandedValue, error) {
	v, ok := st.fm[field]
	if !ok || v == nil {
		return nil, nil
	}

	switch val := v.(type) {
	case string:
		return st.expandTemplate(val, field)
	case []any:
		out := make([]ExpandedValue, 0, len(val))
		for i, item := range val {
			key := fmt.Sprintf("%s[%d]", field, i)
			var tmpl string
			switch it := item.(type) {
			case string:
				tmpl = it
			case []any:
				return nil, &VariableError{Kind: ErrMultidimensionalExpansion, Name: field, Key: key}
			default:
				s, err := scalarString(it, field, key)
				if err != nil {
					return nil, err
				}
				tmpl = s
			}
			values, err := st.expandTemplate(tmpl, key)
			if err != nil {
				return nil, err
			}
			out = append(out, values...)
		}
		return out, nil
	default:
		s, err := scalarString(val, field, field)
		if err != nil {
			return nil, err
		}
		return []ExpandedValue{NewExpandedValue(s)}, nil
	}
}

type dimension struct {
	ref    ref
	values []any
}

// expandTemplate produces the Cartesian product over every array variable
// referenced in tmpl. Dimensions are ordered by first appearance and the
// last one varies fastest.
func (st *state) expandTemplate(tmpl, key string) ([]ExpandedValue, error) {
	var dims []dimension
	scalars := make(map[string]string)

	for _, rf := range refsIn(tmpl) {
		v, err := st.value(rf, key)
		if err != nil {
			return nil, err
		}
		arr, isArray := v.([]any)
		if !isArray {
			s, err := scalarString(v, rf.name, key)
			if err != nil {
				return nil, err
			}
			scalars[rf.token] = s
			continue
		}
		for _, elem := range arr {
			switch elem.(type) {
			case []any:
				return nil, &VariableError{Kind: ErrMultidimensionalExpansion, Name: rf.name, Key: key}
			case bool, map[string]any, map[any]any, nil:
				return nil, unsupported(rf.name, key, elem)
			}
		}
		dims = append(dims, dimension{ref: rf, values: arr})
	}

	total := 1
	for _, d := range dims {
		total *= len(d.values)
	}
	out := make([]ExpandedValue, 0, total)
	if total == 0 {
		return out, nil
	}

	idx := make([]int, len(dims))
	for n := 0; n < total; n++ {
		choice := make(map[string]string, len(dims))
		var iterators map[string]any
		if len(dims) > 0 {
			iterators = make(map[string]any, len(dims))
		}
		for i, d := range dims {
			elem := d.values[idx[i]]
			choice[d.ref.token] = elementString(elem)
			iterators[d.ref.name] = iteratorValue(elem)
		}

		evaluated := refPattern.ReplaceAllStringFunc(tmpl, func(tok string) string {
			if s, ok := choice[tok]; ok {
				return s
			}
			return scalars[tok]
		})
		out = append(out, ExpandedValue{evaluated: evaluated, iterators: iterators})

		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(dims[i].values) {
				break
			}
			idx[i] = 0
		}
	}
	return out, nil
}

func elementString(v any) string {
	if t, ok := v.(time.Time); ok {
		return formatTime(t)
	}
	s, _ := scalarString(v, "", "")
	return s
}
