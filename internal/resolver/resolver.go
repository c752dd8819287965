package resolver

import (
	"fmt"
	"sort"
)

// FrontMatter is the decoded front matter of one document.
type FrontMatter = map[string]any

// DefaultExpandable lists the fields that may reference arrays.
var DefaultExpandable = []string{"permalink"}

// Options configures a Resolver.
type Options struct {
	// Overrides are merged into the front matter before resolution and win
	// over same-named fields.
	Overrides map[string]any
	// Complex is the scope addressed by %{dotted.path}.
	Complex Scope
	// Expandable defaults to DefaultExpandable when nil.
	Expandable []string
}

// Resolved is the outcome of resolving one document's front matter.
type Resolved struct {
	Fields FrontMatter
	// Expansions holds every candidate produced for each expandable field.
	// Fields[field] holds the first candidate.
	Expansions map[string][]ExpandedValue
}

// Candidates returns the evaluated candidates for field.
func (r *Resolved) Candidates(field string) []string {
	return Evaluated(r.Expansions[field])
}

// String returns a resolved field as a string, or "" when absent.
func (r *Resolved) String(field string) string {
	if s, ok := r.Fields[field].(string); ok {
		return s
	}
	return ""
}

// Strings returns a resolved field as a list of strings. A scalar string
// yields a single element list.
func (r *Resolved) Strings(field string) []string {
	switch v := r.Fields[field].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Resolver interpolates front matter against an override scope and a complex scope.
type Resolver struct {
	overrides  map[string]any
	complex    Scope
	expandable map[string]bool
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	fields := opts.Expandable
	if fields == nil {
		fields = DefaultExpandable
	}
	r := &Resolver{
		overrides:  make(map[string]any, len(opts.Overrides)),
		complex:    opts.Complex,
		expandable: make(map[string]bool, len(fields)),
	}
	for k, v := range opts.Overrides {
		r.overrides[k] = deepCopy(v)
	}
	for _, f := range fields {
		r.expandable[f] = true
	}
	return r
}

// WithOverrides returns a Resolver sharing the complex scope with extra
// overrides layered on top of the existing ones.
func (r *Resolver) WithOverrides(overrides map[string]any) *Resolver {
	out := &Resolver{
		overrides:  make(map[string]any, len(r.overrides)+len(overrides)),
		complex:    r.complex,
		expandable: r.expandable,
	}
	for k, v := range r.overrides {
		out.overrides[k] = v
	}
	for k, v := range overrides {
		out.overrides[k] = deepCopy(v)
	}
	return out
}

// Resolve interpolates every string in raw and expands expandable fields.
// raw is never modified.
func (r *Resolver) Resolve(raw FrontMatter) (*Resolved, error) {
	st, err := r.prepare(raw)
	if err != nil {
		return nil, err
	}

	res := &Resolved{
		Fields:     make(FrontMatter, len(st.fm)),
		Expansions: make(map[string][]ExpandedValue),
	}
	for _, k := range sortedKeys(st.fm) {
		if r.expandable[k] {
			values, err := st.expandField(k)
			if err != nil {
				return nil, err
			}
			if values == nil {
				res.Fields[k] = st.fm[k]
				continue
			}
			res.Expansions[k] = values
			if len(values) > 0 {
				res.Fields[k] = values[0].Evaluated()
			}
			continue
		}
		v, err := st.walk(st.fm[k], k, true)
		if err != nil {
			return nil, err
		}
		res.Fields[k] = v
	}
	return res, nil
}

// Expand resolves a single expandable field. A string yields its expansion;
// a sequence of template strings yields the concatenated expansions in
// declaration order. An absent field yields nil.
func (r *Resolver) Expand(raw FrontMatter, field string) ([]ExpandedValue, error) {
	st, err := r.prepare(raw)
	if err != nil {
		return nil, err
	}
	return st.expandField(field)
}

// Pattern substitutes the references of s that resolve to scalars and leaves
// array valued or undefined references untouched.
func (r *Resolver) Pattern(s string, fm FrontMatter) string {
	st, err := r.prepare(fm)
	if err != nil {
		st = &state{r: r, fm: FrontMatter{}, resolved: map[string]string{}}
	}
	return refPattern.ReplaceAllStringFunc(s, func(tok string) string {
		rf := parseRef(tok)
		v, err := st.value(rf, "")
		if err != nil {
			return tok
		}
		str, err := scalarString(v, rf.name, "")
		if err != nil {
			return tok
		}
		return str
	})
}

// HasExpansion reports whether field references at least one array variable.
func (r *Resolver) HasExpansion(raw FrontMatter, field string) bool {
	st, err := r.prepare(raw)
	if err != nil {
		return false
	}
	for _, tmpl := range templates(st.fm[field]) {
		for _, rf := range refsIn(tmpl) {
			if v, err := st.value(rf, field); err == nil {
				if _, ok := v.([]any); ok {
					return true
				}
			}
		}
	}
	return false
}

// state is the working copy used by a single resolution call.
type state struct {
	r        *Resolver
	fm       FrontMatter
	resolved map[string]string
	stack    []string
}

func (r *Resolver) prepare(raw FrontMatter) (*state, error) {
	fm, _ := deepCopy(raw).(map[string]any)
	if fm == nil {
		fm = make(FrontMatter)
	}
	for k, v := range r.overrides {
		fm[k] = v
	}

	if d, ok := fm["date"]; ok && d != nil {
		t, err := DeriveDate(d)
		if err != nil {
			return nil, &VariableError{Kind: ErrInvalidDate, Name: "date", Key: "date", Detail: fmt.Sprint(d)}
		}
		fm["date"] = t
		derived := map[string]any{"year": t.Year(), "month": int(t.Month()), "day": t.Day()}
		for k, v := range derived {
			if _, overridden := r.overrides[k]; !overridden {
				fm[k] = v
			}
		}
	}

	return &state{r: r, fm: fm, resolved: make(map[string]string)}, nil
}

// value looks a reference up in its scope. String values of top-level
// front matter fields are resolved recursively.
func (st *state) value(rf ref, key string) (any, error) {
	if !rf.complex {
		v, ok := st.fm[rf.name]
		if !ok || v == nil {
			return nil, undefined(rf.name, key)
		}
		if _, isString := v.(string); isString {
			return st.resolveField(rf.name)
		}
		return v, nil
	}

	// Dotted overrides come from iterators over complex arrays and shadow
	// the complex scope.
	if v, ok := st.fm[rf.name]; ok && v != nil {
		if _, isString := v.(string); isString {
			return st.resolveField(rf.name)
		}
		return v, nil
	}
	v, ok := st.r.complex.Lookup(rf.name)
	if !ok {
		return nil, undefined(rf.name, key)
	}
	return v, nil
}

// resolveField interpolates the top-level string field name once, detecting cycles.
func (st *state) resolveField(name string) (string, error) {
	if s, ok := st.resolved[name]; ok {
		return s, nil
	}
	for _, active := range st.stack {
		if active == name {
			return "", &VariableError{Kind: ErrCircularReference, Name: name, Key: st.stack[0]}
		}
	}
	raw, _ := st.fm[name].(string)

	st.stack = append(st.stack, name)
	out, err := st.interpolate(raw, name)
	st.stack = st.stack[:len(st.stack)-1]
	if err != nil {
		return "", err
	}
	st.resolved[name] = out
	return out, nil
}

// interpolate substitutes every reference in s, left to right.
func (st *state) interpolate(s, key string) (string, error) {
	var firstErr error
	out := refPattern.ReplaceAllStringFunc(s, func(tok string) string {
		if firstErr != nil {
			return tok
		}
		rf := parseRef(tok)
		v, err := st.value(rf, key)
		if err != nil {
			firstErr = err
			return tok
		}
		str, err := scalarString(v, rf.name, key)
		if err != nil {
			firstErr = err
			return tok
		}
		return str
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// walk resolves v depth first. top marks values stored directly under a
// top-level key, whose strings share the recursive resolution cache.
func (st *state) walk(v any, key string, top bool) (any, error) {
	switch val := v.(type) {
	case string:
		if top {
			return st.resolveField(key)
		}
		return st.interpolate(val, key)
	case map[string]any:
		out := make(map[string]any, len(val))
		for _, k := range sortedKeys(val) {
			child, err := st.walk(val[k], key+"."+k, false)
			if err != nil {
				return nil, err
			}
			out[k] = child
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			child, err := st.walk(item, fmt.Sprintf("%s[%d]", key, i), false)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	default:
		return v, nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
