package templates

import (
	"html/template"
	"strings"
	"unicode"

	"github.com/spf13/cast"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/pagebuilder/internal/markdown"
	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
)

// FuncMap returns the helper functions available to every template.
func FuncMap(baseURL string) template.FuncMap {
	return template.FuncMap{
		"urlize":      Urlize,
		"markdownify": markdownify,
		"dateFormat":  dateFormat,
		"absURL":      func(p string) string { return AbsURL(baseURL, p) },
		"safeHTML":    func(s string) template.HTML { return template.HTML(s) }, // #nosec G203 -- explicit opt-in by template authors
		"default": func(def, v any) any {
			if v == nil || cast.ToString(v) == "" {
				return def
			}
			return v
		},
	}
}

// Urlize lowercases s, strips diacritics and joins words with hyphens.
func Urlize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// AbsURL joins baseURL and p with a single slash.
func AbsURL(baseURL, p string) string {
	if strings.Contains(p, "://") {
		return p
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(p, "/")
}

func markdownify(s string) (template.HTML, error) {
	out, err := markdown.Convert([]byte(s))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	// Single paragraphs are unwrapped so the helper works inline.
	if strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") && strings.Count(out, "<p>") == 1 {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return template.HTML(out), nil // #nosec G203 -- rendered from trusted site sources
}

func dateFormat(layout string, v any) (string, error) {
	t, err := resolver.DeriveDate(v)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}
