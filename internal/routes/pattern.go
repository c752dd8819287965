package routes

import (
	"regexp"
	"strings"

	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
)

// ToPattern converts a permalink template to a route pattern.
//
//	/blog/%year/%title/   -> /blog/{year}/{title}/
//	/%{site.lang}/about/  -> /{site_lang}/about/
func ToPattern(permalink string) string {
	return resolver.ReplaceReferences(permalink, func(name string, _ bool) string {
		return "{" + strings.ReplaceAll(name, ".", "_") + "}"
	})
}

var paramRe = regexp.MustCompile(`\{([A-Za-z0-9_\-]+)\}`)

// compile builds the matcher of pattern. Parameters match one path segment,
// except a parameter forming the whole last segment, which matches the rest
// of the path. A trailing slash is optional when matching.
func compile(pattern string) (*regexp.Regexp, []string) {
	trimmed := strings.TrimSuffix(pattern, "/")
	lastSeg := trimmed[strings.LastIndex(trimmed, "/")+1:]
	relaxLast := paramRe.FindString(lastSeg) == lastSeg && lastSeg != ""

	var (
		b      strings.Builder
		params []string
		pos    int
	)
	b.WriteString("^")
	locs := paramRe.FindAllStringSubmatchIndex(trimmed, -1)
	for i, loc := range locs {
		b.WriteString(regexp.QuoteMeta(trimmed[pos:loc[0]]))
		params = append(params, trimmed[loc[2]:loc[3]])
		if relaxLast && i == len(locs)-1 {
			b.WriteString("(.+?)")
		} else {
			b.WriteString("([^/]+)")
		}
		pos = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(trimmed[pos:]))
	b.WriteString("/?$")
	return regexp.MustCompile(b.String()), params
}

// expand substitutes params into pattern.
func expand(pattern string, params map[string]string) string {
	return paramRe.ReplaceAllStringFunc(pattern, func(tok string) string {
		if v, ok := params[tok[1:len(tok)-1]]; ok {
			return v
		}
		return tok
	})
}
