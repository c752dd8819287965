package docmodel

import (
	"regexp"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
)

// LineOffset returns the number of file lines preceding the body.
//
// If the document has YAML front matter, this accounts for:
// - opening delimiter line
// - all raw front matter lines
// - closing delimiter line
//
// The relationship is: fileLine = LineOffset() + bodyLine.
func (d *ParsedDoc) LineOffset() int {
	if !d.hadFM {
		return 0
	}
	return 2 + strings.Count(string(d.fmRaw), "\n")
}

// KeyLine returns the 1-based file line where the top-level front matter key
// is declared, or 0 when the key is absent.
func (d *ParsedDoc) KeyLine(key string) int {
	if !d.hadFM {
		return 0
	}
	n := frontmatter.KeyLine(d.fmRaw, key)
	if n == 0 {
		return 0
	}
	// Opening delimiter occupies line 1.
	return n + 1
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

func lineFromYAMLError(err error) (int, bool) {
	m := yamlLineRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	n, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0, false
	}
	return n, true
}

// KeyLines returns the file line of every top-level front matter key.
func (d *ParsedDoc) KeyLines() map[string]int {
	if !d.hadFM {
		return map[string]int{}
	}
	lines := frontmatter.KeyLines(d.fmRaw)
	out := make(map[string]int, len(lines))
	for k, n := range lines {
		out[k] = n + 1
	}
	return out
}
