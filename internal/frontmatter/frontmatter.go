// Package frontmatter splits documents into a YAML front matter block and a body.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Style captures the newline shape of the source document.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// ErrMissingClosingDelimiter indicates the document started with a YAML
// front matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml front matter start delimiter found but closing delimiter is missing")

// ErrNotMapping is returned when the front matter block is valid YAML but not a mapping.
var ErrNotMapping = errors.New("yaml front matter must be a mapping")

// Split separates YAML front matter (`---` delimited) from the document body.
//
// If the document does not start with a front matter delimiter, had is false
// and body is the full input.
func Split(content []byte) (fm []byte, body []byte, had bool, style Style, err error) {
	style = detectStyle(content)

	nl := style.Newline
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, style, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, style, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// A closing delimiter on the final line without a trailing newline.
		tail := []byte(nl + "---")
		if bytes.HasSuffix(content, tail) {
			return content[start : len(content)-len(tail)+len(nl)], []byte{}, true, style, nil
		}
		return nil, nil, false, style, ErrMissingClosingDelimiter
	}

	end := start + idx + len(nl)
	return content[start:end], content[start+idx+len(closeSeq):], true, style, nil
}

// ParseYAML parses raw YAML front matter (without --- delimiters) into a map.
func ParseYAML(fm []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(fm)) == 0 {
		return map[string]any{}, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(fm, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return map[string]any{}, nil
	}
	if node.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: got %s", ErrNotMapping, kindName(node.Content[0].Kind))
	}

	var fields map[string]any
	if err := node.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// KeyLine returns the 1-based line within fm where the top-level key is
// declared, or 0 if the key is absent.
func KeyLine(fm []byte, key string) int {
	return KeyLines(fm)[key]
}

// KeyLines returns the 1-based line of every top-level key in fm.
func KeyLines(fm []byte) map[string]int {
	var node yaml.Node
	if err := yaml.Unmarshal(fm, &node); err != nil || len(node.Content) == 0 {
		return nil
	}
	m := node.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil
	}
	lines := make(map[string]int, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		lines[m.Content[i].Value] = m.Content[i].Line
	}
	return lines
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}

func detectStyle(content []byte) Style {
	newline := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		newline = "\r\n"
	}
	return Style{
		Newline:            newline,
		HasTrailingNewline: len(content) > 0 && content[len(content)-1] == '\n',
	}
}
