package docmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedDoc_LineOffset_NoFrontmatter(t *testing.T) {
	doc, err := Parse([]byte("# Title\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, doc.LineOffset())
}

func TestParsedDoc_LineOffset_WithFrontmatter(t *testing.T) {
	content := "---\n" +
		"title: x\n" +
		"permalink: /x/\n" +
		"---\n" +
		"# Body\n"

	doc, err := Parse([]byte(content), Options{})
	require.NoError(t, err)

	// Body line 1 is file line 5.
	assert.Equal(t, 4, doc.LineOffset())
	assert.Equal(t, 5, doc.LineOffset()+1)
}

func TestParsedDoc_KeyLine(t *testing.T) {
	content := "---\n" +
		"title: x\n" +
		"permalink: /blog/%title/\n" +
		"---\n" +
		"body\n"

	doc, err := Parse([]byte(content), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, doc.KeyLine("title"))
	assert.Equal(t, 3, doc.KeyLine("permalink"))
	assert.Equal(t, 0, doc.KeyLine("nope"))
	assert.Equal(t, map[string]int{"title": 2, "permalink": 3}, doc.KeyLines())

	plain, err := Parse([]byte("body\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, plain.KeyLine("title"))
	assert.Empty(t, plain.KeyLines())
}
