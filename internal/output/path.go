package output

import (
	"path"
	"strings"
)

// TargetPath maps a permalink to a slash separated file path relative to the
// output root. Directory style permalinks get an index.html, permalinks
// with an extension are kept as they are.
//
//	/blog/hello/   -> blog/hello/index.html
//	/feed.xml      -> feed.xml
//	/about         -> about/index.html
func TargetPath(permalink string) string {
	trailing := strings.HasSuffix(permalink, "/")
	clean := strings.TrimPrefix(path.Clean("/"+permalink), "/")
	if clean == "" {
		return "index.html"
	}
	if trailing || path.Ext(path.Base(clean)) == "" {
		return clean + "/index.html"
	}
	return clean
}

// NormalizePermalink ensures a leading slash and collapses duplicate separators
// while keeping a trailing slash.
func NormalizePermalink(permalink string) string {
	if permalink == "" {
		return "/"
	}
	trailing := strings.HasSuffix(permalink, "/")
	clean := path.Clean("/" + permalink)
	if trailing && clean != "/" {
		clean += "/"
	}
	return clean
}
