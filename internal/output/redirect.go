package output

import (
	"bytes"
	"html/template"
)

// Redirect forwards an alias URL to a canonical permalink.
type Redirect struct {
	From string `json:"from"`
	To   string `json:"to"`
}

var redirectTmpl = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ . }}</title>
<link rel="canonical" href="{{ . }}">
<meta name="robots" content="noindex">
<meta http-equiv="refresh" content="0; url={{ . }}">
</head>
<body><a href="{{ . }}">Redirecting to {{ . }}</a></body>
</html>
`))

// RedirectPage renders the HTML stub served at an alias.
func RedirectPage(to string) []byte {
	var buf bytes.Buffer
	// The template only prints a string; execution cannot fail.
	_ = redirectTmpl.Execute(&buf, to)
	return buf.Bytes()
}

// WriteRedirects writes one stub per redirect and returns the number written.
func WriteRedirects(w Writer, redirects []Redirect) (int, error) {
	n := 0
	for _, r := range redirects {
		if _, err := w.WriteFile(TargetPath(r.From), RedirectPage(r.To)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
