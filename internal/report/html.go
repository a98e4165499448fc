package report

import (
	"bytes"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/hpungsan/advdiff/internal/ops"
)

// markdown converts report Markdown to HTML. Raw HTML is let through so the
// <mark> tags survive; all dataset text reaching it is escaped first.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; color: #1d1f21; }
blockquote { margin: 0 0 1rem; padding: .5rem 1rem; border-left: 4px solid #d0d7de; background: #f6f8fa; white-space: normal; }
mark { background: #c8f7c5; color: #116329; font-weight: bold; }
table { border-collapse: collapse; }
th, td { border: 1px solid #d0d7de; padding: .25rem .75rem; }
hr { border: 0; border-top: 1px dashed #d0d7de; margin: 1.5rem 0; }
footer { margin-top: 2rem; color: #6e7781; font-size: .85rem; }
</style>
</head>
<body>
{{.Body}}
{{if .Version}}<footer>advdiff {{.Version}}</footer>{{end}}
</body>
</html>
`))

// HTMLBody renders the comparison as an HTML fragment.
func HTMLBody(out *ops.CompareOutput) (template.HTML, error) {
	var md bytes.Buffer
	if err := Markdown(&md, out); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := markdown.Convert(md.Bytes(), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec // all dataset text is escaped before conversion
}

// HTML writes the comparison as a standalone HTML page.
func HTML(w io.Writer, out *ops.CompareOutput, version string) error {
	body, err := HTMLBody(out)
	if err != nil {
		return err
	}
	return pageTemplate.Execute(w, struct {
		Title   string
		Body    template.HTML
		Version string
	}{
		Title:   "advdiff: " + out.Dataset,
		Body:    body,
		Version: version,
	})
}
