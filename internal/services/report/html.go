package report

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, Segoe UI, Helvetica, Arial, sans-serif; max-width: 960px; margin: 2em auto; color: #222; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 4px 8px; }
th { background: #eee; }
td { text-align: right; }
td:first-child { text-align: left; }
img { max-width: 100%%; }
</style>
</head>
<body>
%s
<h2>Charts</h2>
<p><img src="%s" alt="Correlation heatmap"></p>
<p><img src="%s" alt="Returns by lunar phase"></p>
</body>
</html>
`

// HTML converts the markdown report into a standalone page that links the charts.
func HTML(markdown []byte) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithXHTML()),
	)
	var body bytes.Buffer
	if err := md.Convert(markdown, &body); err != nil {
		return nil, fmt.Errorf("convert markdown to html: %w", err)
	}
	page := fmt.Sprintf(htmlTemplate, html.EscapeString(reportTitle), body.String(), FileHeatmap, FileBarChart)
	return []byte(page), nil
}
