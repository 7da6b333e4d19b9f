package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

// SafeHTML is a template function that marks a string as safe HTML
func SafeHTML(s interface{}) template.HTML {
	switch v := s.(type) {
	case string:
		return template.HTML(v)
	case template.HTML:
		return v
	default:
		return template.HTML("")
	}
}

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"safeHTML": SafeHTML,
	}

	templateContent, err := templateFS.ReadFile("templates/report.html")
	if err != nil {
		// Fallback to built-in template if file not found
		reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for report template rendering
type TemplateData struct {
	Title     string
	Client    string
	Status    string
	Author    string
	UpdatedAt time.Time
	Sections  []TemplateSection
	Comments  []TemplateComment
}

// TemplateSection holds one rendered section
type TemplateSection struct {
	Title       string
	Depth       int
	Status      string
	ContentHTML template.HTML
}

// TemplateComment holds one open comment for the discussion appendix
type TemplateComment struct {
	SectionTitle string
	SelectedText string
	CommentText  string
	Suggestion   string
	Author       string
}

// RenderReportHTML renders the report template with provided data
func RenderReportHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    mark.comment { background: #fff3bf; }
    mark.selection { background: #d0ebff; }
    .comment-item { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{if .Client}}<p>{{.Client}}</p>{{end}}
  <div class="meta">{{.Status}} | {{.Author}} | {{.UpdatedAt.Format "Jan 2, 2006"}}</div>
  {{range .Sections}}
  {{if eq .Depth 0}}<h2>{{.Title}}</h2>{{else}}<h3>{{.Title}}</h3>{{end}}
  <div>{{.ContentHTML | safeHTML}}</div>
  {{end}}
  {{if .Comments}}
  <h2>Open Comments</h2>
  {{range .Comments}}<div class="comment-item"><strong>{{.SectionTitle}}</strong>: &ldquo;{{.SelectedText}}&rdquo; {{.CommentText}} ({{.Author}})</div>{{end}}
  {{end}}
</body>
</html>`
