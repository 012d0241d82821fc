package server

import (
	"embed"
	"html/template"
)

const pageTemplate = "page.html"

//go:embed templates/*.html
var templateFiles embed.FS

// ParseTemplate parses one of the embedded page templates by file name.
func ParseTemplate(name string) (*template.Template, error) {
	return template.ParseFS(templateFiles, "templates/"+name)
}
