package site

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	Title      string
	Stylesheet string
	Nav        template.HTML
	Body       template.HTML
	LiveReload string
}
