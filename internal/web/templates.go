package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"auth-portal/internal/logger"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// render executes into a buffer first so a template failure never
// leaves a half-written page behind.
func render(c *gin.Context, status int, name string, view any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		logger.Error("render failed", map[string]any{"template": name, "error": err.Error()})
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
