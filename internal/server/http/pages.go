package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/dmitrijs2005/logingate/internal/server/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

func parsePages() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"email": func(p *models.Principal) string { return p.EmailOrEmpty() },
	}).ParseFS(templatesFS, "templates/*.html")
}

type indexPage struct {
	Principal *models.Principal
	Roles     []models.RoleConfig
}

type providerLink struct {
	Title string
	Path  string
}

type loginPage struct {
	Role      models.RoleConfig
	Errors    []string
	Successes []string
	Providers []providerLink
}

type dashboardPage struct {
	Role      models.RoleConfig
	Principal *models.Principal
}

// render executes name into a buffer first so a template error still
// produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.internalError(w, r, "template render failed", err)
		return
	}
	if err := s.commit(w, r); err != nil {
		s.internalError(w, r, "session save failed", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
