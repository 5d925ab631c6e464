package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/garderoba/internal/auth"
	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/planner"
	webembed "github.com/erazemk/garderoba/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

var subcategoryNames = map[model.Subcategory]string{
	model.ShortSleeve:     "Short sleeve",
	model.LongSleeveLight: "Long sleeve (light)",
	model.LongSleeveHeavy: "Long sleeve (heavy)",
	model.Short:           "Shorts",
	model.Long:            "Long pants",
}

func subcategoryName(sub model.Subcategory) string {
	if name, ok := subcategoryNames[sub]; ok {
		return name
	}
	return string(sub)
}

func purposeName(p string) string {
	switch p {
	case model.PurposeUniversity:
		return "University"
	case model.PurposeWork:
		return "Work"
	case model.PurposeDate:
		return "Date"
	default:
		return p
	}
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleAtLeast": model.RoleAtLeast,
		"roleName": func(role string) string {
			switch role {
			case model.RoleAdmin:
				return "Administrator"
			case model.RoleUser:
				return "User"
			default:
				return role
			}
		},
		"purposeName":     purposeName,
		"subcategoryName": subcategoryName,
		"kindName": func(k model.Kind) string {
			return subcategoryName(k.Subcategory())
		},
		"purposeList": func(purposes []string) string {
			names := make([]string, len(purposes))
			for i, p := range purposes {
				names[i] = purposeName(p)
			}
			return strings.Join(names, ", ")
		},
		"date": func(t time.Time) string {
			return t.Format(model.DateLayout)
		},
		"lastWorn": func(t *time.Time) string {
			if t == nil {
				return "never"
			}
			return t.Format(model.DateLayout)
		},
		"temperature": func(t *float64) string {
			if t == nil {
				return "n/a"
			}
			return fmt.Sprintf("%.1f °C", *t)
		},
		"percent": func(f float64) string {
			return fmt.Sprintf("%.0f%%", f)
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"dashboard.html",
		"closet.html",
		"clothing_form.html",
		"calendar.html",
		"schedule_form.html",
		"users.html",
		"settings.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with a non-default status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *auth.Claims
	Error   string
	Success string
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB        *sql.DB
	Templates *Templates
	Tokens    *auth.Tokens
	Planner   *planner.Planner
	Now       func() time.Time
}

func (s *Server) page(r *http.Request, title string) PageData {
	return PageData{Title: title, User: GetWebClaims(r.Context())}
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
