package api

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/ryanbastic/cafedir/internal/admin"
	"github.com/ryanbastic/cafedir/internal/metrics"
	"github.com/ryanbastic/cafedir/internal/moderation"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type loginPage struct {
	Failed bool
}

type dashboardRow struct {
	Field    string
	Original string
	Proposed string
	Changed  bool
}

type dashboardRequest struct {
	RequestID    int64
	CafeName     string
	CafeRevision int64
	Submitted    string
	Rows         []dashboardRow
}

type dashboardPage struct {
	Requests []dashboardRequest
}

// AdminHandler serves the browser-facing admin pages.
type AdminHandler struct {
	workflow *moderation.Workflow
	gate     *admin.Gate
	logger   *slog.Logger
}

func NewAdminHandler(workflow *moderation.Workflow, gate *admin.Gate, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{workflow: workflow, gate: gate, logger: logger}
}

func (h *AdminHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "login.html", loginPage{})
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, "login.html", loginPage{Failed: true})
		return
	}

	cookie, ok := h.gate.Login(r.PostFormValue("token"))
	metrics.RecordLogin(ok)
	if !ok {
		h.logger.Warn("admin login failed", "remote_addr", r.RemoteAddr, "request_id", RequestIDFrom(r.Context()))
		h.render(w, http.StatusUnauthorized, "login.html", loginPage{Failed: true})
		return
	}

	http.SetCookie(w, cookie)
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.gate.Logout())
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// Dashboard lists pending requests with approve and reject controls.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	views, err := h.workflow.ListForAdmin(r.Context(), credentialsFromRequest(r))
	if errors.Is(err, admin.ErrUnauthorized) {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.logger.Error("failed to load admin dashboard", "error", err)
		http.Error(w, "failed to load update requests", http.StatusInternalServerError)
		return
	}

	page := dashboardPage{Requests: make([]dashboardRequest, 0, len(views))}
	for _, v := range views {
		req := dashboardRequest{
			RequestID:    v.RequestID,
			CafeName:     v.CafeName,
			CafeRevision: v.CafeRevision,
			Submitted:    v.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
		}
		for _, f := range v.Fields {
			row := dashboardRow{Field: f.Field, Original: display(f.Original)}
			if f.Proposed != nil {
				row.Proposed = display(f.Proposed)
				row.Changed = true
			}
			req.Rows = append(req.Rows, row)
		}
		page.Requests = append(page.Requests, req)
	}
	h.render(w, http.StatusOK, "admin.html", page)
}

func (h *AdminHandler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("failed to render template", "template", name, "error", err)
	}
}

// display formats a diff value for the dashboard. A bool false renders as
// "No" rather than disappearing.
func display(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
