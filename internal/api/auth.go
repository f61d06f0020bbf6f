package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/cafedir/internal/admin"
)

const (
	loginPath     = "/admin/login"
	dashboardPath = "/admin"
)

// AdminAuth is embedded in the input of every admin operation.
type AdminAuth struct {
	Authorization string `header:"Authorization" doc:"Bearer admin token"`
	Session       string `cookie:"admin_token" doc:"Admin session cookie set by /admin/login"`
}

func (a AdminAuth) Credentials() admin.Credentials {
	return admin.Credentials{Authorization: a.Authorization, Session: a.Session}
}

func credentialsFromRequest(r *http.Request) admin.Credentials {
	c := admin.Credentials{Authorization: r.Header.Get("Authorization")}
	if cookie, err := r.Cookie(admin.CookieName); err == nil {
		c.Session = cookie.Value
	}
	return c
}

func credentialsFromContext(ctx huma.Context) admin.Credentials {
	c := admin.Credentials{Authorization: ctx.Header("Authorization")}
	if cookie, err := huma.ReadCookie(ctx, admin.CookieName); err == nil {
		c.Session = cookie.Value
	}
	return c
}

// redirectBrowsers sends non-admin callers that prefer HTML to the login
// page. API callers fall through and get a 403 from the operation itself.
func redirectBrowsers(gate *admin.Gate) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if admin.PrefersHTML(ctx.Header("Accept")) && !gate.IsAdmin(credentialsFromContext(ctx)) {
			ctx.SetHeader("Location", loginPath)
			ctx.SetStatus(http.StatusSeeOther)
			return
		}
		next(ctx)
	}
}
