package web

import (
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-foodscore/navigation"
	"github.com/jrsteele09/go-foodscore/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	routeStatic     = "/static/*"
)

var pageTemplates = []string{
	"index.html",
	"login.html",
	"signup.html",
	"scan.html",
	"manual_entry.html",
	"result.html",
	"chat.html",
	"profile.html",
	"history.html",
	"not_found.html",
}

func (s *Server) initRoutes() error {
	templates := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return errors.Wrapf(err, "parse %s", name)
		}
		templates[name] = tmpl
	}
	tmpl := func(name string) *template.Template { return templates[name] }

	s.page("GET", navigation.RouteHome, s.IndexHandler(tmpl("index.html")))

	// AUTH
	s.page("GET", navigation.RouteLogin, s.LoginPageHandler(tmpl("login.html")))
	s.page("POST", navigation.RouteLogin, s.LoginSubmissionHandler(tmpl("login.html")))
	s.page("GET", navigation.RouteSignup, s.SignupPageHandler(tmpl("signup.html")))
	s.page("POST", navigation.RouteSignup, s.SignupSubmissionHandler(tmpl("signup.html")))
	s.page("GET", navigation.RouteLogout, s.LogoutHandler())
	s.page("POST", navigation.RouteLogout, s.LogoutHandler())

	// ANALYSIS
	s.page("GET", navigation.RouteScan, s.ScanPageHandler(tmpl("scan.html")))
	s.page("POST", navigation.RouteScan, s.ScanSubmissionHandler(tmpl("scan.html")))
	s.page("GET", navigation.RouteManualEntry, s.ManualEntryPageHandler(tmpl("manual_entry.html")))
	s.page("POST", navigation.RouteManualEntry, s.ManualEntrySubmissionHandler(tmpl("manual_entry.html")))
	s.page("GET", navigation.RouteResult, s.ResultHandler(tmpl("result.html")))
	s.page("GET", navigation.RouteChat, s.ChatHandler(tmpl("chat.html")))

	// PROFILE
	s.page("GET", navigation.RouteProfile, s.ProfileHandler(tmpl("profile.html")))
	s.page("GET", navigation.RouteHistory, s.HistoryHandler(tmpl("history.html")))

	s.RegisterRouteHandler("GET "+routeStatic, s.fileServer)

	notFound := tmpl("not_found.html")
	s.router.NotFound(ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		s.render(w, notFound, http.StatusNotFound, s.newPage(r, "Not found"))
	}, s.HTMLMiddleWare(s.RehydrateSession)...))
	return nil
}

// page registers a view behind the chain its route calls for: guarded routes run the route
// guard, public ones rehydrate the session so navbar state and bearer fetches match storage.
func (s *Server) page(method, route string, handler http.HandlerFunc) {
	check := s.RehydrateSession
	if navigation.IsGuarded(route) {
		check = s.RequireSession
	}
	s.RegisterRouteFunc(method+" "+route, ChainMiddleware(handler, s.HTMLMiddleWare(check)...))
}

// PageData is handed to every template
type PageData struct {
	AppName       string
	Title         string
	Path          string
	Authenticated bool
	User          *sessions.UserProfile
	Error         string
	Notice        string
	Data          any
}

func (s *Server) newPage(r *http.Request, title string) PageData {
	session := s.auth.Session()
	return PageData{
		AppName:       s.appName,
		Title:         title,
		Path:          r.URL.Path,
		Authenticated: session.IsAuthenticated,
		User:          session.User,
	}
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, status int, data PageData) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Str("template", tmpl.Name()).Msg("render failed")
	}
}
