package web

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-foodscore/api"
	"github.com/jrsteele09/go-foodscore/guard"
	"github.com/rs/zerolog/log"
)

// guardRenderer shows a guard visit over HTTP. An HTTP response cannot show a loading
// state and then replace it, so Loading only keeps the outcome out of caches.
type guardRenderer struct {
	w    http.ResponseWriter
	r    *http.Request
	next http.HandlerFunc
}

func (g *guardRenderer) Loading() {
	g.w.Header().Set("Cache-Control", "no-store")
}

func (g *guardRenderer) Content() {
	g.next(g.w, g.r)
}

// Redirect uses 303 so the guarded URL is not kept as the page the browser returns to
func (g *guardRenderer) Redirect(path string) {
	redirectSuccess(g.w, g.r, path)
}

var _ guard.Renderer = (*guardRenderer)(nil)

// RequireSession runs a fresh guard visit for every request to a protected page
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.guard.Enter(r.Context(), &guardRenderer{w: w, r: r, next: next})
	}
}

// RehydrateSession re-reads the persisted session before a public page so it never renders
// or fetches on a copy another process has since replaced or cleared
func (s *Server) RehydrateSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.CheckAuth(r.Context())
		next(w, r)
	}
}

// dropRejectedSession logs out when the backend no longer accepts the stored access token
func (s *Server) dropRejectedSession(ctx context.Context, err error) {
	if api.IsUnauthorized(err) {
		log.Info().Msg("backend rejected the access token, logging out")
		s.auth.Logout(ctx)
	}
}

func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
