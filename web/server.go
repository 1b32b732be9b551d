package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-foodscore/analysis"
	"github.com/jrsteele09/go-foodscore/api"
	"github.com/jrsteele09/go-foodscore/auth"
	"github.com/jrsteele09/go-foodscore/guard"
	"github.com/jrsteele09/go-foodscore/internal/config"
	"github.com/jrsteele09/go-foodscore/navigation"
	"github.com/jrsteele09/go-foodscore/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Config is the part of the application configuration the web UI reads
type Config interface {
	config.EnvConfig
	config.UIConfig
}

// Backend is the read side of the analysis backend used by the profile views
type Backend interface {
	Profile(ctx context.Context, ts oauth2.TokenSource) (*api.Profile, error)
	History(ctx context.Context, ts oauth2.TokenSource, q api.HistoryQuery) ([]api.AnalysisResult, error)
}

// Deps are the collaborators the web UI drives
type Deps struct {
	Auth       *auth.Context
	Workflow   *analysis.Workflow
	Backend    Backend
	Navigation *navigation.Store
}

type Server struct {
	env          string
	appName      string
	historyLimit int
	router       chi.Router
	routes       []string
	fileServer   http.Handler

	auth       *auth.Context
	guard      *guard.Guard
	workflow   *analysis.Workflow
	backend    Backend
	navigation *navigation.Store

	signedIn    atomic.Bool
	unsubscribe func()
}

func New(c Config, deps Deps) (*Server, error) {
	if deps.Auth == nil {
		return nil, errors.New("[web.New] auth context is required")
	}
	if deps.Workflow == nil {
		return nil, errors.New("[web.New] analysis workflow is required")
	}
	if deps.Backend == nil {
		return nil, errors.New("[web.New] backend is required")
	}
	if deps.Navigation == nil {
		deps.Navigation = navigation.NewStore(c.GetNavigationStateTTL())
	}

	s := &Server{
		env:          c.GetEnv(),
		appName:      c.GetAppName(),
		historyLimit: c.GetHistoryLimit(),
		router:       chi.NewRouter(),
		fileServer:   FileServerHandler(),
		auth:         deps.Auth,
		workflow:     deps.Workflow,
		backend:      deps.Backend,
		navigation:   deps.Navigation,
	}
	s.guard = guard.New(deps.Auth, guard.WithObserver(s.observeGuard))
	s.signedIn.Store(deps.Auth.IsAuthenticated())
	s.unsubscribe = deps.Auth.Subscribe(s.observeSession)

	if err := s.initRoutes(); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "[web.New] initRoutes")
	}
	s.logRoutes()

	return s, nil
}

// Close stops following session changes
func (s *Server) Close() {
	s.unsubscribe()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RegisterRouteHandler registers handler for a "METHOD /path" pattern
func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	method, path := splitPattern(pattern)
	if method == "" {
		s.router.Handle(path, handler)
		return
	}
	s.router.Method(method, path, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.RegisterRouteHandler(pattern, http.HandlerFunc(handler))
}

// Routes lists every registered pattern
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func splitPattern(pattern string) (method, path string) {
	parts := strings.SplitN(pattern, " ", 2)
	if len(parts) == 1 {
		return "", parts[0]
	}
	return parts[0], parts[1]
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path := splitPattern(route)
		logRoute(method, path)
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

func (s *Server) observeGuard(state guard.State) {
	if s.env == "DEV" {
		log.Debug().Str("state", state.String()).Msg("guard")
	}
}

// observeSession logs sign-in and sign-out, whichever process caused them
func (s *Server) observeSession(session sessions.Session) {
	if s.signedIn.Swap(session.IsAuthenticated) == session.IsAuthenticated {
		return
	}
	if session.IsAuthenticated {
		log.Info().Str("user", session.User.DisplayName()).Msg("session signed in")
		return
	}
	log.Info().Msg("session signed out")
}
