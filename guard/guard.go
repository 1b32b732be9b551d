// Package guard decides, on every visit to a protected view, whether the view may render.
package guard

import (
	"context"

	"github.com/jrsteele09/go-foodscore/navigation"
	"github.com/jrsteele09/go-foodscore/sessions"
	"github.com/rs/zerolog/log"
)

type State int

const (
	Checking State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Checker rehydrates the session and reports the outcome
type Checker interface {
	CheckAuth(ctx context.Context) sessions.Session
}

// Renderer is how a front end shows each guard state. Redirect must replace the current
// location rather than push onto history.
type Renderer interface {
	Loading()
	Content()
	Redirect(path string)
}

// RendererFuncs adapts plain functions to a Renderer. Nil funcs are skipped.
type RendererFuncs struct {
	LoadingFunc  func()
	ContentFunc  func()
	RedirectFunc func(path string)
}

func (r RendererFuncs) Loading() {
	if r.LoadingFunc != nil {
		r.LoadingFunc()
	}
}

func (r RendererFuncs) Content() {
	if r.ContentFunc != nil {
		r.ContentFunc()
	}
}

func (r RendererFuncs) Redirect(path string) {
	if r.RedirectFunc != nil {
		r.RedirectFunc(path)
	}
}

// Guard is the policy shared by all protected views. It holds no per-visit state.
type Guard struct {
	checker   Checker
	loginPath string
	observer  func(State)
}

type Option func(*Guard)

// WithLoginPath overrides where unauthenticated visitors are sent
func WithLoginPath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.loginPath = path
		}
	}
}

// WithObserver is called with every state a visit enters
func WithObserver(fn func(State)) Option {
	return func(g *Guard) {
		g.observer = fn
	}
}

func New(checker Checker, options ...Option) *Guard {
	g := &Guard{
		checker:   checker,
		loginPath: navigation.RouteLogin,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *Guard) LoginPath() string {
	return g.loginPath
}

// Enter runs one visit: loading is shown until the session check completes, then either
// the content or a redirect to the login view. Nothing is cached between visits.
func (g *Guard) Enter(ctx context.Context, r Renderer) State {
	g.enter(Checking)
	r.Loading()

	session := g.checker.CheckAuth(ctx)

	next := Unauthenticated
	if session.IsAuthenticated {
		next = Authenticated
	}
	g.enter(next)

	if next == Authenticated {
		r.Content()
	} else {
		r.Redirect(g.loginPath)
	}
	return next
}

func (g *Guard) enter(state State) {
	log.Debug().Str("state", state.String()).Msg("route guard")
	if g.observer != nil {
		g.observer(state)
	}
}
