package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/jrsteele09/go-foodscore/api"
	apperrors "github.com/jrsteele09/go-foodscore/internal/errors"
	"github.com/jrsteele09/go-foodscore/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	MsgLoginFailed     = "Failed to login. Please check your credentials."
	MsgSignupFailed    = "Failed to create account. Please try again."
	MsgPasswordsDiffer = "Passwords do not match"
	MsgFieldsRequired  = "All fields are required"
)

// Authenticator is the part of the backend the session context talks to
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
}

// RegisterForm is the signup form as the user filled it in
type RegisterForm struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Context is the application's single source of truth for who is signed in. Every mutation
// goes through it and is broadcast to subscribers before the mutating call returns.
type Context struct {
	store         *sessions.Store
	authenticator Authenticator

	mu          sync.RWMutex
	lastError   string
	loading     bool
	nextSubID   int
	subscribers map[int]func(sessions.Session)
}

var _ oauth2.TokenSource = (*Context)(nil)

func NewContext(store *sessions.Store, authenticator Authenticator) (*Context, error) {
	if store == nil {
		return nil, errors.New("[NewContext] session store is required")
	}
	if authenticator == nil {
		return nil, errors.New("[NewContext] authenticator is required")
	}
	return &Context{
		store:         store,
		authenticator: authenticator,
		subscribers:   make(map[int]func(sessions.Session)),
	}, nil
}

// CheckAuth rehydrates the session from storage. Anything short of a complete, trustworthy
// session results in a full logout.
func (c *Context) CheckAuth(ctx context.Context) sessions.Session {
	session, err := c.store.Restore(ctx)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNoSession) {
			log.Warn().Err(err).Msg("discarding persisted session")
		}
		c.Logout(ctx)
		return sessions.Session{}
	}
	c.broadcast(session)
	return session
}

// Login exchanges credentials for a session. It reports failure through its return value
// and Error(), never by panicking.
func (c *Context) Login(ctx context.Context, email, password string) (ok bool) {
	c.beginAttempt()
	defer c.endAttempt()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("[Context.Login] recovered")
			c.setError(MsgLoginFailed)
			ok = false
		}
	}()

	resp, err := c.authenticator.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		log.Info().Err(err).Str("email", email).Msg("login failed")
		c.setError(userMessage(err, MsgLoginFailed))
		return false
	}

	previous := c.store.Current()
	user := resp.User
	next := sessions.Session{
		User:         &user,
		AccessToken:  resp.Access,
		RefreshToken: resp.Refresh,
	}
	if err := c.store.Save(ctx, next); err != nil {
		log.Error().Err(err).Msg("[Context.Login] persisting session")
		c.rollback(ctx, previous)
		c.setError(MsgLoginFailed)
		return false
	}

	log.Info().Str("user", user.DisplayName()).Msg("logged in")
	c.broadcast(c.store.Current())
	return true
}

// Logout clears the persisted and in-memory session.
func (c *Context) Logout(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("[Context.Logout] clearing persisted session")
	}
	c.broadcast(sessions.Session{})
}

// Register creates an account. The session is left as it is: the user signs in afterwards.
func (c *Context) Register(ctx context.Context, form RegisterForm) (message string, err error) {
	if strings.TrimSpace(form.FullName) == "" || strings.TrimSpace(form.Email) == "" || form.Password == "" {
		return "", c.reject(MsgFieldsRequired)
	}
	if form.Password != form.ConfirmPassword {
		return "", c.reject(MsgPasswordsDiffer)
	}

	c.beginAttempt()
	defer c.endAttempt()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("[Context.Register] recovered")
			message, err = "", c.reject(MsgSignupFailed)
		}
	}()

	resp, err := c.authenticator.Register(ctx, api.RegisterRequest{
		FullName: strings.TrimSpace(form.FullName),
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
	})
	if err != nil {
		log.Info().Err(err).Str("email", form.Email).Msg("registration failed")
		return "", c.reject(userMessage(err, MsgSignupFailed))
	}
	log.Info().Str("email", form.Email).Msg("account registered")
	return resp.Message, nil
}

func (c *Context) Session() sessions.Session {
	return c.store.Current()
}

func (c *Context) IsAuthenticated() bool {
	return c.store.Current().IsAuthenticated
}

func (c *Context) User() *sessions.UserProfile {
	return c.store.Current().User
}

// Error is the message of the last failed login or registration, empty after a new attempt starts
func (c *Context) Error() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

func (c *Context) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Subscribe registers fn for every session change. The returned func unsubscribes.
func (c *Context) Subscribe(fn func(sessions.Session)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Token returns the bearer credential of the current session.
func (c *Context) Token() (*oauth2.Token, error) {
	session := c.store.Current()
	if !session.IsAuthenticated || session.AccessToken == "" {
		return nil, apperrors.ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "Bearer",
	}, nil
}

func (c *Context) rollback(ctx context.Context, previous sessions.Session) {
	if previous.IsAuthenticated {
		if err := c.store.Save(ctx, previous); err == nil {
			return
		}
	}
	if err := c.store.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("[Context.rollback] clearing partial session")
	}
}

func (c *Context) broadcast(session sessions.Session) {
	c.mu.RLock()
	subscribers := make([]func(sessions.Session), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subscribers = append(subscribers, fn)
	}
	c.mu.RUnlock()

	for _, fn := range subscribers {
		fn(session.Clone())
	}
}

func (c *Context) beginAttempt() {
	c.mu.Lock()
	c.loading = true
	c.lastError = ""
	c.mu.Unlock()
}

func (c *Context) endAttempt() {
	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()
}

// reject records msg as the visible error and returns it as an ErrAuthRejected
func (c *Context) reject(msg string) error {
	c.setError(msg)
	return apperrors.Kind(apperrors.ErrAuthRejected, errors.New(msg))
}

func (c *Context) setError(msg string) {
	c.mu.Lock()
	c.lastError = msg
	c.mu.Unlock()
}

// userMessage keeps the backend's plain-string error and hides everything else behind fallback
func userMessage(err error, fallback string) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.FromBackend {
		return apiErr.Message
	}
	return fallback
}
