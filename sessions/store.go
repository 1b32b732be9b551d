package sessions

import (
	"context"
	"encoding/json"
	"sync"

	apperrors "github.com/jrsteele09/go-foodscore/internal/errors"
	"github.com/jrsteele09/go-foodscore/kvstore"
	"github.com/pkg/errors"
)

// Store owns the session: the in-memory copy and its persisted form.
type Store struct {
	repo      kvstore.Repo
	validator TokenValidator

	mu      sync.RWMutex
	current Session
}

type StoreOption func(*Store)

// WithTokenValidator replaces the default SyntaxValidator
func WithTokenValidator(v TokenValidator) StoreOption {
	return func(s *Store) {
		s.validator = v
	}
}

func NewStore(repo kvstore.Repo, options ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, errors.New("[NewStore] kvstore repo is required")
	}
	s := &Store{
		repo:      repo,
		validator: SyntaxValidator(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Current returns a copy of the in-memory session
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Restore rebuilds the session from the backing store. It fails with ErrNoSession when the
// token or user is missing and with ErrSessionCorruption when either cannot be trusted. The
// in-memory session is only changed on success.
func (s *Store) Restore(ctx context.Context) (Session, error) {
	accessToken, okToken, err := s.repo.Get(ctx, KeyAccessToken)
	if err != nil {
		return Session{}, apperrors.Kind(apperrors.ErrSessionCorruption, err)
	}
	rawUser, okUser, err := s.repo.Get(ctx, KeyUser)
	if err != nil {
		return Session{}, apperrors.Kind(apperrors.ErrSessionCorruption, err)
	}
	if !okToken || accessToken == "" || !okUser || rawUser == "" {
		return Session{}, apperrors.ErrNoSession
	}

	var user *UserProfile
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return Session{}, apperrors.Kind(apperrors.ErrSessionCorruption, err)
	}
	if user == nil {
		return Session{}, apperrors.Kind(apperrors.ErrSessionCorruption, errors.New("user record is null"))
	}
	if err := s.validator(accessToken); err != nil {
		return Session{}, apperrors.Kind(apperrors.ErrSessionCorruption, err)
	}

	refreshToken, _, err := s.repo.Get(ctx, KeyRefreshToken)
	if err != nil {
		return Session{}, apperrors.Kind(apperrors.ErrSessionCorruption, err)
	}

	restored := Session{
		IsAuthenticated: true,
		User:            user,
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
	}

	s.mu.Lock()
	s.current = restored.Clone()
	s.mu.Unlock()
	return restored, nil
}

// Save persists exactly the three session keys and makes session current
func (s *Store) Save(ctx context.Context, session Session) error {
	if session.User == nil {
		return errors.New("[Store.Save] user is required")
	}
	if err := s.validator(session.AccessToken); err != nil {
		return errors.Wrap(err, "[Store.Save] access token")
	}
	rawUser, err := json.Marshal(session.User)
	if err != nil {
		return errors.Wrap(err, "[Store.Save] Marshal user")
	}

	if err := s.repo.Set(ctx, KeyAccessToken, session.AccessToken); err != nil {
		return errors.Wrap(err, "[Store.Save] Set accessToken")
	}
	if err := s.repo.Set(ctx, KeyRefreshToken, session.RefreshToken); err != nil {
		return errors.Wrap(err, "[Store.Save] Set refreshToken")
	}
	if err := s.repo.Set(ctx, KeyUser, string(rawUser)); err != nil {
		return errors.Wrap(err, "[Store.Save] Set user")
	}

	session.IsAuthenticated = true
	s.mu.Lock()
	s.current = session.Clone()
	s.mu.Unlock()
	return nil
}

// Clear removes the persisted keys and resets the in-memory session. Memory is reset even
// when the backing store fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = Session{}
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, PersistedKeys...); err != nil {
		return errors.Wrap(err, "[Store.Clear] Delete")
	}
	return nil
}
