package sessions_test

import (
	"context"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-foodscore/internal/errors"
	"github.com/jrsteele09/go-foodscore/kvstore"
	"github.com/jrsteele09/go-foodscore/sessions"
	"github.com/stretchr/testify/require"
)

const testUserJSON = `{"unique_id":"u-1","full_name":"Jane Doe","email":"jane@example.com"}`

func mintToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwtlib.MapClaims{"user_id": "u-1", "token_type": "access"}
	if !expiresAt.IsZero() {
		claims["exp"] = expiresAt.Unix()
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

type testFixture struct {
	repo  *kvstore.InMemoryRepo
	store *sessions.Store
}

func setupTestFixture(t *testing.T, options ...sessions.StoreOption) *testFixture {
	t.Helper()
	repo := kvstore.NewInMemoryRepo()
	store, err := sessions.NewStore(repo, options...)
	require.NoError(t, err)
	return &testFixture{repo: repo, store: store}
}

func (f *testFixture) persist(t *testing.T, values map[string]string) {
	t.Helper()
	for k, v := range values {
		require.NoError(t, f.repo.Set(context.Background(), k, v))
	}
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	validToken := mintToken(t, time.Now().Add(time.Hour))

	t.Run("valid persisted session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, map[string]string{
			sessions.KeyAccessToken:  validToken,
			sessions.KeyRefreshToken: "refresh-1",
			sessions.KeyUser:         testUserJSON,
		})

		s, err := f.store.Restore(ctx)
		require.NoError(t, err)
		require.True(t, s.IsAuthenticated)
		require.Equal(t, "Jane Doe", s.User.FullName)
		require.Equal(t, "refresh-1", s.RefreshToken)
		require.Equal(t, s, f.store.Current())
	})

	t.Run("missing token", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, map[string]string{sessions.KeyUser: testUserJSON})

		_, err := f.store.Restore(ctx)
		require.True(t, apperrors.Is(err, apperrors.ErrNoSession))
		require.False(t, f.store.Current().IsAuthenticated)
	})

	t.Run("missing user", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, map[string]string{sessions.KeyAccessToken: validToken})

		_, err := f.store.Restore(ctx)
		require.True(t, apperrors.Is(err, apperrors.ErrNoSession))
	})

	corrupt := map[string]map[string]string{
		"user not json":   {sessions.KeyAccessToken: validToken, sessions.KeyUser: "{oops"},
		"user null":       {sessions.KeyAccessToken: validToken, sessions.KeyUser: "null"},
		"user is string":  {sessions.KeyAccessToken: validToken, sessions.KeyUser: `"jane"`},
		"token not a jwt": {sessions.KeyAccessToken: "not-a-jwt", sessions.KeyUser: testUserJSON},
	}
	for name, values := range corrupt {
		t.Run(name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.persist(t, values)

			_, err := f.store.Restore(ctx)
			require.True(t, apperrors.Is(err, apperrors.ErrSessionCorruption), "got %v", err)
			require.False(t, f.store.Current().IsAuthenticated)
		})
	}
}

func TestRestoreExpiredToken(t *testing.T) {
	ctx := context.Background()
	expired := mintToken(t, time.Now().Add(-time.Hour))

	t.Run("rejected by expiry validator", func(t *testing.T) {
		f := setupTestFixture(t, sessions.WithTokenValidator(sessions.ExpiryValidator(30*time.Second)))
		f.persist(t, map[string]string{sessions.KeyAccessToken: expired, sessions.KeyUser: testUserJSON})

		_, err := f.store.Restore(ctx)
		require.True(t, apperrors.Is(err, apperrors.ErrSessionCorruption))
		require.True(t, apperrors.Is(err, sessions.ErrTokenExpired))
	})

	t.Run("accepted by syntax validator", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, map[string]string{sessions.KeyAccessToken: expired, sessions.KeyUser: testUserJSON})

		s, err := f.store.Restore(ctx)
		require.NoError(t, err)
		require.True(t, s.IsAuthenticated)
	})
}

func TestSaveAndClear(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	token := mintToken(t, time.Time{})

	err := f.store.Save(ctx, sessions.Session{
		User:         &sessions.UserProfile{UniqueID: "u-1", FullName: "Jane Doe", Email: "jane@example.com"},
		AccessToken:  token,
		RefreshToken: "refresh-1",
	})
	require.NoError(t, err)
	require.ElementsMatch(t, sessions.PersistedKeys, f.repo.Keys())
	require.True(t, f.store.Current().IsAuthenticated)

	rawUser, _, err := f.repo.Get(ctx, sessions.KeyUser)
	require.NoError(t, err)
	require.JSONEq(t, testUserJSON, rawUser)

	require.NoError(t, f.store.Clear(ctx))
	require.Empty(t, f.repo.Keys())
	require.Equal(t, sessions.Session{}, f.store.Current())
}

func TestSaveRejectsInvalidSession(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	require.Error(t, f.store.Save(ctx, sessions.Session{AccessToken: mintToken(t, time.Time{})}))
	require.Error(t, f.store.Save(ctx, sessions.Session{User: &sessions.UserProfile{}, AccessToken: "garbage"}))
	require.Empty(t, f.repo.Keys())
}

func TestCurrentReturnsCopy(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	require.NoError(t, f.store.Save(ctx, sessions.Session{
		User:        &sessions.UserProfile{FullName: "Jane Doe"},
		AccessToken: mintToken(t, time.Time{}),
	}))

	s := f.store.Current()
	s.User.FullName = "Mallory"
	require.Equal(t, "Jane Doe", f.store.Current().User.FullName)
}

func TestNewStoreRequiresRepo(t *testing.T) {
	_, err := sessions.NewStore(nil)
	require.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	var missing *sessions.UserProfile
	require.Equal(t, "", missing.DisplayName())
	require.Equal(t, "jane@example.com", (&sessions.UserProfile{Email: "jane@example.com"}).DisplayName())
	require.Equal(t, "Jane", (&sessions.UserProfile{FullName: "Jane", Email: "jane@example.com"}).DisplayName())
}
