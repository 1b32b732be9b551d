package web_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-foodscore/analysis"
	"github.com/jrsteele09/go-foodscore/api"
	"github.com/jrsteele09/go-foodscore/auth"
	"github.com/jrsteele09/go-foodscore/internal/config"
	"github.com/jrsteele09/go-foodscore/kvstore"
	"github.com/jrsteele09/go-foodscore/navigation"
	"github.com/jrsteele09/go-foodscore/sessions"
	"github.com/jrsteele09/go-foodscore/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "jane@example.com"
	testPassword = "password123"

	resultJSON = `{"success":true,"history_id":5,"ingredients":{"raw_data":["oats","honey"],"score":80},"nutrition":{"data":{"Calories":150},"score":48},"total_score":64,"analysis_summary":"A decent breakfast.","timestamp":"2025-04-01 10:30:00"}`
	historyJSON = `{"success":true,"count":1,"history":[{"id":5,"created_at":"2025-04-01 10:30:00","scores":{"ingredients":80,"nutrition":48,"total":64},"nutrition_data":{"Calories":150},"ingredients_data":{"raw_data":["oats"]},"analysis_summary":"A decent breakfast."}]}`
)

// fakeBackend plays the analysis backend
type fakeBackend struct {
	mu          sync.Mutex
	token       string
	failAnalyze bool
	failProfile bool
	failHistory bool
	calls       map[string]int
}

func (b *fakeBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func (b *fakeBackend) configure(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls[r.URL.Path]++
	token, failAnalyze, failProfile, failHistory := b.token, b.failAnalyze, b.failProfile, b.failHistory
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	write := func(status int, body string) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}

	if r.URL.Path != api.PathLogin && r.URL.Path != api.PathRegister && r.Header.Get("Authorization") != "Bearer "+token {
		write(http.StatusUnauthorized, `{"detail":"Authentication credentials were not provided."}`)
		return
	}

	switch r.URL.Path {
	case api.PathLogin:
		if strings.Contains(readBody(r), `"password":"`+testPassword+`"`) {
			write(http.StatusOK, `{"message":"Login successful","access":"`+token+`","refresh":"r-1","user":{"unique_id":"u-1","email":"`+testEmail+`","full_name":"Jane Doe"}}`)
			return
		}
		write(http.StatusUnauthorized, `{"error":"Invalid credentials. Please check your email and password."}`)
	case api.PathRegister:
		write(http.StatusCreated, `{"message":"Registration successful"}`)
	case api.PathResult, api.PathManualEntry:
		if failAnalyze {
			write(http.StatusInternalServerError, `{"success":false,"error":"model unavailable"}`)
			return
		}
		write(http.StatusOK, resultJSON)
	case api.PathProfile:
		if failProfile {
			write(http.StatusInternalServerError, `{"error":"boom"}`)
			return
		}
		write(http.StatusOK, `{"unique_id":"u-1","email":"`+testEmail+`","full_name":"Jane Doe"}`)
	case api.PathHistory:
		if failHistory {
			write(http.StatusInternalServerError, `{"success":false,"error":"boom"}`)
			return
		}
		write(http.StatusOK, historyJSON)
	default:
		write(http.StatusNotFound, `{"error":"not found"}`)
	}
}

func readBody(r *http.Request) string {
	data, _ := io.ReadAll(r.Body)
	return string(data)
}

type testFixture struct {
	backend *fakeBackend
	repo    *kvstore.InMemoryRepo
	auth    *auth.Context
	server  *web.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"user_id": "u-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	backend := &fakeBackend{token: token, calls: map[string]int{}}
	backendServer := httptest.NewServer(backend)
	t.Cleanup(backendServer.Close)

	client, err := api.NewClient(backendServer.URL)
	require.NoError(t, err)

	repo := kvstore.NewInMemoryRepo()
	store, err := sessions.NewStore(repo, sessions.WithTokenValidator(sessions.ExpiryValidator(30*time.Second)))
	require.NoError(t, err)
	authContext, err := auth.NewContext(store, client)
	require.NoError(t, err)
	workflow, err := analysis.New(client, authContext)
	require.NoError(t, err)

	cfg := config.FromValues(map[string]string{"ENV": "TEST", "APP_NAME": "FoodScore"})
	server, err := web.New(cfg, web.Deps{
		Auth:       authContext,
		Workflow:   workflow,
		Backend:    client,
		Navigation: navigation.NewStore(time.Minute),
	})
	require.NoError(t, err)

	return &testFixture{backend: backend, repo: repo, auth: authContext, server: server}
}

func (f *testFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, httptest.NewRequest(http.MethodGet, target, nil))
}

func (f *testFixture) postForm(t *testing.T, target string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(t, req)
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	rec := f.postForm(t, navigation.RouteLogin, url.Values{"email": {testEmail}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, navigation.RouteHome, rec.Header().Get("Location"))
}

func multipartScan(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for field, data := range files {
		part, err := mw.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, navigation.RouteScan, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestGuardedRoutesRedirectToLogin(t *testing.T) {
	f := setupTestFixture(t)
	for _, route := range navigation.GuardedRoutes {
		rec := f.get(t, route)
		require.Equal(t, http.StatusSeeOther, rec.Code, route)
		require.Equal(t, navigation.RouteLogin, rec.Header().Get("Location"), route)
	}
}

func TestLoginFlow(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.postForm(t, navigation.RouteLogin, url.Values{"email": {testEmail}, "password": {"wrong"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid credentials. Please check your email and password.")
	require.Empty(t, f.repo.Keys())

	f.login(t)
	require.ElementsMatch(t, sessions.PersistedKeys, f.repo.Keys())

	rec = f.get(t, navigation.RouteScan)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Jane Doe")

	rec = f.postForm(t, navigation.RouteLogout, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Empty(t, f.repo.Keys())

	rec = f.get(t, navigation.RouteScan)
	require.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestCorruptSessionIsLoggedOutOnGuardedVisit(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	require.NoError(t, f.repo.Set(context.Background(), sessions.KeyUser, "{broken"))

	rec := f.get(t, navigation.RouteManualEntry)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, navigation.RouteLogin, rec.Header().Get("Location"))
	require.Empty(t, f.repo.Keys())
	require.False(t, f.auth.IsAuthenticated())
}

func TestManualEntryHandsResultOver(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	rec := f.postForm(t, navigation.RouteManualEntry, url.Values{"calories": {"150"}, "ingredients": {"oats, honey"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, navigation.RouteResult+"?state="), location)

	rec = f.get(t, location)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "64.0")
	require.Contains(t, body, "Healthy but Some Processing")
	require.Contains(t, body, "A decent breakfast.")

	// reload loses the hand-over
	rec = f.get(t, location)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, navigation.RouteScan, rec.Header().Get("Location"))
}

func TestManualEntryFailureAlerts(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.configure(func(b *fakeBackend) { b.failAnalyze = true })

	rec := f.postForm(t, navigation.RouteManualEntry, url.Values{"calories": {"150"}, "ingredients": {"oats"}})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), analysis.MsgManualFailed)
	require.Contains(t, rec.Body.String(), `value="150"`)
}

func TestScanSubmission(t *testing.T) {
	t.Run("missing image makes no request", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)

		rec := f.do(t, multipartScan(t, map[string][]byte{"nutrition_image": []byte("png")}))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Please upload both")
		require.Zero(t, f.backend.count(api.PathResult))
	})

	t.Run("both images", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)

		rec := f.do(t, multipartScan(t, map[string][]byte{
			"nutrition_image":   []byte("png"),
			"ingredients_image": []byte("jpg"),
		}))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, 1, f.backend.count(api.PathResult))
		require.True(t, strings.HasPrefix(rec.Header().Get("Location"), navigation.RouteResult+"?state="))
	})

	t.Run("backend failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		f.backend.configure(func(b *fakeBackend) { b.failAnalyze = true })

		rec := f.do(t, multipartScan(t, map[string][]byte{
			"nutrition_image":   []byte("png"),
			"ingredients_image": []byte("jpg"),
		}))
		require.Equal(t, http.StatusBadGateway, rec.Code)
		require.Contains(t, rec.Body.String(), analysis.MsgScanFailed)
	})
}

func TestProfileAndHistory(t *testing.T) {
	t.Run("both load", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)

		rec := f.get(t, navigation.RouteProfile)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		require.Contains(t, body, testEmail)
		require.Contains(t, body, "64.0")

		start := strings.Index(body, navigation.RouteHistory+"?state=")
		require.Positive(t, start)
		end := strings.Index(body[start:], `"`)
		link := body[start : start+end]

		rec = f.get(t, link)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "A decent breakfast.")

		rec = f.get(t, link)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, navigation.RouteProfile, rec.Header().Get("Location"))
	})

	t.Run("history failure keeps profile", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		f.backend.configure(func(b *fakeBackend) { b.failHistory = true })

		body := f.get(t, navigation.RouteProfile).Body.String()
		require.Contains(t, body, testEmail)
		require.Contains(t, body, "No analyses yet.")
	})

	t.Run("profile failure keeps history", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		f.backend.configure(func(b *fakeBackend) { b.failProfile = true })

		body := f.get(t, navigation.RouteProfile).Body.String()
		require.Contains(t, body, "Failed to load profile data")
		require.Contains(t, body, "64.0")
	})

	t.Run("signed out", func(t *testing.T) {
		f := setupTestFixture(t)

		rec := f.get(t, navigation.RouteProfile)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Failed to load profile data")
		require.Zero(t, f.backend.count(api.PathProfile))
	})
}

func TestSignup(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.postForm(t, navigation.RouteSignup, url.Values{
		"full_name": {"Jane Doe"}, "email": {testEmail}, "password": {"a"}, "confirm_password": {"b"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Passwords do not match")
	require.Zero(t, f.backend.count(api.PathRegister))

	rec = f.postForm(t, navigation.RouteSignup, url.Values{
		"full_name": {"Jane Doe"}, "email": {testEmail}, "password": {"a"}, "confirm_password": {"a"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, navigation.RouteLogin+"?registered=1", rec.Header().Get("Location"))

	rec = f.get(t, rec.Header().Get("Location"))
	require.Contains(t, rec.Body.String(), "Account created")
}

func TestChatShowsHandedOverSummary(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	location := f.postForm(t, navigation.RouteManualEntry, url.Values{"ingredients": {"oats"}}).Header().Get("Location")
	body := f.get(t, location).Body.String()
	start := strings.Index(body, navigation.RouteChat+"?state=")
	require.Positive(t, start)
	end := strings.Index(body[start:], `"`)

	rec := f.get(t, body[start:start+end])
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "A decent breakfast.")

	rec = f.get(t, navigation.RouteChat)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Scan a product")
}

func TestStaticAndNotFound(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(t, "/static/style.css")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	rec = f.get(t, "/nowhere")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.get(t, navigation.RouteHome)
	require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := web.New(config.FromValues(nil), web.Deps{})
	require.Error(t, err)
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupTestFixture(t)
	f.server.RegisterRouteHandler("GET /boom", web.ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, f.server.HTMLMiddleWare()...))

	rec := f.get(t, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, f.server.Routes(), "GET /boom")
}

func TestPublicPagesFollowStorage(t *testing.T) {
	t.Run("cleared elsewhere", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		require.NoError(t, f.repo.Delete(context.Background(), sessions.PersistedKeys...))

		rec := f.get(t, navigation.RouteProfile)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Zero(t, f.backend.count(api.PathProfile))
		require.Zero(t, f.backend.count(api.PathHistory))
		require.False(t, f.auth.IsAuthenticated())
		body := rec.Body.String()
		require.Contains(t, body, `href="/login"`)
		require.NotContains(t, body, "Jane Doe")
	})

	t.Run("signed in elsewhere", func(t *testing.T) {
		f := setupTestFixture(t)
		other, err := sessions.NewStore(f.repo)
		require.NoError(t, err)
		require.NoError(t, other.Save(context.Background(), sessions.Session{
			User:         &sessions.UserProfile{UniqueID: "u-1", FullName: "Jane Doe", Email: testEmail},
			AccessToken:  f.backend.token,
			RefreshToken: "r-1",
		}))

		rec := f.get(t, navigation.RouteHome)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Jane Doe")
		require.True(t, f.auth.IsAuthenticated())
	})
}

func TestRejectedTokenLogsOut(t *testing.T) {
	t.Run("profile", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		f.backend.configure(func(b *fakeBackend) { b.token = "rotated" })

		rec := f.get(t, navigation.RouteProfile)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, f.backend.count(api.PathProfile))
		require.False(t, f.auth.IsAuthenticated())
		require.Empty(t, f.repo.Keys())
		require.NotContains(t, rec.Body.String(), "Jane Doe")
	})

	t.Run("analysis", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		f.backend.configure(func(b *fakeBackend) { b.token = "rotated" })

		rec := f.postForm(t, navigation.RouteManualEntry, url.Values{"ingredients": {"oats"}})
		require.Equal(t, http.StatusBadGateway, rec.Code)
		require.Contains(t, rec.Body.String(), analysis.MsgManualFailed)
		require.Empty(t, f.repo.Keys())

		rec = f.get(t, navigation.RouteManualEntry)
		require.Equal(t, http.StatusSeeOther, rec.Code)
	})
}

func TestGuardedResponsesAreNotCached(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(t, navigation.RouteResult)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = f.get(t, navigation.RouteHome)
	require.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestSessionChangesAreLogged(t *testing.T) {
	previous := log.Logger
	t.Cleanup(func() { log.Logger = previous })
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	f := setupTestFixture(t)
	f.login(t)
	f.get(t, navigation.RouteHome)
	require.Equal(t, 1, strings.Count(buf.String(), "session signed in"))

	f.postForm(t, navigation.RouteLogout, nil)
	require.Equal(t, 1, strings.Count(buf.String(), "session signed out"))

	f.server.Close()
	f.login(t)
	require.Equal(t, 1, strings.Count(buf.String(), "session signed in"))
}
