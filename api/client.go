package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Backend endpoint paths
const (
	PathLogin       = "/login/"
	PathRegister    = "/register/"
	PathProfile     = "/profile/"
	PathResult      = "/result_api/"
	PathManualEntry = "/manual-entry/"
	PathHistory     = "/user-history/"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "foodscore-client"
	maxResponseBody  = 8 << 20

	RequestIDHeader = "X-Request-ID"
	dateLayout      = "2006-01-02"
)

// Client talks to the food-label analysis backend
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		if d > 0 {
			client.httpClient.Timeout = d
		}
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		if ua != "" {
			client.userAgent = ua
		}
	}
}

func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[NewClient] base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "[NewClient] invalid base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("[NewClient] unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Login exchanges credentials for a token pair and the user's profile.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, PathLogin, nil, LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, errors.Wrap(err, "[Client.Login]")
	}
	if resp.Access == "" {
		return nil, errors.New("[Client.Login] response carried no access token")
	}
	return &resp, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, PathRegister, nil, req, &resp); err != nil {
		return nil, errors.Wrap(err, "[Client.Register]")
	}
	return &resp, nil
}

// Profile fetches the signed-in user's profile.
func (c *Client) Profile(ctx context.Context, ts oauth2.TokenSource) (*Profile, error) {
	var resp Profile
	if err := c.doJSON(ctx, http.MethodGet, PathProfile, ts, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "[Client.Profile]")
	}
	return &resp, nil
}

// AnalyzeScan uploads the nutrition and ingredients label images for scoring.
func (c *Client) AnalyzeScan(ctx context.Context, ts oauth2.TokenSource, upload ScanUpload) (*AnalysisResult, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if err := writeFilePart(mw, "nutrition_image", upload.NutritionImage); err != nil {
		return nil, errors.Wrap(err, "[Client.AnalyzeScan] nutrition image")
	}
	if err := writeFilePart(mw, "ingredients_image", upload.IngredientsImage); err != nil {
		return nil, errors.Wrap(err, "[Client.AnalyzeScan] ingredients image")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "[Client.AnalyzeScan]")
	}

	raw, err := c.do(ctx, http.MethodPost, PathResult, ts, mw.FormDataContentType(), body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.AnalyzeScan]")
	}
	result, err := decodeResult(raw)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.AnalyzeScan] decode")
	}
	return result, nil
}

// AnalyzeManual submits typed-in nutrition values and an ingredients list for scoring.
func (c *Client) AnalyzeManual(ctx context.Context, ts oauth2.TokenSource, req ManualEntryRequest) (*AnalysisResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.AnalyzeManual]")
	}
	raw, err := c.do(ctx, http.MethodPost, PathManualEntry, ts, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.AnalyzeManual]")
	}
	result, err := decodeResult(raw)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.AnalyzeManual] decode")
	}
	return result, nil
}

// History lists past analyses, most recent first.
func (c *Client) History(ctx context.Context, ts oauth2.TokenSource, q HistoryQuery) ([]AnalysisResult, error) {
	values := url.Values{}
	if q.Limit != nil {
		values.Set("limit", strconv.Itoa(*q.Limit))
	}
	if !q.StartDate.IsZero() {
		values.Set("start_date", q.StartDate.Format(dateLayout))
	}
	if !q.EndDate.IsZero() {
		values.Set("end_date", q.EndDate.Format(dateLayout))
	}

	var resp struct {
		Success bool             `json:"success"`
		Count   int              `json:"count"`
		History []AnalysisResult `json:"history"`
	}
	if err := c.doJSON(ctx, http.MethodGet, PathHistory, ts, nil, &resp, values); err != nil {
		return nil, errors.Wrap(err, "[Client.History]")
	}
	return resp.History, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, ts oauth2.TokenSource, in, out any, query ...url.Values) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	if len(query) > 0 && len(query[0]) > 0 {
		path = path + "?" + query[0].Encode()
	}

	raw, err := c.do(ctx, method, path, ts, contentType, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, out), "decode response")
}

// do sends one request. A non-nil token source adds the bearer header at send time, so
// the token in effect is whatever the session holds when the request goes out.
func (c *Client) do(ctx context.Context, method, path string, ts oauth2.TokenSource, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if ts != nil {
		tok, err := ts.Token()
		if err != nil {
			return nil, err
		}
		tok.SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Str("method", method).Str("path", path).Msg("backend request failed")
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, raw)
	}
	if apiErr := unsuccessfulEnvelope(resp.StatusCode, raw); apiErr != nil {
		return nil, apiErr
	}
	return raw, nil
}

// unsuccessfulEnvelope turns a 2xx body reporting success=false into an APIError
func unsuccessfulEnvelope(status int, raw []byte) *APIError {
	var envelope struct {
		Success *bool `json:"success"`
		Error   any   `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Success == nil || *envelope.Success {
		return nil
	}
	if s, ok := envelope.Error.(string); ok && s != "" {
		return &APIError{StatusCode: status, Message: s, FromBackend: true}
	}
	return &APIError{StatusCode: status, Message: "request failed"}
}

func writeFilePart(mw *multipart.Writer, field string, upload Upload) error {
	if len(upload.Data) == 0 {
		return errors.New("image is empty")
	}
	filename := upload.Filename
	if filename == "" {
		filename = field
	}
	contentType := upload.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(upload.Data)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+escapeQuotes(filename)+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(upload.Data)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
