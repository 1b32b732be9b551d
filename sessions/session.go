package sessions

// Keys the session is persisted under
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// PersistedKeys lists every key the session owns in the backing store
var PersistedKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// UserProfile is the identity returned by the backend at login
type UserProfile struct {
	UniqueID string `json:"unique_id,omitempty"` // Backend user ID
	FullName string `json:"full_name,omitempty"` // Display name
	Email    string `json:"email,omitempty"`     // Login email
}

// DisplayName prefers the full name and falls back to the email
func (u *UserProfile) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// Session is the client-held authentication state.
// IsAuthenticated is true only when both a valid access token and a user are present.
type Session struct {
	IsAuthenticated bool
	User            *UserProfile
	AccessToken     string
	RefreshToken    string
}

// Clone returns a copy that shares nothing with s
func (s Session) Clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
