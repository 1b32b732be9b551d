package config

import (
	"strconv"
	"time"
)

type SessionConfig interface {
	GetRejectExpiredTokens() bool
	GetTokenLeeway() time.Duration
}

type UIConfig interface {
	GetNavigationStateTTL() time.Duration
	GetHistoryLimit() int
}

type Session struct {
	src source
}

var _ SessionConfig = Session{}

// GetRejectExpiredTokens makes session rehydration refuse access tokens whose exp claim has passed
func (s Session) GetRejectExpiredTokens() bool {
	return s.src.boolean("FOODSCORE_REJECT_EXPIRED_TOKENS", true)
}

func (s Session) GetTokenLeeway() time.Duration {
	return s.src.duration("TOKEN_LEEWAY", 30*time.Second)
}

type UI struct {
	src source
}

var _ UIConfig = UI{}

// GetNavigationStateTTL is how long a handed-over result waits to be picked up by the next view
func (u UI) GetNavigationStateTTL() time.Duration {
	return u.src.duration("NAV_STATE_TTL", 10*time.Minute)
}

func (u UI) GetHistoryLimit() int {
	limit, err := strconv.Atoi(u.src.get("HISTORY_LIMIT", "10"))
	if err != nil || limit <= 0 {
		return 10
	}
	return limit
}
