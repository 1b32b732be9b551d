package navigation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-foodscore/api"
	apperrors "github.com/jrsteele09/go-foodscore/internal/errors"
)

const DefaultTTL = 10 * time.Minute

// NowTimeFunc allows tests to control expiry
var NowTimeFunc = time.Now

// State is what one view hands to the next. It is never persisted.
type State struct {
	Route     string
	Result    api.AnalysisResult
	CreatedAt time.Time
}

// Store keeps navigation states until they are taken or expire. A state can be taken once.
type Store struct {
	ttl time.Duration

	mu     sync.Mutex
	states map[string]State
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:    ttl,
		states: make(map[string]State),
	}
}

// Put stores result for the view at route and returns the id to hand over
func (s *Store) Put(route string, result api.AnalysisResult) string {
	id := uuid.NewString()
	now := NowTimeFunc()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(now)
	s.states[id] = State{
		Route:     route,
		Result:    copyResult(result),
		CreatedAt: now,
	}
	return id
}

// Take returns and removes the state with id. It fails with ErrMissingNavigationState when
// the id is unknown, expired, already taken or meant for another route.
func (s *Store) Take(id, route string) (State, error) {
	if id == "" {
		return State{}, apperrors.ErrMissingNavigationState
	}
	now := NowTimeFunc()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(now)

	state, ok := s.states[id]
	if !ok || state.Route != route {
		return State{}, apperrors.ErrMissingNavigationState
	}
	delete(s.states, id)
	return state, nil
}

// Len is the number of live states
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(NowTimeFunc())
	return len(s.states)
}

func (s *Store) evictExpired(now time.Time) {
	for id, state := range s.states {
		if now.Sub(state.CreatedAt) > s.ttl {
			delete(s.states, id)
		}
	}
}

func copyResult(r api.AnalysisResult) api.AnalysisResult {
	if r.NutritionData != nil {
		data := make(map[string]float64, len(r.NutritionData))
		for k, v := range r.NutritionData {
			data[k] = v
		}
		r.NutritionData = data
	}
	if r.IngredientsRawData != nil {
		r.IngredientsRawData = append([]string(nil), r.IngredientsRawData...)
	}
	return r
}
