package web

import (
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-foodscore/api"
	"github.com/jrsteele09/go-foodscore/internal/utils"
	"github.com/jrsteele09/go-foodscore/navigation"
	"github.com/jrsteele09/go-foodscore/score"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const msgProfileFailed = "Failed to load profile data"

// HistoryEntry is one row of the profile's history list
type HistoryEntry struct {
	Result api.AnalysisResult
	Total  score.Gauge
	Link   string
}

type ProfilePage struct {
	Profile      *api.Profile
	ProfileError string
	History      []HistoryEntry
}

// ProfileHandler loads the profile and the history side by side. Either may fail without
// taking the other down.
func (s *Server) ProfileHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var (
			profile    *api.Profile
			profileErr error
			history    []api.AnalysisResult
		)

		var g errgroup.Group
		g.Go(func() error {
			profile, profileErr = s.backend.Profile(ctx, s.auth)
			if profileErr != nil {
				log.Warn().Err(profileErr).Msg("profile fetch failed")
				s.dropRejectedSession(ctx, profileErr)
			}
			return nil
		})
		g.Go(func() error {
			items, err := s.backend.History(ctx, s.auth, api.HistoryQuery{Limit: utils.Ptr(s.historyLimit)})
			if err != nil {
				log.Warn().Err(err).Msg("history fetch failed")
				s.dropRejectedSession(ctx, err)
				return nil
			}
			history = items
			return nil
		})
		_ = g.Wait()

		data := ProfilePage{Profile: profile}
		if profileErr != nil {
			data.ProfileError = msgProfileFailed
		}
		for _, item := range history {
			id := s.navigation.Put(navigation.RouteHistory, item)
			data.History = append(data.History, HistoryEntry{
				Result: item,
				Total:  score.NewGauge(item.TotalScore),
				Link:   navigation.WithState(navigation.RouteHistory, id),
			})
		}

		page := s.newPage(r, "Profile")
		page.Data = data
		s.render(w, tmpl, http.StatusOK, page)
	}
}

// HistoryHandler renders one past analysis handed over from the profile page
func (s *Server) HistoryHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.navigation.Take(r.URL.Query().Get(navigation.StateParam), navigation.RouteHistory)
		if err != nil {
			redirectSuccess(w, r, navigation.Upstream(navigation.RouteHistory))
			return
		}
		page := s.newPage(r, "History")
		page.Data = newResultPage(state.Result)
		s.render(w, tmpl, http.StatusOK, page)
	}
}
