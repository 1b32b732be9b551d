// Package analysis submits food labels for scoring and hands the result to the view that
// presents it.
package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-foodscore/api"
	apperrors "github.com/jrsteele09/go-foodscore/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	MsgScanFailed   = "Failed to analyze images. Please try again."
	MsgManualFailed = "Failed to analyze data. Please try again."
)

type Status int

const (
	StatusIdle Status = iota
	StatusProcessing
)

func (s Status) String() string {
	if s == StatusProcessing {
		return "processing"
	}
	return "idle"
}

// Analyzer is the scoring backend
type Analyzer interface {
	AnalyzeScan(ctx context.Context, ts oauth2.TokenSource, upload api.ScanUpload) (*api.AnalysisResult, error)
	AnalyzeManual(ctx context.Context, ts oauth2.TokenSource, req api.ManualEntryRequest) (*api.AnalysisResult, error)
}

// Presenter receives the outcome of a submission. ShowResult navigates to the result view;
// Alert shows a blocking message and stays put.
type Presenter interface {
	ShowResult(result *api.AnalysisResult) error
	Alert(message string)
}

// Workflow runs at most one submission at a time
type Workflow struct {
	analyzer    Analyzer
	credentials oauth2.TokenSource

	mu        sync.Mutex
	status    Status
	listeners []func(Status)
}

type Option func(*Workflow)

// OnStatus registers fn for every status change
func OnStatus(fn func(Status)) Option {
	return func(w *Workflow) {
		w.listeners = append(w.listeners, fn)
	}
}

func New(analyzer Analyzer, credentials oauth2.TokenSource, options ...Option) (*Workflow, error) {
	if analyzer == nil {
		return nil, errors.New("[analysis.New] analyzer is required")
	}
	if credentials == nil {
		return nil, errors.New("[analysis.New] credentials are required")
	}
	w := &Workflow{
		analyzer:    analyzer,
		credentials: credentials,
	}
	for _, opt := range options {
		opt(w)
	}
	return w, nil
}

func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// SubmitScan sends both label images. Without both, no request is made.
func (w *Workflow) SubmitScan(ctx context.Context, in ScanInput, p Presenter) error {
	if !in.Ready() {
		return apperrors.ErrIncompleteScan
	}
	upload := api.ScanUpload{
		NutritionImage:   in.NutritionImage.upload(),
		IngredientsImage: in.IngredientsImage.upload(),
	}
	return w.submit(ctx, "scan", MsgScanFailed, p, func(ctx context.Context) (*api.AnalysisResult, error) {
		return w.analyzer.AnalyzeScan(ctx, w.credentials, upload)
	})
}

// SubmitManual sends typed-in nutrition values and ingredients.
func (w *Workflow) SubmitManual(ctx context.Context, in ManualInput, p Presenter) error {
	req := in.request()
	return w.submit(ctx, "manual", MsgManualFailed, p, func(ctx context.Context) (*api.AnalysisResult, error) {
		return w.analyzer.AnalyzeManual(ctx, w.credentials, req)
	})
}

func (w *Workflow) submit(ctx context.Context, mode, failMsg string, p Presenter, call func(context.Context) (*api.AnalysisResult, error)) (err error) {
	if !w.begin() {
		return apperrors.ErrSubmissionInProgress
	}
	defer w.setStatus(StatusIdle)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("mode", mode).Msg("analysis recovered")
			p.Alert(failMsg)
			err = apperrors.Kind(apperrors.ErrSubmissionFailed, fmt.Errorf("panic: %v", r))
		}
	}()

	result, err := call(ctx)
	if err == nil && result == nil {
		err = errors.New("empty result")
	}
	if err != nil {
		log.Warn().Err(err).Str("mode", mode).Msg("analysis failed")
		p.Alert(failMsg)
		return apperrors.Kind(apperrors.ErrSubmissionFailed, err)
	}

	log.Info().Str("mode", mode).Int64("history_id", result.HistoryID).Float64("total_score", result.TotalScore).Msg("analysis complete")
	if err := p.ShowResult(result); err != nil {
		return errors.Wrap(err, "[Workflow.submit] show result")
	}
	return nil
}

// begin moves to processing unless a submission is already running
func (w *Workflow) begin() bool {
	w.mu.Lock()
	if w.status == StatusProcessing {
		w.mu.Unlock()
		return false
	}
	w.status = StatusProcessing
	listeners := w.listeners
	w.mu.Unlock()

	notify(listeners, StatusProcessing)
	return true
}

func (w *Workflow) setStatus(s Status) {
	w.mu.Lock()
	w.status = s
	listeners := w.listeners
	w.mu.Unlock()

	notify(listeners, s)
}

func notify(listeners []func(Status), s Status) {
	for _, fn := range listeners {
		fn(s)
	}
}
