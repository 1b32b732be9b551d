package web

import (
	"html/template"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/jrsteele09/go-foodscore/analysis"
	"github.com/jrsteele09/go-foodscore/api"
	apperrors "github.com/jrsteele09/go-foodscore/internal/errors"
	"github.com/jrsteele09/go-foodscore/navigation"
	"github.com/jrsteele09/go-foodscore/score"
	"github.com/pkg/errors"
)

const (
	maxUploadBytes = 20 << 20

	msgMissingImages = "Please upload both the nutrition facts and the ingredients images."
	msgBusy          = "An analysis is already in progress. Please wait."
)

// pagePresenter hands a finished analysis to the result view, or re-renders the form with
// an alert.
type pagePresenter struct {
	s     *Server
	w     http.ResponseWriter
	r     *http.Request
	alert func(msg string)
}

func (p *pagePresenter) ShowResult(result *api.AnalysisResult) error {
	id := p.s.navigation.Put(navigation.RouteResult, *result)
	redirectSuccess(p.w, p.r, navigation.WithState(navigation.RouteResult, id))
	return nil
}

func (p *pagePresenter) Alert(msg string) {
	p.alert(msg)
}

func (s *Server) ScanPageHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, tmpl, http.StatusOK, s.newPage(r, "Scan"))
	}
}

// ScanSubmissionHandler accepts the two label images (POST /scan)
func (s *Server) ScanSubmissionHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alert := func(status int) func(string) {
			return func(msg string) {
				page := s.newPage(r, "Scan")
				page.Error = msg
				s.render(w, tmpl, status, page)
			}
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			alert(http.StatusBadRequest)(msgMissingImages)
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		input := analysis.ScanInput{
			NutritionImage:   formImage(r, "nutrition_image"),
			IngredientsImage: formImage(r, "ingredients_image"),
		}
		p := &pagePresenter{s: s, w: w, r: r, alert: alert(http.StatusBadGateway)}

		err := s.workflow.SubmitScan(r.Context(), input, p)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrSubmissionFailed):
			s.dropRejectedSession(r.Context(), err)
		case errors.Is(err, apperrors.ErrIncompleteScan):
			alert(http.StatusBadRequest)(msgMissingImages)
		case errors.Is(err, apperrors.ErrSubmissionInProgress):
			alert(http.StatusConflict)(msgBusy)
		default:
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// formImage reads one uploaded file, nil when absent or empty
func formImage(r *http.Request, field string) *analysis.Image {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		return nil
	}
	return &analysis.Image{
		Filename:    header.Filename,
		ContentType: partContentType(header, data),
		Data:        data,
	}
}

func partContentType(header *multipart.FileHeader, data []byte) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return http.DetectContentType(data)
}

// ManualField is one input of the manual-entry form
type ManualField struct {
	Name        string
	Label       string
	Placeholder string
	Value       string
}

func manualFields(in analysis.ManualInput) []ManualField {
	return []ManualField{
		{Name: "calories", Label: "Calories", Placeholder: "kcal", Value: in.Calories},
		{Name: "protein", Label: "Protein", Placeholder: "g", Value: in.Protein},
		{Name: "fats", Label: "Fats", Placeholder: "g", Value: in.Fats},
		{Name: "carbohydrates", Label: "Carbohydrates", Placeholder: "g", Value: in.Carbohydrates},
		{Name: "sugar", Label: "Sugar", Placeholder: "g", Value: in.Sugar},
		{Name: "sodium", Label: "Sodium", Placeholder: "mg", Value: in.Sodium},
		{Name: "saturated_fat", Label: "Saturated fat", Placeholder: "g", Value: in.SaturatedFat},
		{Name: "trans_fat", Label: "Trans fat", Placeholder: "g", Value: in.TransFat},
		{Name: "cholesterol", Label: "Cholesterol", Placeholder: "mg", Value: in.Cholesterol},
	}
}

// ManualEntryPage is the manual-entry form state
type ManualEntryPage struct {
	Fields      []ManualField
	Ingredients string
}

func (s *Server) ManualEntryPageHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := s.newPage(r, "Manual entry")
		page.Data = ManualEntryPage{Fields: manualFields(analysis.ManualInput{})}
		s.render(w, tmpl, http.StatusOK, page)
	}
}

// ManualEntrySubmissionHandler submits the typed-in label (POST /manual-entry)
func (s *Server) ManualEntrySubmissionHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		input := analysis.ManualInput{
			Calories:      r.PostFormValue("calories"),
			Protein:       r.PostFormValue("protein"),
			Fats:          r.PostFormValue("fats"),
			Carbohydrates: r.PostFormValue("carbohydrates"),
			Sugar:         r.PostFormValue("sugar"),
			Sodium:        r.PostFormValue("sodium"),
			SaturatedFat:  r.PostFormValue("saturated_fat"),
			TransFat:      r.PostFormValue("trans_fat"),
			Cholesterol:   r.PostFormValue("cholesterol"),
			Ingredients:   r.PostFormValue("ingredients"),
		}
		alert := func(status int) func(string) {
			return func(msg string) {
				page := s.newPage(r, "Manual entry")
				page.Error = msg
				page.Data = ManualEntryPage{Fields: manualFields(input), Ingredients: input.Ingredients}
				s.render(w, tmpl, status, page)
			}
		}
		p := &pagePresenter{s: s, w: w, r: r, alert: alert(http.StatusBadGateway)}

		err := s.workflow.SubmitManual(r.Context(), input, p)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrSubmissionFailed):
			s.dropRejectedSession(r.Context(), err)
		case errors.Is(err, apperrors.ErrSubmissionInProgress):
			alert(http.StatusConflict)(msgBusy)
		default:
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// ResultPage is what the result and history views render
type ResultPage struct {
	Result      api.AnalysisResult
	Total       score.Gauge
	Ingredients score.Gauge
	Nutrition   score.Gauge
	Nutrients   []api.Nutrient
	Categories  []score.Category
	ChatLink    string
}

func newResultPage(result api.AnalysisResult) ResultPage {
	return ResultPage{
		Result:      result,
		Total:       score.NewGauge(result.TotalScore),
		Ingredients: score.NewGauge(result.IngredientsScore),
		Nutrition:   score.NewGauge(result.NutritionScore),
		Nutrients:   result.Nutrients(),
		Categories:  score.Categories(),
	}
}

// ResultHandler renders a handed-over analysis. A reload finds no state and goes back to scanning.
func (s *Server) ResultHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.navigation.Take(r.URL.Query().Get(navigation.StateParam), navigation.RouteResult)
		if err != nil {
			redirectSuccess(w, r, navigation.Upstream(navigation.RouteResult))
			return
		}
		data := newResultPage(state.Result)
		data.ChatLink = navigation.WithState(navigation.RouteChat, s.navigation.Put(navigation.RouteChat, state.Result))

		page := s.newPage(r, "Result")
		page.Data = data
		s.render(w, tmpl, http.StatusOK, page)
	}
}

// ChatPage is the assistant placeholder, seeded with the last analysis when one was handed over
type ChatPage struct {
	HasResult bool
	Summary   string
	Total     score.Gauge
}

func (s *Server) ChatHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := ChatPage{}
		if id := r.URL.Query().Get(navigation.StateParam); id != "" {
			if state, err := s.navigation.Take(id, navigation.RouteChat); err == nil {
				data = ChatPage{HasResult: true, Summary: state.Result.Summary, Total: score.NewGauge(state.Result.TotalScore)}
			}
		}
		page := s.newPage(r, "Chat")
		page.Data = data
		s.render(w, tmpl, http.StatusOK, page)
	}
}
