package api

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/go-foodscore/internal/utils"
	"github.com/pkg/errors"
)

// backendTimeLayout is how the backend formats created_at and timestamp
const backendTimeLayout = "2006-01-02 15:04:05"

// AnalysisResult is a scored food label, either fresh from an analysis request or read
// back from the user's history. It is immutable once decoded.
type AnalysisResult struct {
	HistoryID          int64
	TotalScore         float64
	IngredientsScore   float64
	NutritionScore     float64
	NutritionData      map[string]float64
	IngredientsRawData []string
	Summary            string
	CreatedAt          time.Time
}

// Nutrient is one row of the nutrition table
type Nutrient struct {
	Name  string
	Value float64
}

// Nutrients returns NutritionData sorted by name
func (r AnalysisResult) Nutrients() []Nutrient {
	nutrients := make([]Nutrient, 0, len(r.NutritionData))
	for name, value := range r.NutritionData {
		nutrients = append(nutrients, Nutrient{Name: strings.ReplaceAll(name, "_", " "), Value: value})
	}
	sort.Slice(nutrients, func(i, j int) bool {
		return nutrients[i].Name < nutrients[j].Name
	})
	return nutrients
}

// liveResult is the shape returned by /result_api/ and /manual-entry/
type liveResult struct {
	HistoryID   *int64   `json:"history_id"`
	TotalScore  *float64 `json:"total_score"`
	Summary     string   `json:"analysis_summary"`
	Timestamp   string   `json:"timestamp"`
	Ingredients struct {
		RawData []any    `json:"raw_data"`
		Score   *float64 `json:"score"`
	} `json:"ingredients"`
	Nutrition struct {
		Data  map[string]any `json:"data"`
		Score *float64       `json:"score"`
	} `json:"nutrition"`
}

// historyRecord is the shape of one /user-history/ entry
type historyRecord struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
	Scores    *struct {
		Total       *float64 `json:"total"`
		Ingredients *float64 `json:"ingredients"`
		Nutrition   *float64 `json:"nutrition"`
	} `json:"scores"`
	NutritionData   map[string]any `json:"nutrition_data"`
	IngredientsData struct {
		RawData []any `json:"raw_data"`
	} `json:"ingredients_data"`
	Summary string `json:"analysis_summary"`
}

// UnmarshalJSON accepts both the live result and the history record shapes.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return errors.Wrap(err, "analysis result")
	}

	if _, ok := probe["scores"]; ok {
		var rec historyRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return errors.Wrap(err, "history record")
		}
		if rec.Scores == nil || rec.Scores.Total == nil {
			return errors.New("history record has no total score")
		}
		*r = AnalysisResult{
			HistoryID:          rec.ID,
			TotalScore:         *rec.Scores.Total,
			IngredientsScore:   utils.Value(rec.Scores.Ingredients),
			NutritionScore:     utils.Value(rec.Scores.Nutrition),
			NutritionData:      toNutritionData(rec.NutritionData),
			IngredientsRawData: utils.ToStringSlice(rec.IngredientsData.RawData),
			Summary:            rec.Summary,
			CreatedAt:          parseTime(rec.CreatedAt),
		}
		return nil
	}

	var live liveResult
	if err := json.Unmarshal(data, &live); err != nil {
		return errors.Wrap(err, "analysis result")
	}
	if live.TotalScore == nil {
		return errors.New("analysis result has no total score")
	}
	*r = AnalysisResult{
		HistoryID:          utils.Value(live.HistoryID),
		TotalScore:         *live.TotalScore,
		IngredientsScore:   utils.Value(live.Ingredients.Score),
		NutritionScore:     utils.Value(live.Nutrition.Score),
		NutritionData:      toNutritionData(live.Nutrition.Data),
		IngredientsRawData: utils.ToStringSlice(live.Ingredients.RawData),
		Summary:            live.Summary,
		CreatedAt:          parseTime(live.Timestamp),
	}
	return nil
}

func decodeResult(body []byte) (*AnalysisResult, error) {
	var result AnalysisResult
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func toNutritionData(raw map[string]any) map[string]float64 {
	data := make(map[string]float64, len(raw))
	for k, v := range raw {
		if f, ok := utils.ToFloat(v); ok {
			data[k] = f
		}
	}
	return data
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(backendTimeLayout, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
