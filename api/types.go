package api

import (
	"time"

	"github.com/jrsteele09/go-foodscore/sessions"
)

// LoginRequest is the body of POST /login/
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Message string               `json:"message,omitempty"`
	Access  string               `json:"access"`
	Refresh string               `json:"refresh"`
	User    sessions.UserProfile `json:"user"`
}

// RegisterRequest is the body of POST /register/
type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is returned by a successful registration. The backend signs the new
// user in, but the user record it returns carries no unique_id.
type RegisterResponse = LoginResponse

// Profile is returned by GET /profile/
type Profile struct {
	UniqueID   string `json:"unique_id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	DateJoined string `json:"date_joined,omitempty"`
}

// Upload is one image file of a scan submission
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ScanUpload is the multipart body of POST /result_api/
type ScanUpload struct {
	NutritionImage   Upload
	IngredientsImage Upload
}

// NutritionInput carries the manual nutrition fields exactly as the user typed them
type NutritionInput struct {
	Calories      string `json:"calories"`
	Protein       string `json:"protein"`
	Fats          string `json:"fats"`
	Carbohydrates string `json:"carbohydrates"`
	Sugar         string `json:"sugar"`
	Sodium        string `json:"sodium"`
	SaturatedFat  string `json:"saturated_fat"`
	TransFat      string `json:"trans_fat"`
	Cholesterol   string `json:"cholesterol"`
}

// ManualEntryRequest is the body of POST /manual-entry/
type ManualEntryRequest struct {
	IngredientsText string         `json:"ingredients_text"`
	NutritionData   NutritionInput `json:"nutrition_data"`
}

// HistoryQuery filters GET /user-history/. Zero values are omitted.
type HistoryQuery struct {
	Limit     *int
	StartDate time.Time
	EndDate   time.Time
}
